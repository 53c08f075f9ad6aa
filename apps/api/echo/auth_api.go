package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/clms-app/clms/core"
	"github.com/clms-app/clms/core/user"
)

type authApi struct {
	conf *core.Config
	svc  *user.Service
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, conf *core.Config, svc *user.Service) {
	api := authApi{conf: conf, svc: svc}

	ag := g.Group("/auth")
	ag.POST("/register", api.registerTeacher)
	ag.POST("/login", api.loginTeacher)
	ag.POST("/student/register", api.registerStudent)
	ag.POST("/student/login", api.loginStudent)
	ag.POST("/token-refresh", api.refreshToken, jwt, roleMiddleware(""))
}

// Handlers

func (api *authApi) registerTeacher(ctx echo.Context) error {
	var data user.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	t, err := api.svc.RegisterTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering teacher")
	}
	return ctx.JSON(http.StatusCreated, TeacherResponse{Message: "Teacher registered", Teacher: t})
}

func (api *authApi) registerStudent(ctx echo.Context) error {
	var data user.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	s, err := api.svc.RegisterStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	return ctx.JSON(http.StatusCreated, StudentResponse{Message: "Student registered", Student: s})
}

func (api *authApi) loginTeacher(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	t, err := api.svc.AuthenticateTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "authenticating teacher")
	}
	return api.login(ctx, t.Identity())
}

func (api *authApi) loginStudent(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	s, err := api.svc.AuthenticateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "authenticating student")
	}
	return api.login(ctx, s.Identity())
}

func (api *authApi) login(ctx echo.Context, identity core.Identity) error {
	token, err := GenerateToken(api.conf, NewClaims(api.conf, identity))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Message: "Login successful", Token: token})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// check if the account still exists
	identity := claims.Identity()
	if identity.IsTeacher() {
		_, err = api.svc.GetTeacher(ctx.Request().Context(), identity.ID)
	} else {
		_, err = api.svc.GetStudent(ctx.Request().Context(), identity.ID)
	}
	if err != nil {
		if core.IsNotFound(err) {
			return core.ErrNotAuthenticated
		}
		return errors.Wrap(err, "getting account")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(api.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	token, err := GenerateToken(api.conf, NewClaims(api.conf, identity, claims.OrigIssuedAt))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}
