package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/clms-app/clms/core"
	"github.com/clms-app/clms/core/gamification"
)

type gamificationApi struct {
	svc *gamification.Service
}

func registerGamificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *gamification.Service) {
	api := gamificationApi{svc: svc}
	studentOnly := roleMiddleware(core.RoleStudent)

	pg := g.Group("/progress", jwt, studentOnly)
	pg.POST("", api.complete)
	pg.GET("", api.listProgress)

	gg := g.Group("/gamification", jwt)
	gg.POST("/complete", api.complete, studentOnly)
	gg.GET("/leaderboard", api.leaderboard, roleMiddleware(""))
	gg.GET("/badges", api.myBadges, studentOnly)

	g.GET("/badges", api.badges, jwt, roleMiddleware(""))
}

// Handlers

// complete records a lesson completion: 201 for the first one, 200 afterwards.
func (api *gamificationApi) complete(ctx echo.Context) error {
	var data gamification.Completion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Completion")
	}
	res, err := api.svc.CompleteLesson(ctx.Request().Context(), getContextIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "completing lesson")
	}

	if res.Created {
		return ctx.JSON(http.StatusCreated, CompletionResponse{Message: "Lesson completed", CompletionResult: res})
	}
	return ctx.JSON(http.StatusOK, CompletionResponse{Message: "Progress updated", CompletionResult: res})
}

func (api *gamificationApi) listProgress(ctx echo.Context) error {
	progress, err := api.svc.StudentProgress(ctx.Request().Context(), getContextIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "listing progress")
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (api *gamificationApi) leaderboard(ctx echo.Context) error {
	var limit int
	if l := ctx.QueryParam("limit"); l != "" {
		var err error
		if limit, err = strconv.Atoi(l); err != nil || limit < 1 {
			verr := errors.New("limit must be a positive integer")
			return core.NewValidationError(verr, core.FieldError{Field: "limit", Error: verr.Error()})
		}
	}

	top, err := api.svc.TopStudents(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "querying leaderboard")
	}
	return ctx.JSON(http.StatusOK, top)
}

func (api *gamificationApi) myBadges(ctx echo.Context) error {
	badges, err := api.svc.StudentBadges(ctx.Request().Context(), getContextIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "listing student badges")
	}
	return ctx.JSON(http.StatusOK, badges)
}

func (api *gamificationApi) badges(ctx echo.Context) error {
	badges, err := api.svc.Badges(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing badges")
	}
	return ctx.JSON(http.StatusOK, badges)
}
