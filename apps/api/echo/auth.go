package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/clms-app/clms/core"
)

const (
	contextTokenKey    = "userToken"
	contextIdentityKey = "identity"
	tokenAudience      = "cLMS"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	ID           string `json:"id"`
	Role         string `json:"role"`
	OrigIssuedAt int64  `json:"oriat,omitempty"`
}

func (c Claims) Identity() core.Identity {
	return core.Identity{ID: c.ID, Role: c.Role}
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// NewClaims returns the claims of a fresh token for identity.
// origIat carries the first issue time over token refreshes.
func NewClaims(conf *core.Config, identity core.Identity, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   identity.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		ID:           identity.ID,
		Role:         identity.Role,
		OrigIssuedAt: oriat,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, core.ErrNotAuthenticated
}

// getContextIdentity returns the caller's identity, or an empty one on un-authed routes.
func getContextIdentity(ctx echo.Context) core.Identity {
	if identity, ok := ctx.Get(contextIdentityKey).(core.Identity); ok {
		return identity
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Identity{}
	}
	identity := claims.Identity()
	ctx.Set(contextIdentityKey, identity)
	return identity
}
