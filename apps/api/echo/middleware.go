package echoapi

import (
	"github.com/labstack/echo/v4"
)

// roleMiddleware lets through the callers holding role. An empty role accepts any authenticated caller.
func roleMiddleware(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if err := getContextIdentity(ctx).Require(role); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
