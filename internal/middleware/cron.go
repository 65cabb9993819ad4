package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireCronSecret guards maintenance endpoints meant for the
// scheduler rather than end users. The shared secret arrives in the
// X-Cron-Secret header and is compared in constant time. An empty
// configured secret disables the endpoints entirely rather than
// leaving them open.
func RequireCronSecret(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "cron endpoints disabled"})
			}
			got := c.Request().Header.Get("X-Cron-Secret")
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
