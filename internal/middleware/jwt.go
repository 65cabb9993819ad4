// Package middleware provides reusable HTTP middleware: bearer token
// authentication, role gating, Redis rate limiting and the cron secret
// check.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/codecloudhq/cloud-agents/internal/auth"
)

// Context keys set by JWTAuth for downstream handlers.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxEmail  = "email"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token through the issuer, which also consults the revocation store:
// a logged-out token fails here even before it expires. On success the
// subject, role and email land in the request context under
// CtxUserID, CtxRole and CtxEmail.
func JWTAuth(issuer *auth.Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			payload := issuer.Verify(c.Request().Context(), raw, auth.KindAccess)
			if payload == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(CtxUserID, payload.UserID)
			c.Set(CtxRole, payload.Role)
			c.Set(CtxEmail, payload.Email)
			return next(c)
		}
	}
}

// UserID returns the authenticated user's id from the context, or ""
// when the route is unauthenticated.
func UserID(c echo.Context) string {
	if v, ok := c.Get(CtxUserID).(string); ok {
		return v
	}
	return ""
}

// Role returns the authenticated user's role from the context.
func Role(c echo.Context) string {
	if v, ok := c.Get(CtxRole).(string); ok {
		return v
	}
	return ""
}
