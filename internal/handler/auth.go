// Package handler wires HTTP endpoints to repositories and services.
// Handlers bind, validate, call the storage layer with a bounded
// context and translate sentinel errors to statuses.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/codecloudhq/cloud-agents/internal/auth"
	"github.com/codecloudhq/cloud-agents/internal/middleware"
	"github.com/codecloudhq/cloud-agents/internal/model"
	"github.com/codecloudhq/cloud-agents/internal/repository"
)

// dbTimeout bounds one handler's database work.
const dbTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// AuthHandler bundles dependencies for session endpoints.
type AuthHandler struct {
	Users  *repository.UserRepo
	Issuer *auth.Issuer
}

func NewAuthHandler(users *repository.UserRepo, issuer *auth.Issuer) *AuthHandler {
	return &AuthHandler{Users: users, Issuer: issuer}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type userView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	DisplayName *string    `json:"displayName,omitempty"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func toUserView(u model.User) userView {
	return userView{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role,
		DisplayName: u.DisplayName,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

type authResp struct {
	User   userView       `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.VerifyPassword(ctx, req.Email, req.Password)
	if err != nil {
		if err == repository.ErrInvalidCredentials {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	pair, err := h.Issuer.Issue(auth.TokenPayload{UserID: u.ID, Role: u.Role, Email: u.Email})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}

	return c.JSON(http.StatusOK, authResp{User: toUserView(u), Tokens: pair})
}

// Logout revokes the presented access token, and the refresh token too
// when the client sends it along. Revocation is in the blacklist, so
// the tokens die immediately instead of at their natural expiry.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	header := c.Request().Header.Get("Authorization")
	if raw := strings.TrimPrefix(header, "Bearer "); raw != header && raw != "" {
		if err := h.Issuer.Revoke(ctx, raw); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	}

	var req refreshReq
	if err := c.Bind(&req); err == nil && req.RefreshToken != "" {
		if err := h.Issuer.Revoke(ctx, req.RefreshToken); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Refresh rotates a refresh token: the old one is revoked and a brand
// new pair is returned. Replaying a rotated token fails.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, payload := h.Issuer.Rotate(ctx, req.RefreshToken)
	if pair == nil || payload == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tokens": pair})
}

// Verify reports whether the presented access token is valid and, when
// it is, echoes its claims. Runs behind JWTAuth so reaching the
// handler already means the token passed.
func (h *AuthHandler) Verify(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"valid":  true,
		"userId": middleware.UserID(c),
		"role":   middleware.Role(c),
	})
}

// Me returns the authenticated user's record.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, toUserView(u))
}
