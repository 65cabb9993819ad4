package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/codecloudhq/cloud-agents/internal/middleware"
	"github.com/codecloudhq/cloud-agents/internal/model"
	"github.com/codecloudhq/cloud-agents/internal/repository"
	"github.com/codecloudhq/cloud-agents/internal/utils"
)

// UserHandler serves user management endpoints. Most routes are
// admin-only; the self routes let any authenticated user read and edit
// their own account within limits.
type UserHandler struct {
	Users      *repository.UserRepo
	BcryptCost int
}

func NewUserHandler(users *repository.UserRepo, bcryptCost int) *UserHandler {
	return &UserHandler{Users: users, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type createUserReq struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	Role        string  `json:"role"`
	DisplayName *string `json:"displayName"`
}

type updateUserReq struct {
	Email       *string `json:"email"`
	Role        *string `json:"role"`
	DisplayName *string `json:"displayName"`
	IsActive    *bool   `json:"isActive"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	Password        string `json:"password"`
}

func validRole(role string) bool {
	switch role {
	case model.RoleAdmin, model.RoleUser, model.RoleDemo:
		return true
	}
	return false
}

// List returns users, optionally filtered by role and active flag.
func (h *UserHandler) List(c echo.Context) error {
	var f repository.ListFilter
	if role := c.QueryParam("role"); role != "" {
		if !validRole(role) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
		}
		f.Role = &role
	}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "active must be a boolean"})
		}
		f.IsActive = &active
	}
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	f.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list users failed"})
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": views, "count": len(views)})
}

// Stats returns user counts by role and activity.
func (h *UserHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Users.Stats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats failed"})
	}
	return c.JSON(http.StatusOK, stats)
}

// Get returns one user. Admins may read anyone; everyone else only
// themselves.
func (h *UserHandler) Get(c echo.Context) error {
	id := c.Param("id")
	if middleware.Role(c) != model.RoleAdmin && middleware.UserID(c) != id {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, toUserView(u))
}

// Create adds a user with an explicit role. Admin only.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if !validRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Email, req.Password, req.Role, req.DisplayName, h.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, toUserView(u))
}

// Update patches a user. Admins may change anything; users may only
// change their own display name and email, not their role or active
// flag.
func (h *UserHandler) Update(c echo.Context) error {
	id := c.Param("id")
	isAdmin := middleware.Role(c) == model.RoleAdmin
	if !isAdmin && middleware.UserID(c) != id {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !isAdmin && (req.Role != nil || req.IsActive != nil) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only admins may change role or active flag"})
	}
	if req.Role != nil && !validRole(*req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Update(ctx, id, repository.UserUpdate{
		Email:       req.Email,
		Role:        req.Role,
		DisplayName: req.DisplayName,
		IsActive:    req.IsActive,
	})
	if err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		case repository.ErrEmailExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toUserView(u))
}

// ChangePassword sets a new password. Admins may reset anyone's
// password outright; users changing their own must prove the current
// one first.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	id := c.Param("id")
	isAdmin := middleware.Role(c) == model.RoleAdmin
	if !isAdmin && middleware.UserID(c) != id {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if !isAdmin {
		u, err := h.Users.GetByID(ctx, id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change password failed"})
		}
		if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "current password incorrect"})
		}
	}

	if err := h.Users.ChangePassword(ctx, id, req.Password, h.BcryptCost); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change password failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Delete removes a user. Admin only, and admins cannot delete their
// own account; demoting or deleting yourself mid-session is a lockout
// nobody has ever meant to do.
func (h *UserHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if middleware.UserID(c) == id {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete own account"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
