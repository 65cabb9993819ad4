package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/codecloudhq/cloud-agents/internal/auth"
	"github.com/codecloudhq/cloud-agents/internal/middleware"
	"github.com/codecloudhq/cloud-agents/internal/model"
	"github.com/codecloudhq/cloud-agents/internal/repository"
	"github.com/codecloudhq/cloud-agents/internal/utils"
)

// DemoHandler serves the invite lifecycle: admin CRUD, the public
// availability check and redemption, demo account status and the cron
// expiry sweep.
type DemoHandler struct {
	Invites       *repository.InviteRepo
	Issuer        *auth.Issuer
	PublicBaseURL string
	BcryptCost    int
}

func NewDemoHandler(invites *repository.InviteRepo, issuer *auth.Issuer, publicBaseURL string, bcryptCost int) *DemoHandler {
	return &DemoHandler{Invites: invites, Issuer: issuer, PublicBaseURL: publicBaseURL, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type createInviteReq struct {
	CreditLimitUSD float64 `json:"creditLimitUSD"`
	MaxMessages    int     `json:"maxMessages"`
	MaxDays        int     `json:"maxDays"`
	MaxUses        int     `json:"maxUses"`
	ExpiresInDays  int     `json:"expiresInDays"`
}

type redeemReq struct {
	Code     string `json:"code"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type inviteView struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	InviteURL      string    `json:"inviteUrl"`
	CreditLimitUSD float64   `json:"creditLimitUSD"`
	MaxMessages    int       `json:"maxMessages"`
	MaxDays        int       `json:"maxDays"`
	MaxUses        int       `json:"maxUses"`
	UsedCount      int       `json:"usedCount"`
	Active         bool      `json:"active"`
	Available      bool      `json:"available"`
	ExpiresAt      time.Time `json:"expiresAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (h *DemoHandler) toInviteView(inv model.DemoInvite) inviteView {
	return inviteView{
		ID:             inv.ID,
		Code:           inv.Code,
		InviteURL:      h.PublicBaseURL + "/demo/register?code=" + inv.Code,
		CreditLimitUSD: inv.CreditLimitUSD,
		MaxMessages:    inv.MaxMessages,
		MaxDays:        inv.MaxDays,
		MaxUses:        inv.MaxUses,
		UsedCount:      inv.UsedCount,
		Active:         inv.Active,
		Available:      inv.Available(time.Now().UTC()),
		ExpiresAt:      inv.ExpiresAt,
		CreatedAt:      inv.CreatedAt,
	}
}

// CreateInvite mints a new invite. Admin only.
func (h *DemoHandler) CreateInvite(c echo.Context) error {
	var req createInviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.CreditLimitUSD <= 0 || req.MaxMessages <= 0 || req.MaxDays <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "creditLimitUSD, maxMessages and maxDays must be positive"})
	}
	if req.MaxUses <= 0 {
		req.MaxUses = 1
	}
	if req.ExpiresInDays <= 0 {
		req.ExpiresInDays = req.MaxDays
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	inv, err := h.Invites.CreateInvite(ctx, middleware.UserID(c), repository.InviteSpec{
		CreditLimitUSD: req.CreditLimitUSD,
		MaxMessages:    req.MaxMessages,
		MaxDays:        req.MaxDays,
		MaxUses:        req.MaxUses,
		ExpiresInDays:  req.ExpiresInDays,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create invite failed"})
	}
	return c.JSON(http.StatusCreated, h.toInviteView(inv))
}

// ListInvites returns the invites the calling admin created.
func (h *DemoHandler) ListInvites(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	invites, err := h.Invites.ListByCreator(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list invites failed"})
	}
	views := make([]inviteView, 0, len(invites))
	for _, inv := range invites {
		views = append(views, h.toInviteView(inv))
	}
	return c.JSON(http.StatusOK, echo.Map{"invites": views, "count": len(views)})
}

// CheckInvite is the public availability probe a registration page
// calls before showing the signup form. It reveals limits but never
// who created the invite.
func (h *DemoHandler) CheckInvite(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	inv, err := h.Invites.GetByCode(ctx, c.Param("code"))
	if err != nil {
		if err == repository.ErrInviteNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invite not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"code":           inv.Code,
		"creditLimitUSD": inv.CreditLimitUSD,
		"maxMessages":    inv.MaxMessages,
		"maxDays":        inv.MaxDays,
		"expiresAt":      inv.ExpiresAt,
		"available":      inv.Available(time.Now().UTC()),
	})
}

// DeactivateInvite retires an invite. Terminal; there is no
// reactivation.
func (h *DemoHandler) DeactivateInvite(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Invites.DeactivateInvite(ctx, c.Param("id")); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invite not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Redeem consumes an invite slot and creates the demo account, then
// logs the new user straight in with a token pair. Public, but rate
// limited upstream.
func (h *DemoHandler) Redeem(c echo.Context) error {
	var req redeemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Code == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code and email required"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redeem failed"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	demo, err := h.Invites.Redeem(ctx, req.Code, req.Email, hash)
	if err != nil {
		switch err {
		case repository.ErrInviteNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invite not found"})
		case repository.ErrInviteUnavailable:
			return c.JSON(http.StatusConflict, echo.Map{"error": "invite no longer available"})
		case repository.ErrEmailExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redeem failed"})
	}

	pair, err := h.Issuer.Issue(auth.TokenPayload{UserID: demo.UserID, Role: model.RoleDemo, Email: demo.Email})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"user": echo.Map{
			"id":             demo.UserID,
			"email":          demo.Email,
			"role":           model.RoleDemo,
			"creditLimitUSD": demo.CreditLimitUSD,
			"maxMessages":    demo.MaxMessages,
			"expiresAt":      demo.ExpiresAt,
		},
		"tokens": pair,
	})
}

// Status returns the calling demo user's remaining allowance.
func (h *DemoHandler) Status(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	demo, err := h.Invites.GetDemoUser(ctx, middleware.UserID(c))
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not a demo account"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	daysRemaining := int(time.Until(demo.ExpiresAt).Hours() / 24)
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	return c.JSON(http.StatusOK, echo.Map{
		"email":             demo.Email,
		"creditLimitUSD":    demo.CreditLimitUSD,
		"creditUsedUSD":     demo.CreditUsedUSD,
		"maxMessages":       demo.MaxMessages,
		"messagesUsed":      demo.MessagesUsed,
		"messagesRemaining": demo.MaxMessages - demo.MessagesUsed,
		"expiresAt":         demo.ExpiresAt,
		"daysRemaining":     daysRemaining,
		"active":            demo.Active,
		"blocked":           demo.Blocked,
	})
}

// GetUser returns one demo account's limits row. Admin only.
func (h *DemoHandler) GetUser(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	demo, err := h.Invites.GetDemoUser(ctx, c.Param("id"))
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "demo user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"userId":         demo.UserID,
		"inviteId":       demo.InviteID,
		"email":          demo.Email,
		"creditLimitUSD": demo.CreditLimitUSD,
		"creditUsedUSD":  demo.CreditUsedUSD,
		"maxMessages":    demo.MaxMessages,
		"messagesUsed":   demo.MessagesUsed,
		"expiresAt":      demo.ExpiresAt,
		"active":         demo.Active,
		"blocked":        demo.Blocked,
		"createdAt":      demo.CreatedAt,
	})
}

// DeactivateUser disables a demo account and its login. Admin only.
func (h *DemoHandler) DeactivateUser(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Invites.DeactivateDemoUser(ctx, c.Param("id")); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "demo user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Stats aggregates the demo system for admin dashboards.
func (h *DemoHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Invites.Stats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats failed"})
	}
	return c.JSON(http.StatusOK, stats)
}

// ExpireSweep deactivates every demo account past its expiry. Guarded
// by the cron secret; running it twice in a row reports zero the
// second time.
func (h *DemoHandler) ExpireSweep(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := h.Invites.ExpireOldDemoUsers(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "expire sweep failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "expiredCount": n})
}
