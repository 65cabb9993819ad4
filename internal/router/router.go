// Package router registers the HTTP routes and binds them to their
// middleware chains.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/codecloudhq/cloud-agents/internal/auth"
	"github.com/codecloudhq/cloud-agents/internal/config"
	"github.com/codecloudhq/cloud-agents/internal/handler"
	"github.com/codecloudhq/cloud-agents/internal/middleware"
	"github.com/codecloudhq/cloud-agents/internal/model"
)

// RegisterHealth exposes the liveness probe. No auth.
func RegisterHealth(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/health", h.Check)
	e.GET("/healthz", h.Check)
}

// RegisterAuth wires the session endpoints. Login and refresh are
// public; logout, verify and me require a live access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, issuer *auth.Issuer) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	protected := e.Group("/v1/auth", middleware.JWTAuth(issuer))
	protected.POST("/logout", a.Logout)
	protected.GET("/verify", a.Verify)
	protected.GET("/me", a.Me)
}

// RegisterUsers wires user management. Listing, stats, creation and
// deletion are admin-only; read, update and password change enforce
// admin-or-self inside the handler.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, issuer *auth.Issuer) {
	g := e.Group("/v1/users", middleware.JWTAuth(issuer))

	admin := middleware.RequireRole(model.RoleAdmin)
	g.GET("", u.List, admin)
	g.POST("", u.Create, admin)
	g.GET("/stats", u.Stats, admin)
	g.DELETE("/:id", u.Delete, admin)

	g.GET("/:id", u.Get)
	g.PATCH("/:id", u.Update)
	g.PUT("/:id/password", u.ChangePassword)
}

// RegisterDemo wires the invite lifecycle. The availability check and
// redemption are public; redemption sits behind the Redis token bucket
// so invite codes cannot be brute-forced. The expiry sweep is guarded
// by the cron secret instead of a JWT.
func RegisterDemo(e *echo.Echo, d *handler.DemoHandler, issuer *auth.Issuer, rdb *redis.Client, cronSecret string) {
	e.GET("/v1/demo/invites/:code", d.CheckInvite)
	e.POST("/v1/demo/redeem", d.Redeem, middleware.NewTokenBucket(config.LoadRedeemRateLimit(), rdb))

	admin := e.Group("/v1/demo", middleware.JWTAuth(issuer), middleware.RequireRole(model.RoleAdmin))
	admin.POST("/invites", d.CreateInvite)
	admin.GET("/invites", d.ListInvites)
	admin.DELETE("/invites/:id", d.DeactivateInvite)
	admin.GET("/stats", d.Stats)
	admin.GET("/users/:id", d.GetUser)
	admin.DELETE("/users/:id", d.DeactivateUser)

	me := e.Group("/v1/demo", middleware.JWTAuth(issuer), middleware.RequireRole(model.RoleDemo))
	me.GET("/me", d.Status)

	cron := e.Group("/v1/demo/cron", middleware.RequireCronSecret(cronSecret))
	cron.POST("/expire", d.ExpireSweep)
}

// RegisterChat wires the chat endpoints. Every route requires a session;
// ownership checks live in the orchestrator.
func RegisterChat(e *echo.Echo, ch *handler.ChatHandler, issuer *auth.Issuer) {
	g := e.Group("/v1/chat", middleware.JWTAuth(issuer))
	g.POST("/send", ch.Send)
	g.GET("/list", ch.List)
	g.GET("/:id/history", ch.History)
	g.PATCH("/:id", ch.Rename)
	g.DELETE("/:id", ch.Delete)
}

// RegisterBilling wires cost reporting and model selection.
func RegisterBilling(e *echo.Echo, b *handler.BillingHandler, issuer *auth.Issuer) {
	g := e.Group("/v1/billing", middleware.JWTAuth(issuer))
	g.GET("/costs/me", b.MyCosts)
	g.GET("/costs/users/:id", b.UserCosts, middleware.RequireRole(model.RoleAdmin))
	g.GET("/costs/task/:taskId", b.TaskCosts)
	g.POST("/estimate", b.Estimate)
	g.POST("/select-model", b.SelectModel)
}

// RegisterSettings wires per-user and system settings. System settings
// and history are admin-only.
func RegisterSettings(e *echo.Echo, s *handler.SettingsHandler, issuer *auth.Issuer) {
	g := e.Group("/v1/settings", middleware.JWTAuth(issuer))
	g.GET("/me", s.GetMine)
	g.PUT("/me", s.PutMine)
	g.PATCH("/me", s.PatchMine)
	g.DELETE("/me", s.DeleteMine)

	admin := middleware.RequireRole(model.RoleAdmin)
	g.GET("/system", s.ListSystem, admin)
	g.GET("/system/:key", s.GetSystem, admin)
	g.PUT("/system/:key", s.PutSystem, admin)
	g.GET("/history", s.History, admin)
}

// RegisterSupervisor wires the notification intake. Admin only.
func RegisterSupervisor(e *echo.Echo, s *handler.SupervisorHandler, issuer *auth.Issuer) {
	g := e.Group("/v1/supervisor", middleware.JWTAuth(issuer), middleware.RequireRole(model.RoleAdmin))
	g.POST("/notify", s.Notify)
	g.GET("/config", s.Config)
}
