package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/codecloudhq/cloud-agents/internal/billing"
	"github.com/codecloudhq/cloud-agents/internal/middleware"
	"github.com/codecloudhq/cloud-agents/internal/model"
	"github.com/codecloudhq/cloud-agents/internal/repository"
)

// BillingHandler serves cost reporting and model selection.
type BillingHandler struct {
	Costs *repository.CostRepo
}

func NewBillingHandler(costs *repository.CostRepo) *BillingHandler {
	return &BillingHandler{Costs: costs}
}

type costEntryView struct {
	ID           uint64       `json:"id"`
	TaskID       string       `json:"taskId"`
	Model        string       `json:"model"`
	Provider     string       `json:"provider"`
	InputTokens  int          `json:"inputTokens"`
	OutputTokens int          `json:"outputTokens"`
	Cost         billing.Cost `json:"cost"`
	CreatedAt    string       `json:"createdAt"`
}

func toCostViews(entries []model.CostLogEntry) ([]costEntryView, billing.Cost) {
	views := make([]costEntryView, 0, len(entries))
	var total billing.Cost
	for _, e := range entries {
		cost := billing.Estimate(e.Provider, e.Model, e.InputTokens, e.OutputTokens)
		total.USD += cost.USD
		total.EUR += cost.EUR
		views = append(views, costEntryView{
			ID:           e.ID,
			TaskID:       e.TaskID,
			Model:        e.Model,
			Provider:     e.Provider,
			InputTokens:  e.InputTokens,
			OutputTokens: e.OutputTokens,
			Cost:         cost,
			CreatedAt:    e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return views, total
}

// MyCosts returns the caller's cost entries with a running total.
func (h *BillingHandler) MyCosts(c echo.Context) error {
	return h.costsFor(c, middleware.UserID(c))
}

// UserCosts returns any user's cost entries. Admin only.
func (h *BillingHandler) UserCosts(c echo.Context) error {
	return h.costsFor(c, c.Param("id"))
}

func (h *BillingHandler) costsFor(c echo.Context, userID string) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx, cancel := reqCtx(c)
	defer cancel()

	entries, err := h.Costs.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list costs failed"})
	}
	views, total := toCostViews(entries)
	return c.JSON(http.StatusOK, echo.Map{
		"userId":  userID,
		"entries": views,
		"total":   total,
		"count":   len(views),
	})
}

// TaskCosts returns the entries recorded against one task (chat).
func (h *BillingHandler) TaskCosts(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	entries, err := h.Costs.ListByTask(ctx, c.Param("taskId"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list costs failed"})
	}
	views, total := toCostViews(entries)
	return c.JSON(http.StatusOK, echo.Map{
		"taskId":  c.Param("taskId"),
		"entries": views,
		"total":   total,
		"count":   len(views),
	})
}

type estimateReq struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	InputTokens  int    `json:"inputTokens"`
	OutputTokens int    `json:"outputTokens"`
}

// Estimate prices a hypothetical invocation without running it.
func (h *BillingHandler) Estimate(c echo.Context) error {
	var req estimateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Provider == "" || req.InputTokens < 0 || req.OutputTokens < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provider and non-negative token counts required"})
	}
	return c.JSON(http.StatusOK, billing.Estimate(req.Provider, req.Model, req.InputTokens, req.OutputTokens))
}

type selectModelReq struct {
	Message          string  `json:"message"`
	PreferLocal      bool    `json:"preferLocal"`
	MaxCostUSD       float64 `json:"maxCostUSD"`
	RequireReasoning bool    `json:"requireReasoning"`
}

// SelectModel runs the routing heuristic and reports its pick.
func (h *BillingHandler) SelectModel(c echo.Context) error {
	var req selectModelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message required"})
	}
	return c.JSON(http.StatusOK, billing.SelectModel(req.Message, billing.SelectionOptions{
		PreferLocal:      req.PreferLocal,
		MaxCostUSD:       req.MaxCostUSD,
		RequireReasoning: req.RequireReasoning,
	}))
}
