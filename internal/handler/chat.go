package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/codecloudhq/cloud-agents/internal/chat"
	"github.com/codecloudhq/cloud-agents/internal/middleware"
	"github.com/codecloudhq/cloud-agents/internal/repository"
)

// ChatHandler exposes the chat orchestrator over HTTP.
type ChatHandler struct {
	Orchestrator *chat.Orchestrator
}

func NewChatHandler(o *chat.Orchestrator) *ChatHandler {
	return &ChatHandler{Orchestrator: o}
}

type sendMessageReq struct {
	ChatID         string `json:"chatId"`
	Message        string `json:"message"`
	AgentName      string `json:"agentName"`
	Model          string `json:"model"`
	ModelProvider  string `json:"modelProvider"`
	IncludeHistory bool   `json:"includeHistory"`
	MaxHistory     int    `json:"maxHistory"`
}

// Send dispatches one message. Model/provider are optional; the
// selector fills them in.
func (h *ChatHandler) Send(c echo.Context) error {
	var req sendMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message required"})
	}
	if req.AgentName == "" {
		req.AgentName = "Assistant"
	}

	// No reqCtx here: the provider round trip is allowed its full 60s,
	// the request context already carries client disconnects.
	resp, err := h.Orchestrator.SendMessage(c.Request().Context(), chat.Request{
		UserID:         middleware.UserID(c),
		Role:           middleware.Role(c),
		ChatID:         req.ChatID,
		Message:        req.Message,
		AgentName:      req.AgentName,
		Model:          req.Model,
		Provider:       req.ModelProvider,
		IncludeHistory: req.IncludeHistory,
		MaxHistory:     req.MaxHistory,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// List pages through the caller's chats.
func (h *ChatHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))

	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Orchestrator.ListChats(ctx, middleware.UserID(c), page, pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list chats failed"})
	}
	return c.JSON(http.StatusOK, out)
}

// History returns one chat's transcript, oldest first.
func (h *ChatHandler) History(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx, cancel := reqCtx(c)
	defer cancel()

	page, err := h.Orchestrator.History(ctx, middleware.UserID(c), c.Param("id"), limit, offset)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

type renameChatReq struct {
	Title string `json:"title"`
}

// Rename updates a chat title.
func (h *ChatHandler) Rename(c echo.Context) error {
	var req renameChatReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Orchestrator.RenameChat(ctx, middleware.UserID(c), c.Param("id"), req.Title); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Delete removes a chat and its messages.
func (h *ChatHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Orchestrator.DeleteChat(ctx, middleware.UserID(c), c.Param("id")); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *ChatHandler) mapError(c echo.Context, err error) error {
	var perr *chat.ProviderError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "chat not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, chat.ErrUnknownProvider):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown model provider"})
	case errors.Is(err, chat.ErrDemoBlocked):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "demo account blocked or expired"})
	case errors.Is(err, chat.ErrDemoLimitReached):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "demo limit reached"})
	case errors.As(err, &perr):
		// Provider detail goes to the log, not the client.
		log.Printf("chat: %v", perr)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "model provider error"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "chat failed"})
}
