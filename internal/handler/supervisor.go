package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/codecloudhq/cloud-agents/internal/notify"
	"github.com/codecloudhq/cloud-agents/internal/queue"
	"github.com/codecloudhq/cloud-agents/internal/service"
)

// SupervisorHandler accepts supervisor events and enqueues them for the
// notification consumer. Publishing is async by design: the caller gets
// 202 once the event is on the queue, delivery to Slack happens later.
type SupervisorHandler struct {
	Relay *notify.Relay
}

func NewSupervisorHandler(relay *notify.Relay) *SupervisorHandler {
	return &SupervisorHandler{Relay: relay}
}

// Notify enqueues one notification event. Admin only.
func (h *SupervisorHandler) Notify(c echo.Context) error {
	var event queue.NotificationEvent
	if err := c.Bind(&event); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	switch event.Kind {
	case queue.KindStopScore:
		if event.StopScore == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "stop_score payload required"})
		}
	case queue.KindSystemHealth:
		if event.Health == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "system_health payload required"})
		}
	case queue.KindTaskCompletion:
		if event.Proposal == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "task_completion payload required"})
		}
	case queue.KindCustom:
		if event.Custom == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "custom payload required"})
		}
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown event kind"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := service.PublishNotification(ctx, event); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "enqueue failed"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"success": true, "queued": true})
}

// Config reports the active notification configuration so operators can
// verify channel, language and thresholds without reading the env.
func (h *SupervisorHandler) Config(c echo.Context) error {
	cfg := h.Relay.Config()
	return c.JSON(http.StatusOK, echo.Map{
		"enabled":  h.Relay.Enabled(),
		"channel":  cfg.Channel,
		"language": cfg.Language,
		"humor":    cfg.Humor,
		"thresholds": echo.Map{
			"stopScore":  cfg.Thresholds.StopScore,
			"stopRate":   cfg.Thresholds.StopRate,
			"queueDepth": cfg.Thresholds.QueueDepth,
		},
	})
}
