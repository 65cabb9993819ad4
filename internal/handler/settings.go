package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/codecloudhq/cloud-agents/internal/middleware"
	"github.com/codecloudhq/cloud-agents/internal/repository"
)

// SettingsHandler serves per-user settings blobs, admin-managed system
// settings, and the audit history behind both.
type SettingsHandler struct {
	Settings *repository.SettingsRepo
}

func NewSettingsHandler(settings *repository.SettingsRepo) *SettingsHandler {
	return &SettingsHandler{Settings: settings}
}

// GetMine returns the caller's settings blob, {} when never saved.
func (h *SettingsHandler) GetMine(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Settings.GetUserSettings(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load settings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": json.RawMessage(s.Settings)})
}

// PutMine replaces the caller's settings blob wholesale.
func (h *SettingsHandler) PutMine(c echo.Context) error {
	body, err := readBodyJSON(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "body must be a JSON document"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID := middleware.UserID(c)
	if err := h.Settings.PutUserSettings(ctx, userID, body, &userID); err != nil {
		if err == repository.ErrInvalidJSON {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "body must be a JSON document"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save settings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// PatchMine merges a partial update into the caller's blob, field by
// field, recursing into nested objects. Explicit nulls delete keys.
func (h *SettingsHandler) PatchMine(c echo.Context) error {
	body, err := readBodyJSON(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "body must be a JSON object"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID := middleware.UserID(c)
	merged, err := h.Settings.MergeUserSettings(ctx, userID, body, &userID)
	if err != nil {
		if err == repository.ErrInvalidJSON {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "body must be a JSON object"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save settings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": json.RawMessage(merged)})
}

// DeleteMine resets the caller's settings to an empty document. The
// reset is recorded in history like any other write.
func (h *SettingsHandler) DeleteMine(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	userID := middleware.UserID(c)
	if err := h.Settings.PutUserSettings(ctx, userID, "{}", &userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset settings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ListSystem returns every system setting. Admin only.
func (h *SettingsHandler) ListSystem(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	settings, err := h.Settings.ListSystemSettings(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list settings failed"})
	}
	out := make([]echo.Map, 0, len(settings))
	for _, s := range settings {
		out = append(out, echo.Map{
			"key":         s.Key,
			"value":       json.RawMessage(s.Value),
			"description": s.Description,
			"updatedBy":   s.UpdatedBy,
			"updatedAt":   s.UpdatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": out, "count": len(out)})
}

// GetSystem returns one system setting by key. Admin only.
func (h *SettingsHandler) GetSystem(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Settings.GetSystemSetting(ctx, c.Param("key"))
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "setting not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load setting failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"key":         s.Key,
		"value":       json.RawMessage(s.Value),
		"description": s.Description,
		"updatedBy":   s.UpdatedBy,
		"updatedAt":   s.UpdatedAt,
	})
}

type putSystemSettingReq struct {
	Value       json.RawMessage `json:"value"`
	Description *string         `json:"description"`
}

// PutSystem upserts a system setting. Admin only.
func (h *SettingsHandler) PutSystem(c echo.Context) error {
	var req putSystemSettingReq
	if err := c.Bind(&req); err != nil || len(req.Value) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "value required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID := middleware.UserID(c)
	if err := h.Settings.PutSystemSetting(ctx, c.Param("key"), string(req.Value), req.Description, &userID); err != nil {
		if err == repository.ErrInvalidJSON {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "value must be a JSON document"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save setting failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// History returns the audit trail for one settings document. Admin
// only; type is "user" or "system" and ref is the user id or setting
// key.
func (h *SettingsHandler) History(c echo.Context) error {
	typ := c.QueryParam("type")
	ref := c.QueryParam("ref")
	if (typ != "user" && typ != "system") || ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type (user|system) and ref required"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := reqCtx(c)
	defer cancel()

	changes, err := h.Settings.History(ctx, typ, ref, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load history failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"changes": changes, "count": len(changes)})
}

// readBodyJSON slurps the raw request body; validation happens in the
// repository so the stored blob is exactly what the client sent.
func readBodyJSON(c echo.Context) (string, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
