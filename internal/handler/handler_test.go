package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecloudhq/cloud-agents/internal/billing"
	"github.com/codecloudhq/cloud-agents/internal/middleware"
	"github.com/codecloudhq/cloud-agents/internal/model"
	"github.com/codecloudhq/cloud-agents/internal/repository"
	"github.com/codecloudhq/cloud-agents/internal/utils"
)

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID, role string) echo.Context {
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserID, userID)
	c.Set(middleware.CtxRole, role)
	return c
}

func TestBillingEstimateEndpoint(t *testing.T) {
	e := echo.New()
	h := NewBillingHandler(nil)

	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPost, "/v1/billing/estimate",
		`{"provider":"anthropic","model":"claude-3-5-sonnet-20241022","inputTokens":1000000,"outputTokens":0}`),
		rec, "u1", model.RoleUser)

	require.NoError(t, h.Estimate(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var cost billing.Cost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cost))
	assert.InDelta(t, 3.0, cost.USD, 1e-9)
	assert.InDelta(t, 2.76, cost.EUR, 1e-9)
}

func TestCostViewsTotalSumsPerEntryEUR(t *testing.T) {
	entries := []model.CostLogEntry{
		{Provider: "anthropic", Model: "claude-3-5-sonnet-20241022", InputTokens: 1_000_000},
		{Provider: "ollama", Model: "llama3", InputTokens: 500, OutputTokens: 500},
		{Provider: "openai", Model: "gpt-3.5-turbo", InputTokens: 1_000_000},
	}
	views, total := toCostViews(entries)
	require.Len(t, views, 3)

	var wantUSD, wantEUR float64
	for _, v := range views {
		wantUSD += v.Cost.USD
		wantEUR += v.Cost.EUR
	}
	assert.InDelta(t, wantUSD, total.USD, 1e-9)
	assert.InDelta(t, wantEUR, total.EUR, 1e-9)
	assert.InDelta(t, 3.5, total.USD, 1e-9)
}

func TestBillingEstimateRejectsNegativeTokens(t *testing.T) {
	e := echo.New()
	h := NewBillingHandler(nil)

	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPost, "/v1/billing/estimate",
		`{"provider":"anthropic","inputTokens":-1}`), rec, "u1", model.RoleUser)

	require.NoError(t, h.Estimate(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBillingSelectModelRequiresMessage(t *testing.T) {
	e := echo.New()
	h := NewBillingHandler(nil)

	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPost, "/v1/billing/select-model", `{}`),
		rec, "u1", model.RoleUser)

	require.NoError(t, h.SelectModel(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserGetForbiddenForOtherUsers(t *testing.T) {
	e := echo.New()
	h := NewUserHandler(nil, 10)

	rec := httptest.NewRecorder()
	c := authedContext(e, httptest.NewRequest(http.MethodGet, "/", nil), rec, "u1", model.RoleUser)
	c.SetParamNames("id")
	c.SetParamValues("u2")

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserDeleteRefusesSelf(t *testing.T) {
	e := echo.New()
	h := NewUserHandler(nil, 10)

	rec := httptest.NewRecorder()
	c := authedContext(e, httptest.NewRequest(http.MethodDelete, "/", nil), rec, "admin-1", model.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues("admin-1")

	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangePasswordChecksCurrentForNonAdmins(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := utils.HashPassword("old-password", 4)
	require.NoError(t, err)

	e := echo.New()
	h := NewUserHandler(repository.NewUserRepo(db), 4)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "password_hash", "role", "display_name",
			"is_active", "created_at", "updated_at", "last_login_at",
		}).AddRow("u1", "a@b.c", hash, model.RoleUser, nil, true,
			time.Now(), time.Now(), nil))

	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPut, "/",
		`{"currentPassword":"wrong","password":"new-password-1"}`), rec, "u1", model.RoleUser)
	c.SetParamNames("id")
	c.SetParamValues("u1")

	require.NoError(t, h.ChangePassword(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDemoRedeemValidation(t *testing.T) {
	e := echo.New()
	h := NewDemoHandler(nil, nil, "http://localhost:3000", 4)

	t.Run("short password", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(jsonRequest(http.MethodPost, "/v1/demo/redeem",
			`{"code":"abc","email":"a@b.c","password":"short"}`), rec)
		require.NoError(t, h.Redeem(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(jsonRequest(http.MethodPost, "/v1/demo/redeem",
			`{"email":"a@b.c","password":"long enough"}`), rec)
		require.NoError(t, h.Redeem(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateInviteValidatesLimits(t *testing.T) {
	e := echo.New()
	h := NewDemoHandler(nil, nil, "http://localhost:3000", 4)

	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPost, "/v1/demo/invites",
		`{"creditLimitUSD":0,"maxMessages":10,"maxDays":7}`), rec, "admin-1", model.RoleAdmin)

	require.NoError(t, h.CreateInvite(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
