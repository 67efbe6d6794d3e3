package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spazatrack/internal/apierror"
	"spazatrack/internal/config"
	"spazatrack/internal/dto"
	"spazatrack/internal/infra"
	"spazatrack/internal/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

// ── Helpers ──────────────────────────────────────────────────────────────────

type testEnv struct {
	engine *gin.Engine
	mr     *miniredis.Miniredis
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := infra.NewDatabase("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		Env:                  "test",
		JWTSecret:            "test-secret-key",
		JWTExpirationHours:   8,
		BcryptCost:           4,
		DBOperationTimeout:   5 * time.Second,
		LowStockThreshold:    3,
		RecentSalesLimit:     10,
		ActivityDefaultLimit: 50,
		Timezone:             "UTC",
	}
	engine, err := New(cfg, Deps{DB: db, Redis: rdb, Metrics: metrics.New()})
	require.NoError(t, err)
	return &testEnv{engine: engine, mr: mr}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func (e *testEnv) registerShop(t *testing.T, username string) dto.AuthResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"username": username,
		"email":    username + "@shop.test",
		"password": "secret-pw",
		"role":     "admin",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.AuthResponse
	decodeJSON(t, w, &resp)
	return resp
}

func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": username, "password": "secret-pw"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.AuthResponse
	decodeJSON(t, w, &resp)
	return resp.AccessToken
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestSaleCycle(t *testing.T) {
	e := setupTestEnv(t)
	admin := e.registerShop(t, "mandla").AccessToken

	w := e.do(t, http.MethodPost, "/api/users", map[string]any{
		"username": "lerato", "email": "lerato@shop.test", "password": "secret-pw", "full_name": "Lerato K",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var clerkUser dto.UserResponse
	decodeJSON(t, w, &clerkUser)
	assert.Equal(t, "employee", clerkUser.Role)
	clerk := e.login(t, "lerato")

	w = e.do(t, http.MethodPost, "/api/products", map[string]any{
		"name": "Bread", "cost_price": "6", "selling_price": "10", "quantity": 5,
	}, clerk)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var bread dto.ProductResponse
	decodeJSON(t, w, &bread)

	w = e.do(t, http.MethodPost, "/api/sales", map[string]any{"product_id": bread.ID, "quantity_sold": 2}, clerk)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sale dto.SaleResponse
	decodeJSON(t, w, &sale)
	assert.True(t, sale.TotalPrice.Equal(decimal.NewFromInt(20)))
	assert.True(t, sale.Profit.Equal(decimal.NewFromInt(8)))
	assert.Equal(t, "Lerato K", sale.EmployeeName)

	w = e.do(t, http.MethodPost, "/api/sales", map[string]any{"product_id": bread.ID, "quantity_sold": 4}, clerk)
	assert.Equal(t, http.StatusConflict, w.Code)
	var apiErr apierror.APIError
	decodeJSON(t, w, &apiErr)
	assert.Equal(t, apierror.CodeInsufficientStock, apiErr.Code)

	w = e.do(t, http.MethodGet, "/api/products/"+bread.ID, nil, clerk)
	require.Equal(t, http.StatusOK, w.Code)
	var got dto.ProductResponse
	decodeJSON(t, w, &got)
	assert.Equal(t, 3, got.Quantity)

	w = e.do(t, http.MethodGet, "/api/stats", nil, clerk)
	require.Equal(t, http.StatusOK, w.Code)
	var stats dto.DashboardStats
	decodeJSON(t, w, &stats)
	assert.Equal(t, 1, stats.TotalSales)
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(20)))
	require.Len(t, stats.LowStockItems, 1)

	w = e.do(t, http.MethodGet, "/api/sales?date="+sale.DateKey, nil, clerk)
	require.Equal(t, http.StatusOK, w.Code)
	var sales []dto.SaleResponse
	decodeJSON(t, w, &sales)
	require.Len(t, sales, 1)
	assert.Equal(t, sale.ID, sales[0].ID)

	w = e.do(t, http.MethodGet, "/api/sales?date=01-01-2024", nil, clerk)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(t, http.MethodGet, "/api/reports/sales?date="+sale.DateKey, nil, clerk)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sales-"+sale.DateKey+".pdf")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))

	w = e.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sales_recorded_total 1\n")
	assert.Contains(t, w.Body.String(), `sales_rejected_total{reason="insufficient_stock"} 1`)
}

func TestAuthorization(t *testing.T) {
	e := setupTestEnv(t)
	admin := e.registerShop(t, "zodwa").AccessToken
	other := e.registerShop(t, "pieter").AccessToken

	w := e.do(t, http.MethodPost, "/api/users", map[string]any{
		"username": "sbu", "email": "sbu@shop.test", "password": "secret-pw", "role": "manager",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	manager := e.login(t, "sbu")

	w = e.do(t, http.MethodGet, "/api/products", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.do(t, http.MethodGet, "/api/products", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/api/activity", nil, manager)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = e.do(t, http.MethodGet, "/api/users", nil, manager)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/api/activity?limit=2", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []dto.ActivityResponse
	decodeJSON(t, w, &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, "login", entries[0].Action)
	assert.False(t, entries[0].Timestamp.Before(entries[1].Timestamp))

	// products of another shop are invisible
	w = e.do(t, http.MethodPost, "/api/products", map[string]any{
		"name": "Soap", "cost_price": "8", "selling_price": "12", "quantity": 4,
	}, other)
	require.Equal(t, http.StatusCreated, w.Code)
	var soap dto.ProductResponse
	decodeJSON(t, w, &soap)
	w = e.do(t, http.MethodGet, "/api/products/"+soap.ID, nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodDelete, "/api/products/"+soap.ID, nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodGet, "/api/products/not-a-uuid", nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterAndLoginErrors(t *testing.T) {
	e := setupTestEnv(t)
	e.registerShop(t, "naledi")

	w := e.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"username": "naledi", "email": "other@shop.test", "password": "secret-pw", "role": "admin",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	var apiErr apierror.APIError
	decodeJSON(t, w, &apiErr)
	assert.Equal(t, apierror.CodeDuplicateUsername, apiErr.Code)

	w = e.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"username": "x", "email": "nope", "password": "1",
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	decodeJSON(t, w, &apiErr)
	assert.Contains(t, apiErr.Fields, "username")
	assert.Contains(t, apiErr.Fields, "email")
	assert.Contains(t, apiErr.Fields, "password")

	w = e.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"username": "walkin", "email": "walkin@shop.test", "password": "secret-pw", "role": "employee",
	}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	unknown := e.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "ghost", "password": "secret-pw"}, "")
	wrong := e.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "naledi", "password": "wrong-pw"}, "")
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.JSONEq(t, unknown.Body.String(), wrong.Body.String())

	w = e.do(t, http.MethodPost, "/api/auth/login", "not json", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	e := setupTestEnv(t)
	token := e.registerShop(t, "bongani").AccessToken

	w := e.do(t, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var me dto.UserResponse
	decodeJSON(t, w, &me)
	assert.Equal(t, "bongani", me.Username)

	w = e.do(t, http.MethodPost, "/api/auth/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(t, http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserDeactivation(t *testing.T) {
	e := setupTestEnv(t)
	admin := e.registerShop(t, "ayanda")

	w := e.do(t, http.MethodPost, "/api/users", map[string]any{
		"username": "themba", "email": "themba@shop.test", "password": "secret-pw",
	}, admin.AccessToken)
	require.Equal(t, http.StatusCreated, w.Code)
	var clerk dto.UserResponse
	decodeJSON(t, w, &clerk)
	clerkToken := e.login(t, "themba")

	w = e.do(t, http.MethodPatch, "/api/users/"+clerk.ID+"/active", map[string]any{"active": false}, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated dto.UserResponse
	decodeJSON(t, w, &updated)
	assert.False(t, updated.IsActive)

	w = e.do(t, http.MethodGet, "/api/products", nil, clerkToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPatch, "/api/users/"+admin.User.ID+"/active", map[string]any{"active": false}, admin.AccessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPatch, "/api/users/"+clerk.ID+"/active", map[string]any{}, admin.AccessToken)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestProductLifecycle(t *testing.T) {
	e := setupTestEnv(t)
	token := e.registerShop(t, "karabo").AccessToken

	w := e.do(t, http.MethodPost, "/api/products", map[string]any{
		"name": "Candles", "cost_price": "2", "selling_price": "0", "quantity": -1,
	}, token)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(t, http.MethodPost, "/api/products", map[string]any{
		"name": "Candles", "cost_price": "2", "selling_price": "5", "quantity": 10,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code)
	var candles dto.ProductResponse
	decodeJSON(t, w, &candles)

	w = e.do(t, http.MethodPut, "/api/products/"+candles.ID, map[string]any{"quantity": 0}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated dto.ProductResponse
	decodeJSON(t, w, &updated)
	assert.Equal(t, 0, updated.Quantity)

	w = e.do(t, http.MethodGet, "/api/products", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var list []dto.ProductResponse
	decodeJSON(t, w, &list)
	require.Len(t, list, 1)

	w = e.do(t, http.MethodDelete, "/api/products/"+candles.ID, nil, token)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(t, http.MethodGet, "/api/products/"+candles.ID, nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	e := setupTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	decodeJSON(t, w, &health)
	assert.Equal(t, true, health["ok"])
	assert.Equal(t, "disabled", health["smtp"])

	w = e.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	e.mr.Close()
	w = e.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSwaggerUI(t *testing.T) {
	e := setupTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/openapi.yaml", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	for _, path := range []string{"/api/sales:", "/api/products/{id}:", "/api/activity:"} {
		assert.Contains(t, w.Body.String(), path)
	}

	w = e.do(t, http.MethodGet, "/swagger/index.html", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi.yaml")
}

func TestLoginRateLimited(t *testing.T) {
	e := setupTestEnv(t)
	var last int
	for i := 0; i < 21; i++ {
		last = e.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "ghost", "password": "x"}, "").Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
