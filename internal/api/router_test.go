package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tiles-dev/pfm-sim/internal/alerts"
	"github.com/tiles-dev/pfm-sim/internal/app"
	iauth "github.com/tiles-dev/pfm-sim/internal/auth"
	"github.com/tiles-dev/pfm-sim/internal/database/testutil"
)

func newRouterFixture(t *testing.T) (*gin.Engine, *iauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-secret", Issuer: "pfm-sim"})
	require.NoError(t, err)
	evaluator, err := alerts.NewEvaluator(db)
	require.NoError(t, err)

	cfg := &app.Config{
		Partner: app.PartnerConfig{ID: "42", Domain: "partner.example.com", APIKey: "partner-key"},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}

	router, err := NewRouter(db, jwt, cfg, evaluator)
	require.NoError(t, err)
	return router, jwt
}

func TestNewRouterValidatesDependencies(t *testing.T) {
	_, err := NewRouter(nil, nil, nil, nil)
	require.Error(t, err)
}

func TestRouterPublicEndpoints(t *testing.T) {
	router, _ := newRouterFixture(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v2/nope", nil))
	require.Equal(t, http.StatusNotFound, res.Code)
}

func TestRouterProtectsVendorSurface(t *testing.T) {
	router, _ := newRouterFixture(t)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v2/users/pcid-1/accounts", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRouterEndToEndRegisterAndList(t *testing.T) {
	router, _ := newRouterFixture(t)

	body := strings.NewReader(`{"partner_customer_id":"pcid-router","email":"router@example.com","password":"secret-pass"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	login := strings.NewReader(`{"email":"router@example.com","password":"secret-pass"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", login)
	req.Header.Set("Content-Type", "application/json")
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Data.Token)

	req = httptest.NewRequest(http.MethodGet, "/api/v2/users/pcid-router/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+payload.Data.Token)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"accounts"`)

	// Partner tag catalogue is reachable with the same token.
	req = httptest.NewRequest(http.MethodGet, "/api/v2/tags", nil)
	req.Header.Set("Authorization", "Bearer "+payload.Data.Token)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"tags"`)
}
