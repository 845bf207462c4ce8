package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tiles-dev/pfm-sim/internal/app"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	return &app.Config{
		Server: app.ServerConfig{Port: 0, LogLevel: "error"},
		Database: app.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "pfmsim-test.sqlite"),
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{Secret: "test-secret", Issuer: "pfm-sim"},
		},
		Partner: app.PartnerConfig{
			ID:     "42",
			Domain: "partner.example.com",
			APIKey: "partner-key",
		},
		Alerts: app.AlertsConfig{
			CronSpec:      "@every 5m",
			RetentionDays: 90,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}
}

func TestBootstrapRuntimeServesHealth(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NotNil(t, stack.Router)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	res := httptest.NewRecorder()
	stack.Router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
}

func TestEnsureSecretsPresent(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, ensureSecretsPresent(cfg))

	cfg.Auth.JWT.Secret = "  "
	require.Error(t, ensureSecretsPresent(cfg))

	cfg = testConfig(t)
	cfg.Partner.APIKey = ""
	require.Error(t, ensureSecretsPresent(cfg))
}
