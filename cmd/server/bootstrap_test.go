package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/barangay/internal/app"
	"github.com/charlesng35/barangay/internal/auth"
)

type offlineProvider struct{}

func (offlineProvider) AuthCodeURL(state, nonce string) string {
	return "https://idp.example.com/authorize?state=" + state
}

func (offlineProvider) Exchange(context.Context, string, string) (*auth.Profile, error) {
	return nil, errors.New("offline")
}

func stubIdentityProvider(t *testing.T, provider auth.IdentityProvider, err error) {
	t.Helper()
	original := newIdentityProvider
	newIdentityProvider = func(context.Context, auth.OIDCConfig) (auth.IdentityProvider, error) {
		return provider, err
	}
	t.Cleanup(func() { newIdentityProvider = original })
}

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	dir := t.TempDir()
	return &app.Config{
		Server: app.ServerConfig{
			StorageTimeout: time.Second,
			RateLimit:      app.RateLimitConfig{Requests: 10, Window: time.Minute},
		},
		Database: app.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dir, "barangay.sqlite")},
		Auth: app.AuthConfig{
			Session: app.SessionSettings{Secret: "bootstrap-secret-bootstrap-secret-0123", Issuer: "test", TTL: time.Hour},
		},
		Storage:    app.StorageConfig{Root: filepath.Join(dir, "uploads")},
		Monitoring: app.MonitoringConfig{Health: app.HealthConfig{Enabled: true}},
		Maintenance: app.MaintenanceConfig{
			Enabled:               true,
			ActivityRetentionDays: 30,
			ActivitySchedule:      "@daily",
			InvitationSchedule:    "@hourly",
		},
	}
}

func TestBootstrapRuntimeServesHealth(t *testing.T) {
	stubIdentityProvider(t, offlineProvider{}, nil)
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, stack.Cleaner)

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"component":"storage"`)

	_, err = os.Stat(cfg.Storage.Root)
	require.NoError(t, err)

	stack.Shutdown(context.Background(), zap.NewNop())
	require.Nil(t, stack.DB)
	stack.Shutdown(context.Background(), zap.NewNop())
}

func TestBootstrapRuntimeFailsWithoutProvider(t *testing.T) {
	stubIdentityProvider(t, nil, errors.New("discovery failed"))

	_, err := bootstrapRuntime(context.Background(), testConfig(t), zap.NewNop())
	require.ErrorContains(t, err, "initialise identity provider")
}

func TestBootstrapRuntimeFailsWhenRedisUnreachable(t *testing.T) {
	stubIdentityProvider(t, offlineProvider{}, nil)
	cfg := testConfig(t)
	cfg.Cache.Redis = app.RedisConfig{Enabled: true, Address: "127.0.0.1:1", Timeout: 200 * time.Millisecond}

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "initialise redis")
}

func TestBootstrapRuntimeRejectsUnknownDriver(t *testing.T) {
	stubIdentityProvider(t, offlineProvider{}, nil)
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "does not exist")
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "absent.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BARANGAY_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("BARANGAY_TEST_DOTENV") })

	require.NoError(t, loadEnvFile(path))
	require.Equal(t, "loaded", os.Getenv("BARANGAY_TEST_DOTENV"))
}
