package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"launchseq/config"
	"launchseq/host"
	"launchseq/journal"
	"launchseq/mapping"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testKeyVar = "LAUNCHSEQ_TEST_APP_MAPS_KEY"

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		StartupMode: config.StartupModeStrict,
		StepTimeout: 2 * time.Second,
		LogLevel:    "debug",
	}
	cfg.App.Name = "test-app"
	cfg.Mapping.KeyPattern = mapping.DefaultKeyPattern
	cfg.Credentials.Provider = config.ProviderEnv
	cfg.Credentials.Key = testKeyVar
	cfg.Journal.Backend = journal.BackendSQLite
	cfg.Journal.SQLitePath = filepath.Join(t.TempDir(), "launches.db")
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	app, err := NewAppWithConfig(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { app.Shutdown(context.Background()) })
	return app
}

func TestApp_LaunchReady(t *testing.T) {
	t.Setenv(testKeyVar, testAPIKey)
	app := newTestApp(t, newTestConfig(t))
	lc := host.NewLaunchContext(nil, nil)

	result := app.Launch(context.Background(), lc)

	require.True(t, result.Ready(), "launch failed: %v", result.Err)
	assert.True(t, app.Mapping.Configured())
	assert.True(t, app.Host.Ready())
	assert.Equal(t, []string{"maps", "launch-audit", "extension-index"}, app.Host.Extensions())

	rec := httptest.NewRecorder()
	app.Host.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/maps/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	entries, err := app.Journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, lc.LaunchID, entries[0].LaunchID)
	assert.Equal(t, string(StatusReady), entries[0].Status)
}

func TestApp_LaunchTwiceRecordsOnce(t *testing.T) {
	t.Setenv(testKeyVar, testAPIKey)
	app := newTestApp(t, newTestConfig(t))
	lc := host.NewLaunchContext(nil, nil)

	first := app.Launch(context.Background(), lc)
	second := app.Launch(context.Background(), lc)

	assert.Equal(t, first.Status, second.Status)
	entries, err := app.Journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestApp_StrictModeMalformedKey(t *testing.T) {
	t.Setenv(testKeyVar, "not-a-maps-key")
	app := newTestApp(t, newTestConfig(t))

	result := app.Launch(context.Background(), host.NewLaunchContext(nil, nil))

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, StepConfigureMappingProvider, result.FailedStep())
	assert.ErrorIs(t, result.Err, mapping.ErrInvalidAPIKey)
	assert.False(t, app.Host.Ready())
	assert.Empty(t, app.Host.Extensions())

	entries, err := app.Journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StepConfigureMappingProvider, entries[0].FailedStep)
}

func TestApp_GracefulModeWithoutMaps(t *testing.T) {
	t.Setenv(testKeyVar, "")
	cfg := newTestConfig(t)
	cfg.StartupMode = config.StartupModeGraceful
	cfg.Extensions.Disabled = []string{"maps"}
	app := newTestApp(t, cfg)

	result := app.Launch(context.Background(), host.NewLaunchContext(nil, nil))

	require.True(t, result.Ready(), "launch failed: %v", result.Err)
	require.Len(t, result.NonFatal, 1)
	assert.ErrorIs(t, result.NonFatal[0], config.ErrCredentialNotFound)
	assert.Equal(t, []string{"launch-audit", "extension-index"}, app.Host.Extensions())

	entries, err := app.Journal.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{StepConfigureMappingProvider}, entries[0].NonFatal)
}

func TestApp_GracefulModeMapsExtensionNeedsMapping(t *testing.T) {
	t.Setenv(testKeyVar, "")
	cfg := newTestConfig(t)
	cfg.StartupMode = config.StartupModeGraceful
	app := newTestApp(t, cfg)

	result := app.Launch(context.Background(), host.NewLaunchContext(nil, nil))

	assert.Equal(t, StepRegisterExtensions, result.FailedStep())
	assert.ErrorIs(t, result.Err, mapping.ErrNotConfigured)
}

func TestApp_StatusListener(t *testing.T) {
	t.Setenv(testKeyVar, testAPIKey)
	cfg := newTestConfig(t)
	cfg.Status.Enabled = true
	cfg.Status.Addr = "127.0.0.1:0"
	app := newTestApp(t, cfg)

	require.True(t, app.Launch(context.Background(), host.NewLaunchContext(nil, nil)).Ready())
	assert.NotEmpty(t, app.Host.ListenAddr())
}

func TestApp_OptionsSchema(t *testing.T) {
	t.Setenv(testKeyVar, testAPIKey)
	cfg := newTestConfig(t)
	cfg.Launch.OptionsSchema = filepath.Join(t.TempDir(), "options.json")
	require.NoError(t, os.WriteFile(cfg.Launch.OptionsSchema,
		[]byte(`{"type":"object","required":["mode"]}`), 0600))
	app := newTestApp(t, cfg)

	result := app.Launch(context.Background(), host.NewLaunchContext(nil, nil))

	assert.ErrorIs(t, result.Err, ErrInvalidContext)
	assert.Empty(t, result.Steps)
	assert.False(t, app.Mapping.Configured())

	result = app.Launch(context.Background(), host.NewLaunchContext(map[string]string{"mode": "test"}, nil))
	require.True(t, result.Ready(), "launch failed: %v", result.Err)

	entries, err := app.Journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, string(StatusReady), entries[0].Status)
	assert.Equal(t, string(StatusFailed), entries[1].Status)

	t.Run("missing schema file", func(t *testing.T) {
		broken := newTestConfig(t)
		broken.Launch.OptionsSchema = filepath.Join(t.TempDir(), "missing.json")
		_, err := NewAppWithConfig(context.Background(), broken, zaptest.NewLogger(t))
		assert.Error(t, err)
	})
}

func TestApp_JournalFailure(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Journal.Backend = journal.BackendRedis
	cfg.Journal.Redis.Addr = "127.0.0.1:1"

	t.Run("strict mode refuses to start", func(t *testing.T) {
		_, err := NewAppWithConfig(context.Background(), cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
	})

	t.Run("graceful mode falls back to no journal", func(t *testing.T) {
		graceful := *cfg
		graceful.StartupMode = config.StartupModeGraceful
		app := newTestApp(t, &graceful)
		assert.IsType(t, journal.Nop{}, app.Journal)
	})
}

func TestEntryFromResult(t *testing.T) {
	lc := host.NewLaunchContext(nil, nil)
	result := Result{
		Status:   StatusFailed,
		Err:      &StepError{Step: StepBaseStartup, Mandatory: true, Err: ErrBaseStartupFailed},
		NonFatal: []*StepError{{Step: StepConfigureMappingProvider, Err: errors.New("x")}},
		Duration: time.Second,
	}

	entry := EntryFromResult(lc, result)

	assert.Equal(t, lc.LaunchID, entry.LaunchID)
	assert.Equal(t, lc.StartedAt, entry.StartedAt)
	assert.Equal(t, "failed", entry.Status)
	assert.Equal(t, StepBaseStartup, entry.FailedStep)
	assert.Contains(t, entry.Error, "base startup reported failure")
	assert.Equal(t, []string{StepConfigureMappingProvider}, entry.NonFatal)
	assert.Equal(t, time.Second, entry.Duration)

	assert.Empty(t, EntryFromResult(nil, Result{Status: StatusFailed, Err: ErrInvalidContext}).LaunchID)
}
