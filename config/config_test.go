package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so no stray config file is found
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "launchseq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, StartupModeStrict, cfg.StartupMode)
	assert.False(t, cfg.IsGracefulMode())
	assert.Equal(t, 5*time.Second, cfg.StepTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "launchseq", cfg.App.Name)
	assert.Equal(t, ProviderEnv, cfg.Credentials.Provider)
	assert.Equal(t, "LAUNCHSEQ_MAPS_API_KEY", cfg.Credentials.Key)
	assert.Equal(t, 10*time.Minute, cfg.Credentials.CacheTTL)
	assert.Equal(t, "none", cfg.Journal.Backend)
	assert.False(t, cfg.Status.Enabled)
	assert.Equal(t, 20.0, cfg.Status.RateLimit.RequestsPerSecond)
	assert.Equal(t, 40, cfg.Status.RateLimit.Burst)
	assert.Empty(t, cfg.Launch.OptionsSchema)
	assert.Empty(t, cfg.FileUsed)
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := chdirTemp(t)
	writeConfig(t, dir, `
startup_mode: graceful
step_timeout: 750ms
app:
  name: field-app
extensions:
  disabled: [launch-audit]
status:
  enabled: true
  addr: 127.0.0.1:9999
journal:
  backend: sqlite
  sqlite_path: ./launches.db
`)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.True(t, cfg.IsGracefulMode())
	assert.Equal(t, 750*time.Millisecond, cfg.StepTimeout)
	assert.Equal(t, "field-app", cfg.App.Name)
	assert.Equal(t, []string{"launch-audit"}, cfg.Extensions.Disabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Status.Addr)
	assert.Equal(t, "sqlite", cfg.Journal.Backend)
	assert.NotEmpty(t, cfg.FileUsed)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LAUNCHSEQ_STARTUP_MODE", "graceful")
	t.Setenv("LAUNCHSEQ_CREDENTIALS_KEY", "MY_MAPS_KEY")
	t.Setenv("VAULT_TOKEN", "s.token")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, StartupModeGraceful, cfg.StartupMode)
	assert.Equal(t, "MY_MAPS_KEY", cfg.Credentials.Key)
	assert.Equal(t, "s.token", cfg.Credentials.Vault.Token)
}

func TestLoadConfig_ExplicitMissingFile(t *testing.T) {
	chdirTemp(t)

	_, err := LoadConfig("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown startup mode", "startup_mode: lenient\n"},
		{"zero step timeout", "step_timeout: 0s\n"},
		{"bad log level", "log_level: chatty\n"},
		{"unknown provider", "credentials:\n  provider: gcp\n"},
		{"empty credential key", "credentials:\n  key: \"\"\n"},
		{"aws without region", "credentials:\n  provider: aws\n"},
		{"aws half static credentials", "credentials:\n  provider: aws\n  aws:\n    region: eu-west-1\n    access_key: AKIA\n"},
		{"vault without path", "credentials:\n  provider: vault\n  vault:\n    path: \"\"\n"},
		{"status without port", "status:\n  enabled: true\n  addr: localhost\n"},
		{"negative rate limit", "status:\n  rate_limit:\n    requests_per_second: -1\n"},
		{"unknown journal backend", "journal:\n  backend: kafka\n"},
		{"sqlite journal without path", "journal:\n  backend: sqlite\n  sqlite_path: \"\"\n"},
		{"redis journal without addr", "journal:\n  backend: redis\n  redis:\n    addr: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdirTemp(t)
			path := writeConfig(t, dir, tt.body)

			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
		})
	}
}
