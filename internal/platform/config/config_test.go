package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so repository configs/ files
// do not leak into default assertions.
func chdirTemp(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)

	return dir
}

func TestLoad_DefaultValues(t *testing.T) {
	chdirTemp(t)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "esoteric-daily", cfg.App.Name)
	assert.Equal(t, "local", cfg.App.Environment)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "gemini", cfg.Provider.Kind)
	assert.Equal(t, DefaultTextModel, cfg.Provider.Gemini.TextModel)
	assert.Equal(t, DefaultImageModel, cfg.Provider.Gemini.ImageModel)
	assert.InDelta(t, 1.0, cfg.Provider.Gemini.Temperature, 0.001)
	assert.Equal(t, "file", cfg.Cache.Driver)
	assert.Equal(t, DefaultKeyPrefix, cfg.Cache.KeyPrefix)
	assert.Equal(t, "daily_entries", cfg.Cache.Table)
	assert.Equal(t, 2*time.Minute, cfg.Tasks.Timeout)
	assert.Equal(t, DefaultHistoryLimit, cfg.Tasks.HistoryLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.Retry.InitialInterval)
	assert.Empty(t, cfg.Provider.Gemini.APIKey)
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_LOG_LEVEL", "warn")
	t.Setenv("APP_CACHE_DRIVER", "sqlite")
	t.Setenv("APP_CACHE_KEY_PREFIX", "wisdom_")
	t.Setenv("APP_PROVIDER_GEMINI_TEXT_MODEL", "gemini-pro")
	t.Setenv("APP_TELEMETRY_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, "wisdom_", cfg.Cache.KeyPrefix, "underscores inside a key survive env mapping")
	assert.Equal(t, "gemini-pro", cfg.Provider.Gemini.TextModel)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoad_APIKeyFallback(t *testing.T) {
	t.Run("GEMINI_API_KEY wins", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("GEMINI_API_KEY", "from-gemini-env")
		t.Setenv("API_KEY", "from-generic-env")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "from-gemini-env", cfg.Provider.Gemini.APIKey)
	})

	t.Run("API_KEY used when GEMINI_API_KEY empty", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("API_KEY", "from-generic-env")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "from-generic-env", cfg.Provider.Gemini.APIKey)
	})

	t.Run("explicit config wins", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("APP_PROVIDER_GEMINI_API_KEY", "from-app-env")
		t.Setenv("GEMINI_API_KEY", "from-gemini-env")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "from-app-env", cfg.Provider.Gemini.APIKey)
	})
}

func TestLoad_ProfileFiles(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))

	base := "app:\n  timezone: Europe/Berlin\ncache:\n  driver: memory\n"
	profile := "log:\n  format: pretty\ncache:\n  retention_days: 7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "base.yaml"), []byte(base), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "local.yaml"), []byte(profile), 0o600))

	t.Setenv("APP_LOG_FORMAT", "text")

	cfg, err := Load("local")
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.App.Timezone)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 7, cfg.Cache.RetentionDays)
	assert.Equal(t, "text", cfg.Log.Format, "env beats profile")
}

func TestLoad_MissingProfileIgnored(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("nonexistent")
	require.NoError(t, err)
	assert.Equal(t, "esoteric-daily", cfg.App.Name)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "base.yaml"), []byte("app: [unclosed"), 0o600))

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading base config")
}

func TestAppConfig_Location(t *testing.T) {
	loc, err := AppConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = AppConfig{Timezone: "Asia/Tokyo"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())

	_, err = AppConfig{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}

func TestEnvKeyMapper(t *testing.T) {
	mapper := envKeyMapper([]string{"cache.key_prefix", "server.port"})

	assert.Equal(t, "cache.key_prefix", mapper("APP_CACHE_KEY_PREFIX"))
	assert.Equal(t, "server.port", mapper("APP_SERVER_PORT"))
	assert.Equal(t, "custom.nested.value", mapper("APP_CUSTOM_NESTED_VALUE"))
}
