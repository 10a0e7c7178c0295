// ABOUTME: Tests for config loading, env overrides and duration encoding.
// ABOUTME: Uses a temp XDG_CONFIG_HOME so the real config is never touched.

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{"EUREKA_BACKEND", "EUREKA_DB", "EUREKA_USER", "EUREKA_OUTPUT_DIR", "EUREKA_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendCharm, cfg.Backend)
	assert.Equal(t, 20, cfg.Export.ConfirmThreshold)
	assert.Equal(t, 7*time.Second, cfg.Export.ImageTimeout.Std())
	assert.Equal(t, 800, cfg.Export.MaxImageWidth)
	assert.False(t, ConfigExists())
}

func TestSaveAndLoad(t *testing.T) {
	isolate(t)

	cfg := DefaultConfig()
	cfg.Backend = BackendLocal
	cfg.PollInterval = Duration(2 * time.Second)
	cfg.AI.APIKey = "secret"
	require.NoError(t, SaveConfig(cfg))
	require.True(t, ConfigExists())

	raw, err := os.ReadFile(ConfigPath())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.Contains(t, string(raw), `"poll_interval": "2s"`)

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, loaded.Backend)
	assert.Equal(t, 2*time.Second, loaded.PollInterval.Std())
	assert.Empty(t, loaded.AI.APIKey)
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	t.Setenv("EUREKA_BACKEND", "LOCAL")
	t.Setenv("EUREKA_DB", filepath.Join(dir, "x.db"))
	t.Setenv("GEMINI_API_KEY", "k")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.Backend)
	assert.Equal(t, filepath.Join(dir, "x.db"), cfg.LocalDBPath())
	assert.Equal(t, "k", cfg.AI.APIKey)
}

func TestInvalidBackend(t *testing.T) {
	isolate(t)
	t.Setenv("EUREKA_BACKEND", "mongo")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestDurationAcceptsSeconds(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`90`), &d))
	assert.Equal(t, 90*time.Second, d.Std())
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
}
