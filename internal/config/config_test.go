package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "streamkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
base_url: https://api.example.com
agent_id: agt_1
client_key: ck-1
kind: clip
presenter_id: pres_1
driver_id: drv_1
stream_warmup: true
debug: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, "agt_1", cfg.AgentID)
	assert.Equal(t, "ck-1", cfg.ClientKey)
	assert.Equal(t, "clip", cfg.Kind)
	assert.Equal(t, "pres_1", cfg.PresenterID)
	assert.Equal(t, "drv_1", cfg.DriverID)
	assert.True(t, cfg.Warmup)
	assert.True(t, cfg.Debug)
}

func TestLoadDefaultsKindToTalk(t *testing.T) {
	path := writeConfig(t, `
base_url: https://api.example.com
agent_id: agt_1
source_url: https://img.example.com/a.png
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "talk", cfg.Kind)
	assert.False(t, cfg.Debug)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("STREAMKIT_BASE_URL", "https://env.example.com")
	t.Setenv("STREAMKIT_AGENT_ID", "agt_env")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.BaseURL)
	assert.Equal(t, "agt_env", cfg.AgentID)
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	_, err := Load(writeConfig(t, "agent_id: agt_1\n"))
	require.ErrorContains(t, err, "base_url")

	_, err = Load(writeConfig(t, "base_url: https://api.example.com\n"))
	require.ErrorContains(t, err, "agent_id")
}
