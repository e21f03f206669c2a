package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupHostEnv(t *testing.T) string {
	t.Helper()

	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	chdir(t, t.TempDir())

	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"hotkey": {"device": "/dev/null-uplink-missing"}}`), 0o600))
	return configPath
}

func TestHostDefaultsWhenUnloaded(t *testing.T) {
	var h host

	require.Equal(t, "", h.replyText())
	require.Equal(t, "IDLE", h.phaseTag())
	require.False(t, h.setRecording(true))
	require.Equal(t, "", h.entityResponse("Jackie"))
	h.unload()
}

func TestHostLoadFailsWithoutAPIKey(t *testing.T) {
	configPath := setupHostEnv(t)
	t.Setenv("OPENAI_API_KEY", "")

	var h host
	err := h.load(configPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "openai api key not set")
	require.Nil(t, h.active())
}

func TestHostLoadServesStandbyAndUnloads(t *testing.T) {
	configPath := setupHostEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	var h host
	require.NoError(t, h.load(configPath))
	require.ErrorIs(t, h.load(configPath), errAlreadyLoaded)

	require.Equal(t, "IDLE", h.phaseTag())
	require.Equal(t, "Neural Link: STANDBY", h.replyText())
	require.False(t, h.setRecording(false))
	require.Equal(t, "", h.entityResponse("Jackie"))

	h.unload()
	require.Nil(t, h.active())
	require.Equal(t, "IDLE", h.phaseTag())
}

func TestHostRecoveredWithoutLogger(t *testing.T) {
	var h host
	require.NotPanics(t, func() { h.recovered("UplinkGetReplyText", "boom") })
}
