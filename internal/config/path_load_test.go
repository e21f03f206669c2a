package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "uplink", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "uplink", "config.jsonc"), resolved)
}

func TestDeadDropPathFallsBackToStateDir(t *testing.T) {
	cfg := Default()
	cfg.Output.DeadDrop = "/tmp/drop.txt"
	path, err := DeadDropPath(cfg)
	require.NoError(t, err)
	require.Equal(t, "/tmp/drop.txt", path)

	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)
	path, err = DeadDropPath(Default())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(state, "uplink", "output.txt"), path)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  "audio": {
    "input": "default",
    "fallback": "default",
  },
  "http": {"enable": true},
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.True(t, loaded.Config.HTTP.Enable)
	require.Equal(t, "127.0.0.1:8787", loaded.Config.HTTP.Listen)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}

func TestLoadReadsDotEnvNextToConfig(t *testing.T) {
	chdir(t, t.TempDir())
	dir := t.TempDir()
	t.Setenv("UPLINK_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("UPLINK_TEST_KEY"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("UPLINK_TEST_KEY=sk-from-file\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.jsonc"), []byte(`{"openai":{"api_key_env":"UPLINK_TEST_KEY"}}`), 0o600))

	loaded, err := Load(filepath.Join(dir, "config.jsonc"))
	require.NoError(t, err)

	key, err := APIKey(loaded.Config)
	require.NoError(t, err)
	require.Equal(t, "sk-from-file", key)
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("UPLINK_TEST_KEEP", "from-env")
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("UPLINK_TEST_KEEP=from-file\n"), 0o600))

	require.Empty(t, loadDotEnv(envPath, envPath))
	require.Equal(t, "from-env", os.Getenv("UPLINK_TEST_KEEP"))
}

func TestAPIKeyMissing(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.APIKeyEnv = "UPLINK_TEST_MISSING"
	t.Setenv("UPLINK_TEST_MISSING", "")

	_, err := APIKey(cfg)
	require.ErrorIs(t, err, ErrMissingAPIKey)
	require.Contains(t, err.Error(), "$UPLINK_TEST_MISSING")
}
