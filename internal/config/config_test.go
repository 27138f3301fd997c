package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, key, val string) {
	t.Helper()
	prev, had := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, val))
	t.Cleanup(func() {
		if had {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(prev) })
	return dir
}

func TestLoad_DefaultsWithNoFileOrEnv(t *testing.T) {
	chdirTemp(t)
	os.Unsetenv("GEMINI_GATEWAY_CONFIG")
	os.Unsetenv("PORT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, defaultClientID, cfg.ClientID)
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	dir := chdirTemp(t)
	os.Unsetenv("PORT")
	os.Unsetenv("CODE_ASSIST_ENDPOINT")
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\ncode_assist_endpoint: \"https://example.test\"\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://example.test", cfg.CodeAssist)
}

func TestLoad_EnvOverridesYAMLFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\n"), 0o600))
	withEnv(t, "PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoad_MissingYAMLFileIsNotAnError(t *testing.T) {
	chdirTemp(t)
	os.Unsetenv("GEMINI_GATEWAY_CONFIG")

	_, err := Load()
	assert.NoError(t, err)
}

func TestLoad_CustomConfigPathViaEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"1234\"\n"), 0o600))
	withEnv(t, "GEMINI_GATEWAY_CONFIG", path)
	os.Unsetenv("PORT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "1234", cfg.Port)
}
