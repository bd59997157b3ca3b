package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0644))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"ENTRA_TENANT_ID", "ENTRA_CLIENT_ID", "ENTRA_CLIENT_SECRET",
		"DIRECT_LINE_SECRET", "DIRECT_LINE_ENDPOINT", "DIRECT_LINE_USER_ID",
		"LOG_LEVEL",
	} {
		t.Setenv(v, "")
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultServePort, cfg.Serve.Port)
	assert.Equal(t, "localhost", cfg.Serve.Host)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Empty(t, cfg.DirectLine.Secret)
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, `
entra:
  tenantId: tenant-from-file
  clientId: client-from-file
  scopes:
    - User.Read
directline:
  secret: secret-from-file
  botName: Helpdesk
serve:
  port: 9000
logLevel: debug
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "tenant-from-file", cfg.Entra.TenantID)
	assert.Equal(t, "client-from-file", cfg.Entra.ClientID)
	assert.Equal(t, []string{"User.Read"}, cfg.Entra.Scopes)
	assert.Equal(t, "secret-from-file", cfg.DirectLine.Secret)
	assert.Equal(t, "Helpdesk", cfg.DirectLine.BotName)
	assert.Equal(t, 9000, cfg.Serve.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, `
entra:
  tenantId: tenant-from-file
directline:
  secret: secret-from-file
`)

	t.Setenv("ENTRA_TENANT_ID", "tenant-from-env")
	t.Setenv("DIRECT_LINE_SECRET", "secret-from-env")
	t.Setenv("LOG_LEVEL", "info")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "tenant-from-env", cfg.Entra.TenantID)
	assert.Equal(t, "secret-from-env", cfg.DirectLine.Secret)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigEnvWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENTRA_TENANT_ID", "tenant-from-env")
	t.Setenv("ENTRA_CLIENT_ID", "client-from-env")
	t.Setenv("DIRECT_LINE_ENDPOINT", "https://europe.directline.botframework.com")
	t.Setenv("DIRECT_LINE_USER_ID", "dl_user42")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "tenant-from-env", cfg.Entra.TenantID)
	assert.Equal(t, "client-from-env", cfg.Entra.ClientID)
	assert.Equal(t, "https://europe.directline.botframework.com", cfg.DirectLine.Endpoint)
	assert.Equal(t, "dl_user42", cfg.DirectLine.UserID)
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "entra: [not a mapping")

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
