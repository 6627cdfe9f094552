package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFromFiles(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvAdmin, "")
	dir := t.TempDir()
	tokenFile := writeFile(t, dir, "bot-token.txt", "123:secret\n")
	adminFile := writeFile(t, dir, "adm.txt", "@admin\n")

	cfg, err := Load(tokenFile, adminFile)
	require.NoError(t, err)
	assert.Equal(t, "123:secret", cfg.Token)
	// The admin handle is normalized like any other identity.
	assert.Equal(t, "admin", cfg.Admin)
	assert.Equal(t, StoreBackendFile, cfg.StoreBackend)
	assert.NotZero(t, cfg.PageLoadTimeout)
	assert.NotZero(t, cfg.FetchTimeout)
	assert.NotZero(t, cfg.LocateConcurrency)
}

func TestLoadPrefersEnvironment(t *testing.T) {
	t.Setenv(EnvToken, "456:env-secret")
	t.Setenv(EnvAdmin, "envadmin")
	dir := t.TempDir()
	tokenFile := writeFile(t, dir, "bot-token.txt", "123:file-secret")
	adminFile := writeFile(t, dir, "adm.txt", "fileadmin")

	cfg, err := Load(tokenFile, adminFile)
	require.NoError(t, err)
	assert.Equal(t, "456:env-secret", cfg.Token)
	assert.Equal(t, "envadmin", cfg.Admin)
}

func TestLoadMissingTokenIsFatal(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvAdmin, "")
	dir := t.TempDir()
	adminFile := writeFile(t, dir, "adm.txt", "admin")

	_, err := Load(filepath.Join(dir, "no-such-file.txt"), adminFile)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestLoadMissingAdminIsFatal(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvAdmin, "")
	dir := t.TempDir()
	tokenFile := writeFile(t, dir, "bot-token.txt", "123:secret")

	_, err := Load(tokenFile, filepath.Join(dir, "no-such-file.txt"))
	assert.ErrorIs(t, err, ErrMissingAdmin)
}

func TestLoadEmptyAdminFileIsFatal(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvAdmin, "")
	dir := t.TempDir()
	tokenFile := writeFile(t, dir, "bot-token.txt", "123:secret")
	adminFile := writeFile(t, dir, "adm.txt", "  \n")

	_, err := Load(tokenFile, adminFile)
	assert.ErrorIs(t, err, ErrMissingAdmin)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := &Config{Token: "t", Admin: "a", StoreBackend: "mysql"}
	assert.ErrorIs(t, cfg.Validate(), ErrBadBackend)

	cfg.StoreBackend = StoreBackendBolt
	assert.NoError(t, cfg.Validate())
}
