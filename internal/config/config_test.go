package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cardfolio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "blocknote-portfolio-content", cfg.StorageKey)
	assert.Equal(t, 30*time.Second, cfg.AutosaveInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.CardCloseDelay)
	assert.Equal(t, BackendMemory, cfg.Remote.Backend)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
listen: ":9000"
autosave_interval: 5s
remote:
  backend: sqlite
  timeout: 2s
s3:
  bucket: ignored-here
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 5*time.Second, cfg.AutosaveInterval)
	assert.Equal(t, BackendSQLite, cfg.Remote.Backend)
	assert.Equal(t, 2*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, "ignored-here", cfg.S3.Bucket)
	assert.Equal(t, "snapshots", cfg.S3.Prefix, "unset keys keep defaults")
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default().Listen, cfg.Listen)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "lisen: typo\n"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "listen: \":9000\"\n")
	t.Setenv("CARDFOLIO_LISTEN", ":7000")
	t.Setenv("CARDFOLIO_AUTOSAVE_INTERVAL", "1m")
	t.Setenv("CARDFOLIO_REMOTE_BACKEND", "s3")
	t.Setenv("CARDFOLIO_S3_BUCKET", "portfolio")
	t.Setenv("CARDFOLIO_S3_PATH_STYLE", "true")
	t.Setenv("CARDFOLIO_MAX_SESSIONS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, time.Minute, cfg.AutosaveInterval)
	assert.Equal(t, BackendS3, cfg.Remote.Backend)
	assert.Equal(t, "portfolio", cfg.S3.Bucket)
	assert.True(t, cfg.S3.UsePathStyle)
	assert.Equal(t, 3, cfg.MaxSessions)
}

func TestEnvBadDuration(t *testing.T) {
	t.Setenv("CARDFOLIO_AUTOSAVE_INTERVAL", "soon")
	_, err := Load("")
	assert.ErrorContains(t, err, "CARDFOLIO_AUTOSAVE_INTERVAL")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Remote.Backend = BackendS3
	cfg.AutosaveInterval = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "s3.bucket")
	assert.ErrorContains(t, err, "autosave_interval")

	cfg = Default()
	cfg.Remote.Backend = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "unknown remote backend")
}
