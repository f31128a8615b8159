package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.Neo4j.Enabled())
	assert.False(t, cfg.Postgres.Enabled())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(`
vault: /srv/vault
workers: 8
edge_schema: v1
log:
  level: debug
  format: json
neo4j:
  uri: bolt://localhost:7687
watch:
  debounce: 2s
`), 0644))
	t.Setenv("LAWLINK_WORKERS", "2")
	t.Setenv("DATABASE_URL", "postgres://lawlink@localhost/lawlink")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/vault", cfg.Vault)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "v1", cfg.EdgeSchema)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.True(t, cfg.Neo4j.Enabled())
	assert.Equal(t, "neo4j", cfg.Neo4j.User)
	assert.True(t, cfg.Postgres.Enabled())
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LAWLINK_VAULT=/from/dotenv\n"), 0644))
	t.Setenv("LAWLINK_VAULT", "")
	require.NoError(t, os.Unsetenv("LAWLINK_VAULT"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv", cfg.Vault)
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	dir := chdir(t)
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 0\nedge_schema: v9\nlog:\n  level: loud\n  format: xml\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	for _, msg := range []string{"workers", "v9", "loud", "xml"} {
		assert.Contains(t, err.Error(), msg)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "statute", "刑法")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"statute":"刑法"`)

	_, err = NewLogger(&buf, LogConfig{Level: "nope"})
	assert.Error(t, err)
}
