package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "semantic", cfg.Backend.QuestionType)
	assert.Equal(t, []string{".pdf"}, cfg.Upload.AcceptExtensions)
	assert.Equal(t, 5*time.Minute, cfg.Upload.PreviewCacheTTL)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
backend:
  base_url: "http://backend:8000"
  timeout: 30s
log:
  level: "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "http://backend:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	// 未覆盖的项仍取默认值
	assert.Equal(t, "semantic", cfg.Backend.QuestionType)
}

func TestBackendURLEnvOverride(t *testing.T) {
	t.Setenv("RAG_BACKEND_URL", "http://override:9999")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://override:9999", cfg.Backend.BaseURL)
}
