package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Serve.Port)
	assert.Equal(t, "registry.yaml", filepath.Base(cfg.Registry))
	assert.Equal(t, filepath.Join(filepath.Dir(cfg.Registry), "data"), cfg.DataDir)
}

func TestLoad_FileFoundInParent(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(`
registry: /tmp/reg.yaml
dataDir: ./data
log:
  level: debug
aws:
  region: eu-west-1
serve:
  port: 9000
`), 0o644))

	assert.Equal(t, filepath.Join(root, FileName), FindFile(nested))

	cfg, err := Load(nested)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/reg.yaml", cfg.Registry)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, 9000, cfg.Serve.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ELECTRO_LOG_LEVEL", "warn")
	t.Setenv("ELECTRO_SERVE_PORT", "7000")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 7000, cfg.Serve.Port)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("ELECTRO_SERVE_PORT", "70000")
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}
