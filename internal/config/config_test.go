package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reklawnos/housecat/internal/config"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "housecat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_steps: 5000\ncolor: always\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), cfg.MaxSteps)
	assert.Equal(t, "always", cfg.Color)
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "housecat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_steps: 5000\n"), 0o600))

	t.Setenv("HOUSECAT_MAX_STEPS", "9")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(9), cfg.MaxSteps)
}
