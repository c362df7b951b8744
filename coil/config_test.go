package coil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coil.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poolWorkers: 8\nqueueCapacity: 32\nqueuePolicy: block\n"), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.PoolWorkers)
	assert.Equal(t, 32, cfg.QueueCapacity)
	assert.Equal(t, "block", cfg.QueuePolicy)
}

func TestLoadConfigFileTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coil.toml")
	require.NoError(t, os.WriteFile(path, []byte("poolWorkers = 6\nqueuePolicy = \"drop\"\n"), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.PoolWorkers)
	assert.Equal(t, "drop", cfg.QueuePolicy)
}

func TestLoadConfigFileUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coil.ini")
	require.NoError(t, os.WriteFile(path, []byte("poolWorkers=4"), 0o644))

	_, err := LoadConfigFile(path)
	assert.ErrorIs(t, err, ErrConfigUnknownFormat)
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("COIL_POOL_WORKERS", "12")
	t.Setenv("COIL_QUEUE_POLICY", "drop")
	t.Setenv("COIL_BUS_TELEMETRY_ENABLED", "true")

	require.NoError(t, ApplyEnvOverrides(cfg))
	assert.Equal(t, 12, cfg.PoolWorkers)
	assert.Equal(t, "drop", cfg.QueuePolicy)
	assert.True(t, cfg.BusTelemetryEnabled)
}

func TestApplyEnvOverridesNilConfig(t *testing.T) {
	assert.ErrorIs(t, ApplyEnvOverrides(nil), ErrConfigNil)
}

func TestParseOverflowPolicy(t *testing.T) {
	p, err := ParseOverflowPolicy("BLOCK")
	require.NoError(t, err)
	assert.Equal(t, PolicyBlock, p)

	_, err = ParseOverflowPolicy("nonsense")
	assert.ErrorIs(t, err, ErrUnknownQueuePolicy)
}

func TestNewPoolFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoolWorkers = 3
	p := NewPoolFromConfig(cfg)
	assert.Equal(t, 3, p.PoolMetrics().NumWorkers)
	p.Shutdown()
}

func TestNewQueueFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueCapacity = 2
	cfg.QueuePolicy = "raise"

	q, err := NewQueueFromConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, q.Add("a"))
	require.NoError(t, q.Add("b"))
	assert.ErrorIs(t, q.Add("c"), ErrQueueFull)
}
