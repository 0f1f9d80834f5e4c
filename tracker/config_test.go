package tracker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "reelwatch.db", cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Tick)
	assert.Equal(t, 2, cfg.Workers.Count)
	assert.Equal(t, 10*time.Minute, cfg.Workers.StuckThreshold)

	plans := cfg.Plans()
	assert.Equal(t, 3, plans["free"].MaxReels)
	assert.Equal(t, 15*time.Minute, plans["pro"].ParseInterval)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9090"
workers:
  count: 4
  stuck_threshold: 20m
tariffs:
  free:
    max_reels: 5
  vip:
    max_reels: 0
    parse_interval: 5m
    priority: 20
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 4, cfg.Workers.Count)
	assert.Equal(t, 20*time.Minute, cfg.Workers.StuckThreshold)
	// Unset fields keep defaults.
	assert.Equal(t, 5*time.Second, cfg.Workers.Poll)

	plans := cfg.Plans()
	assert.Equal(t, 5, plans["free"].MaxReels)
	// Untouched free fields keep the built-in values.
	assert.Equal(t, time.Hour, plans["free"].ParseInterval)
	assert.Equal(t, 20, plans["vip"].Priority)
	// Unknown tariff names resolve to free.
	assert.Equal(t, plans["free"], plans.Resolve("unknown"))
}
