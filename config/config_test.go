package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web/arkmap/cluster"
	"web/arkmap/viewport"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "", cfg.Runner.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Runner.IdleTimeout)
	assert.Equal(t, cluster.DefaultOptions(), cfg.ClusterOptions())
	assert.Equal(t, viewport.DefaultOptions(), cfg.ViewportOptions())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ARKMAP_SERVER_PORT", "9090")
	t.Setenv("ARKMAP_RUNNER_ADDR", "runners:50051")
	t.Setenv("ARKMAP_RUNNER_IDLE_TIMEOUT", "90s")
	t.Setenv("ARKMAP_ENGINE_BASE_RADIUS", "12")
	t.Setenv("ARKMAP_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "runners:50051", cfg.Runner.Addr)
	assert.Equal(t, 90*time.Second, cfg.Runner.IdleTimeout)
	assert.Equal(t, 12.0, cfg.RunnerOptions().Engine.BaseRadius)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	t.Setenv("ARKMAP_SERVER_PORT", "0")
	t.Setenv("ARKMAP_VIEWPORT_MIN_ZOOM", "2")
	t.Setenv("ARKMAP_VIEWPORT_MAX_ZOOM", "1")
	t.Setenv("ARKMAP_LOG_FORMAT", "xml")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "viewport.max_zoom")
	assert.Contains(t, err.Error(), "log.format")
}
