package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Empty(t, cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.Events.Enabled())
	assert.Equal(t, "harvester:events", cfg.Events.Stream)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"HARVESTER_DATA_DIR":         "/var/lib/harvester",
		"LOG_LEVEL":                  "debug",
		"HARVESTER_VERBOSE":          "true",
		"HARVESTER_METRICS_ADDR":     ":9102",
		"HARVESTER_HISTORY_LIMIT":    "0",
		"HARVESTER_SHUTDOWN_TIMEOUT": "5s",
		"HARVESTER_REDIS_ADDR":       "redis:6379",
		"HARVESTER_REDIS_DB":         "3",
		"HARVESTER_REDIS_STREAM":     "runs",
	})
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/harvester", cfg.DataDir)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, ":9102", cfg.MetricsAddr)
	assert.Zero(t, cfg.HistoryLimit)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.Events.Enabled())
	assert.Equal(t, 3, cfg.Events.DB)
	assert.Equal(t, "runs", cfg.Events.Stream)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"history limit", map[string]string{"HARVESTER_HISTORY_LIMIT": "-1"}},
		{"history limit type", map[string]string{"HARVESTER_HISTORY_LIMIT": "many"}},
		{"shutdown timeout", map[string]string{"HARVESTER_SHUTDOWN_TIMEOUT": "0s"}},
		{"metrics address", map[string]string{"HARVESTER_METRICS_ADDR": "9102"}},
		{"redis address", map[string]string{"HARVESTER_REDIS_ADDR": "redis"}},
		{"redis db", map[string]string{"HARVESTER_REDIS_ADDR": "redis:6379", "HARVESTER_REDIS_DB": "-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			assert.Error(t, err)
		})
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("HARVESTER_HISTORY_LIMIT", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7, cfg.HistoryLimit)
}
