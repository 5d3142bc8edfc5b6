package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8888", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "0.0.0.0:8888", cfg.Addr())

	// Orchestrator config
	assert.Equal(t, 10, cfg.Orchestrator.Workers)
	assert.Equal(t, 256, cfg.Orchestrator.QueueSize)
	assert.Equal(t, "continue", cfg.Orchestrator.ErrorPolicy)
	assert.False(t, cfg.Orchestrator.DrainOnShutdown)

	// Breaker config
	assert.False(t, cfg.Breaker.Enabled)
	assert.Equal(t, uint32(5), cfg.Breaker.MaxFailures)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                 "9000",
		"HOST":                 "127.0.0.1",
		"SHUTDOWN_TIMEOUT":     "3s",
		"CORS_ORIGINS":         "http://a.test,http://b.test",
		"WORKERS":              "4",
		"QUEUE_SIZE":           "32",
		"ERROR_POLICY":         "abort",
		"DRAIN_ON_SHUTDOWN":    "true",
		"UNIQUE_MODULE_NAMES":  "true",
		"BREAKER_ENABLED":      "true",
		"BREAKER_MAX_FAILURES": "2",
		"BREAKER_TIMEOUT":      "1m",
		"PIPELINE_FILE":        "/etc/micromind/pipeline.yaml",
		"PIPELINE_WATCH":       "true",
		"LOG_LEVEL":            "debug",
		"LOG_DEV":              "true",
		"RATE_LIMIT_RPS":       "500",
		"RATE_LIMIT_BURST":     "1000",
		"RATE_LIMIT_ENABLED":   "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)

	assert.Equal(t, 4, cfg.Orchestrator.Workers)
	assert.Equal(t, 32, cfg.Orchestrator.QueueSize)
	assert.Equal(t, "abort", cfg.Orchestrator.ErrorPolicy)
	assert.True(t, cfg.Orchestrator.DrainOnShutdown)
	assert.True(t, cfg.Orchestrator.UniqueNames)

	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, uint32(2), cfg.Breaker.MaxFailures)
	assert.Equal(t, time.Minute, cfg.Breaker.Timeout)

	assert.Equal(t, "/etc/micromind/pipeline.yaml", cfg.Pipeline.File)
	assert.True(t, cfg.Pipeline.Watch)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero workers", map[string]string{"WORKERS": "0"}},
		{"negative queue", map[string]string{"QUEUE_SIZE": "-1"}},
		{"unknown policy", map[string]string{"ERROR_POLICY": "retry"}},
		{"watch without file", map[string]string{"PIPELINE_WATCH": "true"}},
		{"breaker without threshold", map[string]string{"BREAKER_ENABLED": "true", "BREAKER_MAX_FAILURES": "0"}},
		{"malformed duration", map[string]string{"SHUTDOWN_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)

			// LoadOrDefault falls back instead of failing
			assert.Equal(t, Default(), LoadOrDefault())
		})
	}
}
