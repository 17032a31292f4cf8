package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper to build a minimal valid config that can be tweaked in tests.
func validBaseConfig() *Config {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.HTTP.RequestsPerSecond = 10
	cfg.RateLimiting.HTTP.Burst = 20
	cfg.RateLimiting.HTTP.MaxConcurrent = 5
	cfg.RateLimiting.Stream.ConnectionsPerMinute = 60
	cfg.RateLimiting.Stream.MaxConcurrent = 10
	return cfg
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, FeedSourceSimulated, cfg.Feed.Source)
	assert.Equal(t, 1000, cfg.History.MaxPoints)
	assert.Equal(t, 350.0, cfg.Layers.HeatRadiusKm)
	assert.Equal(t, 64, cfg.Layers.RegionSegments)
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 0
	cfg.RateLimiting.HTTP.Burst = 0
	cfg.RateLimiting.Stream.ConnectionsPerMinute = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "http rps must be > 0",
			mutate: func(c *Config) { c.RateLimiting.HTTP.RequestsPerSecond = 0 },
		},
		{
			name:   "http max concurrent must be >= 0",
			mutate: func(c *Config) { c.RateLimiting.HTTP.MaxConcurrent = -1 },
		},
		{
			name:   "stream connections per minute must be > 0",
			mutate: func(c *Config) { c.RateLimiting.Stream.ConnectionsPerMinute = 0 },
		},
		{
			name:   "refresh interval must be > 0",
			mutate: func(c *Config) { c.Refresh.Interval = 0 },
		},
		{
			name:   "unknown feed source",
			mutate: func(c *Config) { c.Feed.Source = "kafka" },
		},
		{
			name:   "http feed needs url",
			mutate: func(c *Config) { c.Feed.Source = FeedSourceHTTP },
		},
		{
			name:   "malformed pair",
			mutate: func(c *Config) { c.Feed.Pairs = []string{"Binance"} },
		},
		{
			name:   "history points above cap",
			mutate: func(c *Config) { c.History.MaxPoints = 1001 },
		},
		{
			name:   "pong timeout must exceed ping interval",
			mutate: func(c *Config) { c.Stream.PongTimeout = c.Stream.PingInterval },
		},
		{
			name:   "sample rate out of range",
			mutate: func(c *Config) { c.Tracing.Enabled = true; c.Tracing.SampleRate = 2 },
		},
		{
			name:   "empty jwt secret",
			mutate: func(c *Config) { c.Auth.JWTSecret = "" },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBaseConfig()
			require.NoError(t, cfg.Validate())
			tc.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
refresh:
  interval: 2s
feed:
  source: http
  url: http://probe.local/latency
  pairs: ["Binance-OKX"]
layers:
  heat_radius_km: 500
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("GEOLATENCY_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, FeedSourceHTTP, cfg.Feed.Source)
	assert.Equal(t, []string{"Binance-OKX"}, cfg.Feed.Pairs)
	assert.Equal(t, 500.0, cfg.Layers.HeatRadiusKm)
	assert.Equal(t, 48, cfg.Layers.HeatSegments)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  source: carrier-pigeon\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
