package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	FeedSourceSimulated = "simulated"
	FeedSourceHTTP      = "http"
	FeedSourcePush      = "push"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Refresh struct {
		Interval     time.Duration `yaml:"interval"`
		FetchTimeout time.Duration `yaml:"fetch_timeout"`
	} `yaml:"refresh"`

	Feed struct {
		Source  string        `yaml:"source"`
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
		// Pairs restricts the simulated feed to "A-B" pairs. Empty means every registry pair.
		Pairs []string `yaml:"pairs"`

		Retry struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			InitialDelay time.Duration `yaml:"initial_delay"`
			MaxDelay     time.Duration `yaml:"max_delay"`
		} `yaml:"retry"`

		Breaker struct {
			MaxFailures  int           `yaml:"max_failures"`
			ResetTimeout time.Duration `yaml:"reset_timeout"`
		} `yaml:"breaker"`
	} `yaml:"feed"`

	Registry struct {
		Path string `yaml:"path"`
	} `yaml:"registry"`

	Layers struct {
		RegionRadiusKm float64 `yaml:"region_radius_km"`
		RegionSegments int     `yaml:"region_segments"`
		HeatRadiusKm   float64 `yaml:"heat_radius_km"`
		HeatSegments   int     `yaml:"heat_segments"`
	} `yaml:"layers"`

	History struct {
		MaxPoints int `yaml:"max_points"`
	} `yaml:"history"`

	Stream struct {
		PingInterval time.Duration `yaml:"ping_interval"`
		PongTimeout  time.Duration `yaml:"pong_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"stream"`

	Monitoring struct {
		PrometheusEnabled bool          `yaml:"prometheus_enabled"`
		StaleAfter        time.Duration `yaml:"stale_after"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled      bool          `yaml:"enabled"`
		Address      string        `yaml:"address"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size"`
		SnapshotTTL  time.Duration `yaml:"snapshot_ttl"`
		EventChannel string        `yaml:"event_channel"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret      string        `yaml:"jwt_secret"`
		ProbeTokenTTL  time.Duration `yaml:"probe_token_ttl"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`

		Stream struct {
			ConnectionsPerMinute int `yaml:"connections_per_minute"`
			MaxConcurrent        int `yaml:"max_concurrent_connections"`
		} `yaml:"stream"`
	} `yaml:"rate_limiting"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Refresh
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be > 0")
	}
	if c.Refresh.FetchTimeout < 0 {
		return fmt.Errorf("refresh.fetch_timeout must be >= 0")
	}

	// Feed
	switch c.Feed.Source {
	case FeedSourceSimulated, FeedSourcePush:
	case FeedSourceHTTP:
		if c.Feed.URL == "" {
			return fmt.Errorf("feed.url must not be empty when feed.source=http")
		}
	default:
		return fmt.Errorf("feed.source must be one of simulated, http, push (got %q)", c.Feed.Source)
	}
	for _, p := range c.Feed.Pairs {
		if parts := strings.Split(p, "-"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("feed.pairs entry %q must have the form A-B", p)
		}
	}
	if c.Feed.Retry.MaxAttempts < 1 {
		return fmt.Errorf("feed.retry.max_attempts must be >= 1")
	}
	if c.Feed.Breaker.MaxFailures < 1 {
		return fmt.Errorf("feed.breaker.max_failures must be >= 1")
	}
	if c.Feed.Breaker.ResetTimeout <= 0 {
		return fmt.Errorf("feed.breaker.reset_timeout must be > 0")
	}

	// Layers
	if c.Layers.RegionRadiusKm <= 0 || c.Layers.HeatRadiusKm <= 0 {
		return fmt.Errorf("layers radii must be > 0")
	}
	if c.Layers.RegionSegments < 0 || c.Layers.HeatSegments < 0 {
		return fmt.Errorf("layers segments must be >= 0")
	}

	// History
	if c.History.MaxPoints <= 0 || c.History.MaxPoints > 1000 {
		return fmt.Errorf("history.max_points must be in (0, 1000]")
	}

	// Stream
	if c.Stream.PingInterval <= 0 {
		return fmt.Errorf("stream.ping_interval must be > 0")
	}
	if c.Stream.PongTimeout <= c.Stream.PingInterval {
		return fmt.Errorf("stream.pong_timeout must be > stream.ping_interval")
	}
	if c.Stream.WriteTimeout <= 0 {
		return fmt.Errorf("stream.write_timeout must be > 0")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
		if c.Redis.EventChannel == "" {
			return fmt.Errorf("redis.event_channel must not be empty when redis.enabled=true")
		}
	}

	// Auth
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.ProbeTokenTTL <= 0 {
		return fmt.Errorf("auth.probe_token_ttl must be > 0")
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Stream.ConnectionsPerMinute <= 0 {
			return fmt.Errorf("rate_limiting.stream.connections_per_minute must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Stream.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.stream.max_concurrent_connections must be >= 0 when rate limiting is enabled")
		}
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be in [0, 1]")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Refresh.Interval = 5 * time.Second
	cfg.Refresh.FetchTimeout = 3 * time.Second

	cfg.Feed.Source = FeedSourceSimulated
	cfg.Feed.Timeout = 2 * time.Second
	cfg.Feed.Retry.MaxAttempts = 3
	cfg.Feed.Retry.InitialDelay = 100 * time.Millisecond
	cfg.Feed.Retry.MaxDelay = time.Second
	cfg.Feed.Breaker.MaxFailures = 5
	cfg.Feed.Breaker.ResetTimeout = 30 * time.Second

	cfg.Layers.RegionRadiusKm = 150
	cfg.Layers.RegionSegments = 64
	cfg.Layers.HeatRadiusKm = 350
	cfg.Layers.HeatSegments = 48

	cfg.History.MaxPoints = 1000

	cfg.Stream.PingInterval = 30 * time.Second
	cfg.Stream.PongTimeout = 60 * time.Second
	cfg.Stream.WriteTimeout = 10 * time.Second

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.StaleAfter = 30 * time.Second

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10
	cfg.Redis.SnapshotTTL = 5 * time.Minute
	cfg.Redis.EventChannel = "geolatency:snapshots"

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.ProbeTokenTTL = 24 * time.Hour
	cfg.Auth.AllowedOrigins = []string{"*"}

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	cfg.RateLimiting.Stream.ConnectionsPerMinute = 60
	cfg.RateLimiting.Stream.MaxConcurrent = 0

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("GEOLATENCY_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("GEOLATENCY_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("GEOLATENCY_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if source := os.Getenv("GEOLATENCY_FEED_SOURCE"); source != "" {
		c.Feed.Source = source
	}
	if url := os.Getenv("GEOLATENCY_FEED_URL"); url != "" {
		c.Feed.URL = url
	}
	if path := os.Getenv("GEOLATENCY_REGISTRY_PATH"); path != "" {
		c.Registry.Path = path
	}
	if interval := os.Getenv("GEOLATENCY_REFRESH_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			c.Refresh.Interval = d
		}
	}
	if addr := os.Getenv("GEOLATENCY_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
	if enabled := os.Getenv("GEOLATENCY_TRACING_ENABLED"); enabled != "" {
		if v, err := strconv.ParseBool(enabled); err == nil {
			c.Tracing.Enabled = v
		}
	}
}
