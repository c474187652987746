package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"relaycast/pkg/validation"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		Mode            string        `yaml:"mode"` // gin mode: debug, release, test

		// TrustedProxies lists the CIDRs whose X-Forwarded-For gin honours. Empty trusts none.
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Provider struct {
		BaseURL        string        `yaml:"base_url"`
		APIKey         string        `yaml:"api_key"`
		APISecret      string        `yaml:"api_secret"`
		TokenTTL       time.Duration `yaml:"token_ttl"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"provider"`

	Broadcast struct {
		Resolution string `yaml:"resolution"`
	} `yaml:"broadcast"`

	Retry struct {
		MaxRetries        int           `yaml:"max_retries"`
		InitialDelay      time.Duration `yaml:"initial_delay"`
		MaxDelay          time.Duration `yaml:"max_delay"`
		BackoffMultiplier float64       `yaml:"backoff_multiplier"`
		Jitter            bool          `yaml:"jitter"`
	} `yaml:"retry"`

	CircuitBreaker struct {
		Enabled          bool          `yaml:"enabled"`
		MaxFailures      int           `yaml:"max_failures"`
		Timeout          time.Duration `yaml:"timeout"`
		SuccessThreshold int           `yaml:"success_threshold"`
	} `yaml:"circuit_breaker"`

	Storage struct {
		Backend string `yaml:"backend"` // memory, redis, postgres

		// EventSessionCacheTTL caches event session lookups; 0 disables the cache.
		EventSessionCacheTTL time.Duration `yaml:"event_session_cache_ttl"`
	} `yaml:"storage"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Postgres struct {
		DSN            string        `yaml:"dsn"`
		MaxConns       int32         `yaml:"max_conns"`
		ConnectTimeout time.Duration `yaml:"connect_timeout"`
	} `yaml:"postgres"`

	Monitoring struct {
		PrometheusEnabled bool   `yaml:"prometheus_enabled"`
		MetricsPath       string `yaml:"metrics_path"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled        bool    `yaml:"enabled"`
		ServiceName    string  `yaml:"service_name"`
		JaegerEndpoint string  `yaml:"jaeger_endpoint"`
		SamplingRate   float64 `yaml:"sampling_rate"`
	} `yaml:"tracing"`

	Auth struct {
		EventSecret string `yaml:"event_secret"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64       `yaml:"requests_per_second"`
			Burst             int           `yaml:"burst"`
			MaxConcurrent     int           `yaml:"max_concurrent"` // global concurrent HTTP requests
			IdleTTL           time.Duration `yaml:"idle_ttl"`       // drop per-client limiters after this much quiet
		} `yaml:"http"`
	} `yaml:"rate_limiting"`

	Events struct {
		PublishOutcomes bool   `yaml:"publish_outcomes"`
		Channel         string `yaml:"channel"`
	} `yaml:"events"`
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

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Provider
	if err := validation.ValidateURL(c.Provider.BaseURL); err != nil {
		return fmt.Errorf("provider.base_url: %w", err)
	}
	if c.Provider.APIKey == "" || c.Provider.APISecret == "" {
		return fmt.Errorf("provider.api_key and provider.api_secret must be set")
	}
	if c.Provider.TokenTTL <= 0 {
		return fmt.Errorf("provider.token_ttl must be > 0")
	}
	if c.Provider.RequestTimeout <= 0 {
		return fmt.Errorf("provider.request_timeout must be > 0")
	}

	// Broadcast
	if err := validation.ValidateResolution(c.Broadcast.Resolution); err != nil {
		return fmt.Errorf("broadcast.resolution: %w", err)
	}

	// Retry
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0")
	}
	if c.Retry.InitialDelay <= 0 {
		return fmt.Errorf("retry.initial_delay must be > 0")
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay must be >= retry.initial_delay")
	}
	if c.Retry.BackoffMultiplier < 1 {
		return fmt.Errorf("retry.backoff_multiplier must be >= 1")
	}

	// Circuit breaker
	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.MaxFailures <= 0 {
			return fmt.Errorf("circuit_breaker.max_failures must be > 0 when enabled")
		}
		if c.CircuitBreaker.Timeout <= 0 {
			return fmt.Errorf("circuit_breaker.timeout must be > 0 when enabled")
		}
		if c.CircuitBreaker.SuccessThreshold <= 0 {
			return fmt.Errorf("circuit_breaker.success_threshold must be > 0 when enabled")
		}
	}

	// Storage
	switch c.Storage.Backend {
	case "memory":
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when storage.backend=redis")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn must not be empty when storage.backend=postgres")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, redis, postgres; got %q", c.Storage.Backend)
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerEndpoint == "" {
			return fmt.Errorf("tracing.jaeger_endpoint must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
			return fmt.Errorf("tracing.sampling_rate must be within [0, 1]")
		}
	}

	// Auth
	if err := validation.ValidateNonEmptyString(c.Auth.EventSecret, "auth.event_secret"); err != nil {
		return err
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
	}

	// Events
	if c.Events.PublishOutcomes {
		if !c.Redis.Enabled {
			return fmt.Errorf("events.publish_outcomes requires redis.enabled=true")
		}
		if c.Events.Channel == "" {
			return fmt.Errorf("events.channel must not be empty when events.publish_outcomes=true")
		}
	}

	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults. Provider credentials
// and the event secret have no default and must come from file or env.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second
	cfg.Server.Mode = "release"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Provider.BaseURL = "https://api.opentok.com"
	cfg.Provider.TokenTTL = 5 * time.Minute
	cfg.Provider.RequestTimeout = 10 * time.Second

	cfg.Broadcast.Resolution = "1280x720"

	cfg.Retry.MaxRetries = 2
	cfg.Retry.InitialDelay = 200 * time.Millisecond
	cfg.Retry.MaxDelay = 2 * time.Second
	cfg.Retry.BackoffMultiplier = 2.0
	cfg.Retry.Jitter = true

	cfg.CircuitBreaker.Enabled = true
	cfg.CircuitBreaker.MaxFailures = 5
	cfg.CircuitBreaker.Timeout = 30 * time.Second
	cfg.CircuitBreaker.SuccessThreshold = 2

	cfg.Storage.Backend = "memory"
	cfg.Storage.EventSessionCacheTTL = 30 * time.Second

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Postgres.MaxConns = 10
	cfg.Postgres.ConnectTimeout = 5 * time.Second

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.MetricsPath = "/metrics"

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "relaycast"
	cfg.Tracing.JaegerEndpoint = "http://localhost:14268/api/traces"
	cfg.Tracing.SamplingRate = 1.0

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	cfg.RateLimiting.HTTP.IdleTTL = 10 * time.Minute

	cfg.Events.PublishOutcomes = false
	cfg.Events.Channel = "relaycast:events"

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("RELAYCAST_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("RELAYCAST_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if u := os.Getenv("RELAYCAST_PROVIDER_BASE_URL"); u != "" {
		c.Provider.BaseURL = u
	}
	if key := os.Getenv("RELAYCAST_VONAGE_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if secret := os.Getenv("RELAYCAST_VONAGE_API_SECRET"); secret != "" {
		c.Provider.APISecret = secret
	}
	if secret := os.Getenv("RELAYCAST_EVENT_SECRET"); secret != "" {
		c.Auth.EventSecret = secret
	}
	if backend := os.Getenv("RELAYCAST_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if addr := os.Getenv("RELAYCAST_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
	if pw := os.Getenv("RELAYCAST_REDIS_PASSWORD"); pw != "" {
		c.Redis.Password = pw
	}
	if dsn := os.Getenv("RELAYCAST_POSTGRES_DSN"); dsn != "" {
		c.Postgres.DSN = dsn
	}
	if v := os.Getenv("RELAYCAST_TRACING_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Tracing.Enabled = enabled
		}
	}
}
