// Package config loads layered configuration for the dosecast binaries.
//
// Values come from built-in defaults, then an optional config.yaml found in
// the working directory or ./configs, then DOSECAST_ environment variables
// (DOSECAST_FORECAST_CACHE_TTL overrides forecast.cache_ttl).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/breatheroute/dosecast/internal/database"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "DOSECAST"

// Config is the full configuration tree.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Forecast  ForecastConfig  `mapstructure:"forecast"`
	Region    RegionConfig    `mapstructure:"region"`
	Database  database.Config `mapstructure:"database"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RateLimit is requests per minute per client IP on compute endpoints.
	RateLimit int `mapstructure:"rate_limit"`

	// RequireTLS rejects requests forwarded as plain HTTP.
	RequireTLS bool `mapstructure:"require_tls"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// ForecastConfig selects and tunes the gridded forecast source.
// Exactly one of File and URL is set.
type ForecastConfig struct {
	File         string        `mapstructure:"file"`
	URL          string        `mapstructure:"url"`
	Variable     string        `mapstructure:"variable"`
	LongitudeVar string        `mapstructure:"longitude_var"`
	LatitudeVar  string        `mapstructure:"latitude_var"`
	Level        int           `mapstructure:"level"`
	LeadTimes    []int         `mapstructure:"lead_times"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	StaleTTL     time.Duration `mapstructure:"stale_ttl"`
	MaxAge       time.Duration `mapstructure:"max_age"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// Remote reports whether grids are downloaded rather than read from disk.
func (f ForecastConfig) Remote() bool {
	return f.URL != ""
}

// RegionConfig locates the boundary collection regions are cropped from.
type RegionConfig struct {
	BoundaryFile string `mapstructure:"boundary_file"`
}

// PubSubConfig configures the refresh subscription.
type PubSubConfig struct {
	ProjectID              string `mapstructure:"project_id"`
	SubscriptionID         string `mapstructure:"subscription_id"`
	MaxOutstandingMessages int    `mapstructure:"max_outstanding_messages"`
	NumGoroutines          int    `mapstructure:"num_goroutines"`
}

// WorkerConfig configures the refresh worker process.
type WorkerConfig struct {
	Port int `mapstructure:"port"`
}

// Load reads configuration. configFile, when not empty, replaces the
// config.yaml search.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.require_tls", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")

	v.SetDefault("forecast.file", "")
	v.SetDefault("forecast.url", "")
	v.SetDefault("forecast.variable", "pm10_conc")
	v.SetDefault("forecast.longitude_var", "longitude")
	v.SetDefault("forecast.latitude_var", "latitude")
	v.SetDefault("forecast.level", 0)
	v.SetDefault("forecast.lead_times", []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	v.SetDefault("forecast.cache_ttl", 15*time.Minute)
	v.SetDefault("forecast.stale_ttl", 6*time.Hour)
	v.SetDefault("forecast.max_age", time.Hour)
	v.SetDefault("forecast.timeout", 2*time.Minute)
	v.SetDefault("forecast.max_retries", 3)

	v.SetDefault("region.boundary_file", "")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dosecast")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "dosecast")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.subscription_id", "forecast-refresh")
	v.SetDefault("pubsub.max_outstanding_messages", 10)
	v.SetDefault("pubsub.num_goroutines", 1)

	v.SetDefault("worker.port", 8081)
}

// Validate checks the settings the API needs and reports every problem.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server.rate_limit must not be negative")
	}
	errs = append(errs, c.Forecast.problems()...)
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		errs = append(errs, "telemetry.otlp_endpoint is required when telemetry is enabled")
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required when the database is enabled")
		}
		if c.Database.Name == "" {
			errs = append(errs, "database.name is required when the database is enabled")
		}
		if c.Database.MinConns > c.Database.MaxConns {
			errs = append(errs, "database.min_conns exceeds database.max_conns")
		}
	}

	return joinProblems(errs)
}

// ValidateWorker checks the settings the refresh worker needs.
func (c *Config) ValidateWorker() error {
	errs := c.Forecast.problems()
	if c.PubSub.ProjectID == "" {
		errs = append(errs, "pubsub.project_id is required")
	}
	if c.PubSub.SubscriptionID == "" {
		errs = append(errs, "pubsub.subscription_id is required")
	}
	if c.Worker.Port <= 0 || c.Worker.Port > 65535 {
		errs = append(errs, fmt.Sprintf("worker.port %d out of range", c.Worker.Port))
	}
	return joinProblems(errs)
}

func (f ForecastConfig) problems() []string {
	var errs []string
	switch {
	case f.File == "" && f.URL == "":
		errs = append(errs, "one of forecast.file or forecast.url is required")
	case f.File != "" && f.URL != "":
		errs = append(errs, "forecast.file and forecast.url are mutually exclusive")
	}
	if f.Variable == "" {
		errs = append(errs, "forecast.variable is required")
	}
	if f.Level < 0 {
		errs = append(errs, "forecast.level must not be negative")
	}
	if len(f.LeadTimes) == 0 {
		errs = append(errs, "forecast.lead_times must not be empty")
	}
	for _, lt := range f.LeadTimes {
		if lt < 0 {
			errs = append(errs, fmt.Sprintf("forecast.lead_times contains negative value %d", lt))
			break
		}
	}
	if f.CacheTTL <= 0 {
		errs = append(errs, "forecast.cache_ttl must be positive")
	}
	return errs
}

func joinProblems(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
}

