package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Graphs    GraphsConfig    `mapstructure:"graphs"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	// OTLPEndpoint empty disables tracing.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GraphsConfig locates the node-link graph files the planner loads.
type GraphsConfig struct {
	Dir                string `mapstructure:"dir"`
	DefaultNetworkType string `mapstructure:"default_network_type"`
}

// PlannerConfig bounds the worker pool and the enumeration itself.
// Zero max_depth and max_routes mean unlimited.
type PlannerConfig struct {
	Workers       int  `mapstructure:"workers"`
	QueueSize     int  `mapstructure:"queue_size"`
	MaxDepth      int  `mapstructure:"max_depth"`
	MaxRoutes     int  `mapstructure:"max_routes"`
	LabelUntagged bool `mapstructure:"label_untagged"`
	RetainLargest bool `mapstructure:"retain_largest"`
}

type CacheConfig struct {
	RoutesTTLSeconds int `mapstructure:"routes_ttl_seconds"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "percorsi")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "percorsi")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.password", "")
	v.SetDefault("valkey.db", 0)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("graphs.dir", "./graphs")
	v.SetDefault("graphs.default_network_type", "drive")
	v.SetDefault("planner.workers", 4)
	v.SetDefault("planner.queue_size", 64)
	v.SetDefault("planner.max_depth", 0)
	v.SetDefault("planner.max_routes", 0)
	v.SetDefault("planner.label_untagged", false)
	v.SetDefault("planner.retain_largest", true)
	v.SetDefault("cache.routes_ttl_seconds", 300)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PERCORSI_DATABASE_HOST → database.host
	v.SetEnvPrefix("PERCORSI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Graphs.Dir == "" {
		errs = append(errs, "graphs.dir is required")
	}
	if c.Graphs.DefaultNetworkType == "" {
		errs = append(errs, "graphs.default_network_type is required")
	}
	if c.Planner.Workers <= 0 {
		errs = append(errs, "planner.workers must be positive")
	}
	if c.Planner.QueueSize <= 0 {
		errs = append(errs, "planner.queue_size must be positive")
	}
	if c.Planner.MaxDepth < 0 {
		errs = append(errs, "planner.max_depth must not be negative")
	}
	if c.Planner.MaxRoutes < 0 {
		errs = append(errs, "planner.max_routes must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
