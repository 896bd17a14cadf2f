package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Routing   RoutingConfig   `yaml:"routing"`
	Policy    PolicyConfig    `yaml:"policy"`
	Limits    LimitsConfig    `yaml:"limits"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	GRPCPort         int           `yaml:"grpc_port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPath string `yaml:"metrics_path"`
}

type RoutingConfig struct {
	// DefaultTimeout bounds each provider attempt when a task sets no max latency.
	DefaultTimeout     time.Duration        `yaml:"default_timeout" validate:"gt=0"`
	CatalogSource      string               `yaml:"catalog_source" validate:"oneof=file postgres"`
	CircuitBreaker     CircuitBreakerConfig `yaml:"circuit_breaker"`
	Metrics            MetricsWindowConfig  `yaml:"metrics"`
	HealthSyncSchedule string               `yaml:"health_sync_schedule" validate:"required"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" validate:"gte=1"`
	OpenTimeout      time.Duration `yaml:"open_timeout" validate:"gt=0"`
}

type MetricsWindowConfig struct {
	Window     time.Duration `yaml:"window" validate:"gt=0"`
	BucketSize time.Duration `yaml:"bucket_size" validate:"gt=0,ltefield=Window"`
}

type PolicyConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BundlePath        string        `yaml:"bundle_path"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

type LimitsConfig struct {
	RequestsPerMinute  int   `yaml:"requests_per_minute"`
	DailySpendMicroUSD int64 `yaml:"daily_spend_micro_usd"`
}

const (
	CatalogSourceFile     = "file"
	CatalogSourcePostgres = "postgres"
)

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			GRPCPort:         9091,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     180 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "taskrouter",
			User:            "taskrouter",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addresses: []string{"localhost:6379"},
			DB:        0,
			PoolSize:  50,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPath: "/metrics",
		},
		Routing: RoutingConfig{
			DefaultTimeout: 30 * time.Second,
			CatalogSource:  CatalogSourceFile,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				OpenTimeout:      30 * time.Second,
			},
			Metrics: MetricsWindowConfig{
				Window:     5 * time.Minute,
				BucketSize: 10 * time.Second,
			},
			HealthSyncSchedule: "@every 10s",
		},
		Policy: PolicyConfig{
			Enabled:           false,
			BundlePath:        "configs/policies",
			EvaluationTimeout: 100 * time.Millisecond,
		},
		Limits: LimitsConfig{
			RequestsPerMinute: 120,
		},
	}
}
