package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/longevaiapp/EVEREST-sub000/internal/email"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/pharmacy"
	"github.com/longevaiapp/EVEREST-sub000/pkg/messaging/redis"
	"github.com/longevaiapp/EVEREST-sub000/pkg/worker"
)

// EnvPrefix prefixes every environment override, e.g. CLINIC_DATABASE_HOST.
const EnvPrefix = "CLINIC"

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// ServerConfig configures the API listener. DevHeaders accepts X-Actor-*
// headers in place of a bearer token.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" split_words:"true"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes" split_words:"true"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" split_words:"true"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" split_words:"true"`
	DevHeaders     bool          `mapstructure:"dev_headers" split_words:"true"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true"`
}

type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	URL             string        `mapstructure:"url"`
	MaxRetries      int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize        int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns    int           `mapstructure:"min_idle_conns" split_words:"true"`
	BreakerFailures uint32        `mapstructure:"breaker_failures" split_words:"true"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout" split_words:"true"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type CareConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval" split_words:"true"`
}

// BillingConfig holds the daily rate per hospitalization type and the
// price per study name. Studies not listed cost DefaultStudyCost.
type BillingConfig struct {
	DailyRates       map[string]float64 `mapstructure:"daily_rates" split_words:"true"`
	StudyCosts       map[string]float64 `mapstructure:"study_costs" split_words:"true"`
	DefaultStudyCost float64            `mapstructure:"default_study_cost" split_words:"true"`
}

type PharmacyConfig struct {
	Catalog []pharmacy.Medication `mapstructure:"catalog" ignored:"true"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst"`
}

type OutboxConfig struct {
	BatchSize       int           `mapstructure:"batch_size" split_words:"true"`
	PollInterval    time.Duration `mapstructure:"poll_interval" split_words:"true"`
	RetryAttempts   int           `mapstructure:"retry_attempts" split_words:"true"`
	RetryDelay      time.Duration `mapstructure:"retry_delay" split_words:"true"`
	MaxAttempts     int           `mapstructure:"max_attempts" split_words:"true"`
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" split_words:"true"`
}

// LogConfig selects the level and format. When File.Path is set, records
// also go to a size-rotated file.
type LogConfig struct {
	Level string        `mapstructure:"level"`
	JSON  bool          `mapstructure:"json"`
	File  LogFileConfig `mapstructure:"file"`
}

type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" split_words:"true"`
	MaxBackups int    `mapstructure:"max_backups" split_words:"true"`
	MaxAgeDays int    `mapstructure:"max_age_days" split_words:"true"`
	Compress   bool   `mapstructure:"compress"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Care      CareConfig      `mapstructure:"care"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Pharmacy  PharmacyConfig  `mapstructure:"pharmacy"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" split_words:"true"`
	SMTP      email.Config    `mapstructure:"smtp"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	Log       LogConfig       `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.breaker_failures", 5)
	v.SetDefault("redis.breaker_timeout", 30*time.Second)

	v.SetDefault("jwt.issuer", "clinic")
	v.SetDefault("care.tick_interval", time.Minute)

	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.timeout", 10*time.Second)

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 2*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", 200*time.Millisecond)
	v.SetDefault("outbox.max_attempts", 10)
	v.SetDefault("outbox.retention", 7*24*time.Hour)
	v.SetDefault("outbox.cleanup_interval", time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
}

// LoadConfig reads config.yml from path, or from the usual locations when
// path is empty, then applies CLINIC_* environment overrides. A missing
// file is only an error when path was given.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")           // current directory
		v.AddConfigPath("./config")    // config subdirectory
		v.AddConfigPath("/app/config") // container config directory
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	var problems []string

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			problems = append(problems, "database.host and database.name are required for postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("database.driver must be %q or %q", DriverMemory, DriverPostgres))
	}
	if c.JWT.Secret == "" && !c.Server.DevHeaders {
		problems = append(problems, "jwt.secret is required unless server.dev_headers is set")
	}
	if c.Care.TickInterval <= 0 {
		problems = append(problems, "care.tick_interval must be positive")
	}
	if c.SMTP.Enabled && (c.SMTP.Host == "" || c.SMTP.From == "") {
		problems = append(problems, "smtp.host and smtp.from are required when smtp is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Add conversion methods to convert config types
func (c *OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
		MaxAttempts:   c.MaxAttempts,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:             c.URL,
		MaxRetries:      c.MaxRetries,
		RetryBackoff:    c.RetryBackoff,
		PoolSize:        c.PoolSize,
		MinIdleConns:    c.MinIdleConns,
		BreakerFailures: c.BreakerFailures,
		BreakerTimeout:  c.BreakerTimeout,
	}
}
