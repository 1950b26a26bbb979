package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env           string              `mapstructure:"env" env:"APP_ENV" validate:"required,oneof=development production test"`
	Server        ServerConfig        `mapstructure:"http_server" envPrefix:"HTTP_"`
	Database      DatabaseConfig      `mapstructure:"database" envPrefix:"DB_"`
	Security      SecurityConfig      `mapstructure:"security" envPrefix:"SECURITY_"`
	Observability ObservabilityConfig `mapstructure:"observability" envPrefix:"OBS_"`
	Notifications NotificationConfig  `mapstructure:"notifications" envPrefix:"NOTIFY_"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" env:"PORT" validate:"min=1,max=65535"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" env:"ALLOWED_ORIGINS"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" env:"READ_TIMEOUT"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" env:"IDLE_TIMEOUT"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" env:"WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" env:"DRIVER" validate:"required,oneof=sqlite postgres"`
	Source          string        `mapstructure:"source" env:"SOURCE" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" env:"MAX_OPEN_CONNS" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" env:"MAX_IDLE_CONNS" validate:"min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" env:"CONN_MAX_LIFETIME" validate:"min=1m"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout" env:"QUERY_TIMEOUT" validate:"min=100ms"`
	AutoMigrate     bool          `mapstructure:"auto_migrate" env:"AUTO_MIGRATE"`
	FallbackEnabled bool          `mapstructure:"fallback_enabled" env:"FALLBACK_ENABLED"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret" env:"JWT_SECRET" validate:"required,min=16"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration" env:"ACCESS_TOKEN_DURATION" validate:"min=1m,max=24h"`
	BCryptCost          int           `mapstructure:"bcrypt_cost" env:"BCRYPT_COST" validate:"min=4,max=15"`
	EnforceAdminAuth    bool          `mapstructure:"enforce_admin_auth" env:"ENFORCE_ADMIN_AUTH"`
	AuthRateLimit       float64       `mapstructure:"auth_rate_limit" env:"AUTH_RATE_LIMIT" validate:"gt=0"`
	AuthRateBurst       int           `mapstructure:"auth_rate_burst" env:"AUTH_RATE_BURST" validate:"min=1"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics" envPrefix:"METRICS_"`
	Logging LoggingConfig `mapstructure:"logging" envPrefix:"LOG_"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" env:"ENABLED"`
	Path    string `mapstructure:"path" env:"PATH" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" env:"LEVEL" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" env:"FORMAT" validate:"required,oneof=json text"`
}

type NotificationConfig struct {
	WebhookURL string        `mapstructure:"webhook_url" env:"WEBHOOK_URL" validate:"omitempty,url"`
	Timeout    time.Duration `mapstructure:"timeout" env:"TIMEOUT"`
	MaxWorkers int           `mapstructure:"max_workers" env:"MAX_WORKERS" validate:"min=1"`
	QueueSize  int           `mapstructure:"queue_size" env:"QUEUE_SIZE" validate:"min=1"`
}

// DefaultConfig boots a local SQLite instance with the memory fallback on.
func DefaultConfig() Config {
	return Config{
		Env: "development",
		Server: ServerConfig{
			Port:              3000,
			AllowedOrigins:    "*",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
			WriteTimeout:      15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Source:          "database/requests.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    5 * time.Second,
			AutoMigrate:     true,
			FallbackEnabled: true,
		},
		Security: SecurityConfig{
			JWTSecret:           DevelopmentJWTSecret,
			AccessTokenDuration: 8 * time.Hour,
			BCryptCost:          10,
			AuthRateLimit:       5,
			AuthRateBurst:       10,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
		Notifications: NotificationConfig{
			Timeout:    5 * time.Second,
			MaxWorkers: 4,
			QueueSize:  100,
		},
	}
}

// LoadConfigFromEnv reads the configuration from environment variables,
// after loading whichever of envFiles exist.
func LoadConfigFromEnv(envFiles ...string) (*Config, error) {
	existing := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// ----------------- VALIDATION -----------------

// DevelopmentJWTSecret is the built-in signing key. It is public, so a
// production config must replace it.
const DevelopmentJWTSecret = "change-me-local-development-secret"

var configValidator = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	var errs []string

	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if c.Env == "production" {
		if err := c.Security.validateProduction(); err != nil {
			errs = append(errs, fmt.Sprintf("security config: %v", err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *SecurityConfig) validateProduction() error {
	if strings.TrimSpace(c.JWTSecret) == "" || c.JWTSecret == DevelopmentJWTSecret {
		return errors.New("jwt_secret must be set to a private value in production")
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		for _, origin := range c.Origins() {
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

// Origins splits the comma separated allowed_origins value.
func (c *ServerConfig) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}
