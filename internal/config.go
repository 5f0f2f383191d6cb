package internal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env           string              `mapstructure:"env" validate:"oneof=development production"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Webhook       WebhookConfig       `mapstructure:"webhook"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
}

type DatabaseConfig struct {
	Source           string        `mapstructure:"source" validate:"required"`
	MaxOpenConns     int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	AcquireTimeout   time.Duration `mapstructure:"acquire_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

type WebhookConfig struct {
	// Secret is shared with the payment service and signs every delivery.
	Secret      string `mapstructure:"secret"`
	ServiceName string `mapstructure:"service_name"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
}

// LoadConfigFromEnv builds config from environment variables only, used for
// container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Env: getEnv("APP_ENV", EnvDevelopment),
		Server: ServerConfig{
			Port:           getEnvAsInt("PORT", 8080),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			HandlerTimeout: getEnvAsDuration("SERVER_HANDLER_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Source:           os.Getenv("DATABASE_URL"),
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxIdleTime:  getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second),
			AcquireTimeout:   getEnvAsDuration("DB_ACQUIRE_TIMEOUT", 5*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 10*time.Second),
		},
		Webhook: WebhookConfig{
			Secret:      os.Getenv("PAYMENT_WEBHOOK_SECRET"),
			ServiceName: getEnv("PAYMENT_SERVICE_NAME", "payment-service"),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := validator.New().Struct(c); err != nil {
		errs = append(errs, err.Error())
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Webhook.Validate(c.Env); err != nil {
		errs = append(errs, fmt.Sprintf("webhook config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

// Validate rejects a missing signing secret outside development. The
// development fallback exists so the service can run against a local
// payment-service stub, never in production.
func (c *WebhookConfig) Validate(env string) error {
	if c.Secret == "" && env == EnvProduction {
		return errors.New("PAYMENT_WEBHOOK_SECRET is required in production")
	}
	return nil
}

// GetDSN returns the database source with the server-side statement
// timeout applied, so runaway statements are bounded even if the client
// context is not cancelled.
func (c *DatabaseConfig) GetDSN() string {
	dsn := c.Source
	if c.StatementTimeout <= 0 {
		return dsn
	}
	opt := fmt.Sprintf("statement_timeout=%d", c.StatementTimeout.Milliseconds())
	if strings.Contains(dsn, "?") {
		return dsn + "&" + opt
	}
	return dsn + "?" + opt
}
