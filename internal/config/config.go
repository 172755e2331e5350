package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Mail      MailConfig
	NATS      NATSConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	BaseURL               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// MailConfig holds SMTP settings. An empty Host disables delivery.
type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// NATSConfig holds the optional event forwarding endpoint.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// RateLimitConfig bounds guest endpoint usage per client.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
}

// Load reads configuration from environment variables (and an optional .env
// or config file), applying defaults where possible.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  v.GetString("APP_NAME"),
			Env:                   v.GetString("APP_ENV"),
			Host:                  v.GetString("APP_HOST"),
			Port:                  v.GetString("APP_PORT"),
			Version:               v.GetString("APP_VERSION"),
			BaseURL:               strings.TrimRight(v.GetString("APP_BASE_URL"), "/"),
			RequestTimeoutSeconds: v.GetInt("HTTP_REQUEST_TIMEOUT_SECONDS"),
		},
		Postgres: PostgresConfig{
			DSN:            v.GetString("POSTGRES_DSN"),
			MaxConns:       v.GetInt32("POSTGRES_MAX_CONNS"),
			MinConns:       v.GetInt32("POSTGRES_MIN_CONNS"),
			RunMigrations:  v.GetBool("POSTGRES_RUN_MIGRATIONS"),
			ConnMaxIdleSec: v.GetInt32("POSTGRES_CONN_MAX_IDLE_SECONDS"),
			ConnMaxLifeSec: v.GetInt32("POSTGRES_CONN_MAX_LIFE_SECONDS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Auth: AuthConfig{
			JWTSecret:             v.GetString("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes: v.GetInt("AUTH_ACCESS_TOKEN_TTL_MINUTES"),
			BcryptCost:            v.GetInt("AUTH_BCRYPT_COST"),
		},
		Mail: MailConfig{
			Host:        v.GetString("SMTP_HOST"),
			Port:        v.GetInt("SMTP_PORT"),
			Username:    v.GetString("SMTP_USERNAME"),
			Password:    v.GetString("SMTP_PASSWORD"),
			FromAddress: v.GetString("MAIL_FROM_ADDRESS"),
			FromName:    v.GetString("MAIL_FROM_NAME"),
		},
		NATS: NATSConfig{
			URL:           v.GetString("NATS_URL"),
			SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           v.GetBool("RATE_LIMIT_ENABLED"),
			RequestsPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
			RequestsPerHour:   v.GetInt("RATE_LIMIT_PER_HOUR"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must not be empty")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "support-desk")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_HOST", "0.0.0.0")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_VERSION", "dev")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("HTTP_REQUEST_TIMEOUT_SECONDS", 30)

	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("POSTGRES_MAX_CONNS", 10)
	v.SetDefault("POSTGRES_MIN_CONNS", 2)
	v.SetDefault("POSTGRES_RUN_MIGRATIONS", true)
	v.SetDefault("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)
	v.SetDefault("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)

	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AUTH_JWT_SECRET", "dev-secret")
	v.SetDefault("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60)
	v.SetDefault("AUTH_BCRYPT_COST", 12)

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("MAIL_FROM_ADDRESS", "noreply@example.com")
	v.SetDefault("MAIL_FROM_NAME", "Support Desk")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT_PREFIX", "support.tickets")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 10)
	v.SetDefault("RATE_LIMIT_PER_HOUR", 100)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the JWT lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	if a.AccessTokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}
