package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full service configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Log       LogConfig
	CORS      CORSConfig
	Metrics   MetricsConfig
	Auth      AuthConfig
	Mail      MailConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// BaseURL is used to build links in outgoing mail
	BaseURL string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	LogLevel string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

type CacheConfig struct {
	Enabled bool
	Type    string // memory, redis
}

type LogConfig struct {
	Level      string
	Format     string // json, console
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type MetricsConfig struct {
	Enabled bool
}

type AuthConfig struct {
	JWTSecret    string
	SessionTTL   time.Duration
	ResetTTL     time.Duration
	BcryptCost   int
	CookieName   string
	SecureCookie bool
}

type MailConfig struct {
	Enabled        bool
	From           string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPUseTLS     bool
	TimeoutSeconds int
}

type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
	OTLPInsecure bool
	SamplingRate float64
}

// Load reads configuration from the environment, loading a .env file first when present
func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("SERVER_HOST"),
			Port:         v.GetInt("SERVER_PORT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
			BaseURL:      strings.TrimRight(v.GetString("SERVER_BASE_URL"), "/"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			LogLevel: v.GetString("DB_LOG_LEVEL"),

			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			PoolSize: v.GetInt("REDIS_POOL_SIZE"),
			Prefix:   v.GetString("REDIS_KEY_PREFIX"),
		},
		Cache: CacheConfig{
			Enabled: v.GetBool("CACHE_ENABLED"),
			Type:    v.GetString("CACHE_TYPE"),
		},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_FILE_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_FILE_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_FILE_MAX_AGE_DAYS"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods: splitList(v.GetString("CORS_ALLOWED_METHODS")),
			AllowedHeaders: splitList(v.GetString("CORS_ALLOWED_HEADERS")),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Auth: AuthConfig{
			JWTSecret:    v.GetString("AUTH_JWT_SECRET"),
			SessionTTL:   v.GetDuration("AUTH_SESSION_TTL"),
			ResetTTL:     v.GetDuration("AUTH_RESET_TTL"),
			BcryptCost:   v.GetInt("AUTH_BCRYPT_COST"),
			CookieName:   v.GetString("AUTH_COOKIE_NAME"),
			SecureCookie: v.GetBool("AUTH_SECURE_COOKIE"),
		},
		Mail: MailConfig{
			Enabled:        v.GetBool("MAIL_ENABLED"),
			From:           v.GetString("MAIL_FROM"),
			SMTPHost:       v.GetString("MAIL_SMTP_HOST"),
			SMTPPort:       v.GetInt("MAIL_SMTP_PORT"),
			SMTPUsername:   v.GetString("MAIL_SMTP_USERNAME"),
			SMTPPassword:   v.GetString("MAIL_SMTP_PASSWORD"),
			SMTPUseTLS:     v.GetBool("MAIL_SMTP_USE_TLS"),
			TimeoutSeconds: v.GetInt("MAIL_SMTP_TIMEOUT_SECONDS"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			OTLPInsecure: v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
			SamplingRate: v.GetFloat64("OTEL_SAMPLING_RATE"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "hospital")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_KEY_PREFIX", "hospital:")

	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_TYPE", "memory")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_FILE_MAX_BACKUPS", 5)
	v.SetDefault("LOG_FILE_MAX_AGE_DAYS", 30)

	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS")
	v.SetDefault("CORS_ALLOWED_HEADERS", "Accept,Authorization,Content-Type,X-Request-ID")

	v.SetDefault("METRICS_ENABLED", true)

	v.SetDefault("AUTH_SESSION_TTL", "12h")
	v.SetDefault("AUTH_RESET_TTL", "72h")
	v.SetDefault("AUTH_BCRYPT_COST", 12)
	v.SetDefault("AUTH_COOKIE_NAME", "hospital_session")

	v.SetDefault("MAIL_ENABLED", false)
	v.SetDefault("MAIL_FROM", "no-reply@hospital.local")
	v.SetDefault("MAIL_SMTP_PORT", 587)
	v.SetDefault("MAIL_SMTP_USE_TLS", true)
	v.SetDefault("MAIL_SMTP_TIMEOUT_SECONDS", 30)

	v.SetDefault("OTEL_SERVICE_NAME", "hospital-records")
	v.SetDefault("OTEL_SAMPLING_RATE", 1.0)
}

// Validate checks the loaded configuration for values the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}
	if c.Database.Host == "" || c.Database.DBName == "" {
		errs = append(errs, errors.New("database host and name are required"))
	}
	if c.Cache.Type != "memory" && c.Cache.Type != "redis" {
		errs = append(errs, fmt.Errorf("unsupported cache type: %s", c.Cache.Type))
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be at least 32 characters"))
	}
	if c.Auth.SessionTTL <= 0 || c.Auth.ResetTTL <= 0 {
		errs = append(errs, errors.New("session and reset TTLs must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("invalid bcrypt cost: %d", c.Auth.BcryptCost))
	}
	if c.Mail.Enabled && (c.Mail.SMTPHost == "" || c.Mail.From == "") {
		errs = append(errs, errors.New("mail is enabled but SMTP host or sender is missing"))
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		errs = append(errs, fmt.Errorf("sampling rate must be within [0,1], got %v", c.Telemetry.SamplingRate))
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
