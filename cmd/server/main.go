package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/otcheredev/hospital-records/internal/auth"
	"github.com/otcheredev/hospital-records/internal/cache"
	"github.com/otcheredev/hospital-records/internal/config"
	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/notify"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/services"
	"github.com/otcheredev/hospital-records/pkg/logger"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "hospital-records",
		Short:         "Hospital records service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(createDoctorCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// app is the wired service graph shared by every command
type app struct {
	cfg      *config.Config
	tokens   cache.Cache
	engine   *policy.Engine
	services *services.Registry
}

// bootstrap loads configuration, sets up logging and connects the database
func bootstrap() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format, logger.FileConfig{
		Enabled:    cfg.Log.File != "",
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   true,
	})

	dbConfig := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		LogLevel: cfg.Database.LogLevel,

		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	if err := database.Connect(dbConfig); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp wires the token store, mailer, policy engine and services
func newApp(cfg *config.Config) (*app, error) {
	tokens, err := newTokenStore(cfg)
	if err != nil {
		return nil, err
	}

	mailer, err := newMailer(cfg.Mail)
	if err != nil {
		tokens.Close()
		return nil, err
	}

	engine, err := policy.NewEngine()
	if err != nil {
		tokens.Close()
		return nil, fmt.Errorf("failed to build policy engine: %w", err)
	}

	registry := services.NewRegistry(services.Dependencies{
		Hasher:   auth.NewHasher(cfg.Auth.BcryptCost),
		Sessions: auth.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, tokens),
		Tokens:   tokens,
		Mailer:   mailer,
		Policy:   engine,
		Account: services.AccountConfig{
			BaseURL:  cfg.Server.BaseURL,
			ResetTTL: cfg.Auth.ResetTTL,
		},
	})

	return &app{cfg: cfg, tokens: tokens, engine: engine, services: registry}, nil
}

func (a *app) Close() {
	if err := a.tokens.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close token store")
	}
}

// newTokenStore picks redis when configured; sessions and reset tokens only
// survive restarts and span replicas with redis
func newTokenStore(cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.Enabled && cfg.Cache.Type == "redis" {
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		c, err := cache.NewRedisCache(cache.RedisOptions{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info().Str("addr", addr).Msg("Redis token store initialized")
		return c, nil
	}
	log.Info().Msg("Memory token store initialized")
	return cache.NewMemoryCache(), nil
}

func newMailer(cfg config.MailConfig) (notify.Mailer, error) {
	if !cfg.Enabled {
		log.Info().Msg("Mail disabled, reset links will be logged")
		return notify.LogMailer{}, nil
	}
	m, err := notify.NewSMTPMailer(notify.SMTPConfig{
		From:     cfg.From,
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		UseTLS:   cfg.SMTPUseTLS,
		Timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure mail: %w", err)
	}
	return m, nil
}

// withApp runs fn against a fully wired app and tears it down afterwards
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(context.Background(), a)
}
