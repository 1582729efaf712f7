// Package main is the entrypoint for the incidentdesk API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/config"
	"github.com/incidentdesk/incidentdesk/internal/handler"
	"github.com/incidentdesk/incidentdesk/internal/metrics"
	"github.com/incidentdesk/incidentdesk/internal/middleware"
	"github.com/incidentdesk/incidentdesk/internal/repository"
	"github.com/incidentdesk/incidentdesk/internal/server"
	"github.com/incidentdesk/incidentdesk/internal/service"
)

// Startup connection attempts back off exponentially up to this many retries.
const dbConnectRetries = 5

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if cfg.UsesDevelopmentSecret() {
		logger.Warn("SECRET_KEY not set, signing tokens with the public development secret")
	}

	// Initialize database
	repo, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	if cfg.RunMigrations {
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			logger.Error("failed to apply migrations", "error", sanitizeError(err, cfg.DatabaseURL))
			os.Exit(1)
		}
		version, err := repo.MigrationVersion(ctx)
		if err != nil {
			logger.Warn("could not read schema version", "error", err)
		}
		logger.Info("schema up to date", "version", version)
	}

	// Auth core
	hasher := auth.NewHasher(auth.PasswordParams{
		Memory:  cfg.Argon2MemoryKB,
		Time:    cfg.Argon2Time,
		Threads: cfg.Argon2Threads,
	})
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:    []byte(cfg.SecretKey),
		Algorithm: cfg.Algorithm,
		TTL:       cfg.AccessTokenTTL(),
	})
	if err != nil {
		repo.Close()
		logger.Error("failed to configure tokens", "error", err)
		os.Exit(1)
	}
	gate := auth.NewGate(tokens, repo)

	// Services
	recorder := metrics.NewInMemory()
	userService, err := service.NewUserService(repo, hasher, tokens, logger.With("component", "users"), recorder)
	if err != nil {
		repo.Close()
		logger.Error("failed to initialize user service", "error", err)
		os.Exit(1)
	}
	incidentService := service.NewIncidentService(repo, recorder)

	// Router
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	router := handler.NewRouter(handler.RouterConfig{
		Logger:    logger,
		Metrics:   recorder,
		Snapshots: recorder,
		Gate:      gate,
		Users:     handler.NewUserHandler(userService, logger.With("component", "users")),
		Incidents: handler.NewIncidentHandler(incidentService, logger.With("component", "incidents")),
		Health:    handler.NewHealthHandler(repo, logger.With("component", "health")),
		Security: middleware.SecurityConfig{
			IsDevelopment: cfg.IsDevelopment(),
		},
		CORS:        corsCfg,
		MaxBodySize: cfg.MaxRequestBodySize,
	})

	srv := server.New(router, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"algorithm", cfg.Algorithm,
		"token_ttl", cfg.AccessTokenTTL().String(),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// connectDatabase opens the pool, retrying while Postgres is still starting.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repository.Repository, error) {
	backoff := retry.WithMaxRetries(dbConnectRetries, retry.NewExponential(500*time.Millisecond))

	var repo *repository.Repository
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		r, err := repository.New(attemptCtx, cfg.DatabaseURL, repository.PoolOptions{
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.Warn("database not ready, retrying", "error", sanitizeError(err, cfg.DatabaseURL))
			return retry.RetryableError(err)
		}
		repo = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, errors.New("database connection not established")
	}
	return repo, nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "incidentdesk")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	q := parsed.Query()
	if q.Has("password") {
		q.Set("password", "redacted")
		parsed.RawQuery = q.Encode()
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
