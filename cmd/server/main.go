package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lmorrell/coldreach/internal/api"
	"github.com/lmorrell/coldreach/internal/config"
	"github.com/lmorrell/coldreach/internal/engine"
	"github.com/lmorrell/coldreach/internal/mailer"
	"github.com/lmorrell/coldreach/internal/store"
)

func main() {
	// Optional in production; local development keeps settings in .env.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	if err := pgStore.RunMigrations(ctx, "migrations"); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()
	logger.Info("connected to Redis")

	// Sending pool and transport. The API provider sends through a single
	// service identity, so its pool holds exactly one account.
	var (
		transport mailer.Transport
		accounts  []config.SendingAccount
	)
	switch cfg.Provider {
	case "resend":
		transport = mailer.NewResendTransport(cfg.ResendAPIKey)
		accounts = []config.SendingAccount{{
			Email:      cfg.FromEmail,
			Password:   "",
			DailyLimit: config.DefaultDailyLimit,
		}}
	default:
		transport = mailer.NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort)
		accounts = cfg.Accounts
	}

	pool, err := mailer.NewAccountPool(accounts, logger)
	if err != nil {
		logger.Error("failed to build sending pool", "error", err)
		os.Exit(1)
	}
	logger.Info("sending pool ready", "provider", cfg.Provider, "accounts", len(accounts))

	dispatcher := mailer.NewDispatcher(pool, transport, cfg.BaseURL, logger)
	if cfg.SendsPerSecond > 0 {
		throttle := engine.NewThrottle(redisStore.Client(), logger)
		dispatcher = dispatcher.WithRateLimit(throttle, cfg.SendsPerSecond)
		logger.Info("per-account throttle enabled", "sends_per_second", cfg.SendsPerSecond)
	}

	runner := engine.NewRunner(pgStore, pgStore, dispatcher, cfg.SendWorkers, logger)
	signals := engine.NewSignalMetrics(redisStore.Client(), logger)

	router := api.NewRouter(pgStore, pool, runner, signals, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "base_url", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
