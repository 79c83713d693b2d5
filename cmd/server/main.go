package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gesturelab/gesturelab/internal/config"
	"github.com/gesturelab/gesturelab/internal/http/handlers"
	"github.com/gesturelab/gesturelab/internal/logging"
	"github.com/gesturelab/gesturelab/internal/metrics"
	"github.com/gesturelab/gesturelab/internal/server"
	"github.com/gesturelab/gesturelab/internal/storage"
	"github.com/gesturelab/gesturelab/internal/storage/postgres"
	"github.com/gesturelab/gesturelab/internal/storage/redisstore"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, os.Stdout)
	if envErr != nil {
		log.Info("no .env file found; relying on existing environment")
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	health := map[string]handlers.Pinger{"postgres": store}
	var sessions storage.SessionStore = store
	if cfg.SessionBackend == config.SessionBackendRedis {
		rs, err := redisstore.NewSessionStore(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := rs.Close(); err != nil {
				log.Warn("close redis", "error", err)
			}
		}()
		sessions = rs
		health["redis"] = rs
	}

	srv, err := server.New(cfg, server.Deps{
		Accounts: store,
		Sessions: sessions,
		Logger:   log,
		Metrics:  metrics.New(),
		Health:   health,
	})
	if err != nil {
		return err
	}
	if err := srv.Bootstrap(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("GestureLab listening", "addr", cfg.HTTPAddress(), "session_backend", cfg.SessionBackend)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctxShutdown)
}
