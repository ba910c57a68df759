package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oggyb/matchfeed/internal/app"
	"github.com/oggyb/matchfeed/internal/cache"
	"github.com/oggyb/matchfeed/internal/config"
	"github.com/oggyb/matchfeed/internal/db"
	"github.com/oggyb/matchfeed/internal/handler"
	"github.com/oggyb/matchfeed/internal/logger"
	"github.com/oggyb/matchfeed/internal/server"
	"github.com/oggyb/matchfeed/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.NewDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(database) }()

	redisCache := cache.NewRedisCache(cfg)
	defer func() { _ = redisCache.Close() }()
	if err := redisCache.Ping(ctx); err != nil {
		return err
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}

	appCtx := app.New(cfg, database, redisCache, log, store)

	if cfg.IsDevelopment() && cfg.App.SeedOnBoot {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	errCh := make(chan error, 2)

	httpSrv := server.NewHTTPServer(cfg, handler.NewRouter(appCtx))
	go func() {
		log.Info("starting HTTP server", "addr", httpSrv.Addr, "env", cfg.App.Env)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcSrv *server.GRPCServer
	if cfg.GRPC.Enabled {
		grpcSrv = server.NewGRPCServer(appCtx)
		go func() {
			if err := grpcSrv.ListenAndServe(ctx, net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err = <-errCh:
		log.Error("server error", "err", err)
	}

	log.Info("shutting down")
	if grpcSrv != nil {
		grpcSrv.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := httpSrv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("server forced shutdown", "err", shutdownErr)
	}

	log.Info("server stopped")
	return err
}
