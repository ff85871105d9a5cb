package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/starosta-app/starosta-back/internal/api"
	"github.com/starosta-app/starosta-back/internal/config"
	"github.com/starosta-app/starosta-back/internal/cron"
	"github.com/starosta-app/starosta-back/internal/db"
	"github.com/starosta-app/starosta-back/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	store, err := db.Open(cfg.DBDriver, cfg.DBUrl)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := bootstrapAdmin(cfg, store, logger); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	jobs, err := cron.Start(cfg.CleanupCron, cron.NewMaintenance(store, cfg.Location(), cfg.InviteTTL, logger))
	if err != nil {
		return err
	}
	defer func() { <-jobs.Stop().Done() }()

	if cfg.Env != "development" && cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.SetupRouter(cfg, store, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func bootstrapAdmin(cfg *config.Config, store *db.Store, logger *zap.Logger) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	if cfg.AdminPassword == "" {
		return errors.New("ADMIN_PASSWORD is required with ADMIN_EMAIL")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, created, err := store.EnsureSuperuser(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return err
	}
	logger.Info("admin account ready", zap.Uint("user_id", user.ID), zap.Bool("created", created))
	return nil
}
