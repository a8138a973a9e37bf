package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"storefront-payments/internal/config"
	"storefront-payments/internal/database"
	"storefront-payments/internal/infrastructure/paymongo"
	"storefront-payments/internal/logging"
	"storefront-payments/internal/repo"
	"storefront-payments/internal/server"
	"storefront-payments/internal/service"
	"storefront-payments/internal/worker"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.SlogLevel())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	dbService := database.New(db)
	defer dbService.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("schema migrated")
	}

	if cfg.PayMongoWebhookSecret == "" {
		logger.Warn("PAYMONGO_WEBHOOK_SECRET not set, webhook signatures are not verified")
	}
	if cfg.PayMongoSecretKey == "" {
		logger.Warn("PAYMONGO_SECRET_KEY not set, payment link fallback is disabled")
	}

	orderRepo := repo.NewOrderRepo(db)
	gateway := paymongo.NewClient(paymongo.Config{
		BaseURL:   cfg.PayMongoBaseURL,
		SecretKey: cfg.PayMongoSecretKey,
		Timeout:   cfg.PayMongoTimeout,
	}, nil)
	webhooks := service.NewWebhookService(orderRepo, gateway, cfg.PayMongoWebhookSecret, logger)
	autoComplete := worker.NewAutoCompleteWorker(orderRepo, cfg.AutoCompleteAfter, cfg.AutoCompleteSchedule, logger)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(webhooks, dbService, cfg.CORSAllowedOrigins, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return autoComplete.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
