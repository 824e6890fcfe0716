// Package main implements ledgerd, the ledger service server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	app "github.com/ledgerware/ledger-service/internal/app"
	"github.com/ledgerware/ledger-service/internal/app/httpapi"
	"github.com/ledgerware/ledger-service/internal/config"
	"github.com/ledgerware/ledger-service/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	flag.Parse()

	// Optional .env for local development; ignore when absent.
	_ = godotenv.Load()

	if v := os.Getenv("LEDGER_CONFIG"); v != "" && *configPath == "" {
		*configPath = v
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	}).WithField("component", "ledgerd")

	application, err := app.New(app.Stores{}, app.Config{
		Limits:          cfg.Policy,
		LockWaitTimeout: cfg.Ledger.LockWaitTimeout,
		MonitorInterval: cfg.Ledger.MonitorInterval,
	}, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	handler, err := httpapi.NewHandler(application, httpapi.Options{
		AuditFile: cfg.HTTP.AuditFile,
		RateLimit: cfg.HTTP.RateLimit,
		RateBurst: cfg.HTTP.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("build handler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop")
	}

	log.Info("ledgerd stopped")
	return nil
}
