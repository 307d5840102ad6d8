// Package cli holds the start-up steps shared by the gastos binaries.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gastos/internal/amqp"
	"gastos/internal/config"
	"gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/storage"
)

// SetupLogger builds the process logger for levelName and installs it as
// the slog default. Unknown levels fall back to info.
func SetupLogger(component, levelName string) *log.Logger {
	level, err := log.ParseLevel(levelName)
	cfg := log.DefaultConfig()
	cfg.Level = level
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", levelName)
	}
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenLedger opens the SQLite ledger and, when AMQP is configured, the
// event publisher. The returned close func releases both.
func OpenLedger(ctx context.Context, logger *log.Logger, cfg *config.Config) (*services.LedgerService, *storage.SQLiteRepository, func(), error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open ledger %s: %w", cfg.SQLiteDBPath, err)
	}

	var bus *amqp.Client
	if cfg.AMQPURL != "" {
		bus, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Writes still succeed; events are simply not published.
			logger.WarnContext(ctx, "AMQP unavailable, ledger events disabled", log.FieldError, err)
			bus = nil
		}
	}

	var publisher services.EventPublisher
	if bus != nil {
		publisher = bus
	}
	ledger := services.NewLedgerService(repo, publisher, cfg.DefaultCurrency)

	closeFn := func() {
		if bus != nil {
			if err := bus.Close(); err != nil {
				logger.Error("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if err := ledger.Close(); err != nil {
			logger.Error("Failed to close ledger", log.FieldError, err)
		}
	}
	return ledger, repo, closeFn, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", "reason", context.Cause(ctx))
	}()
	return ctx, cancel
}
