package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/backend"
	"gastos/internal/cache"
	"gastos/internal/cli"
	"gastos/internal/config"
	"gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/storage"
	"gastos/internal/worker"
)

const (
	retryDelay    = 5 * time.Second
	maxRetryDelay = 2 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config) error {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", cfg.SQLiteDBPath, err)
	}
	// Read-only here: the worker never publishes.
	ledger := services.NewLedgerService(repo, nil, cfg.DefaultCurrency)
	defer ledger.Close()

	sink, err := newSink(ctx, logger, cfg)
	if err != nil {
		return err
	}

	bus, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect AMQP: %w", err)
	}
	defer bus.Close()

	caches := cache.NewManager()
	caches.Register(repo.NameCache())
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	return consume(ctx, logger, bus, worker.NewMirrorWorker(ledger, sink, logger))
}

// consume keeps the consumer attached, backing off after broker failures.
func consume(ctx context.Context, logger *log.Logger, bus *amqp.Client, mirror *worker.MirrorWorker) error {
	delay := retryDelay
	for {
		err := bus.ConsumeLedgerEvents(ctx, mirror.HandleLedgerEvent)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil || errors.Is(err, context.Canceled) {
			return nil
		}

		logger.LogError(ctx, "Event consumption interrupted, retrying", err, log.OpMirror,
			log.NewFields().WithComponent(log.ComponentAMQP))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func newSink(ctx context.Context, logger *log.Logger, cfg *config.Config) (backend.Sink, error) {
	sinkCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateSink(ctx, sinkCfg)
	if err != nil {
		return nil, fmt.Errorf("create %s sink: %w", sinkCfg.Type, err)
	}
	return res.Sink, nil
}
