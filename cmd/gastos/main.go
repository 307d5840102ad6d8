package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"gastos/internal/bot"
	"gastos/internal/cache"
	"gastos/internal/classifier"
	"gastos/internal/cli"
	"gastos/internal/config"
	apphttp "gastos/internal/http"
	"gastos/internal/log"
	"gastos/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config) error {
	ledger, repo, closeLedger, err := cli.OpenLedger(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	caches := cache.NewManager()
	caches.Register(repo.NameCache())
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	guard := session.NewClearGuard(cfg.ClearConfirmTTL)
	dispatcher := bot.NewDispatcher(ledger, newClassifier(ctx, logger, cfg), guard, cfg.ListLimit)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:             ledger,
		Bot:                dispatcher,
		Guard:              guard,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ListLimit:          cfg.ListLimit,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting gastos server",
			"port", cfg.Port,
			"db", cfg.SQLiteDBPath,
			"amqp", cfg.AMQPURL != "",
			"default_currency", cfg.DefaultCurrency)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.LogError(shutdownCtx, "Server shutdown error", err, log.OpShutdown, nil)
			return err
		}
		return nil
	})
	return g.Wait()
}

// newClassifier uses Gemini when a key is configured. Without one, free text
// gets a fixed "not understood" answer while slash commands keep working.
func newClassifier(ctx context.Context, logger *log.Logger, cfg *config.Config) classifier.Classifier {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, free-text classification disabled")
		return classifier.Static{}
	}
	g, err := classifier.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ClassifierTimeout)
	if err != nil {
		logger.Warn("Gemini client unavailable, free-text classification disabled", log.FieldError, err)
		return classifier.Static{}
	}
	logger.Info("Gemini classifier ready", "model", cfg.GeminiModel)
	return g
}
