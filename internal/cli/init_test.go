package cli

import (
	"context"
	"path/filepath"
	"testing"

	"gastos/internal/config"
	"gastos/internal/log"
)

func TestSetupLoggerFallsBackToInfo(t *testing.T) {
	logger := SetupLogger(log.ComponentCLI, "loud")
	if logger.Component() != log.ComponentCLI {
		t.Fatalf("component = %q", logger.Component())
	}
	if logger.Enabled(context.Background(), -4) {
		t.Fatal("debug should be disabled at the fallback level")
	}
}

func TestOpenLedgerWithoutAMQP(t *testing.T) {
	cfg := &config.Config{
		SQLiteDBPath:    filepath.Join(t.TempDir(), "gastos.db"),
		DefaultCurrency: "ARS",
	}
	logger := SetupLogger(log.ComponentCLI, "error")

	ledger, repo, closeFn, err := OpenLedger(context.Background(), logger, cfg)
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	defer closeFn()

	if repo == nil {
		t.Fatal("expected repository")
	}
	if err := ledger.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	names, err := ledger.Categories(context.Background())
	if err != nil || len(names) == 0 {
		t.Fatalf("categories = %v, %v", names, err)
	}
}
