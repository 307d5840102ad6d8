package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"gastos/internal/cli"
	"gastos/internal/config"
	"gastos/internal/log"
	"gastos/internal/services"
)

var commands = []subcommands.Command{
	&balanceCmd{},
	&summaryCmd{},
	&listCmd{},
	&deleteCmd{},
	&renameCmd{},
	&categoriesCmd{},
	&recordCmd{},
	&clearCmd{},
}

// ledgerFlags are shared by every command that touches the ledger.
type ledgerFlags struct {
	db    string
	group int64
}

func (l *ledgerFlags) setFlags(f *flag.FlagSet, withGroup bool) {
	f.StringVar(&l.db, "db", "", "SQLite ledger file. Defaults to SQLITE_DB_PATH.")
	if withGroup {
		f.Int64Var(&l.group, "group", 0, "Chat group id whose ledger is used.")
	}
}

func (l *ledgerFlags) requireGroup() error {
	if l.group == 0 {
		return fmt.Errorf("-group is required")
	}
	return nil
}

// openLedger loads configuration, applies flag overrides and opens the
// ledger. Ledger events are published when AMQP is configured.
func (l *ledgerFlags) openLedger(ctx context.Context) (*services.LedgerService, *config.Config, func(), error) {
	logCfg := log.DefaultConfig()
	logCfg.Component = log.ComponentCLI
	logCfg.Output = os.Stderr
	if level, err := log.ParseLevel(getenvDefault("LOG_LEVEL", "warn")); err == nil {
		logCfg.Level = level
	}
	logger := log.New(logCfg)
	log.SetDefault(logger)

	cfg := config.Load()
	if l.db != "" {
		cfg.SQLiteDBPath = l.db
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	ledger, _, closeFn, err := cli.OpenLedger(ctx, logger, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return ledger, cfg, closeFn, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var stdout io.Writer = os.Stdout

func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}

func usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitUsageError
}
