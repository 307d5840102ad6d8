package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"gastos/internal/intent"
	"gastos/internal/services"
)

type balanceCmd struct {
	ledgerFlags
	moneyType string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "show balances per currency" }
func (*balanceCmd) Usage() string {
	return `gastosctl balance -group <id> [-money cash|bank|all]

  Prints cash, bank and total balances for every currency of the group.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f, true)
	f.StringVar(&c.moneyType, "money", intent.MoneyTypeAll, "Money type to show: cash, bank or all.")
}

func (c *balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.requireGroup(); err != nil {
		return usage("%v", err)
	}
	ledger, _, closeFn, err := c.openLedger(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer closeFn()

	q := intent.Query{QueryType: intent.Balance, MoneyType: strings.ToLower(c.moneyType)}
	a, err := ledger.Queries().Answer(ctx, c.group, q)
	if err != nil {
		return fail("Error computing balance: %v", err)
	}
	renderBalances(stdout, a.Balances, q.MoneyType)
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	ledgerFlags
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show balances and the category breakdown" }
func (*summaryCmd) Usage() string {
	return `gastosctl summary -group <id>
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f, true) }

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.requireGroup(); err != nil {
		return usage("%v", err)
	}
	ledger, _, closeFn, err := c.openLedger(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer closeFn()

	s, err := ledger.Queries().Summary(ctx, c.group)
	if err != nil {
		return fail("Error building summary: %v", err)
	}
	renderSummary(stdout, s)
	return subcommands.ExitSuccess
}

type listCmd struct {
	ledgerFlags
	limit    int
	all      bool
	category string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list recent transactions" }
func (*listCmd) Usage() string {
	return `gastosctl list -group <id> [-n <count> | -all] [-category <name>]

  Lists transactions newest first.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f, true)
	f.IntVar(&c.limit, "n", 0, "Number of transactions. Defaults to LIST_LIMIT.")
	f.BoolVar(&c.all, "all", false, "List every transaction.")
	f.StringVar(&c.category, "category", "", "Only list this category.")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.requireGroup(); err != nil {
		return usage("%v", err)
	}
	if c.limit < 0 {
		return usage("-n must be positive")
	}
	ledger, cfg, closeFn, err := c.openLedger(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer closeFn()

	limit := c.limit
	switch {
	case c.all:
		limit = 0
	case limit == 0:
		limit = cfg.ListLimit
	}
	entries, err := ledger.ListRecent(ctx, c.group, limit, c.category)
	if err != nil {
		return fail("Error listing transactions: %v", err)
	}
	renderEntries(stdout, entries)
	return subcommands.ExitSuccess
}

type deleteCmd struct {
	ledgerFlags
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete one transaction by id" }
func (*deleteCmd) Usage() string {
	return `gastosctl delete -group <id> <transaction-id>
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f, true) }

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.requireGroup(); err != nil {
		return usage("%v", err)
	}
	if f.NArg() != 1 {
		return usage("expected exactly one transaction id")
	}
	id, err := strconv.ParseInt(f.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return usage("invalid transaction id %q", f.Arg(0))
	}

	ledger, _, closeFn, err := c.openLedger(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer closeFn()

	ok, err := ledger.DeleteTransaction(ctx, c.group, id)
	if err != nil {
		return fail("Error deleting transaction: %v", err)
	}
	if !ok {
		return fail("Transaction %d not found in group %d", id, c.group)
	}
	fmt.Fprintf(stdout, "Deleted transaction %d.\n", id)
	return subcommands.ExitSuccess
}

type renameCmd struct {
	ledgerFlags
}

func (*renameCmd) Name() string     { return "rename" }
func (*renameCmd) Synopsis() string { return "rename a category" }
func (*renameCmd) Usage() string {
	return `gastosctl rename <old> <new>

  Categories are shared by every group.
`
}

func (c *renameCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f, false) }

func (c *renameCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usage("expected <old> <new>")
	}
	ledger, _, closeFn, err := c.openLedger(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer closeFn()

	if err := ledger.RenameCategory(ctx, f.Arg(0), f.Arg(1)); err != nil {
		return fail("Error renaming category: %v", err)
	}
	fmt.Fprintf(stdout, "Renamed %s to %s.\n", f.Arg(0), f.Arg(1))
	return subcommands.ExitSuccess
}

type categoriesCmd struct {
	ledgerFlags
}

func (*categoriesCmd) Name() string     { return "categories" }
func (*categoriesCmd) Synopsis() string { return "list known categories" }
func (*categoriesCmd) Usage() string {
	return `gastosctl categories
`
}

func (c *categoriesCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f, false) }

func (c *categoriesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, _, closeFn, err := c.openLedger(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer closeFn()

	names, err := ledger.Categories(ctx)
	if err != nil {
		return fail("Error listing categories: %v", err)
	}
	for _, n := range names {
		fmt.Fprintln(stdout, n)
	}
	return subcommands.ExitSuccess
}

type recordCmd struct {
	ledgerFlags
	user int64
}

func (*recordCmd) Name() string     { return "record" }
func (*recordCmd) Synopsis() string { return "apply an intent document" }
func (*recordCmd) Usage() string {
	return `gastosctl record -group <id> [-user <id>] '<intent json>' | -

  Applies a classifier-shaped intent: a transaction, a list of
  transactions, an exchange or a query. "-" reads it from stdin.
`
}

func (c *recordCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f, true)
	f.Int64Var(&c.user, "user", 0, "Author of the recorded rows.")
}

func (c *recordCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.requireGroup(); err != nil {
		return usage("%v", err)
	}
	if f.NArg() != 1 {
		return usage("expected one intent document")
	}
	raw := []byte(f.Arg(0))
	if f.Arg(0) == "-" {
		var err error
		if raw, err = io.ReadAll(os.Stdin); err != nil {
			return fail("Error reading stdin: %v", err)
		}
	}

	ledger, _, closeFn, err := c.openLedger(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer closeFn()

	res, err := ledger.ApplyRaw(ctx, services.Author{UserID: c.user, GroupID: c.group}, raw)
	if err != nil {
		return fail("Error applying intent: %v", err)
	}
	if a := res.Answer; a != nil {
		if a.Summary != nil {
			renderSummary(stdout, *a.Summary)
		} else {
			renderBalances(stdout, a.Balances, a.Query.MoneyType)
		}
		return subcommands.ExitSuccess
	}
	renderEntries(stdout, res.Recorded)
	return subcommands.ExitSuccess
}

type clearCmd struct {
	ledgerFlags
	confirm bool
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "delete every transaction of a group" }
func (*clearCmd) Usage() string {
	return `gastosctl clear -group <id> -confirm

  Without -confirm only reports how many transactions would be deleted.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f, true)
	f.BoolVar(&c.confirm, "confirm", false, "Actually delete.")
}

func (c *clearCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.requireGroup(); err != nil {
		return usage("%v", err)
	}
	ledger, _, closeFn, err := c.openLedger(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer closeFn()

	if !c.confirm {
		n, err := ledger.CountTransactions(ctx, c.group)
		if err != nil {
			return fail("Error counting transactions: %v", err)
		}
		fmt.Fprintf(stdout, "Group %d has %d transactions. Re-run with -confirm to delete them.\n", c.group, n)
		return subcommands.ExitFailure
	}

	n, err := ledger.ClearAll(ctx, c.group)
	if err != nil {
		return fail("Error clearing group: %v", err)
	}
	fmt.Fprintf(stdout, "Deleted %d transactions.\n", n)
	return subcommands.ExitSuccess
}
