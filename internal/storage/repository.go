package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gastos/internal/cache"
	"gastos/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// timestampLayout is fixed width so text ordering matches time ordering.
const timestampLayout = "2006-01-02 15:04:05.000000"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	names   *cache.LRUCache[string]
}

// DSN builds the modernc connection string with the pragmas the ledger relies on.
func DSN(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: every statement and transaction is serialized here.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DSN(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		names:   cache.NewLRUCache[string](512, time.Hour),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// NameCache exposes the registry name cache for periodic cleanup.
func (r *SQLiteRepository) NameCache() cache.Cleaner {
	return r.names
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrStorage, op, err)
}

// InTx runs fn inside one SQL transaction. Any error returned by fn rolls
// the whole unit back.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

// Registry

// ResolveCategory returns the id of a category, creating it on first use.
func (r *SQLiteRepository) ResolveCategory(ctx context.Context, name string) (int64, error) {
	name = core.NormalizeName(name)
	id, err := r.queries.GetOrCreateCategory(ctx, name)
	if err != nil {
		return 0, storageErr("resolve category", err)
	}
	return id, nil
}

// ResolveMoneyType returns the id of a money type, creating it on first use.
func (r *SQLiteRepository) ResolveMoneyType(ctx context.Context, name string) (int64, error) {
	name = core.NormalizeName(name)
	id, err := r.queries.GetOrCreateMoneyType(ctx, name)
	if err != nil {
		return 0, storageErr("resolve money type", err)
	}
	return id, nil
}

// LookupMoneyType returns the id of an existing money type without creating it.
func (r *SQLiteRepository) LookupMoneyType(ctx context.Context, name string) (int64, bool, error) {
	id, err := r.queries.GetMoneyTypeID(ctx, core.NormalizeName(name))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storageErr("lookup money type", err)
	}
	return id, true, nil
}

// RenameCategory relabels a category. Transactions keep pointing at the same id.
func (r *SQLiteRepository) RenameCategory(ctx context.Context, oldName, newName string) error {
	oldName, newName = core.NormalizeName(oldName), core.NormalizeName(newName)
	if oldName == "" || newName == "" {
		return fmt.Errorf("%w: category names cannot be empty", core.ErrMalformedIntent)
	}

	var id int64
	err := r.InTx(ctx, func(q *Queries) error {
		var err error
		id, err = q.GetCategoryID(ctx, oldName)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: category %q", core.ErrNotFound, oldName)
		}
		if err != nil {
			return storageErr("get category", err)
		}

		_, err = q.GetCategoryID(ctx, newName)
		if err == nil {
			return fmt.Errorf("%w: category %q already exists", core.ErrConflict, newName)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return storageErr("get category", err)
		}

		if err := q.RenameCategory(ctx, id, newName); err != nil {
			return storageErr("rename category", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.names.Delete(categoryKey(id))
	slog.InfoContext(ctx, "Category renamed", "id", id, "from", oldName, "to", newName)
	return nil
}

func (r *SQLiteRepository) ListCategoryNames(ctx context.Context) ([]string, error) {
	names, err := r.queries.ListCategoryNames(ctx)
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	return names, nil
}

func categoryKey(id int64) string  { return "category:" + strconv.FormatInt(id, 10) }
func moneyTypeKey(id int64) string { return "money_type:" + strconv.FormatInt(id, 10) }

// CategoryName looks up a category name by id.
func (r *SQLiteRepository) CategoryName(ctx context.Context, id int64) (string, error) {
	return r.cachedName(ctx, categoryKey(id), func() (string, error) {
		return r.queries.GetCategoryName(ctx, id)
	})
}

// MoneyTypeName looks up a money type name by id.
func (r *SQLiteRepository) MoneyTypeName(ctx context.Context, id int64) (string, error) {
	return r.cachedName(ctx, moneyTypeKey(id), func() (string, error) {
		return r.queries.GetMoneyTypeName(ctx, id)
	})
}

func (r *SQLiteRepository) cachedName(ctx context.Context, key string, load func() (string, error)) (string, error) {
	if name, ok := r.names.Get(key); ok {
		return name, nil
	}
	name, err := load()
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	if err != nil {
		return "", storageErr("lookup "+key, err)
	}
	r.names.Set(key, name)
	return name, nil
}

// Ledger writes

func insertTransaction(ctx context.Context, q *Queries, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, fmt.Errorf("validate transaction: %w", err)
	}
	id, err := q.NextTransactionID(ctx, t.GroupID)
	if err != nil {
		return 0, storageErr("next transaction id", err)
	}
	err = q.CreateTransaction(ctx, Transaction{
		GroupID:     t.GroupID,
		ID:          id,
		UserID:      t.UserID,
		Type:        string(t.Type),
		AmountCents: core.ToCents(t.Amount),
		Description: t.Description,
		CategoryID:  t.CategoryID,
		MoneyTypeID: t.MoneyTypeID,
		Currency:    t.Currency,
		Timestamp:   t.Timestamp.UTC().Format(timestampLayout),
	})
	if err != nil {
		return 0, storageErr("create transaction", err)
	}
	return id, nil
}

// InsertTransaction stores one transaction and returns its id within the group.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	ids, err := r.InsertTransactions(ctx, []core.Transaction{t})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// InsertTransactions stores a batch atomically: all rows or none.
func (r *SQLiteRepository) InsertTransactions(ctx context.Context, txs []core.Transaction) ([]int64, error) {
	ids := make([]int64, 0, len(txs))
	err := r.InTx(ctx, func(q *Queries) error {
		for _, t := range txs {
			id, err := insertTransaction(ctx, q, t)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, t := range txs {
		slog.InfoContext(ctx, "Transaction saved to SQLite",
			"group_id", t.GroupID,
			"id", ids[i],
			"type", t.Type,
			"amount", t.Amount.String(),
			"currency", t.Currency)
	}
	return ids, nil
}

// InsertExchangeDetail stores the source leg of an exchange. It is exported
// for callers composing their own unit with InTx.
func InsertExchangeDetail(ctx context.Context, q *Queries, groupID int64, d core.ExchangeDetail) (int64, error) {
	id, err := q.CreateExchangeTransaction(ctx, ExchangeTransaction{
		GroupID:           groupID,
		TransactionID:     d.TransactionID,
		SourceCurrency:    d.SourceCurrency,
		TargetCurrency:    d.TargetCurrency,
		ExchangeRate:      d.ExchangeRate.StringFixed(core.RatePlaces),
		SourceAmountCents: core.ToCents(d.SourceAmount),
		TargetAmountCents: core.ToCents(d.TargetAmount),
	})
	if err != nil {
		return 0, storageErr("create exchange transaction", err)
	}
	return id, nil
}

// InsertExchange stores the income row of an exchange and its detail as one
// unit. If the detail fails the income row is rolled back.
func (r *SQLiteRepository) InsertExchange(ctx context.Context, t core.Transaction, d core.ExchangeDetail) (int64, error) {
	var id int64
	err := r.InTx(ctx, func(q *Queries) error {
		var err error
		id, err = insertTransaction(ctx, q, t)
		if err != nil {
			return err
		}
		d.TransactionID = id
		_, err = InsertExchangeDetail(ctx, q, t.GroupID, d)
		return err
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Exchange saved to SQLite",
		"group_id", t.GroupID,
		"id", id,
		"source_currency", d.SourceCurrency,
		"target_currency", d.TargetCurrency,
		"exchange_rate", d.ExchangeRate.String())
	return id, nil
}

// DeleteTransaction removes a transaction of groupID. It reports false when
// the id does not exist in that group.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, groupID, id int64) (bool, error) {
	var n int64
	err := r.InTx(ctx, func(q *Queries) error {
		var err error
		n, err = q.DeleteTransaction(ctx, groupID, id)
		if err != nil {
			return storageErr("delete transaction", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if n > 0 {
		slog.InfoContext(ctx, "Transaction deleted", "group_id", groupID, "id", id)
	}
	return n > 0, nil
}

// ClearAll deletes every transaction of groupID and restarts its numbering at 1.
func (r *SQLiteRepository) ClearAll(ctx context.Context, groupID int64) (int64, error) {
	var n int64
	err := r.InTx(ctx, func(q *Queries) error {
		var err error
		n, err = q.ClearGroup(ctx, groupID)
		if err != nil {
			return storageErr("clear group", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Ledger cleared", "group_id", groupID, "deleted", n)
	return n, nil
}

// Ledger reads

func (r *SQLiteRepository) CountTransactions(ctx context.Context, groupID int64) (int64, error) {
	n, err := r.queries.CountTransactions(ctx, groupID)
	if err != nil {
		return 0, storageErr("count transactions", err)
	}
	return n, nil
}

// SumAmounts totals the signed amounts of a group, money type and currency.
func (r *SQLiteRepository) SumAmounts(ctx context.Context, groupID, moneyTypeID int64, currency string) (decimal.Decimal, error) {
	cents, err := r.queries.SumAmounts(ctx, groupID, moneyTypeID, currency)
	if err != nil {
		return decimal.Zero, storageErr("sum amounts", err)
	}
	return core.FromCents(cents), nil
}

// SumExchangedSource totals what exchanges consumed out of currency for a
// group and money type.
func (r *SQLiteRepository) SumExchangedSource(ctx context.Context, groupID, moneyTypeID int64, currency string) (decimal.Decimal, error) {
	cents, err := r.queries.SumExchangedSource(ctx, groupID, moneyTypeID, currency)
	if err != nil {
		return decimal.Zero, storageErr("sum exchanged source", err)
	}
	return core.FromCents(cents), nil
}

func (r *SQLiteRepository) CategorySummary(ctx context.Context, groupID int64, currency string) ([]core.CategoryAmount, error) {
	rows, err := r.queries.CategorySums(ctx, groupID, currency)
	if err != nil {
		return nil, storageErr("category sums", err)
	}
	out := make([]core.CategoryAmount, len(rows))
	for i, row := range rows {
		out[i] = core.CategoryAmount{Name: row.Name, Amount: core.FromCents(row.TotalCents)}
	}
	return out, nil
}

// Currencies lists every currency the group holds or has exchanged from.
func (r *SQLiteRepository) Currencies(ctx context.Context, groupID int64) ([]string, error) {
	cur, err := r.queries.ListCurrencies(ctx, groupID)
	if err != nil {
		return nil, storageErr("list currencies", err)
	}
	return cur, nil
}

// ListRecent returns the newest entries of a group. limit <= 0 means all;
// an empty category means every category.
func (r *SQLiteRepository) ListRecent(ctx context.Context, groupID int64, limit int, category string) ([]core.Entry, error) {
	rows, err := r.queries.ListRecent(ctx, groupID, core.NormalizeName(category), limit)
	if err != nil {
		return nil, storageErr("list recent", err)
	}
	out := make([]core.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := toEntry(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// GetTransaction returns one entry of a group.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, groupID, id int64) (core.Entry, error) {
	row, err := r.queries.GetEntry(ctx, groupID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, fmt.Errorf("%w: transaction %d", core.ErrNotFound, id)
	}
	if err != nil {
		return core.Entry{}, storageErr("get transaction", err)
	}
	return toEntry(row)
}

func toEntry(row EntryRow) (core.Entry, error) {
	ts, err := time.ParseInLocation(timestampLayout, row.Timestamp, time.UTC)
	if err != nil {
		return core.Entry{}, storageErr("parse timestamp", err)
	}
	e := core.Entry{
		Transaction: core.Transaction{
			ID:          row.ID,
			UserID:      row.UserID,
			GroupID:     row.GroupID,
			Type:        core.TransactionType(row.Type),
			Amount:      core.FromCents(row.AmountCents),
			Description: row.Description,
			CategoryID:  row.CategoryID,
			MoneyTypeID: row.MoneyTypeID,
			Currency:    row.Currency,
			Timestamp:   ts,
		},
		Category:  row.CategoryName,
		MoneyType: row.MoneyTypeName,
	}
	if row.Exchange != nil {
		rate, err := decimal.NewFromString(row.Exchange.ExchangeRate)
		if err != nil {
			return core.Entry{}, storageErr("parse exchange rate", err)
		}
		e.Exchange = &core.ExchangeDetail{
			ID:             row.Exchange.ID,
			TransactionID:  row.ID,
			SourceCurrency: row.Exchange.SourceCurrency,
			TargetCurrency: row.Exchange.TargetCurrency,
			ExchangeRate:   rate,
			SourceAmount:   core.FromCents(row.Exchange.SourceAmountCents),
			TargetAmount:   core.FromCents(row.Exchange.TargetAmountCents),
		}
	}
	return e, nil
}
