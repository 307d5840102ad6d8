package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gastos/internal/core"
	"gastos/internal/intent"
	"gastos/internal/storage"

	"github.com/shopspring/decimal"
)

// TransactionProcessor turns transaction and exchange intents into ledger rows.
type TransactionProcessor struct {
	store           *storage.SQLiteRepository
	defaultCurrency string
	now             func() time.Time
}

func NewTransactionProcessor(store *storage.SQLiteRepository, defaultCurrency string) *TransactionProcessor {
	return &TransactionProcessor{
		store:           store,
		defaultCurrency: core.NormalizeCurrency(defaultCurrency, core.DefaultCurrency),
		now:             time.Now,
	}
}

// Author identifies who sent a message and in which conversation.
type Author struct {
	UserID  int64
	GroupID int64
}

type pendingRow struct {
	tx        core.Transaction
	category  string
	moneyType string
	item      intent.Transaction
}

// Record stores every transaction of a batch. Either all rows are written
// or none.
func (p *TransactionProcessor) Record(ctx context.Context, by Author, batch intent.Transactions) ([]core.Entry, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("%w: empty transaction list", core.ErrMalformedIntent)
	}

	// Validate every item before touching the registry.
	rows := make([]pendingRow, 0, len(batch))
	for i, item := range batch {
		if item.Type != core.Expense && item.Type != core.Income {
			return nil, fmt.Errorf("%w: item %d has type %q", core.ErrMalformedIntent, i, item.Type)
		}
		amount := core.RoundCents(item.Amount)
		if !amount.IsPositive() {
			return nil, fmt.Errorf("%w: item %d amount %s", core.ErrInvalidAmount, i, item.Amount)
		}
		if err := core.CheckRange(amount); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if item.Type == core.Expense {
			amount = amount.Neg()
		}
		rows = append(rows, pendingRow{
			tx: core.Transaction{
				UserID:      by.UserID,
				GroupID:     by.GroupID,
				Type:        item.Type,
				Amount:      amount,
				Description: core.NormalizeDescription(item.Description),
				Currency:    core.NormalizeCurrency(item.Currency, p.defaultCurrency),
			},
			category:  defaultName(item.Category, core.DefaultCategory),
			moneyType: defaultName(item.MoneyType, core.Cash),
			item:      item,
		})
	}

	ts := p.now()
	txs := make([]core.Transaction, len(rows))
	for i := range rows {
		var err error
		if rows[i].tx.CategoryID, err = p.store.ResolveCategory(ctx, rows[i].category); err != nil {
			return nil, err
		}
		if rows[i].tx.MoneyTypeID, err = p.store.ResolveMoneyType(ctx, rows[i].moneyType); err != nil {
			return nil, err
		}
		rows[i].tx.Timestamp = ts
		txs[i] = rows[i].tx
	}

	ids, err := p.store.InsertTransactions(ctx, txs)
	if err != nil {
		return nil, err
	}

	out := make([]core.Entry, len(rows))
	for i, row := range rows {
		row.tx.ID = ids[i]
		out[i] = core.Entry{
			Transaction: row.tx,
			Category:    row.category,
			MoneyType:   row.moneyType,
		}
		attrs := []any{
			"group_id", by.GroupID,
			"transaction_id", row.tx.ID,
			"type", row.tx.Type,
			"amount", row.tx.Amount.String(),
			"currency", row.tx.Currency,
			"category", row.category,
			"money_type", row.moneyType,
		}
		if row.item.NewCategory {
			attrs = append(attrs, "new_category", true, "category_reason", row.item.CategoryReason)
		}
		slog.InfoContext(ctx, "Transaction recorded", attrs...)
	}
	return out, nil
}

// RecordExchange stores an exchange: an income row in the target currency
// plus the detail of the source leg, as one unit. The rate is always derived
// from the amounts.
func (p *TransactionProcessor) RecordExchange(ctx context.Context, by Author, ex intent.Exchange) (core.Entry, error) {
	source := core.RoundCents(ex.Amount)
	target := core.RoundCents(ex.TargetAmount)
	if !source.IsPositive() || !target.IsPositive() {
		return core.Entry{}, fmt.Errorf("%w: exchange amounts must be positive", core.ErrInvalidAmount)
	}
	for _, amount := range []decimal.Decimal{source, target} {
		if err := core.CheckRange(amount); err != nil {
			return core.Entry{}, fmt.Errorf("exchange: %w", err)
		}
	}

	src := core.NormalizeCurrency(ex.SourceCurrency, "")
	dst := core.NormalizeCurrency(ex.TargetCurrency, "")
	if src == "" || dst == "" {
		return core.Entry{}, fmt.Errorf("%w: exchange currencies are required", core.ErrMalformedIntent)
	}

	moneyType := defaultName(ex.MoneyType, core.Cash)
	catID, err := p.store.ResolveCategory(ctx, core.ExchangeCategory)
	if err != nil {
		return core.Entry{}, err
	}
	mtID, err := p.store.ResolveMoneyType(ctx, moneyType)
	if err != nil {
		return core.Entry{}, err
	}

	detail := core.ExchangeDetail{
		SourceCurrency: src,
		TargetCurrency: dst,
		ExchangeRate:   core.ExchangeRate(source, target),
		SourceAmount:   source,
		TargetAmount:   target,
	}
	if err := detail.Validate(); err != nil {
		return core.Entry{}, fmt.Errorf("validate exchange: %w", err)
	}

	tx := core.Transaction{
		UserID:      by.UserID,
		GroupID:     by.GroupID,
		Type:        core.Income,
		Amount:      target,
		Description: ExchangeDescription(source, src, target, dst),
		CategoryID:  catID,
		MoneyTypeID: mtID,
		Currency:    dst,
		Timestamp:   p.now(),
	}

	id, err := p.store.InsertExchange(ctx, tx, detail)
	if err != nil {
		return core.Entry{}, err
	}
	tx.ID = id
	detail.TransactionID = id

	slog.InfoContext(ctx, "Exchange recorded",
		"group_id", by.GroupID,
		"transaction_id", id,
		"category", core.ExchangeCategory,
		"money_type", moneyType,
		"source", source.String()+" "+src,
		"target", target.String()+" "+dst,
		"exchange_rate", detail.ExchangeRate.StringFixed(core.RatePlaces))

	return core.Entry{
		Transaction: tx,
		Category:    core.ExchangeCategory,
		MoneyType:   moneyType,
		Exchange:    &detail,
	}, nil
}

// ExchangeDescription is the label stored on the income row of an exchange.
func ExchangeDescription(source decimal.Decimal, src string, target decimal.Decimal, dst string) string {
	return fmt.Sprintf("Exchange: %s %s → %s %s", source.StringFixed(2), src, target.StringFixed(2), dst)
}

func defaultName(name, fallback string) string {
	if n := core.NormalizeName(name); n != "" {
		return n
	}
	return fallback
}
