package services

import (
	"context"
	"fmt"

	"gastos/internal/core"
	"gastos/internal/intent"
	"gastos/internal/storage"

	"github.com/shopspring/decimal"
)

// QueryEngine answers balance and summary questions. Money types and
// currencies are always reported separately, never summed across currencies.
type QueryEngine struct {
	store           *storage.SQLiteRepository
	defaultCurrency string
}

func NewQueryEngine(store *storage.SQLiteRepository, defaultCurrency string) *QueryEngine {
	return &QueryEngine{
		store:           store,
		defaultCurrency: core.NormalizeCurrency(defaultCurrency, core.DefaultCurrency),
	}
}

// Balance is what a group holds of currency in moneyType: every signed amount
// in that currency minus what exchanges took out of it. The subtraction
// applies to any source currency, so an ARS to USD exchange lowers the ARS
// balance by the amount sold just as a USD to ARS one lowers USD.
// An unknown money type has a zero balance and is not registered.
func (e *QueryEngine) Balance(ctx context.Context, groupID int64, moneyType, currency string) (decimal.Decimal, error) {
	mtID, ok, err := e.store.LookupMoneyType(ctx, defaultName(moneyType, core.Cash))
	if err != nil || !ok {
		return decimal.Zero, err
	}
	currency = core.NormalizeCurrency(currency, e.defaultCurrency)

	in, err := e.store.SumAmounts(ctx, groupID, mtID, currency)
	if err != nil {
		return decimal.Zero, err
	}
	out, err := e.store.SumExchangedSource(ctx, groupID, mtID, currency)
	if err != nil {
		return decimal.Zero, err
	}
	return in.Sub(out), nil
}

// TotalBalance is cash plus bank for one currency.
func (e *QueryEngine) TotalBalance(ctx context.Context, groupID int64, currency string) (decimal.Decimal, error) {
	b, err := e.balances(ctx, groupID, core.NormalizeCurrency(currency, e.defaultCurrency))
	if err != nil {
		return decimal.Zero, err
	}
	return b.Total(), nil
}

func (e *QueryEngine) balances(ctx context.Context, groupID int64, currency string) (core.Balances, error) {
	cash, err := e.Balance(ctx, groupID, core.Cash, currency)
	if err != nil {
		return core.Balances{}, err
	}
	bank, err := e.Balance(ctx, groupID, core.Bank, currency)
	if err != nil {
		return core.Balances{}, err
	}
	return core.Balances{Currency: currency, Cash: cash, Bank: bank}, nil
}

// currencies lists the currencies a group touched. The default currency is
// always reported so an empty ledger still answers with zeros.
func (e *QueryEngine) currencies(ctx context.Context, groupID int64) ([]string, error) {
	cur, err := e.store.Currencies(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out := []string{e.defaultCurrency}
	for _, c := range cur {
		if c != e.defaultCurrency {
			out = append(out, c)
		}
	}
	return out, nil
}

// Balances reports cash, bank and total for every currency of the group.
func (e *QueryEngine) Balances(ctx context.Context, groupID int64) ([]core.Balances, error) {
	cur, err := e.currencies(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Balances, 0, len(cur))
	for _, c := range cur {
		b, err := e.balances(ctx, groupID, c)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// CategorySummary totals a currency by category, largest first. Categories
// without rows are omitted.
func (e *QueryEngine) CategorySummary(ctx context.Context, groupID int64, currency string) ([]core.CategoryAmount, error) {
	return e.store.CategorySummary(ctx, groupID, core.NormalizeCurrency(currency, e.defaultCurrency))
}

// Summary is the full report: balances and category breakdown per currency.
func (e *QueryEngine) Summary(ctx context.Context, groupID int64) (core.Summary, error) {
	balances, err := e.Balances(ctx, groupID)
	if err != nil {
		return core.Summary{}, err
	}
	s := core.Summary{
		GroupID:    groupID,
		Balances:   balances,
		ByCategory: make(map[string][]core.CategoryAmount),
	}
	for _, b := range balances {
		cats, err := e.CategorySummary(ctx, groupID, b.Currency)
		if err != nil {
			return core.Summary{}, err
		}
		if len(cats) > 0 {
			s.ByCategory[b.Currency] = cats
		}
	}
	return s, nil
}

// Answer is the data behind a query reply.
type Answer struct {
	Query    intent.Query
	Balances []core.Balances
	Summary  *core.Summary
}

// Answer resolves a classified query.
func (e *QueryEngine) Answer(ctx context.Context, groupID int64, q intent.Query) (Answer, error) {
	switch q.QueryType {
	case intent.Summary:
		s, err := e.Summary(ctx, groupID)
		if err != nil {
			return Answer{}, err
		}
		return Answer{Query: q, Balances: s.Balances, Summary: &s}, nil
	case intent.Balance:
		b, err := e.Balances(ctx, groupID)
		if err != nil {
			return Answer{}, err
		}
		return Answer{Query: q, Balances: b}, nil
	default:
		return Answer{}, fmt.Errorf("%w: unknown query type %q", core.ErrMalformedIntent, q.QueryType)
	}
}
