// Package intent defines the contract between the external classifier and
// the ledger: a closed set of variants decoded and validated at the boundary.
package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gastos/internal/core"

	"github.com/shopspring/decimal"
)

const (
	Summary QueryType = "summary"
	Balance QueryType = "balance"
)

// MoneyTypeAll selects every money type in a query.
const MoneyTypeAll = "all"

type (
	QueryType string

	// Intent is one of Query, Transactions or Exchange.
	Intent interface {
		isIntent()
	}

	Query struct {
		QueryType QueryType
		MoneyType string // cash, bank or all
	}

	Transaction struct {
		Type        core.TransactionType // expense or income
		Amount      decimal.Decimal
		Description string
		MoneyType   string
		Category    string
		Currency    string
		// NewCategory and CategoryReason are classifier hints, only logged.
		NewCategory    bool
		CategoryReason string
	}

	Transactions []Transaction

	Exchange struct {
		Amount         decimal.Decimal // source amount
		TargetAmount   decimal.Decimal
		SourceCurrency string
		TargetCurrency string
		MoneyType      string
	}
)

func (Query) isIntent()        {}
func (Transactions) isIntent() {}
func (Exchange) isIntent()     {}

// payload mirrors every key the classifier may emit.
type payload struct {
	Type                 *string          `json:"type"`
	QueryType            string           `json:"query_type"`
	MoneyType            string           `json:"money_type"`
	Amount               *decimal.Decimal `json:"amount"`
	TargetAmount         *decimal.Decimal `json:"target_amount"`
	Description          string           `json:"description"`
	Category             string           `json:"category"`
	Currency             string           `json:"currency"`
	SourceCurrency       string           `json:"source_currency"`
	TargetCurrency       string           `json:"target_currency"`
	ShouldCreateCategory bool             `json:"should_create_category"`
	CategoryReason       string           `json:"category_reason"`
	// ExchangeRate is accepted but never trusted; the rate is always derived.
	ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrMalformedIntent, fmt.Sprintf(format, args...))
}

// Decode parses and validates raw classifier output. A single transaction
// object is accepted and wrapped into a one-element batch.
func Decode(raw []byte) (Intent, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, malformed("empty payload")
	}

	if raw[0] == '[' {
		var items []payload
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, malformed("decode array: %v", err)
		}
		if len(items) == 0 {
			return nil, malformed("empty transaction list")
		}
		batch := make(Transactions, 0, len(items))
		for i, p := range items {
			tx, err := p.transaction()
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			batch = append(batch, tx)
		}
		return batch, nil
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, malformed("decode object: %v", err)
	}
	if p.Type == nil {
		return nil, malformed("missing type")
	}
	switch strings.ToLower(strings.TrimSpace(*p.Type)) {
	case "query":
		return p.query()
	case string(core.Exchange):
		return p.exchange()
	case string(core.Expense), string(core.Income):
		tx, err := p.transaction()
		if err != nil {
			return nil, err
		}
		return Transactions{tx}, nil
	default:
		return nil, malformed("unknown type %q", *p.Type)
	}
}

func (p payload) query() (Query, error) {
	q := Query{
		QueryType: QueryType(strings.ToLower(strings.TrimSpace(p.QueryType))),
		MoneyType: core.NormalizeName(p.MoneyType),
	}
	switch q.QueryType {
	case Summary:
		// A summary always covers every money type.
		q.MoneyType = MoneyTypeAll
	case Balance:
	default:
		return Query{}, malformed("unknown query_type %q", p.QueryType)
	}
	switch q.MoneyType {
	case "":
		q.MoneyType = MoneyTypeAll
	case core.Cash, core.Bank, MoneyTypeAll:
	default:
		return Query{}, malformed("unknown money_type %q", p.MoneyType)
	}
	return q, nil
}

func (p payload) transaction() (Transaction, error) {
	if p.Type == nil {
		return Transaction{}, malformed("missing type")
	}
	typ := core.TransactionType(strings.ToLower(strings.TrimSpace(*p.Type)))
	if typ != core.Expense && typ != core.Income {
		return Transaction{}, malformed("type %q is not a transaction", *p.Type)
	}
	if p.Amount == nil {
		return Transaction{}, malformed("missing amount")
	}
	return Transaction{
		Type:           typ,
		Amount:         *p.Amount,
		Description:    p.Description,
		MoneyType:      p.MoneyType,
		Category:       p.Category,
		Currency:       p.Currency,
		NewCategory:    p.ShouldCreateCategory,
		CategoryReason: p.CategoryReason,
	}, nil
}

func (p payload) exchange() (Exchange, error) {
	if p.Amount == nil {
		return Exchange{}, malformed("missing amount")
	}
	if p.TargetAmount == nil {
		return Exchange{}, malformed("missing target_amount")
	}
	if strings.TrimSpace(p.SourceCurrency) == "" || strings.TrimSpace(p.TargetCurrency) == "" {
		return Exchange{}, malformed("missing source or target currency")
	}
	return Exchange{
		Amount:         *p.Amount,
		TargetAmount:   *p.TargetAmount,
		SourceCurrency: p.SourceCurrency,
		TargetCurrency: p.TargetCurrency,
		MoneyType:      p.MoneyType,
	}, nil
}
