package core

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Expense  TransactionType = "expense"
	Income   TransactionType = "income"
	Exchange TransactionType = "exchange"
)

// Registry names used when an intent omits them.
const (
	DefaultCategory  = "otros"
	ExchangeCategory = "exchange"
	Cash             = "cash"
	Bank             = "bank"
	DefaultCurrency  = "ARS"
)

// DefaultCategories and DefaultMoneyTypes are seeded by the initial migration.
var (
	DefaultCategories = []string{
		"comida",
		"transporte",
		"servicios",
		"supermercado",
		"entretenimiento",
		"salud",
		DefaultCategory,
		ExchangeCategory,
	}
	DefaultMoneyTypes = []string{Cash, Bank}
)

type (
	TransactionType string

	Category struct {
		ID   int64
		Name string
	}

	MoneyType struct {
		ID   int64
		Name string
	}

	// Transaction is one persisted ledger row. Amount is already signed.
	Transaction struct {
		ID          int64
		UserID      int64
		GroupID     int64
		Type        TransactionType
		Amount      decimal.Decimal
		Description string
		CategoryID  int64
		MoneyTypeID int64
		Currency    string
		Timestamp   time.Time
	}

	// ExchangeDetail is the source leg of an exchange, owned by the income
	// Transaction that records the target leg.
	ExchangeDetail struct {
		ID             int64
		TransactionID  int64
		SourceCurrency string
		TargetCurrency string
		ExchangeRate   decimal.Decimal
		SourceAmount   decimal.Decimal
		TargetAmount   decimal.Decimal
	}

	// Entry is a Transaction joined with its registry names, as listed to users.
	Entry struct {
		Transaction
		Category  string
		MoneyType string
		Exchange  *ExchangeDetail
	}
)

var (
	ErrMalformedIntent = errors.New("malformed intent")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrStorage         = errors.New("storage failure")
)

func (t TransactionType) Valid() bool {
	switch t {
	case Expense, Income, Exchange:
		return true
	}
	return false
}

// NormalizeName trims and lowercases a registry name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeCurrency trims and uppercases a currency code, falling back to fallback.
func NormalizeCurrency(code, fallback string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return fallback
	}
	return code
}

// NormalizeDescription capitalizes the first letter and lowercases the rest.
func NormalizeDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func (t Transaction) Validate() error {
	if t.GroupID == 0 {
		return errors.New("group id is required")
	}
	switch t.Type {
	case Expense:
		if !t.Amount.IsNegative() {
			return ErrInvalidAmount
		}
	case Income:
		if t.Amount.IsNegative() {
			return ErrInvalidAmount
		}
	default:
		return errors.New("invalid transaction type")
	}
	if err := CheckRange(t.Amount); err != nil {
		return err
	}
	if t.CategoryID == 0 || t.MoneyTypeID == 0 {
		return errors.New("category and money type must be resolved")
	}
	if strings.TrimSpace(t.Currency) == "" {
		return errors.New("currency is required")
	}
	return nil
}

func (e ExchangeDetail) Validate() error {
	if !e.SourceAmount.IsPositive() || !e.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := CheckRange(e.SourceAmount); err != nil {
		return err
	}
	if err := CheckRange(e.TargetAmount); err != nil {
		return err
	}
	if e.SourceCurrency == "" || e.TargetCurrency == "" {
		return errors.New("exchange currencies are required")
	}
	if !e.ExchangeRate.Equal(ExchangeRate(e.SourceAmount, e.TargetAmount)) {
		return errors.New("exchange rate does not match amounts")
	}
	return nil
}
