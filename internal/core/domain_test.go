package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeDescription(t *testing.T) {
	cases := []struct{ in, out string }{
		{"comida", "Comida"},
		{"  PIZZA con AMIGOS ", "Pizza con amigos"},
		{"ñoquis", "Ñoquis"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeDescription(tc.in); got != tc.out {
			t.Fatalf("NormalizeDescription(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestNormalizeNameAndCurrency(t *testing.T) {
	if got := NormalizeName("  Comida "); got != "comida" {
		t.Fatalf("NormalizeName = %q", got)
	}
	if got := NormalizeCurrency(" usd", DefaultCurrency); got != "USD" {
		t.Fatalf("NormalizeCurrency = %q", got)
	}
	if got := NormalizeCurrency("", DefaultCurrency); got != "ARS" {
		t.Fatalf("NormalizeCurrency default = %q", got)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		GroupID:     1,
		Type:        Expense,
		Amount:      decimal.NewFromInt(-100),
		CategoryID:  1,
		MoneyTypeID: 1,
		Currency:    "ARS",
		Timestamp:   time.Now(),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	long := good
	long.Description = NormalizeDescription(strings.Repeat("almuerzo en la confitería ", 20))
	if err := long.Validate(); err != nil {
		t.Fatalf("long description rejected: %v", err)
	}

	bads := []Transaction{
		{GroupID: 1, Type: Expense, Amount: decimal.NewFromInt(100), CategoryID: 1, MoneyTypeID: 1, Currency: "ARS"},
		{GroupID: 1, Type: Income, Amount: decimal.NewFromInt(-1), CategoryID: 1, MoneyTypeID: 1, Currency: "ARS"},
		{GroupID: 0, Type: Income, Amount: decimal.NewFromInt(1), CategoryID: 1, MoneyTypeID: 1, Currency: "ARS"},
		{GroupID: 1, Type: Exchange, Amount: decimal.NewFromInt(1), CategoryID: 1, MoneyTypeID: 1, Currency: "ARS"},
		{GroupID: 1, Type: Income, Amount: decimal.NewFromInt(1), CategoryID: 0, MoneyTypeID: 1, Currency: "ARS"},
		{GroupID: 1, Type: Income, Amount: decimal.NewFromInt(1), CategoryID: 1, MoneyTypeID: 1, Currency: ""},
		{GroupID: 1, Type: Income, Amount: decimal.RequireFromString("1e17"), CategoryID: 1, MoneyTypeID: 1, Currency: "ARS"},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestExchangeDetailValidate(t *testing.T) {
	d := ExchangeDetail{
		SourceCurrency: "USD",
		TargetCurrency: "ARS",
		SourceAmount:   decimal.NewFromInt(100),
		TargetAmount:   decimal.NewFromInt(90000),
		ExchangeRate:   decimal.NewFromInt(900),
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	d.ExchangeRate = decimal.NewFromInt(1000)
	if err := d.Validate(); err == nil {
		t.Fatalf("expected rate mismatch error")
	}

	huge := d
	huge.TargetAmount = decimal.RequireFromString("184467440737095526.16")
	if err := huge.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for %s, got %v", huge.TargetAmount, err)
	}

	d.SourceAmount = decimal.Zero
	if err := d.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestExpenseSlices(t *testing.T) {
	in := []CategoryAmount{
		{Name: "sueldo", Amount: decimal.NewFromInt(1000)},
		{Name: "comida", Amount: decimal.NewFromInt(-250)},
		{Name: "salud", Amount: decimal.NewFromInt(-50)},
	}
	got := ExpenseSlices(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 slices, got %d", len(got))
	}
	if got[0].Name != "comida" || !got[0].Amount.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("unexpected first slice %+v", got[0])
	}
}
