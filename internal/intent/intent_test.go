package intent

import (
	"errors"
	"testing"

	"gastos/internal/core"

	"github.com/shopspring/decimal"
)

func TestDecodeQuery(t *testing.T) {
	cases := []struct {
		raw       string
		queryType QueryType
		moneyType string
	}{
		{`{"type":"query","query_type":"balance","money_type":"cash"}`, Balance, core.Cash},
		{`{"type":"query","query_type":"balance","money_type":"bank"}`, Balance, core.Bank},
		{`{"type":"query","query_type":"balance"}`, Balance, MoneyTypeAll},
		{`{"type":"query","query_type":"summary","money_type":"cash"}`, Summary, MoneyTypeAll},
	}
	for _, tc := range cases {
		got, err := Decode([]byte(tc.raw))
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.raw, err)
		}
		q, ok := got.(Query)
		if !ok {
			t.Fatalf("%s: expected Query, got %T", tc.raw, got)
		}
		if q.QueryType != tc.queryType || q.MoneyType != tc.moneyType {
			t.Fatalf("%s: got %+v", tc.raw, q)
		}
	}
}

func TestDecodeTransactions(t *testing.T) {
	raw := `[
		{"type":"expense","amount":100.0,"description":"Comida","money_type":"cash","category":"comida","should_create_category":false,"category_reason":""},
		{"type":"income","amount":"2500.50","description":"sueldo","money_type":"bank","category":"sueldo","currency":"usd"}
	]`
	got, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	batch, ok := got.(Transactions)
	if !ok || len(batch) != 2 {
		t.Fatalf("expected 2 transactions, got %#v", got)
	}
	if batch[0].Type != core.Expense || !batch[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected first item %+v", batch[0])
	}
	if batch[1].Type != core.Income || batch[1].Currency != "usd" || !batch[1].Amount.Equal(decimal.RequireFromString("2500.5")) {
		t.Fatalf("unexpected second item %+v", batch[1])
	}
}

func TestDecodeSingleTransactionIsWrapped(t *testing.T) {
	got, err := Decode([]byte(`{"type":"expense","amount":50,"description":"taxi","category":"transporte"}`))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	batch, ok := got.(Transactions)
	if !ok || len(batch) != 1 {
		t.Fatalf("expected a one element batch, got %#v", got)
	}
}

func TestDecodeExchange(t *testing.T) {
	raw := `{"type":"exchange","amount":100,"target_amount":90000,"source_currency":"USD","target_currency":"ARS","money_type":"cash","exchange_rate":1}`
	got, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	ex, ok := got.(Exchange)
	if !ok {
		t.Fatalf("expected Exchange, got %T", got)
	}
	if !ex.Amount.Equal(decimal.NewFromInt(100)) || !ex.TargetAmount.Equal(decimal.NewFromInt(90000)) {
		t.Fatalf("unexpected amounts %+v", ex)
	}
	if ex.SourceCurrency != "USD" || ex.TargetCurrency != "ARS" || ex.MoneyType != core.Cash {
		t.Fatalf("unexpected exchange %+v", ex)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []string{
		``,
		`not json`,
		`{}`,
		`{"amount":100}`,
		`{"type":"transfer","amount":1}`,
		`{"type":"query","query_type":"everything"}`,
		`{"type":"query","query_type":"balance","money_type":"crypto"}`,
		`{"type":"expense","description":"sin monto"}`,
		`{"type":"expense","amount":"abc"}`,
		`{"type":"exchange","amount":100,"source_currency":"USD","target_currency":"ARS"}`,
		`{"type":"exchange","amount":100,"target_amount":90000,"source_currency":"USD"}`,
		`[]`,
		`[{"type":"exchange","amount":1,"target_amount":2,"source_currency":"USD","target_currency":"ARS"}]`,
		`[{"amount":1}]`,
	}
	for _, raw := range cases {
		_, err := Decode([]byte(raw))
		if !errors.Is(err, core.ErrMalformedIntent) {
			t.Fatalf("%q: expected ErrMalformedIntent, got %v", raw, err)
		}
	}
}
