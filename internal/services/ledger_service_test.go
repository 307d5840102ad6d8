package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/intent"
	"gastos/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, msg *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	return p.err
}

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

func newTestService(t *testing.T, pub EventPublisher) *LedgerService {
	t.Helper()
	store, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	svc := NewLedgerService(store, pub, "ARS")
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

var alice = Author{UserID: 11, GroupID: 100}

func TestApplyRaw_ExpenseEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	res, err := svc.ApplyRaw(ctx, alice, []byte(`[{"type":"expense","amount":500,"description":"almuerzo","money_type":"cash","category":"comida"}]`))
	require.NoError(t, err)
	require.Len(t, res.Recorded, 1)
	e := res.Recorded[0]
	require.Equal(t, int64(1), e.ID)
	require.Equal(t, "comida", e.Category)
	require.Equal(t, "cash", e.MoneyType)
	require.Equal(t, "Almuerzo", e.Description)
	requireDecimal(t, "-500", e.Amount)

	bal, err := svc.Queries().Balance(ctx, alice.GroupID, core.Cash, "ARS")
	require.NoError(t, err)
	requireDecimal(t, "-500", bal)

	stored, err := svc.GetTransaction(ctx, alice.GroupID, e.ID)
	require.NoError(t, err)
	require.Equal(t, core.Expense, stored.Type)
	require.Equal(t, "ARS", stored.Currency)
}

func TestRecord_Defaults(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	entries, err := svc.RecordTransactions(ctx, alice, intent.Transactions{
		{Type: core.Income, Amount: dec("1000.005"), Description: "  SUELDO de marzo "},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	require.Equal(t, core.DefaultCategory, e.Category)
	require.Equal(t, core.Cash, e.MoneyType)
	require.Equal(t, "ARS", e.Currency)
	require.Equal(t, "Sueldo de marzo", e.Description)
	requireDecimal(t, "1000.01", e.Amount)
}

func TestRecord_CreatesCategoryLazily(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, err := svc.RecordTransactions(ctx, alice, intent.Transactions{
		{Type: core.Expense, Amount: dec("50"), Category: "Financiero", NewCategory: true, CategoryReason: "tarjeta"},
	})
	require.NoError(t, err)

	names, err := svc.Categories(ctx)
	require.NoError(t, err)
	require.Contains(t, names, "financiero")
}

func TestRecord_RejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	for _, amount := range []string{"0", "-5", "0.004"} {
		_, err := svc.RecordTransactions(ctx, alice, intent.Transactions{
			{Type: core.Expense, Amount: dec("10")},
			{Type: core.Expense, Amount: dec(amount)},
		})
		require.ErrorIs(t, err, core.ErrInvalidAmount, amount)
	}

	n, err := svc.CountTransactions(ctx, alice.GroupID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRecord_RejectsUnknownType(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.RecordTransactions(context.Background(), alice, intent.Transactions{{Type: "refund", Amount: dec("1")}})
	require.ErrorIs(t, err, core.ErrMalformedIntent)
}

func TestExchange_USDToARS(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newTestService(t, pub)

	_, err := svc.RecordTransactions(ctx, alice, intent.Transactions{
		{Type: core.Income, Amount: dec("200"), Currency: "usd"},
	})
	require.NoError(t, err)

	res, err := svc.ApplyRaw(ctx, alice, []byte(`{"type":"exchange","amount":100,"target_amount":90000,"source_currency":"USD","target_currency":"ARS","money_type":"cash","exchange_rate":1}`))
	require.NoError(t, err)
	require.Len(t, res.Recorded, 1)

	e := res.Recorded[0]
	require.Equal(t, core.Income, e.Type)
	require.Equal(t, "ARS", e.Currency)
	require.Equal(t, core.ExchangeCategory, e.Category)
	require.Equal(t, "Exchange: 100.00 USD → 90000.00 ARS", e.Description)
	require.NotNil(t, e.Exchange)
	requireDecimal(t, "900", e.Exchange.ExchangeRate)

	ars, err := svc.Queries().Balance(ctx, alice.GroupID, core.Cash, "ARS")
	require.NoError(t, err)
	requireDecimal(t, "90000", ars)

	usd, err := svc.Queries().Balance(ctx, alice.GroupID, core.Cash, "USD")
	require.NoError(t, err)
	requireDecimal(t, "100", usd)

	require.Equal(t, []amqp.EventKind{amqp.EventTransactionsRecorded, amqp.EventExchangeRecorded}, pub.kinds())
}

func TestExchange_RateIsRounded(t *testing.T) {
	svc := newTestService(t, nil)
	e, err := svc.RecordExchange(context.Background(), alice, intent.Exchange{
		Amount: dec("3"), TargetAmount: dec("10"), SourceCurrency: "usd", TargetCurrency: "eur",
	})
	require.NoError(t, err)
	requireDecimal(t, "3.33", e.Exchange.ExchangeRate)
	require.Equal(t, "USD", e.Exchange.SourceCurrency)
	require.Equal(t, "EUR", e.Currency)
}

func TestExchange_InvalidAmounts(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	for _, ex := range []intent.Exchange{
		{Amount: dec("0"), TargetAmount: dec("10"), SourceCurrency: "USD", TargetCurrency: "ARS"},
		{Amount: dec("10"), TargetAmount: dec("-1"), SourceCurrency: "USD", TargetCurrency: "ARS"},
	} {
		_, err := svc.RecordExchange(ctx, alice, ex)
		require.ErrorIs(t, err, core.ErrInvalidAmount)
	}

	n, err := svc.CountTransactions(ctx, alice.GroupID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, err := svc.RecordTransactions(ctx, alice, intent.Transactions{
		{Type: core.Income, Amount: dec("1000"), MoneyType: "bank", Category: "sueldo"},
		{Type: core.Expense, Amount: dec("300"), Category: "comida"},
		{Type: core.Expense, Amount: dec("100"), MoneyType: "bank", Category: "transporte"},
	})
	require.NoError(t, err)

	res, err := svc.ApplyRaw(ctx, alice, []byte(`{"type":"query","query_type":"summary","money_type":"cash"}`))
	require.NoError(t, err)
	require.NotNil(t, res.Answer)
	require.Equal(t, intent.MoneyTypeAll, res.Answer.Query.MoneyType)
	require.NotNil(t, res.Answer.Summary)

	s := res.Answer.Summary
	require.Len(t, s.Balances, 1)
	requireDecimal(t, "-300", s.Balances[0].Cash)
	requireDecimal(t, "900", s.Balances[0].Bank)
	requireDecimal(t, "600", s.Balances[0].Total())

	cats := s.ByCategory["ARS"]
	require.Len(t, cats, 3)
	require.Equal(t, "sueldo", cats[0].Name)
	require.Equal(t, "comida", cats[2].Name)

	slices := core.ExpenseSlices(cats)
	require.Len(t, slices, 2)
	requireDecimal(t, "100", slices[0].Amount)

	total, err := svc.Queries().TotalBalance(ctx, alice.GroupID, "")
	require.NoError(t, err)
	requireDecimal(t, "600", total)
}

func TestBalance_EmptyLedgerReportsDefaultCurrency(t *testing.T) {
	svc := newTestService(t, nil)
	res, err := svc.Apply(context.Background(), alice, intent.Query{QueryType: intent.Balance, MoneyType: intent.MoneyTypeAll})
	require.NoError(t, err)
	require.Len(t, res.Answer.Balances, 1)
	require.Equal(t, "ARS", res.Answer.Balances[0].Currency)
	require.True(t, res.Answer.Balances[0].Total().IsZero())
}

func TestGroupsAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	bob := Author{UserID: 12, GroupID: 200}

	_, err := svc.RecordTransactions(ctx, alice, intent.Transactions{{Type: core.Expense, Amount: dec("10")}})
	require.NoError(t, err)
	entries, err := svc.RecordTransactions(ctx, bob, intent.Transactions{{Type: core.Expense, Amount: dec("20")}})
	require.NoError(t, err)
	require.Equal(t, int64(1), entries[0].ID)

	ok, err := svc.DeleteTransaction(ctx, alice.GroupID, entries[0].ID)
	require.NoError(t, err)
	require.True(t, ok, "alice deletes her own id 1")

	bal, err := svc.Queries().Balance(ctx, bob.GroupID, core.Cash, "ARS")
	require.NoError(t, err)
	requireDecimal(t, "-20", bal)
}

func TestClearAllAndRename_PublishEvents(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(t, pub)

	_, err := svc.RecordTransactions(ctx, alice, intent.Transactions{
		{Type: core.Expense, Amount: dec("10")},
		{Type: core.Expense, Amount: dec("20")},
	})
	require.NoError(t, err, "publish failures never fail the write")

	n, err := svc.ClearAll(ctx, alice.GroupID)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	require.NoError(t, svc.RenameCategory(ctx, "comida", "alimentos"))
	require.ErrorIs(t, svc.RenameCategory(ctx, "comida", "x"), core.ErrNotFound)

	require.Equal(t, []amqp.EventKind{
		amqp.EventTransactionsRecorded,
		amqp.EventLedgerCleared,
		amqp.EventCategoryRenamed,
	}, pub.kinds())
	require.Equal(t, int64(2), pub.events[1].Deleted)
	require.Equal(t, "alimentos", pub.events[2].To)
}

func TestProcessor_UsesClock(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	fixed := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	svc.processor.now = func() time.Time { return fixed }

	entries, err := svc.RecordTransactions(ctx, alice, intent.Transactions{{Type: core.Expense, Amount: dec("1")}})
	require.NoError(t, err)

	stored, err := svc.GetTransaction(ctx, alice.GroupID, entries[0].ID)
	require.NoError(t, err)
	require.True(t, stored.Timestamp.Equal(fixed))
}

func TestRecord_RejectsAmountsBeyondCentsRange(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	for _, amount := range []string{"184467440737095526.16", "1e17", "1000000000000"} {
		_, err := svc.ApplyRaw(ctx, alice, []byte(`{"type":"income","amount":`+amount+`,"description":"sueldo"}`))
		require.ErrorIs(t, err, core.ErrInvalidAmount, amount)
		require.False(t, errors.Is(err, core.ErrStorage), amount)
	}

	res, err := svc.ApplyRaw(ctx, alice, []byte(`{"type":"income","amount":999999999999.99,"description":"sueldo"}`))
	require.NoError(t, err)
	require.Len(t, res.Recorded, 1)

	ars, err := svc.Queries().Balance(ctx, alice.GroupID, core.Cash, "ARS")
	require.NoError(t, err)
	requireDecimal(t, "999999999999.99", ars)
}

func TestExchange_RejectsAmountsBeyondCentsRange(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	for _, ex := range []intent.Exchange{
		{Amount: dec("1e17"), TargetAmount: dec("10"), SourceCurrency: "USD", TargetCurrency: "ARS"},
		{Amount: dec("10"), TargetAmount: dec("184467440737095526.16"), SourceCurrency: "USD", TargetCurrency: "ARS"},
	} {
		_, err := svc.RecordExchange(ctx, alice, ex)
		require.ErrorIs(t, err, core.ErrInvalidAmount)
	}

	n, err := svc.CountTransactions(ctx, alice.GroupID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestExchange_ARSToUSDLowersARSBalance(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, err := svc.RecordTransactions(ctx, alice, intent.Transactions{
		{Type: core.Income, Amount: dec("100000"), Currency: "ARS"},
	})
	require.NoError(t, err)

	_, err = svc.RecordExchange(ctx, alice, intent.Exchange{
		Amount: dec("90000"), TargetAmount: dec("100"), SourceCurrency: "ars", TargetCurrency: "usd",
	})
	require.NoError(t, err)

	ars, err := svc.Queries().Balance(ctx, alice.GroupID, core.Cash, "ARS")
	require.NoError(t, err)
	requireDecimal(t, "10000", ars)

	usd, err := svc.Queries().Balance(ctx, alice.GroupID, core.Cash, "USD")
	require.NoError(t, err)
	requireDecimal(t, "100", usd)
}

func TestBalance_UnknownMoneyTypeIsZeroAndNotRegistered(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	b, err := svc.Queries().Balance(ctx, alice.GroupID, "crypto", "ARS")
	require.NoError(t, err)
	require.True(t, b.IsZero())

	_, ok, err := svc.storage.LookupMoneyType(ctx, "crypto")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRecord_KeepsLongAccentedDescription(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	long := strings.Repeat("cena en el restaurante de la esquina, pagó josé ", 6)
	entries, err := svc.RecordTransactions(ctx, alice, intent.Transactions{
		{Type: core.Expense, Amount: dec("12500"), Description: long},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Greater(t, utf8.RuneCountInString(entries[0].Description), 200)

	got, err := svc.GetTransaction(ctx, alice.GroupID, entries[0].ID)
	require.NoError(t, err)
	require.Equal(t, core.NormalizeDescription(long), got.Description)
}
