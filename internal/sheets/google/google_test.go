package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gastos/internal/sheets"

	goption "google.golang.org/api/option"
)

// fakeSheets records the calls the client makes against the Values API.
type fakeSheets struct {
	mu       sync.Mutex
	appended [][]any
	header   []any
	hasRows  bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		resp := map[string]any{"range": "Ledger!A1:A1", "majorDimension": "ROWS"}
		if f.hasRows {
			resp["values"] = [][]any{{"event_id"}}
		}
		_ = json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodPut:
		var body struct{ Values [][]any }
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.header = body.Values[0]
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRows": 1})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var body struct{ Values [][]any }
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.appended = append(f.appended, body.Values...)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "Ledger!A2:L3", "updatedRows": len(body.Values)},
		})
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), "sheet-id", "",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "Ledger")
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_AppendRows(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	if c.sheetName != DefaultSheetName {
		t.Fatalf("sheet name = %q", c.sheetName)
	}
	if got := c.columns(); got != "Ledger!A:L" {
		t.Fatalf("columns() = %q", got)
	}

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ref, err := c.AppendRows(context.Background(), []sheets.AuditRow{
		{EventID: "e1", Kind: "ledger.transactions.recorded", GroupID: 7, TransactionID: 1, RecordedAt: ts, Type: "expense", Amount: "-500.00", Currency: "ARS", Category: "comida"},
		{EventID: "e1", Kind: "ledger.transactions.recorded", GroupID: 7, TransactionID: 2, RecordedAt: ts, Type: "expense", Amount: "-20.00", Currency: "ARS", Category: "transporte"},
	})
	if err != nil {
		t.Fatalf("AppendRows: %v", err)
	}
	if ref != "Ledger!A2:L3" {
		t.Errorf("ref = %q", ref)
	}
	if len(fake.appended) != 2 {
		t.Fatalf("appended %d rows", len(fake.appended))
	}
	row := fake.appended[0]
	if row[0] != "e1" || row[5] != "2026-03-01T12:00:00Z" || row[7] != "-500.00" || row[9] != "comida" {
		t.Errorf("unexpected row: %v", row)
	}
}

func TestClient_AppendNothing(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	ref, err := c.AppendRows(context.Background(), nil)
	if err != nil || ref != "" || len(fake.appended) != 0 {
		t.Fatalf("ref=%q err=%v appended=%d", ref, err, len(fake.appended))
	}
}

func TestClient_EnsureHeader(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	if err := c.EnsureHeader(context.Background()); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	if len(fake.header) != len(sheets.Header) || fake.header[0] != "event_id" {
		t.Fatalf("header = %v", fake.header)
	}

	fake.header, fake.hasRows = nil, true
	if err := c.EnsureHeader(context.Background()); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	if fake.header != nil {
		t.Fatal("header rewritten on a non-empty sheet")
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "Ledger"}
	if _, err := c.AppendRows(context.Background(), []sheets.AuditRow{{}}); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestCredentials_Options(t *testing.T) {
	ctx := context.Background()
	if opts, err := (Credentials{}).Options(ctx); err != nil || len(opts) != 1 {
		t.Fatalf("ADC: %d opts, %v", len(opts), err)
	}
	if opts, err := (Credentials{ServiceAccountJSON: `{"type":"service_account"}`}).Options(ctx); err != nil || len(opts) != 2 {
		t.Fatalf("inline: %d opts, %v", len(opts), err)
	}
	if _, err := (Credentials{ServiceAccountFile: "/does/not/exist.json"}).Options(ctx); err == nil {
		t.Fatal("expected error for missing file")
	}
}
