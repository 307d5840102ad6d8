package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"gastos/internal/config"
	"gastos/internal/sheets"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{
		MirrorBackend:       "sheets",
		GoogleSpreadsheetID: "abc",
		GoogleSheetName:     "Ledger",
	})
	require.NoError(t, err)
	require.Equal(t, SheetsSink, cfg.Type)
	require.Equal(t, "abc", cfg.GoogleSpreadsheetID)

	_, err = FromAppConfig(&config.Config{MirrorBackend: "postgres"})
	require.Error(t, err)

	_, err = FromAppConfig(nil)
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, Config{Type: MemorySink}.Validate())
	require.Error(t, Config{Type: "csv"}.Validate())
	require.Error(t, Config{Type: SheetsSink, GoogleSheetName: "Ledger"}.Validate())
	require.Error(t, Config{Type: SheetsSink, GoogleSpreadsheetID: "abc"}.Validate())
	require.Len(t, SinkTypes(), 2)
}

func TestCreateSink_Memory(t *testing.T) {
	res, err := NewFactory(nil).CreateSink(context.Background(), Config{Type: MemorySink})
	require.NoError(t, err)

	ref, err := res.Sink.AppendRows(context.Background(), []sheets.AuditRow{{
		EventID: "e1", Kind: "recorded", GroupID: 1, TransactionID: 1, RecordedAt: time.Now(),
	}})
	require.NoError(t, err)
	require.Equal(t, "mem:1-1", ref)
}

func TestCreateSink_SheetsWritesHeader(t *testing.T) {
	var puts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPut {
			puts.Add(1)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": "Ledger!A1:A1"})
	}))
	t.Cleanup(srv.Close)

	res, err := NewFactory(nil).CreateSink(context.Background(), Config{
		Type:                SheetsSink,
		GoogleSpreadsheetID: "abc",
		GoogleSheetName:     "Ledger",
		ClientOptions: []option.ClientOption{
			option.WithEndpoint(srv.URL + "/"),
			option.WithHTTPClient(srv.Client()),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Sink)
	require.EqualValues(t, 1, puts.Load())
}
