// Package sheets holds the ports of the spreadsheet audit mirror.
package sheets

import (
	"context"
	"time"
)

// AuditRow is one line of the ledger mirror. Amounts are already formatted
// so sinks never reinterpret them.
type AuditRow struct {
	EventID       string
	Kind          string
	GroupID       int64
	UserID        int64
	TransactionID int64
	RecordedAt    time.Time
	Type          string
	Amount        string
	Currency      string
	Category      string
	MoneyType     string
	Description   string
}

// Header is the column order every sink uses.
var Header = []string{
	"event_id", "kind", "group_id", "user_id", "transaction_id", "recorded_at",
	"type", "amount", "currency", "category", "money_type", "description",
}

// Values renders the row in Header order.
func (r AuditRow) Values() []any {
	return []any{
		r.EventID,
		r.Kind,
		r.GroupID,
		r.UserID,
		r.TransactionID,
		r.RecordedAt.UTC().Format(time.RFC3339),
		r.Type,
		r.Amount,
		r.Currency,
		r.Category,
		r.MoneyType,
		r.Description,
	}
}

// Ports for outbound adapters.
type (
	AuditWriter interface {
		// AppendRows adds rows at the end of the mirror and returns a
		// reference to the written range.
		AppendRows(ctx context.Context, rows []AuditRow) (ref string, err error)
	}

	AuditReader interface {
		Rows(ctx context.Context) ([]AuditRow, error)
	}
)
