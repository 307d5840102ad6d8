// Package worker turns ledger events into audit rows on an external sink.
package worker

import (
	"context"
	"errors"
	"fmt"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/sheets"
)

// EntryReader is the slice of the ledger the worker needs.
type EntryReader interface {
	GetTransaction(ctx context.Context, groupID, id int64) (core.Entry, error)
}

// MirrorWorker copies committed ledger changes to an audit sink. Events
// carry ids only; rows are read back from the ledger.
type MirrorWorker struct {
	ledger EntryReader
	sink   sheets.AuditWriter
	logger *log.Logger
}

func NewMirrorWorker(ledger EntryReader, sink sheets.AuditWriter, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		ledger: ledger,
		sink:   sink,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerEvent writes the audit rows for one event. A returned error
// makes the consumer requeue the event once.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEvent) error {
	fields := log.NewFields().WithEvent(msg.ID, string(msg.Kind)).WithScope(msg.GroupID, msg.UserID)
	logger := w.logger.WithFields(fields)
	logger.InfoContext(ctx, "Processing ledger event")

	rows, err := w.rowsFor(ctx, msg)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		logger.DebugContext(ctx, "Nothing to mirror")
		return nil
	}

	ref, err := w.sink.AppendRows(ctx, rows)
	if err != nil {
		return fmt.Errorf("append audit rows: %w", err)
	}
	logger.InfoContext(ctx, "Mirrored ledger event", "rows", len(rows), "ref", ref)
	return nil
}

func (w *MirrorWorker) rowsFor(ctx context.Context, msg *amqp.LedgerEvent) ([]sheets.AuditRow, error) {
	base := sheets.AuditRow{
		EventID:    msg.ID,
		Kind:       string(msg.Kind),
		GroupID:    msg.GroupID,
		UserID:     msg.UserID,
		RecordedAt: msg.Timestamp,
	}

	switch msg.Kind {
	case amqp.EventTransactionsRecorded, amqp.EventExchangeRecorded:
		rows := make([]sheets.AuditRow, 0, len(msg.TransactionIDs))
		for _, id := range msg.TransactionIDs {
			e, err := w.ledger.GetTransaction(ctx, msg.GroupID, id)
			if errors.Is(err, core.ErrNotFound) {
				// Deleted or cleared before the event arrived.
				w.logger.WarnContext(ctx, "Transaction gone before mirroring",
					log.FieldGroupID, msg.GroupID,
					log.FieldTransactionID, id)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read transaction %d: %w", id, err)
			}
			rows = append(rows, entryRow(base, e))
		}
		return rows, nil

	case amqp.EventTransactionDeleted:
		rows := make([]sheets.AuditRow, 0, len(msg.TransactionIDs))
		for _, id := range msg.TransactionIDs {
			r := base
			r.TransactionID = id
			r.Description = "deleted"
			rows = append(rows, r)
		}
		return rows, nil

	case amqp.EventLedgerCleared:
		r := base
		r.Description = fmt.Sprintf("cleared %d transactions", msg.Deleted)
		return []sheets.AuditRow{r}, nil

	case amqp.EventCategoryRenamed:
		r := base
		r.Category = msg.To
		r.Description = fmt.Sprintf("renamed from %s", msg.From)
		return []sheets.AuditRow{r}, nil
	}

	// Unknown kinds are acknowledged so they do not loop through the queue.
	w.logger.WarnContext(ctx, "Unknown ledger event kind", log.FieldEventKind, msg.Kind)
	return nil, nil
}

func entryRow(base sheets.AuditRow, e core.Entry) sheets.AuditRow {
	r := base
	r.TransactionID = e.ID
	r.UserID = e.UserID
	r.RecordedAt = e.Timestamp
	r.Type = string(e.Type)
	r.Amount = e.Amount.StringFixed(2)
	r.Currency = e.Currency
	r.Category = e.Category
	r.MoneyType = e.MoneyType
	r.Description = e.Description
	return r
}
