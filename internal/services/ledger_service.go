package services

import (
	"context"
	"fmt"
	"log/slog"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/intent"
	"gastos/internal/storage"
)

// EventPublisher announces committed ledger changes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEvent) error
}

// LedgerService orchestrates ledger operations across SQLite and AMQP.
// SQLite is the source of truth; events are best-effort.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	processor *TransactionProcessor
	queries   *QueryEngine
	publisher EventPublisher
}

// NewLedgerService wires the processor and query engine on top of storage.
// publisher may be nil when no broker is configured.
func NewLedgerService(store *storage.SQLiteRepository, publisher EventPublisher, defaultCurrency string) *LedgerService {
	return &LedgerService{
		storage:   store,
		processor: NewTransactionProcessor(store, defaultCurrency),
		queries:   NewQueryEngine(store, defaultCurrency),
		publisher: publisher,
	}
}

func (s *LedgerService) Queries() *QueryEngine { return s.queries }

// Result is the outcome of applying one intent.
type Result struct {
	Recorded []core.Entry
	Answer   *Answer
}

// Apply dispatches a decoded intent.
func (s *LedgerService) Apply(ctx context.Context, by Author, in intent.Intent) (Result, error) {
	switch v := in.(type) {
	case intent.Query:
		a, err := s.queries.Answer(ctx, by.GroupID, v)
		if err != nil {
			return Result{}, err
		}
		return Result{Answer: &a}, nil
	case intent.Transactions:
		entries, err := s.RecordTransactions(ctx, by, v)
		if err != nil {
			return Result{}, err
		}
		return Result{Recorded: entries}, nil
	case intent.Exchange:
		e, err := s.RecordExchange(ctx, by, v)
		if err != nil {
			return Result{}, err
		}
		return Result{Recorded: []core.Entry{e}}, nil
	default:
		return Result{}, fmt.Errorf("%w: unsupported intent %T", core.ErrMalformedIntent, in)
	}
}

// ApplyRaw decodes classifier output and applies it.
func (s *LedgerService) ApplyRaw(ctx context.Context, by Author, raw []byte) (Result, error) {
	in, err := intent.Decode(raw)
	if err != nil {
		return Result{}, err
	}
	return s.Apply(ctx, by, in)
}

func (s *LedgerService) RecordTransactions(ctx context.Context, by Author, batch intent.Transactions) ([]core.Entry, error) {
	entries, err := s.processor.Record(ctx, by, batch)
	if err != nil {
		return nil, fmt.Errorf("record transactions: %w", err)
	}

	msg := amqp.NewLedgerEvent(amqp.EventTransactionsRecorded, by.GroupID)
	msg.UserID = by.UserID
	for _, e := range entries {
		msg.TransactionIDs = append(msg.TransactionIDs, e.ID)
	}
	s.publish(ctx, msg)
	return entries, nil
}

func (s *LedgerService) RecordExchange(ctx context.Context, by Author, ex intent.Exchange) (core.Entry, error) {
	e, err := s.processor.RecordExchange(ctx, by, ex)
	if err != nil {
		return core.Entry{}, fmt.Errorf("record exchange: %w", err)
	}

	msg := amqp.NewLedgerEvent(amqp.EventExchangeRecorded, by.GroupID)
	msg.UserID = by.UserID
	msg.TransactionIDs = []int64{e.ID}
	s.publish(ctx, msg)
	return e, nil
}

// ListRecent returns the newest entries of a group; limit <= 0 lists all.
func (s *LedgerService) ListRecent(ctx context.Context, groupID int64, limit int, category string) ([]core.Entry, error) {
	return s.storage.ListRecent(ctx, groupID, limit, category)
}

func (s *LedgerService) GetTransaction(ctx context.Context, groupID, id int64) (core.Entry, error) {
	return s.storage.GetTransaction(ctx, groupID, id)
}

// DeleteTransaction removes one transaction of the group. It reports false
// when the id is unknown in that group.
func (s *LedgerService) DeleteTransaction(ctx context.Context, groupID, id int64) (bool, error) {
	ok, err := s.storage.DeleteTransaction(ctx, groupID, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	if ok {
		msg := amqp.NewLedgerEvent(amqp.EventTransactionDeleted, groupID)
		msg.TransactionIDs = []int64{id}
		s.publish(ctx, msg)
	}
	return ok, nil
}

func (s *LedgerService) CountTransactions(ctx context.Context, groupID int64) (int64, error) {
	return s.storage.CountTransactions(ctx, groupID)
}

// ClearAll wipes the group and restarts its numbering at 1.
func (s *LedgerService) ClearAll(ctx context.Context, groupID int64) (int64, error) {
	n, err := s.storage.ClearAll(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("clear ledger: %w", err)
	}
	msg := amqp.NewLedgerEvent(amqp.EventLedgerCleared, groupID)
	msg.Deleted = n
	s.publish(ctx, msg)
	return n, nil
}

func (s *LedgerService) RenameCategory(ctx context.Context, oldName, newName string) error {
	if err := s.storage.RenameCategory(ctx, oldName, newName); err != nil {
		return err
	}
	msg := amqp.NewLedgerEvent(amqp.EventCategoryRenamed, 0)
	msg.From, msg.To = core.NormalizeName(oldName), core.NormalizeName(newName)
	s.publish(ctx, msg)
	return nil
}

func (s *LedgerService) Categories(ctx context.Context) ([]string, error) {
	return s.storage.ListCategoryNames(ctx)
}

// Ping reports whether storage is reachable.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping ledger event", "kind", msg.Kind)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, msg); err != nil {
		// The change is committed locally; the mirror catches up on the next event.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", msg.Kind,
			"group_id", msg.GroupID,
			"error", err)
	}
}

// Close closes storage. The publisher is owned by the caller.
func (s *LedgerService) Close() error {
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			return fmt.Errorf("close storage: %w", err)
		}
	}
	return nil
}
