package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind doubles as the routing key of a ledger event.
type EventKind string

const (
	EventTransactionsRecorded EventKind = "ledger.transactions.recorded"
	EventExchangeRecorded     EventKind = "ledger.exchange.recorded"
	EventTransactionDeleted   EventKind = "ledger.transaction.deleted"
	EventLedgerCleared        EventKind = "ledger.cleared"
	EventCategoryRenamed      EventKind = "registry.category.renamed"
)

// LedgerEvent announces a committed ledger change. It carries ids only; the
// consumer reads the rows it needs from the database.
type LedgerEvent struct {
	ID             string    `json:"id"`
	Kind           EventKind `json:"kind"`
	GroupID        int64     `json:"group_id,omitempty"`
	UserID         int64     `json:"user_id,omitempty"`
	TransactionIDs []int64   `json:"transaction_ids,omitempty"`
	Deleted        int64     `json:"deleted,omitempty"`
	From           string    `json:"from,omitempty"`
	To             string    `json:"to,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps a fresh event id and time.
func NewLedgerEvent(kind EventKind, groupID int64) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		GroupID:   groupID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" {
		return nil, fmt.Errorf("ledger event %q has no kind", msg.ID)
	}
	return &msg, nil
}
