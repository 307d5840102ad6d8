// Package memory is an in-process audit sink for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"gastos/internal/sheets"
)

var (
	_ sheets.AuditWriter = (*Store)(nil)
	_ sheets.AuditReader = (*Store)(nil)
)

type Store struct {
	mu   sync.Mutex
	rows []sheets.AuditRow
	seen map[string]struct{}
}

func New() *Store {
	return &Store{seen: make(map[string]struct{})}
}

// AppendRows stores rows and returns a synthetic range reference. A row
// whose event id and transaction id were already stored is skipped, so a
// redelivered event does not duplicate lines.
func (s *Store) AppendRows(_ context.Context, rows []sheets.AuditRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := len(s.rows) + 1
	for _, r := range rows {
		key := fmt.Sprintf("%s/%d", r.EventID, r.TransactionID)
		if _, dup := s.seen[key]; dup {
			continue
		}
		s.seen[key] = struct{}{}
		s.rows = append(s.rows, r)
	}
	return fmt.Sprintf("mem:%d-%d", first, len(s.rows)), nil
}

// Rows returns a copy of everything stored so far.
func (s *Store) Rows(_ context.Context) ([]sheets.AuditRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.AuditRow(nil), s.rows...), nil
}
