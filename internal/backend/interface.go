// Package backend builds the audit sink the mirror worker writes to.
package backend

import (
	"context"

	"gastos/internal/sheets"
)

// Sink is an audit destination. Reading is optional for real spreadsheets
// but every built-in sink supports appending.
type Sink interface {
	sheets.AuditWriter
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// SinkResult contains the sink and an optional cleanup function.
type SinkResult struct {
	Sink    Sink
	Cleanup CleanupFunc
}

// Factory creates sinks based on configuration
type Factory interface {
	CreateSink(ctx context.Context, config Config) (*SinkResult, error)
}
