package backend

import (
	"context"
	"fmt"

	"gastos/internal/log"
	gsheet "gastos/internal/sheets/google"
	"gastos/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentSheets)}
}

// CreateSink implements Factory.CreateSink
func (f *DefaultFactory) CreateSink(ctx context.Context, config Config) (*SinkResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsSink:
		return f.createSheetsSink(ctx, config)
	case MemorySink:
		return f.createMemorySink()
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", config.Type)
	}
}

// createSheetsSink authenticates, then writes the header row so the first
// append lands under it.
func (f *DefaultFactory) createSheetsSink(ctx context.Context, config Config) (*SinkResult, error) {
	creds := gsheet.Credentials{
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	}
	opts, err := creds.Options(ctx)
	if err != nil {
		return nil, err
	}
	opts = append(opts, config.ClientOptions...)

	client, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, fmt.Errorf("prepare sheet %s: %w", config.GoogleSheetName, err)
	}

	f.logger.Info("Initialized Google Sheets sink",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)
	return &SinkResult{Sink: client}, nil
}

func (f *DefaultFactory) createMemorySink() (*SinkResult, error) {
	f.logger.Warn("Using in-memory audit sink, rows are lost on restart")
	return &SinkResult{Sink: memory.New()}, nil
}
