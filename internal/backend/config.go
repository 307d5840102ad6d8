package backend

import (
	"errors"
	"fmt"

	"google.golang.org/api/option"

	"gastos/internal/config"
)

// Config holds configuration for sink creation
type Config struct {
	Type SinkType

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// ClientOptions are appended after the credential options. Used to
	// point the Sheets client at another endpoint.
	ClientOptions []option.ClientOption
}

// SinkType represents the type of audit sink
type SinkType string

const (
	SheetsSink SinkType = "sheets"
	MemorySink SinkType = "memory"
)

func (t SinkType) String() string {
	return string(t)
}

func (t SinkType) IsValid() bool {
	switch t {
	case SheetsSink, MemorySink:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to sink config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	t := SinkType(appConfig.MirrorBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid mirror backend in config: %s", appConfig.MirrorBackend)
	}

	return Config{
		Type:                     t,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid sink type: %s", c.Type)
	}
	if c.Type == SheetsSink {
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets sink")
		}
		if c.GoogleSheetName == "" {
			return errors.New("Google Sheet name is required for sheets sink")
		}
	}
	return nil
}

// SinkTypes returns all valid sink types
func SinkTypes() []SinkType {
	return []SinkType{SheetsSink, MemorySink}
}
