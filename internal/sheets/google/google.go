// Package google mirrors ledger audit rows into a Google Sheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gastos/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const DefaultSheetName = "Ledger"

var _ sheets.AuditWriter = (*Client)(nil)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Credentials selects how the service account is loaded. When both fields
// are empty the SDK falls back to GOOGLE_APPLICATION_CREDENTIALS / ADC.
type Credentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Options turns the credentials into client options.
func (c Credentials) Options(ctx context.Context) ([]goption.ClientOption, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(c.ServiceAccountJSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(c.ServiceAccountJSON)
	case strings.TrimSpace(c.ServiceAccountFile) != "":
		b, err := os.ReadFile(c.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", c.ServiceAccountFile, "size", len(b))
		credentialsJSON = b
	default:
		slog.InfoContext(ctx, "No explicit credentials, using application default credentials")
		return []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}, nil
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

// New creates a client writing to sheetName inside spreadsheetID.
func New(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func (c *Client) columns() string {
	last := 'A' + rune(len(sheets.Header)) - 1
	return fmt.Sprintf("%s!A:%c", c.sheetName, last)
}

// EnsureHeader writes the header line when the sheet is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A1:A1", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) > 0 {
		return nil
	}

	header := make([]any, len(sheets.Header))
	for i, h := range sheets.Header {
		header[i] = h
	}
	vr := &gsheet.ValueRange{Values: [][]any{header}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A1", c.sheetName), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header to %s: %w", c.sheetName, err)
	}
	slog.InfoContext(ctx, "Wrote audit header", "sheet", c.sheetName)
	return nil
}

// AppendRows appends rows after the last non-empty line of the sheet.
func (c *Client) AppendRows(ctx context.Context, rows []sheets.AuditRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return "", nil
	}

	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = r.Values()
	}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.columns(), &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.sheetName, err)
	}

	ref := c.sheetName
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}
