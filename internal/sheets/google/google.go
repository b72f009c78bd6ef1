package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"loantracker/internal/core"
	ports "loantracker/internal/sheets"
)

// valueInput lets Sheets parse amounts and dates as typed cells.
const valueInput = "USER_ENTERED"

// Client mirrors the people index into one sheet of a spreadsheet. Column A
// holds the person id and is the row key.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

var _ ports.Mirror = (*Client)(nil)

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client using service account credentials, either
// inline JSON or a file. GOOGLE_APPLICATION_CREDENTIALS is the last fallback.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "People"
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheet: cfg.SheetName}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credsFile := strings.TrimSpace(cfg.CredentialsFile)
	if cfg.CredentialsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case cfg.CredentialsJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case credsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", credsFile)
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// UpsertPerson rewrites the row keyed by p.ID or appends a new one. The header
// row is written first when the sheet is empty.
func (c *Client) UpsertPerson(ctx context.Context, p core.Person) error {
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		vr := &gsheet.ValueRange{Values: [][]interface{}{headerRow(), personRow(p)}}
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rangeFor(1), vr).
			ValueInputOption(valueInput).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header and row: %w", err)
		}
		return nil
	}

	row := rowOf(ids, p.ID)
	if row == 0 {
		row = len(ids) + 1
	}
	vr := &gsheet.ValueRange{Values: [][]interface{}{personRow(p)}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rangeFor(row), vr).
		ValueInputOption(valueInput).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	slog.DebugContext(ctx, "Sheet row written", "person_id", p.ID, "row", row)
	return nil
}

// DeletePerson clears the row of personID. The blank row is compacted by the
// next ExportPeople.
func (c *Client) DeletePerson(ctx context.Context, personID string) error {
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row := rowOf(ids, personID)
	if row == 0 {
		return fmt.Errorf("sheet row for %s: %w", personID, core.ErrNotFound)
	}
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.rangeFor(row), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear row %d: %w", row, err)
	}
	return nil
}

// ExportPeople replaces the sheet content with the header and one row per person.
func (c *Client) ExportPeople(ctx context.Context, people []core.Person) error {
	all := fmt.Sprintf("%s!A:%s", c.sheet, lastColumn)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, all, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}
	vr := &gsheet.ValueRange{Values: peopleRows(people)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.sheet+"!A1", vr).
		ValueInputOption(valueInput).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write people: %w", err)
	}
	slog.InfoContext(ctx, "People exported to sheet", "sheet", c.sheet, "rows", len(people))
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.sheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read id column: %w", err)
	}
	ids := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		ids = append(ids, firstCell(row))
	}
	return ids, nil
}

func (c *Client) rangeFor(row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.sheet, row, lastColumn, row)
}
