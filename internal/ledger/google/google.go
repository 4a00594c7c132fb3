// Package google backs the ledger with a Google Spreadsheet. The ledger
// sheet holds one entry per row; settings and alert flags live as key/value
// pairs on a separate sheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/log"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config carries what the client needs to reach the spreadsheet.
// CredentialsJSON wins over CredentialsFile when both are set.
type Config struct {
	SpreadsheetID   string
	LedgerSheet     string
	SettingsSheet   string
	CredentialsJSON string
	CredentialsFile string
}

const (
	defaultLedgerSheet   = "家計簿"
	defaultSettingsSheet = "設定"
)

// headerRows is the number of rows above the first entry. Position N lives
// at sheet row N+headerRows.
const headerRows = 1

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerSheet   string
	settingsSheet string
	logger        *log.Logger
}

var (
	_ ledger.Store         = (*Client)(nil)
	_ ledger.SettingsStore = (*Client)(nil)
)

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, ledger.ErrUnconfigured
	}
	if cfg.LedgerSheet == "" {
		cfg.LedgerSheet = defaultLedgerSheet
	}
	if cfg.SettingsSheet == "" {
		cfg.SettingsSheet = defaultSettingsSheet
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger)
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		ledgerSheet:   cfg.LedgerSheet,
		settingsSheet: cfg.SettingsSheet,
		logger:        logger,
	}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials")
	}
	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// Append writes the entry on the first empty row and returns its position.
func (c *Client) Append(ctx context.Context, e core.LedgerEntry) (int, error) {
	e = e.Normalized()
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("validate entry: %w", err)
	}

	rng := fmt.Sprintf("%s!A:A", c.ledgerSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read ledger dimensions: %w", err)
	}
	nextRow := len(resp.Values) + 1
	if nextRow <= headerRows {
		nextRow = headerRows + 1
	}

	dataRange := fmt.Sprintf("%s!A%d:H%d", c.ledgerSheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{entryRow(e)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("write ledger row %d: %w", nextRow, err)
	}
	return nextRow - headerRows, nil
}

// ReadAll returns every entry in sheet order. Rows that cannot be parsed
// are skipped with a warning; a half-broken sheet should not take the
// aggregation down with it.
func (c *Client) ReadAll(ctx context.Context) ([]core.LedgerEntry, error) {
	rng := fmt.Sprintf("%s!A%d:H", c.ledgerSheet, headerRows+1)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	out := make([]core.LedgerEntry, 0, len(resp.Values))
	for i, row := range resp.Values {
		position := i + 1
		e, err := parseEntryRow(toStrings(row))
		if err != nil {
			c.logger.Warn("skipping unparsable ledger row",
				log.FieldPosition, position, log.FieldError, err.Error())
			continue
		}
		e.Position = position
		out = append(out, e)
	}
	return out, nil
}

// Update patches category and/or memo in place.
func (c *Client) Update(ctx context.Context, position int, patch ledger.EntryPatch) error {
	if position < 1 {
		return ledger.ErrPositionOutOfRange
	}
	row := position + headerRows
	rng := fmt.Sprintf("%s!C%d:D%d", c.ledgerSheet, row, row)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read row %d: %w", row, err)
	}
	if len(resp.Values) == 0 {
		return ledger.ErrPositionOutOfRange
	}
	cur := toStrings(resp.Values[0])
	category := safeGet(cur, 0)
	memo := safeGet(cur, 1)
	if patch.Category != nil && *patch.Category != "" {
		category = *patch.Category
	}
	if patch.Memo != nil && *patch.Memo != "" {
		memo = *patch.Memo
	}
	vr := &gsheet.ValueRange{Values: [][]any{{category, memo}}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update row %d: %w", row, err)
	}
	return nil
}

// DeleteMonth removes every row of the given month. Rows are deleted
// bottom-up in one batch so indices stay valid while the batch applies.
func (c *Client) DeleteMonth(ctx context.Context, year, month int) (int, error) {
	entries, err := c.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	var rows []int
	for _, e := range entries {
		if e.At.Year() == year && int(e.At.Month()) == month {
			rows = append(rows, e.Position+headerRows)
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	sheetID, err := c.sheetID(ctx, c.ledgerSheet)
	if err != nil {
		return 0, err
	}
	reqs := make([]*gsheet.Request, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		reqs = append(reqs, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		})
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID,
		&gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("delete %d rows: %w", len(rows), err)
	}
	return len(rows), nil
}

func (c *Client) sheetID(ctx context.Context, name string) (int64, error) {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).
		Fields("sheets.properties").Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, s := range meta.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", name)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
