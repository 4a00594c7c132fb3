// Package sqlite backs the ledger with a local SQLite database, for running
// without a Google account or as a fast mirror of the sheet.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

type Repository struct {
	db *sql.DB
}

var (
	_ ledger.Store         = (*Repository)(nil)
	_ ledger.SettingsStore = (*Repository)(nil)
)

func NewRepository(dbPath string) (*Repository, error) {
	if dbPath == "" {
		return nil, ledger.ErrUnconfigured
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Append(ctx context.Context, e core.LedgerEntry) (int, error) {
	e = e.Normalized()
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("validate entry: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (at, amount_yen, category, memo, flow, method, account, fixed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.At.Format(timeLayout), e.Amount.Yen, e.Category, e.Memo,
		string(e.Flow), string(e.Method), e.Account, boolToInt(e.Fixed))
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	// Position is the entry's rank in id order, which for a fresh insert is
	// the row count.
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

func (r *Repository) ReadAll(ctx context.Context) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT at, amount_yen, category, memo, flow, method, account, fixed
		FROM entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		var (
			at     string
			amount int64
			e      core.LedgerEntry
			flow   string
			method string
			fixed  int
		)
		if err := rows.Scan(&at, &amount, &e.Category, &e.Memo, &flow, &method, &e.Account, &fixed); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		t, err := time.ParseInLocation(timeLayout, at, time.Local)
		if err != nil {
			return nil, fmt.Errorf("parse entry time %q: %w", at, err)
		}
		e.At = t
		e.Amount = core.Money{Yen: amount}
		e.Flow = core.FlowType(flow)
		e.Method = core.OriginMethod(method)
		e.Fixed = fixed != 0
		e.Position = len(out) + 1
		out = append(out, e.Normalized())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, position int, patch ledger.EntryPatch) error {
	id, err := r.idAtPosition(ctx, position)
	if err != nil {
		return err
	}
	if patch.Category != nil && *patch.Category != "" {
		if _, err := r.db.ExecContext(ctx,
			`UPDATE entries SET category = ? WHERE id = ?`, *patch.Category, id); err != nil {
			return fmt.Errorf("update category: %w", err)
		}
	}
	if patch.Memo != nil && *patch.Memo != "" {
		if _, err := r.db.ExecContext(ctx,
			`UPDATE entries SET memo = ? WHERE id = ?`, *patch.Memo, id); err != nil {
			return fmt.Errorf("update memo: %w", err)
		}
	}
	return nil
}

func (r *Repository) DeleteMonth(ctx context.Context, year, month int) (int, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0)
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM entries WHERE at >= ? AND at < ?`,
		start.Format(timeLayout), end.Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("delete month: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (r *Repository) idAtPosition(ctx context.Context, position int) (int64, error) {
	if position < 1 {
		return 0, ledger.ErrPositionOutOfRange
	}
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM entries ORDER BY id LIMIT 1 OFFSET ?`, position-1).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ledger.ErrPositionOutOfRange
	}
	if err != nil {
		return 0, fmt.Errorf("resolve position %d: %w", position, err)
	}
	return id, nil
}

func (r *Repository) Settings(ctx context.Context) (ledger.Settings, error) {
	raw, err := r.getSetting(ctx, "settings")
	if err != nil {
		return ledger.Settings{}, err
	}
	set := ledger.DefaultSettings()
	if raw == "" {
		return set, nil
	}
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return ledger.Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	if set.Budget <= 0 {
		set.Budget = ledger.DefaultBudget
	}
	return set, nil
}

func (r *Repository) SaveSettings(ctx context.Context, set ledger.Settings) error {
	if set.Budget <= 0 {
		set.Budget = ledger.DefaultBudget
	}
	b, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return r.putSetting(ctx, "settings", string(b))
}

func (r *Repository) AlertState(ctx context.Context) (core.AlertState, error) {
	raw, err := r.getSetting(ctx, "alert_state")
	if err != nil || raw == "" {
		return core.AlertState{}, err
	}
	var state core.AlertState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return core.AlertState{}, fmt.Errorf("unmarshal alert state: %w", err)
	}
	return state, nil
}

func (r *Repository) SaveAlertState(ctx context.Context, state core.AlertState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal alert state: %w", err)
	}
	return r.putSetting(ctx, "alert_state", string(b))
}

func (r *Repository) getSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, nil
}

func (r *Repository) putSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
