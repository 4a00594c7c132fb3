package google

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"

	gsheet "google.golang.org/api/sheets/v4"
)

// Settings sheet layout: column A holds the key, column B the value.
// Structured values are stored as JSON so the sheet stays human-editable
// for the scalar ones.
const (
	keyBudget        = "budget"
	keyCategories    = "categories"
	keyFixedExpenses = "fixed_expenses"
	keyAccounts      = "accounts"
	keyLineUserID    = "line_user_id"
	keyAIMessage     = "ai_message"
	keyAlertState    = "alert_state"
)

// settingsKeyOrder fixes the row layout so saves are plain range updates.
var settingsKeyOrder = []string{
	keyBudget, keyCategories, keyFixedExpenses, keyAccounts,
	keyLineUserID, keyAIMessage, keyAlertState,
}

func (c *Client) Settings(ctx context.Context) (ledger.Settings, error) {
	kv, err := c.readSettingsKV(ctx)
	if err != nil {
		return ledger.Settings{}, err
	}
	set := ledger.DefaultSettings()
	if v, ok := kv[keyBudget]; ok && v != "" {
		budget, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return ledger.Settings{}, fmt.Errorf("budget %q: %w", v, err)
		}
		if budget > 0 {
			set.Budget = budget
		}
	}
	if v, ok := kv[keyCategories]; ok && v != "" {
		if err := json.Unmarshal([]byte(v), &set.Categories); err != nil {
			return ledger.Settings{}, fmt.Errorf("categories: %w", err)
		}
	}
	if v, ok := kv[keyFixedExpenses]; ok && v != "" {
		if err := json.Unmarshal([]byte(v), &set.FixedExpenses); err != nil {
			return ledger.Settings{}, fmt.Errorf("fixed expenses: %w", err)
		}
	}
	if v, ok := kv[keyAccounts]; ok && v != "" {
		if err := json.Unmarshal([]byte(v), &set.Accounts); err != nil {
			return ledger.Settings{}, fmt.Errorf("accounts: %w", err)
		}
	}
	set.LineUserID = kv[keyLineUserID]
	set.AIMessage = kv[keyAIMessage]
	return set, nil
}

func (c *Client) SaveSettings(ctx context.Context, set ledger.Settings) error {
	if set.Budget <= 0 {
		set.Budget = ledger.DefaultBudget
	}
	categories, err := json.Marshal(set.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	fixed, err := json.Marshal(set.FixedExpenses)
	if err != nil {
		return fmt.Errorf("marshal fixed expenses: %w", err)
	}
	accounts, err := json.Marshal(set.Accounts)
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}
	values := map[string]string{
		keyBudget:        strconv.FormatInt(set.Budget, 10),
		keyCategories:    string(categories),
		keyFixedExpenses: string(fixed),
		keyAccounts:      string(accounts),
		keyLineUserID:    set.LineUserID,
		keyAIMessage:     set.AIMessage,
	}
	return c.writeSettingsKV(ctx, values)
}

func (c *Client) AlertState(ctx context.Context) (core.AlertState, error) {
	kv, err := c.readSettingsKV(ctx)
	if err != nil {
		return core.AlertState{}, err
	}
	v := kv[keyAlertState]
	if v == "" {
		return core.AlertState{}, nil
	}
	var state core.AlertState
	if err := json.Unmarshal([]byte(v), &state); err != nil {
		return core.AlertState{}, fmt.Errorf("alert state: %w", err)
	}
	return state, nil
}

func (c *Client) SaveAlertState(ctx context.Context, state core.AlertState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal alert state: %w", err)
	}
	return c.writeSettingsKV(ctx, map[string]string{keyAlertState: string(b)})
}

func (c *Client) readSettingsKV(ctx context.Context) (map[string]string, error) {
	rng := fmt.Sprintf("%s!A:B", c.settingsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	kv := make(map[string]string, len(resp.Values))
	for _, row := range resp.Values {
		cols := toStrings(row)
		if len(cols) == 0 || cols[0] == "" {
			continue
		}
		kv[cols[0]] = safeGet(cols, 1)
	}
	return kv, nil
}

// writeSettingsKV merges values into the current key/value rows and rewrites
// the settings range in the fixed key order.
func (c *Client) writeSettingsKV(ctx context.Context, values map[string]string) error {
	current, err := c.readSettingsKV(ctx)
	if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}
	vr := settingsValueRange(current)
	rng := fmt.Sprintf("%s!A1:B%d", c.settingsSheet, len(vr.Values))
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// settingsValueRange lays the key/value pairs out in the fixed row order.
func settingsValueRange(kv map[string]string) *gsheet.ValueRange {
	rows := make([][]any, 0, len(settingsKeyOrder))
	for _, k := range settingsKeyOrder {
		rows = append(rows, []any{k, kv[k]})
	}
	return &gsheet.ValueRange{Values: rows}
}
