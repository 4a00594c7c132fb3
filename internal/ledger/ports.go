// Package ledger defines the ports to the durable stores: the ledger of
// entries and the settings (budget, taxonomy, accounts, fixed expenses,
// alert flags). Backends live in the subpackages.
package ledger

import (
	"context"
	"errors"

	"kakeibo/internal/core"
)

// ErrUnconfigured signals that no store is configured at all, as opposed to
// a configured store that is merely empty.
var ErrUnconfigured = errors.New("ledger store not configured")

// ErrPositionOutOfRange is returned by Update when the position does not
// name an existing entry, typically because a delete shifted the ledger.
var ErrPositionOutOfRange = errors.New("ledger position out of range")

type (
	// EntryPatch is a partial update of the mutable entry fields. Amount
	// and date are immutable after creation.
	EntryPatch struct {
		Category *string
		Memo     *string
	}

	// Store is the ledger collaborator. Positions returned by Append and
	// carried on read entries are stable only until a delete shifts later
	// entries; callers must not cache them across a DeleteMonth.
	Store interface {
		Append(ctx context.Context, e core.LedgerEntry) (position int, err error)
		ReadAll(ctx context.Context) ([]core.LedgerEntry, error)
		Update(ctx context.Context, position int, patch EntryPatch) error
		DeleteMonth(ctx context.Context, year, month int) (deleted int, err error)
	}

	// Settings is the user configuration kept alongside the ledger.
	Settings struct {
		Budget        int64               `json:"budget"`
		Categories    []string            `json:"categories"`
		FixedExpenses []core.FixedExpense `json:"fixedExpenses"`
		Accounts      []core.Account      `json:"accounts"`
		LineUserID    string              `json:"lineUserId"`
		AIMessage     string              `json:"aiMessage"`
	}

	// SettingsStore persists settings and the alert state machine flags.
	SettingsStore interface {
		Settings(ctx context.Context) (Settings, error)
		SaveSettings(ctx context.Context, s Settings) error
		AlertState(ctx context.Context) (core.AlertState, error)
		SaveAlertState(ctx context.Context, s core.AlertState) error
	}
)

// DefaultBudget is the monthly budget used until the user configures one.
const DefaultBudget = 120000

// DefaultCategories is the category list offered before customization.
var DefaultCategories = []string{"食費", "日用品", "交通費", "娯楽", "医療", "衣服", "交際費", "その他"}

// DefaultSettings returns the settings used for a store that has no saved
// configuration yet.
func DefaultSettings() Settings {
	return Settings{
		Budget:     DefaultBudget,
		Categories: append([]string(nil), DefaultCategories...),
	}
}
