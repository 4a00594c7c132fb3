package google

import (
	"fmt"
	"strings"
	"time"

	"kakeibo/internal/core"
)

// Ledger sheet columns, in order:
// A date, B amount, C category, D memo, E flow, F method, G account, H fixed.
const entryColumns = 8

func entryRow(e core.LedgerEntry) []any {
	fixed := ""
	if e.Fixed {
		fixed = "TRUE"
	}
	return []any{
		e.At.Format("2006/01/02 15:04"),
		e.Amount.Yen,
		e.Category,
		e.Memo,
		string(e.Flow),
		string(e.Method),
		e.Account,
		fixed,
	}
}

func parseEntryRow(cols []string) (core.LedgerEntry, error) {
	// The API omits trailing empty cells, so a hand-edited row may carry
	// nothing beyond date and amount; the rest gets defaults.
	if len(cols) < 2 {
		return core.LedgerEntry{}, fmt.Errorf("row has %d columns, need at least date and amount", len(cols))
	}
	at, err := parseRowTime(cols[0])
	if err != nil {
		return core.LedgerEntry{}, err
	}
	amount, err := core.ParseYen(cols[1])
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("amount %q: %w", cols[1], err)
	}
	e := core.LedgerEntry{
		At:       at,
		Amount:   core.Money{Yen: amount},
		Category: safeGet(cols, 2),
		Memo:     safeGet(cols, 3),
		Flow:     core.FlowType(safeGet(cols, 4)),
		Method:   core.OriginMethod(safeGet(cols, 5)),
		Account:  safeGet(cols, 6),
		Fixed:    strings.EqualFold(safeGet(cols, 7), "TRUE"),
	}
	return e.Normalized(), nil
}

var rowTimeLayouts = []string{
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseRowTime accepts the formats a hand-edited sheet accumulates.
func parseRowTime(s string) (time.Time, error) {
	s = strings.TrimSpace(core.NormalizeDigits(s))
	for _, layout := range rowTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
