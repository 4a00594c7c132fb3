package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/log"
)

// Notifier pushes a text message to the registered user.
type Notifier interface {
	Push(ctx context.Context, userID, text string) error
}

// FixedRecorder books the configured recurring charges once per month each.
type FixedRecorder struct {
	store    ledger.Store
	settings ledger.SettingsStore
	notifier Notifier
	logger   *log.Logger
}

// NewFixedRecorder wires the recorder. notifier may be nil.
func NewFixedRecorder(store ledger.Store, settings ledger.SettingsStore, notifier Notifier, logger *log.Logger) *FixedRecorder {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentFixed)
	}
	return &FixedRecorder{store: store, settings: settings, notifier: notifier, logger: logger}
}

// RecordMonth books the fixed expenses that come due on now's date.
// A charge already present this month with the same category, memo and
// amount is not booked again, so running the job more than once a day is
// safe.
func (f *FixedRecorder) RecordMonth(ctx context.Context, now time.Time) (int, error) {
	set, err := f.settings.Settings(ctx)
	if err != nil {
		return 0, fmt.Errorf("read settings: %w", err)
	}
	if len(set.FixedExpenses) == 0 {
		return 0, nil
	}

	entries, err := f.store.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read ledger: %w", err)
	}
	booked := bookedThisMonth(entries, now)

	var written []core.LedgerEntry
	for _, fe := range set.FixedExpenses {
		if fe.Amount <= 0 || strings.TrimSpace(fe.Memo) == "" {
			f.logger.Warn("skipping malformed fixed expense",
				log.FieldMemo, fe.Memo, log.FieldAmountYen, fe.Amount)
			continue
		}
		if !dueOn(now, fe.Day) {
			continue
		}
		key := fixedKey(fe.Category, fe.Memo, fe.Amount)
		if _, ok := booked[key]; ok {
			continue
		}

		entry := core.LedgerEntry{
			At:       time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.Local),
			Amount:   core.Money{Yen: fe.Amount},
			Category: fe.Category,
			Memo:     fe.Memo,
			Flow:     core.FlowExpense,
			Method:   core.MethodFixedAuto,
			Fixed:    true,
		}
		if _, err := f.store.Append(ctx, entry); err != nil {
			return len(written), fmt.Errorf("append fixed expense %q: %w", fe.Memo, err)
		}
		booked[key] = struct{}{}
		written = append(written, entry)
		f.logger.Info("fixed expense booked",
			log.FieldMemo, fe.Memo,
			log.FieldAmountYen, fe.Amount,
			log.FieldDate, entry.Date().String())
	}

	if len(written) > 0 {
		f.notifySummary(ctx, set.LineUserID, written)
	}
	return len(written), nil
}

// dueOn reports whether a charge configured for day is due on now's date.
// Days the month does not have clamp to its last day, so a day-31 rent
// still books in February.
func dueOn(now time.Time, day int) bool {
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.Local).Day()
	if day < 1 {
		day = 1
	}
	if day > lastDay {
		day = lastDay
	}
	return now.Day() == day
}

func fixedKey(category, memo string, amount int64) string {
	return fmt.Sprintf("%s_%s_%d", category, memo, amount)
}

// bookedThisMonth indexes the month's existing fixed bookings.
func bookedThisMonth(entries []core.LedgerEntry, now time.Time) map[string]struct{} {
	out := make(map[string]struct{})
	for _, e := range entries {
		if e.Method != core.MethodFixedAuto {
			continue
		}
		if e.At.Year() != now.Year() || e.At.Month() != now.Month() {
			continue
		}
		out[fixedKey(e.Category, e.Memo, e.Amount.Yen)] = struct{}{}
	}
	return out
}

func (f *FixedRecorder) notifySummary(ctx context.Context, userID string, written []core.LedgerEntry) {
	if f.notifier == nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "固定費を%d件記録しました。\n", len(written))
	for _, e := range written {
		fmt.Fprintf(&b, "・%s %s円\n", e.Memo, formatYen(e.Amount.Yen))
	}
	if err := f.notifier.Push(ctx, userID, strings.TrimRight(b.String(), "\n")); err != nil {
		f.logger.Warn("fixed expense summary push failed", log.FieldError, err.Error())
	}
}
