package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/log"
	"kakeibo/internal/notify"
)

// AlertService checks the month's spending against the budget and pushes at
// most one threshold alert per run.
type AlertService struct {
	store    ledger.Store
	settings ledger.SettingsStore
	notifier Notifier
	logger   *log.Logger
}

func NewAlertService(store ledger.Store, settings ledger.SettingsStore, notifier Notifier, logger *log.Logger) *AlertService {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentAlert)
	}
	return &AlertService{store: store, settings: settings, notifier: notifier, logger: logger}
}

// Evaluate runs one alert check for the month of now. The sent flags are
// persisted only after a successful push, so a failed delivery is retried on
// the next run instead of being silently lost.
func (a *AlertService) Evaluate(ctx context.Context, now time.Time) (core.AlertKind, error) {
	set, err := a.settings.Settings(ctx)
	if err != nil {
		return core.AlertNone, fmt.Errorf("read settings: %w", err)
	}
	entries, err := a.store.ReadAll(ctx)
	if err != nil {
		return core.AlertNone, fmt.Errorf("read ledger: %w", err)
	}
	state, err := a.settings.AlertState(ctx)
	if err != nil {
		return core.AlertNone, fmt.Errorf("read alert state: %w", err)
	}

	year, month := now.Year(), int(now.Month())
	snap := core.AggregateMonth(entries, set.Accounts, year, month)
	monthKey := core.MonthKeyOf(year, month)

	kind, next := core.EvaluateBudget(state, monthKey, snap.TotalExpense, set.Budget)
	if kind == core.AlertNone {
		// Persist the month rollover even when nothing fired.
		if next != state {
			if err := a.settings.SaveAlertState(ctx, next); err != nil {
				return core.AlertNone, fmt.Errorf("save alert state: %w", err)
			}
		}
		return core.AlertNone, nil
	}

	text := alertText(kind, snap.TotalExpense, set.Budget)
	if err := a.notifier.Push(ctx, set.LineUserID, text); err != nil {
		if errors.Is(err, notify.ErrNoRecipient) {
			a.logger.Warn("alert suppressed, no LINE user registered",
				log.FieldAlertKind, string(kind))
			return core.AlertNone, nil
		}
		return core.AlertNone, fmt.Errorf("push alert: %w", err)
	}
	if err := a.settings.SaveAlertState(ctx, next); err != nil {
		return kind, fmt.Errorf("save alert state: %w", err)
	}

	a.logger.Info("budget alert sent",
		log.FieldAlertKind, string(kind),
		log.FieldMonthKey, monthKey,
		log.FieldAmountYen, snap.TotalExpense,
		log.FieldBudget, set.Budget)
	return kind, nil
}

func alertText(kind core.AlertKind, totalExpense, budget int64) string {
	switch kind {
	case core.AlertOverBudget:
		return fmt.Sprintf("⚠️ 今月の支出が予算を超えました。\n支出: %s円 / 予算: %s円",
			formatYen(totalExpense), formatYen(budget))
	case core.AlertApproaching:
		return fmt.Sprintf("🔔 今月の支出が予算の80%%に達しました。\n支出: %s円 / 予算: %s円",
			formatYen(totalExpense), formatYen(budget))
	default:
		return ""
	}
}
