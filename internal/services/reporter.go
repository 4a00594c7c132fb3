package services

import (
	"context"
	"fmt"
	"time"

	"kakeibo/internal/advisor"
	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/log"
)

// AnalysisSource produces spending commentary. It never fails; a model
// outage yields a fixed fallback message.
type AnalysisSource interface {
	Analyze(ctx context.Context, data advisor.PromptData) string
}

// Reporter builds periodic spending reports, pushes them to the user and
// stores the latest commentary for the dashboard.
type Reporter struct {
	store    ledger.Store
	settings ledger.SettingsStore
	analysis AnalysisSource
	notifier Notifier
	logger   *log.Logger
}

func NewReporter(store ledger.Store, settings ledger.SettingsStore, analysis AnalysisSource, notifier Notifier, logger *log.Logger) *Reporter {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentAdvisor)
	}
	return &Reporter{store: store, settings: settings, analysis: analysis, notifier: notifier, logger: logger}
}

// WeeklyReport pushes a mid-month commentary on the current spending pace.
func (r *Reporter) WeeklyReport(ctx context.Context, now time.Time) error {
	return r.report(ctx, now, advisor.ReportWeekly)
}

// MonthlyReport pushes the month wrap-up commentary.
func (r *Reporter) MonthlyReport(ctx context.Context, now time.Time) error {
	return r.report(ctx, now, advisor.ReportMonthly)
}

func (r *Reporter) report(ctx context.Context, now time.Time, kind advisor.ReportKind) error {
	set, err := r.settings.Settings(ctx)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	entries, err := r.store.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}

	year, month := now.Year(), int(now.Month())
	snap := core.AggregateMonth(entries, set.Accounts, year, month)

	data := advisor.PromptData{
		Kind:         kind,
		Year:         year,
		Month:        month,
		Budget:       set.Budget,
		TotalExpense: snap.TotalExpense,
		CarryOver:    snap.CarryOver,
		Categories:   snap.Categories,
	}

	switch kind {
	case advisor.ReportWeekly:
		// The 7 calendar days ending today, against the 7 before them.
		weekStart := startOfDay(now.AddDate(0, 0, -6))
		prevStart := startOfDay(now.AddDate(0, 0, -13))
		tomorrow := startOfDay(now.AddDate(0, 0, 1))
		cur, curCats := core.AggregateRange(entries, weekStart, tomorrow)
		prev, prevCats := core.AggregateRange(entries, prevStart, weekStart)
		data.PeriodExpense, data.PrevPeriodExpense = cur, prev
		data.Diffs = advisor.DiffCategories(curCats, prevCats)
		data.Daily = core.DailyExpenses(entries, weekStart, 7)
	default:
		prevYear, prevMonth := year, month-1
		if prevMonth < 1 {
			prevYear, prevMonth = year-1, 12
		}
		prevSnap := core.AggregateMonth(entries, set.Accounts, prevYear, prevMonth)
		data.PeriodExpense = snap.TotalExpense
		data.PrevPeriodExpense = prevSnap.TotalExpense
		data.Diffs = advisor.DiffCategories(snap.Categories, prevSnap.Categories)
		monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
		data.Daily = core.DailyExpenses(entries, monthStart, now.Day())
	}
	if snap.TotalExpense > 0 {
		lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.Local).Day()
		data.ProjectedExpense = snap.TotalExpense * int64(lastDay) / int64(now.Day())
	}

	text := r.analysis.Analyze(ctx, data)

	if r.notifier != nil {
		if err := r.notifier.Push(ctx, set.LineUserID, text); err != nil {
			r.logger.Warn("report push failed", log.FieldError, err.Error())
		}
	}

	// The dashboard shows the latest commentary regardless of delivery.
	set.AIMessage = text
	if err := r.settings.SaveSettings(ctx, set); err != nil {
		return fmt.Errorf("save commentary: %w", err)
	}

	r.logger.Info("report generated",
		log.FieldOperation, log.OpAnalyze,
		log.FieldMonthKey, core.MonthKeyOf(year, month),
		"kind", string(kind))
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}
