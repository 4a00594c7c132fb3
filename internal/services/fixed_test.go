package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger/memory"
)

type fakeNotifier struct {
	pushed []string
	err    error
}

func (f *fakeNotifier) Push(_ context.Context, _ string, text string) error {
	if f.err != nil {
		return f.err
	}
	f.pushed = append(f.pushed, text)
	return nil
}

func fixedSettings(t *testing.T, store *memory.Store, expenses ...core.FixedExpense) {
	t.Helper()
	set, _ := store.Settings(context.Background())
	set.FixedExpenses = expenses
	if err := store.SaveSettings(context.Background(), set); err != nil {
		t.Fatalf("save settings: %v", err)
	}
}

func TestRecordMonthBooksChargesDueToday(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	fixedSettings(t, store,
		core.FixedExpense{Day: 15, Memo: "家賃", Amount: 80000, Category: "住居"},
		core.FixedExpense{Day: 20, Memo: "サブスク", Amount: 1200, Category: "娯楽"},
	)
	notifier := &fakeNotifier{}

	now := time.Date(2026, 2, 15, 9, 0, 0, 0, time.Local)
	n, err := NewFixedRecorder(store, store, notifier, nil).RecordMonth(ctx, now)
	if err != nil {
		t.Fatalf("recordMonth: %v", err)
	}
	if n != 1 {
		t.Fatalf("written = %d, want only the day-15 charge", n)
	}

	entries, _ := store.ReadAll(ctx)
	e := entries[0]
	if e.Memo != "家賃" || e.Method != core.MethodFixedAuto || !e.Fixed {
		t.Fatalf("entry = %+v", e)
	}
	if got := e.Date().String(); got != "2026/02/15" {
		t.Fatalf("charge date = %s, want 2026/02/15", got)
	}
	if len(notifier.pushed) != 1 || !strings.Contains(notifier.pushed[0], "1件") {
		t.Fatalf("summary push = %v", notifier.pushed)
	}
	if !strings.Contains(notifier.pushed[0], "80,000円") {
		t.Fatalf("summary missing amount: %v", notifier.pushed[0])
	}
}

func TestRecordMonthSkipsChargesNotDueYet(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	fixedSettings(t, store, core.FixedExpense{Day: 25, Memo: "家賃", Amount: 80000, Category: "住居"})
	notifier := &fakeNotifier{}

	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.Local)
	n, err := NewFixedRecorder(store, store, notifier, nil).RecordMonth(ctx, now)
	if err != nil {
		t.Fatalf("recordMonth: %v", err)
	}
	if n != 0 {
		t.Fatalf("written = %d, a day-25 charge must not book on the 1st", n)
	}
	entries, _ := store.ReadAll(ctx)
	if len(entries) != 0 {
		t.Fatalf("entries = %+v", entries)
	}
	if len(notifier.pushed) != 0 {
		t.Fatalf("pushed = %v, want no summary", notifier.pushed)
	}
}

func TestRecordMonthClampsDayToMonthEnd(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	fixedSettings(t, store, core.FixedExpense{Day: 31, Memo: "家賃", Amount: 80000, Category: "住居"})
	rec := NewFixedRecorder(store, store, nil, nil)

	// Mid-month the day-31 charge is not due.
	if n, err := rec.RecordMonth(ctx, time.Date(2026, 2, 10, 9, 0, 0, 0, time.Local)); err != nil || n != 0 {
		t.Fatalf("mid-month run: n=%d err=%v", n, err)
	}

	// 2026-02 has 28 days, so it comes due on the last day.
	now := time.Date(2026, 2, 28, 9, 0, 0, 0, time.Local)
	n, err := rec.RecordMonth(ctx, now)
	if err != nil {
		t.Fatalf("recordMonth: %v", err)
	}
	if n != 1 {
		t.Fatalf("written = %d, want 1 on month end", n)
	}
	entries, _ := store.ReadAll(ctx)
	if got := entries[0].Date().String(); got != "2026/02/28" {
		t.Fatalf("charge date = %s, want 2026/02/28", got)
	}
}

func TestRecordMonthIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	fixedSettings(t, store, core.FixedExpense{Day: 1, Memo: "家賃", Amount: 80000, Category: "住居"})
	rec := NewFixedRecorder(store, store, nil, nil)

	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.Local)
	if _, err := rec.RecordMonth(ctx, now); err != nil {
		t.Fatalf("first run: %v", err)
	}
	n, err := rec.RecordMonth(ctx, now.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 0 {
		t.Fatalf("written = %d, want 0 on same-day rerun", n)
	}

	// A new month books again.
	n, err = rec.RecordMonth(ctx, now.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("next month: %v", err)
	}
	if n != 1 {
		t.Fatalf("written = %d, want 1 in new month", n)
	}
}

func TestRecordMonthSkipsMalformedEntries(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	fixedSettings(t, store,
		core.FixedExpense{Day: 1, Memo: "", Amount: 500, Category: "住居"},
		core.FixedExpense{Day: 1, Memo: "壊れた設定", Amount: 0, Category: "住居"},
		core.FixedExpense{Day: 1, Memo: "有効", Amount: 500, Category: "住居"},
	)

	n, err := NewFixedRecorder(store, store, nil, nil).RecordMonth(ctx, time.Date(2026, 2, 1, 9, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("recordMonth: %v", err)
	}
	if n != 1 {
		t.Fatalf("written = %d, want 1", n)
	}
}

func TestRecordMonthNoFixedExpensesConfigured(t *testing.T) {
	store := memory.New()
	n, err := NewFixedRecorder(store, store, nil, nil).RecordMonth(context.Background(), time.Now())
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}
