package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger/memory"
	"kakeibo/internal/notify"
)

func seedExpense(t *testing.T, store *memory.Store, at time.Time, yen int64) {
	t.Helper()
	_, err := store.Append(context.Background(), core.LedgerEntry{
		At:     at,
		Amount: core.Money{Yen: yen},
		Memo:   "支出",
		Flow:   core.FlowExpense,
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}
}

func alertStore(t *testing.T, budget int64) *memory.Store {
	t.Helper()
	store := memory.New()
	set, _ := store.Settings(context.Background())
	set.Budget = budget
	set.LineUserID = "U123"
	if err := store.SaveSettings(context.Background(), set); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	return store
}

func TestEvaluateFiresApproachingThenOver(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.Local)
	store := alertStore(t, 10000)
	notifier := &fakeNotifier{}
	svc := NewAlertService(store, store, notifier, nil)

	// 79.99%: nothing.
	seedExpense(t, store, now, 7999)
	if kind, err := svc.Evaluate(ctx, now); err != nil || kind != core.AlertNone {
		t.Fatalf("below threshold: kind=%q err=%v", kind, err)
	}

	// Cross 80%.
	seedExpense(t, store, now, 1)
	kind, err := svc.Evaluate(ctx, now)
	if err != nil || kind != core.AlertApproaching {
		t.Fatalf("at 80%%: kind=%q err=%v", kind, err)
	}
	if len(notifier.pushed) != 1 || !strings.Contains(notifier.pushed[0], "80%") {
		t.Fatalf("pushed = %v", notifier.pushed)
	}

	// Re-running at the same level stays silent.
	if kind, err := svc.Evaluate(ctx, now); err != nil || kind != core.AlertNone {
		t.Fatalf("idempotence: kind=%q err=%v", kind, err)
	}

	// Cross 100%.
	seedExpense(t, store, now, 2000)
	kind, err = svc.Evaluate(ctx, now)
	if err != nil || kind != core.AlertOverBudget {
		t.Fatalf("over budget: kind=%q err=%v", kind, err)
	}
	if len(notifier.pushed) != 2 || !strings.Contains(notifier.pushed[1], "予算を超え") {
		t.Fatalf("pushed = %v", notifier.pushed)
	}
}

func TestEvaluateJumpFiresOnlyOverBudget(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.Local)
	store := alertStore(t, 10000)
	notifier := &fakeNotifier{}
	svc := NewAlertService(store, store, notifier, nil)

	seedExpense(t, store, now, 15000)
	kind, err := svc.Evaluate(ctx, now)
	if err != nil || kind != core.AlertOverBudget {
		t.Fatalf("kind=%q err=%v", kind, err)
	}
	// 80% alert does not fire afterwards for the same month.
	if kind, err := svc.Evaluate(ctx, now); err != nil || kind != core.AlertNone {
		t.Fatalf("followup: kind=%q err=%v", kind, err)
	}
	if len(notifier.pushed) != 1 {
		t.Fatalf("pushed = %v", notifier.pushed)
	}
}

func TestEvaluateResetsOnNewMonth(t *testing.T) {
	ctx := context.Background()
	feb := time.Date(2026, 2, 21, 12, 0, 0, 0, time.Local)
	store := alertStore(t, 10000)
	notifier := &fakeNotifier{}
	svc := NewAlertService(store, store, notifier, nil)

	seedExpense(t, store, feb, 9000)
	if _, err := svc.Evaluate(ctx, feb); err != nil {
		t.Fatalf("feb: %v", err)
	}

	mar := time.Date(2026, 3, 5, 12, 0, 0, 0, time.Local)
	seedExpense(t, store, mar, 8500)
	kind, err := svc.Evaluate(ctx, mar)
	if err != nil || kind != core.AlertApproaching {
		t.Fatalf("march must fire again: kind=%q err=%v", kind, err)
	}
	state, _ := store.AlertState(ctx)
	if state.MonthKey != "2026-03" || !state.Sent80 || state.Sent100 {
		t.Fatalf("state = %+v", state)
	}
}

func TestEvaluateKeepsFlagsWhenPushFails(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.Local)
	store := alertStore(t, 10000)
	notifier := &fakeNotifier{err: context.DeadlineExceeded}
	svc := NewAlertService(store, store, notifier, nil)

	seedExpense(t, store, now, 9000)
	if _, err := svc.Evaluate(ctx, now); err == nil {
		t.Fatal("expected push error")
	}
	// Flags unchanged, so the next run retries delivery.
	state, _ := store.AlertState(ctx)
	if state.Sent80 {
		t.Fatalf("sent80 persisted despite failed push: %+v", state)
	}

	working := &fakeNotifier{}
	svc = NewAlertService(store, store, working, nil)
	kind, err := svc.Evaluate(ctx, now)
	if err != nil || kind != core.AlertApproaching {
		t.Fatalf("retry: kind=%q err=%v", kind, err)
	}
}

func TestEvaluateNoRecipientIsNotAnError(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.Local)
	store := memory.New() // no LINE user id configured
	set, _ := store.Settings(ctx)
	set.Budget = 10000
	store.SaveSettings(ctx, set)
	notifier := &fakeNotifier{err: notify.ErrNoRecipient}
	svc := NewAlertService(store, store, notifier, nil)

	seedExpense(t, store, now, 9000)
	if kind, err := svc.Evaluate(ctx, now); err != nil || kind != core.AlertNone {
		t.Fatalf("kind=%q err=%v", kind, err)
	}
}
