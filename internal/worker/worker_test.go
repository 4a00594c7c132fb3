package worker

import (
	"context"
	"testing"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/ledger/memory"
)

func entry(day int, yen int64, memo string) core.LedgerEntry {
	return core.LedgerEntry{
		At:     time.Date(2026, 2, day, 12, 0, 0, 0, time.Local),
		Amount: core.Money{Yen: yen},
		Memo:   memo,
		Flow:   core.FlowExpense,
	}
}

func TestHandleEntrySyncMirrorsEntry(t *testing.T) {
	local := memory.New()
	remote := memory.New()
	ctx := context.Background()
	if _, err := local.Append(ctx, entry(10, 1200, "ランチ")); err != nil {
		t.Fatalf("append: %v", err)
	}
	w := NewSyncWorker(local, remote, nil)

	if err := w.HandleEntrySync(ctx, amqp.NewEntrySyncMessage(1)); err != nil {
		t.Fatalf("HandleEntrySync() error = %v", err)
	}
	mirrored, _ := remote.ReadAll(ctx)
	if len(mirrored) != 1 || mirrored[0].Memo != "ランチ" {
		t.Fatalf("remote = %+v", mirrored)
	}

	// A redelivered message does not double-book.
	if err := w.HandleEntrySync(ctx, amqp.NewEntrySyncMessage(1)); err != nil {
		t.Fatalf("HandleEntrySync() redelivery error = %v", err)
	}
	mirrored, _ = remote.ReadAll(ctx)
	if len(mirrored) != 1 {
		t.Fatalf("redelivery duplicated: %d entries", len(mirrored))
	}
}

func TestHandleEntrySyncDropsUnknownPosition(t *testing.T) {
	w := NewSyncWorker(memory.New(), memory.New(), nil)

	if err := w.HandleEntrySync(context.Background(), amqp.NewEntrySyncMessage(5)); err != nil {
		t.Fatalf("unknown position must be dropped, got %v", err)
	}
}

func TestStartupSyncCatchesUp(t *testing.T) {
	local := memory.New()
	remote := memory.New()
	ctx := context.Background()
	for _, e := range []core.LedgerEntry{
		entry(10, 1200, "ランチ"),
		entry(11, 350, "コーヒー"),
		entry(12, 9350, "くら寿司"),
	} {
		if _, err := local.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	// The first entry already made it across before the worker died.
	if _, err := remote.Append(ctx, entry(10, 1200, "ランチ")); err != nil {
		t.Fatalf("append: %v", err)
	}

	w := NewSyncWorker(local, remote, nil)
	written, err := w.StartupSync(ctx)
	if err != nil {
		t.Fatalf("StartupSync() error = %v", err)
	}
	if written != 2 {
		t.Fatalf("written = %d, want 2", written)
	}
	mirrored, _ := remote.ReadAll(ctx)
	if len(mirrored) != 3 {
		t.Fatalf("remote = %d entries, want 3", len(mirrored))
	}
}
