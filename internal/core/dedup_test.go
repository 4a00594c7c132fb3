package core

import (
	"testing"
	"time"
)

func entryAt(y, m, d int, yen int64, memo string) LedgerEntry {
	return LedgerEntry{
		At:       time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local),
		Amount:   Money{Yen: yen},
		Category: CategoryUncategorized,
		Memo:     memo,
		Flow:     FlowExpense,
		Account:  AccountUnset,
	}
}

func TestDedupIndex(t *testing.T) {
	existing := []LedgerEntry{
		entryAt(2026, 2, 21, 9350, "Mastercard加盟店"),
		entryAt(2026, 2, 5, 4733, "ソフトバンク(B)"),
	}
	idx := NewDedupIndex(existing)

	if !idx.Contains(entryAt(2026, 2, 21, 9350, "Mastercard加盟店")) {
		t.Fatal("expected exact duplicate to be detected")
	}
	// Any field of the (date, amount, memo) key differing means no duplicate.
	if idx.Contains(entryAt(2026, 2, 22, 9350, "Mastercard加盟店")) {
		t.Fatal("different date must not be a duplicate")
	}
	if idx.Contains(entryAt(2026, 2, 21, 9351, "Mastercard加盟店")) {
		t.Fatal("different amount must not be a duplicate")
	}
	if idx.Contains(entryAt(2026, 2, 21, 9350, "別の店")) {
		t.Fatal("different memo must not be a duplicate")
	}
}

func TestDedupIndexAddWithinRun(t *testing.T) {
	idx := NewDedupIndex(nil)
	e := entryAt(2026, 3, 1, 500, "コンビニ")
	if idx.Contains(e) {
		t.Fatal("empty index must not contain anything")
	}
	idx.Add(e)
	if !idx.Contains(e) {
		t.Fatal("entry added during the run must be detected")
	}
}

func TestDedupIgnoresTimeOfDay(t *testing.T) {
	morning := entryAt(2026, 2, 21, 9350, "ランチ")
	evening := morning
	evening.At = evening.At.Add(9 * time.Hour)
	idx := NewDedupIndex([]LedgerEntry{morning})
	if !idx.Contains(evening) {
		t.Fatal("dedup key is the calendar day, not the full timestamp")
	}
}
