package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2026/02/21", "2026/02/21", true},
		{"2026-02-21", "2026/02/21", true},
		{"2026/2/5", "2026/02/05", true},
		{"21/02/2026", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ParseDate(%q) unexpected error: %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("ParseDate(%q) expected error", tc.in)
			}
			continue
		}
		if got := d.String(); got != tc.want {
			t.Fatalf("ParseDate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseYen(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"9,350円", 9350, true},
		{"9350", 9350, true},
		{"１，２００", 1200, true},
		{"-500円", -500, true},
		{"１２３４円", 1234, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseYen(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ParseYen(%q) unexpected error: %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("ParseYen(%q) expected error", tc.in)
			}
			continue
		}
		if got != tc.want {
			t.Fatalf("ParseYen(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestLedgerEntryValidate(t *testing.T) {
	good := LedgerEntry{
		At:       time.Date(2026, 2, 21, 0, 0, 0, 0, time.Local),
		Amount:   Money{Yen: 9350},
		Category: "食費",
		Memo:     "ランチ",
		Flow:     FlowExpense,
		Account:  AccountUnset,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []LedgerEntry{
		{Amount: Money{Yen: 100}, Memo: "a", Flow: FlowExpense},                    // zero time
		{At: good.At, Amount: Money{Yen: 0}, Memo: "a", Flow: FlowExpense},         // zero amount
		{At: good.At, Amount: Money{Yen: -10}, Memo: "a", Flow: FlowIncome},        // negative amount
		{At: good.At, Amount: Money{Yen: 100}, Memo: "  ", Flow: FlowExpense},      // blank memo
		{At: good.At, Amount: Money{Yen: 100}, Memo: "a", Flow: FlowType("その他")}, // unknown flow
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestNormalizedFillsSentinels(t *testing.T) {
	e := LedgerEntry{At: time.Now(), Amount: Money{Yen: 1}, Memo: "x"}.Normalized()
	if e.Category != CategoryUncategorized {
		t.Fatalf("category = %q, want %q", e.Category, CategoryUncategorized)
	}
	if e.Account != AccountUnset {
		t.Fatalf("account = %q, want %q", e.Account, AccountUnset)
	}
	if e.Flow != FlowExpense {
		t.Fatalf("flow = %q, want %q", e.Flow, FlowExpense)
	}
}

func TestMonthKey(t *testing.T) {
	if got := NewDate(2026, 2, 21).MonthKey(); got != "2026-02" {
		t.Fatalf("MonthKey = %q, want 2026-02", got)
	}
	if got := MonthKeyOf(2026, 2); got != "2026-02" {
		t.Fatalf("MonthKeyOf = %q, want 2026-02", got)
	}
}
