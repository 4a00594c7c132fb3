package core

import (
	"testing"
	"time"
)

func expense(y, m, d int, yen int64, cat, memo string) LedgerEntry {
	e := entryAt(y, m, d, yen, memo)
	e.Category = cat
	return e
}

func income(y, m, d int, yen int64, memo string) LedgerEntry {
	e := entryAt(y, m, d, yen, memo)
	e.Flow = FlowIncome
	return e
}

func TestAggregateMonthEmpty(t *testing.T) {
	snap := AggregateMonth(nil, nil, 2026, 2)
	if snap.CarryOver != 0 || snap.TotalIncome != 0 || snap.TotalExpense != 0 {
		t.Fatalf("empty ledger must produce zero totals: %+v", snap)
	}
	if len(snap.Categories) != 0 || len(snap.Recent) != 0 {
		t.Fatalf("empty ledger must produce empty lists: %+v", snap)
	}
}

func TestAggregateMonthCarryOver(t *testing.T) {
	entries := []LedgerEntry{
		income(2026, 1, 25, 300000, "給料"),
		expense(2026, 1, 28, 80000, "食費", "1月の食費"),
		expense(2026, 2, 3, 1200, "食費", "ランチ"),
		income(2026, 2, 25, 300000, "給料"),
		expense(2026, 3, 1, 500, "食費", "来月分"),
	}
	snap := AggregateMonth(entries, nil, 2026, 2)

	if want := int64(300000 - 80000); snap.CarryOver != want {
		t.Fatalf("carryOver = %d, want %d", snap.CarryOver, want)
	}
	if snap.TotalIncome != 300000 {
		t.Fatalf("totalIncome = %d, want 300000", snap.TotalIncome)
	}
	if snap.TotalExpense != 1200 {
		t.Fatalf("totalExpense = %d, want 1200", snap.TotalExpense)
	}

	// carryOver(M+1) == carryOver(M) + netSavings(M)
	next := AggregateMonth(entries, nil, 2026, 3)
	if want := snap.CarryOver + snap.TotalIncome - snap.TotalExpense; next.CarryOver != want {
		t.Fatalf("carryOver(M+1) = %d, want %d", next.CarryOver, want)
	}
}

func TestAggregateMonthCategoriesSorted(t *testing.T) {
	entries := []LedgerEntry{
		expense(2026, 2, 1, 1000, "日用品", "a"),
		expense(2026, 2, 2, 5000, "食費", "b"),
		expense(2026, 2, 3, 1000, "交通費", "c"),
		expense(2026, 2, 4, 4000, "食費", "d"),
	}
	snap := AggregateMonth(entries, nil, 2026, 2)

	for i := 1; i < len(snap.Categories); i++ {
		if snap.Categories[i].Amount > snap.Categories[i-1].Amount {
			t.Fatalf("category totals not non-increasing: %+v", snap.Categories)
		}
	}
	if snap.Categories[0].Name != "食費" || snap.Categories[0].Amount != 9000 {
		t.Fatalf("top category = %+v, want 食費 9000", snap.Categories[0])
	}
	// 日用品 and 交通費 tie at 1000; first seen wins.
	if snap.Categories[1].Name != "日用品" || snap.Categories[2].Name != "交通費" {
		t.Fatalf("tie order wrong: %+v", snap.Categories)
	}
}

func TestAggregateMonthRecentEntries(t *testing.T) {
	var entries []LedgerEntry
	for d := 1; d <= 14; d++ {
		e := expense(2026, 2, d, int64(100*d), "食費", "day")
		e.At = e.At.Add(time.Duration(d) * time.Hour)
		entries = append(entries, e)
	}
	snap := AggregateMonth(entries, nil, 2026, 2)

	if len(snap.Recent) != RecentEntryLimit {
		t.Fatalf("recent length = %d, want %d", len(snap.Recent), RecentEntryLimit)
	}
	for i := 1; i < len(snap.Recent); i++ {
		if snap.Recent[i].At.After(snap.Recent[i-1].At) {
			t.Fatalf("recent entries not newest-first at %d", i)
		}
	}
	if snap.Recent[0].At.Day() != 14 {
		t.Fatalf("newest entry day = %d, want 14", snap.Recent[0].At.Day())
	}
}

func TestAggregateMonthAccountBalances(t *testing.T) {
	accounts := []Account{{Name: "三井住友カード", InitialBalance: 10000}}
	entries := []LedgerEntry{
		func() LedgerEntry {
			e := expense(2025, 12, 1, 3000, "食費", "去年")
			e.Account = "三井住友カード"
			return e
		}(),
		func() LedgerEntry {
			e := income(2026, 2, 25, 50000, "入金")
			e.Account = "PayPayカード"
			return e
		}(),
	}
	snap := AggregateMonth(entries, accounts, 2026, 2)

	// Balances cover the whole history, not just the target month.
	if got := snap.AccountBalances["三井住友カード"]; got != 7000 {
		t.Fatalf("三井住友カード balance = %d, want 7000", got)
	}
	// Unconfigured accounts are implicitly created from zero.
	if got := snap.AccountBalances["PayPayカード"]; got != 50000 {
		t.Fatalf("PayPayカード balance = %d, want 50000", got)
	}
}

func TestMergeCategorySlots(t *testing.T) {
	cats := []CategoryAmount{{Name: "食費", Amount: 5000}}
	merged := MergeCategorySlots(cats, []string{"食費", "日用品", ""})
	if len(merged) != 2 {
		t.Fatalf("merged length = %d, want 2", len(merged))
	}
	if merged[1].Name != "日用品" || merged[1].Amount != 0 {
		t.Fatalf("zero slot = %+v, want 日用品 0", merged[1])
	}
}

func TestBuildFlowGraph(t *testing.T) {
	entries := []LedgerEntry{
		expense(2026, 2, 1, 30000, "食費", "a"),
		expense(2026, 2, 2, 20000, "日用品", "b"),
	}
	snap := AggregateMonth(entries, nil, 2026, 2)

	// No income: budget is the source.
	g := BuildFlowGraph(snap, 120000)
	if g.SourceLabel != FlowSourceBudget || g.SourceAmount != 120000 {
		t.Fatalf("source = %s %d, want 予算 120000", g.SourceLabel, g.SourceAmount)
	}
	last := g.Flows[len(g.Flows)-1]
	if last.To != FlowRemaining || last.Amount != 70000 {
		t.Fatalf("remaining edge = %+v, want 残高 70000", last)
	}

	// With income the source flips and a fully spent month has no remainder.
	entries = append(entries, income(2026, 2, 25, 50000, "給料"))
	snap = AggregateMonth(entries, nil, 2026, 2)
	g = BuildFlowGraph(snap, 120000)
	if g.SourceLabel != FlowSourceIncome || g.SourceAmount != 50000 {
		t.Fatalf("source = %s %d, want 収入 50000", g.SourceLabel, g.SourceAmount)
	}
	for _, f := range g.Flows {
		if f.From != FlowSourceIncome {
			t.Fatalf("edge from %q, want 収入", f.From)
		}
	}
}

func TestAggregateYear(t *testing.T) {
	entries := []LedgerEntry{
		income(2025, 11, 25, 100000, "去年の給料"),
		expense(2025, 12, 1, 40000, "食費", "去年"),
		income(2026, 1, 25, 300000, "給料"),
		expense(2026, 1, 28, 100000, "食費", "1月"),
		expense(2026, 2, 3, 50000, "食費", "2月"),
	}
	months := AggregateYear(entries, 2026)

	if len(months) != 12 {
		t.Fatalf("months length = %d, want 12", len(months))
	}
	if months[0].Savings != 200000 {
		t.Fatalf("january savings = %d, want 200000", months[0].Savings)
	}
	// Pre-year carry-over (100000-40000) feeds month 1.
	if months[0].CumulativeSavings != 60000+200000 {
		t.Fatalf("january cumulative = %d, want 260000", months[0].CumulativeSavings)
	}
	if months[1].CumulativeSavings != 260000-50000 {
		t.Fatalf("february cumulative = %d, want 210000", months[1].CumulativeSavings)
	}
	// Untouched months carry the running total forward.
	if months[11].CumulativeSavings != months[1].CumulativeSavings {
		t.Fatalf("december cumulative = %d, want %d", months[11].CumulativeSavings, months[1].CumulativeSavings)
	}
}

func TestAggregateRange(t *testing.T) {
	entries := []LedgerEntry{
		expense(2026, 2, 5, 3000, "食費", "スーパー"),
		expense(2026, 2, 10, 5000, "食費", "外食"),
		expense(2026, 2, 10, 1500, "交通費", "電車"),
		income(2026, 2, 10, 200000, "給料"),
		expense(2026, 2, 14, 800, "食費", "境界の外"),
	}
	from := time.Date(2026, 2, 8, 0, 0, 0, 0, time.Local)
	to := time.Date(2026, 2, 14, 0, 0, 0, 0, time.Local)

	total, cats := AggregateRange(entries, from, to)
	if total != 6500 {
		t.Fatalf("total = %d, want 6500", total)
	}
	if len(cats) != 2 || cats[0].Name != "食費" || cats[0].Amount != 5000 {
		t.Fatalf("categories = %+v", cats)
	}
	if cats[1].Name != "交通費" || cats[1].Amount != 1500 {
		t.Fatalf("categories = %+v", cats)
	}
}

func TestDailyExpenses(t *testing.T) {
	entries := []LedgerEntry{
		expense(2026, 2, 8, 1200, "食費", "ランチ"),
		expense(2026, 2, 8, 300, "食費", "コーヒー"),
		expense(2026, 2, 12, 5000, "娯楽", "映画"),
		income(2026, 2, 10, 200000, "給料"),
		expense(2026, 2, 20, 999, "食費", "期間外"),
	}
	from := time.Date(2026, 2, 8, 9, 0, 0, 0, time.Local)

	daily := DailyExpenses(entries, from, 7)
	want := []int64{1500, 0, 0, 0, 5000, 0, 0}
	if len(daily) != len(want) {
		t.Fatalf("daily = %v", daily)
	}
	for i := range want {
		if daily[i] != want[i] {
			t.Fatalf("daily = %v, want %v", daily, want)
		}
	}
}
