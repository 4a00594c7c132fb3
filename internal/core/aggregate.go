package core

import (
	"sort"
	"time"
)

// RecentEntryLimit bounds the recent-entries list in a month snapshot.
const RecentEntryLimit = 10

type (
	// CategoryAmount is an expense total for one category.
	CategoryAmount struct {
		Name   string `json:"name"`
		Amount int64  `json:"amount"`
	}

	// MonthSnapshot is the read-only projection of the ledger for one
	// year+month. All sums are exact integer yen.
	MonthSnapshot struct {
		Year            int
		Month           int // 1-12
		CarryOver       int64
		TotalIncome     int64
		TotalExpense    int64
		Categories      []CategoryAmount
		Recent          []LedgerEntry
		AccountBalances map[string]int64
	}

	// Flow is one edge of the single-month flow graph.
	Flow struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}

	// FlowGraph is the month's money flow: a single source node (income,
	// or the budget when no income was recorded) fanning out to expense
	// categories and the positive remainder.
	FlowGraph struct {
		Flows        []Flow `json:"flows"`
		SourceLabel  string `json:"sourceLabel"`
		SourceAmount int64  `json:"sourceAmount"`
		TotalIncome  int64  `json:"totalIncome"`
		TotalExpense int64  `json:"totalExpense"`
	}

	// MonthRollup is one month's line in a yearly report.
	MonthRollup struct {
		Month             int   `json:"month"`
		Income            int64 `json:"income"`
		Expense           int64 `json:"expense"`
		Savings           int64 `json:"savings"`
		CumulativeSavings int64 `json:"cumulativeSavings"`
	}
)

// Flow-graph node labels.
const (
	FlowSourceIncome = "収入"
	FlowSourceBudget = "予算"
	FlowRemaining    = "残高"
)

func inMonth(e LedgerEntry, year, month int) bool {
	return e.At.Year() == year && int(e.At.Month()) == month
}

func beforeMonth(e LedgerEntry, year, month int) bool {
	y, m := e.At.Year(), int(e.At.Month())
	return y < year || (y == year && m < month)
}

func signed(e LedgerEntry) int64 {
	if e.Flow == FlowIncome {
		return e.Amount.Yen
	}
	return -e.Amount.Yen
}

// AggregateMonth projects a full ledger snapshot onto the target year+month.
// An empty snapshot yields a zero-valued result, never an error.
//
// Account balances are computed over the entire history, seeded from the
// configured initial balances; accounts that appear in the ledger but not in
// the configuration start at zero.
func AggregateMonth(entries []LedgerEntry, accounts []Account, year, month int) MonthSnapshot {
	snap := MonthSnapshot{
		Year:            year,
		Month:           month,
		AccountBalances: make(map[string]int64, len(accounts)),
	}
	for _, acc := range accounts {
		snap.AccountBalances[acc.Name] = acc.InitialBalance
	}

	catTotals := make(map[string]int64)
	var catOrder []string
	var monthEntries []LedgerEntry

	for _, e := range entries {
		name := e.Account
		if name == "" {
			name = AccountUnset
		}
		snap.AccountBalances[name] += signed(e)

		switch {
		case beforeMonth(e, year, month):
			snap.CarryOver += signed(e)
		case inMonth(e, year, month):
			if e.Flow == FlowIncome {
				snap.TotalIncome += e.Amount.Yen
			} else {
				snap.TotalExpense += e.Amount.Yen
				cat := e.Category
				if cat == "" {
					cat = CategoryUncategorized
				}
				if _, ok := catTotals[cat]; !ok {
					catOrder = append(catOrder, cat)
				}
				catTotals[cat] += e.Amount.Yen
			}
			monthEntries = append(monthEntries, e)
		}
	}

	snap.Categories = make([]CategoryAmount, 0, len(catOrder))
	for _, name := range catOrder {
		snap.Categories = append(snap.Categories, CategoryAmount{Name: name, Amount: catTotals[name]})
	}
	// Descending by amount; the stable sort keeps first-seen order on ties.
	sort.SliceStable(snap.Categories, func(i, j int) bool {
		return snap.Categories[i].Amount > snap.Categories[j].Amount
	})

	// Newest first by full timestamp; ties keep original ledger order.
	sort.SliceStable(monthEntries, func(i, j int) bool {
		return monthEntries[i].At.After(monthEntries[j].At)
	})
	if len(monthEntries) > RecentEntryLimit {
		monthEntries = monthEntries[:RecentEntryLimit]
	}
	snap.Recent = monthEntries

	return snap
}

// AggregateRange totals the expenses in [from, to) with a per-category
// breakdown sorted like the month snapshot's.
func AggregateRange(entries []LedgerEntry, from, to time.Time) (int64, []CategoryAmount) {
	catTotals := make(map[string]int64)
	var catOrder []string
	var total int64
	for _, e := range entries {
		if e.Flow == FlowIncome || e.At.Before(from) || !e.At.Before(to) {
			continue
		}
		total += e.Amount.Yen
		cat := e.Category
		if cat == "" {
			cat = CategoryUncategorized
		}
		if _, ok := catTotals[cat]; !ok {
			catOrder = append(catOrder, cat)
		}
		catTotals[cat] += e.Amount.Yen
	}
	cats := make([]CategoryAmount, 0, len(catOrder))
	for _, name := range catOrder {
		cats = append(cats, CategoryAmount{Name: name, Amount: catTotals[name]})
	}
	sort.SliceStable(cats, func(i, j int) bool {
		return cats[i].Amount > cats[j].Amount
	})
	return total, cats
}

// DailyExpenses returns the per-day expense totals for the given number of
// calendar days starting at from's date, oldest day first.
func DailyExpenses(entries []LedgerEntry, from time.Time, days int) []int64 {
	out := make([]int64, days)
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.Local)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		index[start.AddDate(0, 0, i).Format("2006/01/02")] = i
	}
	for _, e := range entries {
		if e.Flow == FlowIncome {
			continue
		}
		if i, ok := index[e.At.Format("2006/01/02")]; ok {
			out[i] += e.Amount.Yen
		}
	}
	return out
}

// MergeCategorySlots appends zero-amount rows for configured categories that
// saw no spending, so the dashboard keeps a display slot for each. Existing
// rows and their order are untouched.
func MergeCategorySlots(cats []CategoryAmount, names []string) []CategoryAmount {
	present := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		present[c.Name] = struct{}{}
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := present[name]; !ok {
			cats = append(cats, CategoryAmount{Name: name, Amount: 0})
			present[name] = struct{}{}
		}
	}
	return cats
}

// BuildFlowGraph derives the single-month flow graph from a snapshot. The
// source is recorded income, or the configured budget when the month had no
// income. A remaining edge is added only when positive.
func BuildFlowGraph(snap MonthSnapshot, budget int64) FlowGraph {
	g := FlowGraph{
		TotalIncome:  snap.TotalIncome,
		TotalExpense: snap.TotalExpense,
	}
	if snap.TotalIncome > 0 {
		g.SourceLabel = FlowSourceIncome
		g.SourceAmount = snap.TotalIncome
	} else {
		g.SourceLabel = FlowSourceBudget
		g.SourceAmount = budget
	}
	for _, c := range snap.Categories {
		if c.Amount == 0 {
			continue
		}
		g.Flows = append(g.Flows, Flow{From: g.SourceLabel, To: c.Name, Amount: c.Amount})
	}
	if remaining := g.SourceAmount - snap.TotalExpense; remaining > 0 {
		g.Flows = append(g.Flows, Flow{From: g.SourceLabel, To: FlowRemaining, Amount: remaining})
	}
	return g
}

// AggregateYear builds the 12-month rollup for a target year. The cumulative
// savings series starts from the true carry-over of all years before the
// target and accumulates each month's net savings.
func AggregateYear(entries []LedgerEntry, year int) []MonthRollup {
	months := make([]MonthRollup, 12)
	for i := range months {
		months[i].Month = i + 1
	}

	var carryOver int64
	for _, e := range entries {
		switch {
		case e.At.Year() < year:
			carryOver += signed(e)
		case e.At.Year() == year:
			m := &months[int(e.At.Month())-1]
			if e.Flow == FlowIncome {
				m.Income += e.Amount.Yen
			} else {
				m.Expense += e.Amount.Yen
			}
		}
	}

	cumulative := carryOver
	for i := range months {
		months[i].Savings = months[i].Income - months[i].Expense
		cumulative += months[i].Savings
		months[i].CumulativeSavings = cumulative
	}
	return months
}
