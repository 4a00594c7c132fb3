package core

// AlertKind names a budget-threshold alert.
type AlertKind string

const (
	AlertNone        AlertKind = ""
	AlertApproaching AlertKind = "approaching-budget"
	AlertOverBudget  AlertKind = "over-budget"
)

// AlertState tracks which thresholds have fired for a month. It is persisted
// through the settings store and mutated only by EvaluateBudget.
type AlertState struct {
	MonthKey string `json:"monthKey"`
	Sent80   bool   `json:"sent80"`
	Sent100  bool   `json:"sent100"`
}

// EvaluateBudget runs one step of the alert state machine and returns the
// alert to emit (if any) together with the state to persist.
//
// The 100% threshold is checked first and returns early, so a jump straight
// from below 80% to over budget fires only the over-budget alert for that
// month. At most one alert is emitted per invocation, and each threshold
// fires at most once per month key. A non-positive budget is a no-op.
func EvaluateBudget(state AlertState, monthKey string, totalExpense, budget int64) (AlertKind, AlertState) {
	if state.MonthKey != monthKey {
		state = AlertState{MonthKey: monthKey}
	}
	if budget <= 0 {
		return AlertNone, state
	}

	// ratio >= 1.0
	if totalExpense >= budget && !state.Sent100 {
		state.Sent100 = true
		return AlertOverBudget, state
	}
	// 0.8 <= ratio < 1.0, compared in exact integer arithmetic
	if totalExpense < budget && totalExpense*5 >= budget*4 && !state.Sent80 {
		state.Sent80 = true
		return AlertApproaching, state
	}
	return AlertNone, state
}
