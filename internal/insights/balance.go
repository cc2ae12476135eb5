package insights

import "math"

// balanceWindowDays is how far back the estimator looks.
const balanceWindowDays = 30

// Balance estimation bases.
const (
	BasisNoData        = "no_data"
	BasisExpensesOnly  = "expenses_only"
	BasisStrongSurplus = "strong_surplus"
	BasisBalanced      = "balanced"
	BasisDeficit       = "deficit"
)

// BalanceEstimate is a plausible starting balance inferred from the last 30
// days when no ledger balance is known.
type BalanceEstimate struct {
	InitialBalance  float64 `json:"initialBalance"`
	MonthlyIncome   float64 `json:"monthlyIncome"`
	MonthlyExpenses float64 `json:"monthlyExpenses"`
	MonthlyFlow     float64 `json:"monthlyFlow"`
	Basis           string  `json:"basis"`
}

// EstimateInitialBalance infers a starting balance from transactions dated in
// the 30 days up to clock.Now().
//
// With only expenses, half a month of spending is assumed as a buffer. With an
// income/expense ratio above 1.2, 30% of monthly income; above 0.8, 10%;
// otherwise whatever positive flow remains.
func EstimateInitialBalance(txs []Transaction, clock Clock) BalanceEstimate {
	now := Day(clock.Now())
	start := now.AddDate(0, 0, -balanceWindowDays)

	var income, expenses float64
	var n int
	for _, tx := range txs {
		d := Day(tx.Date)
		if d.Before(start) || d.After(now) {
			continue
		}
		n++
		switch tx.Type {
		case Income:
			income += tx.Amount
		case Expense:
			expenses += tx.Amount
		}
	}
	if n == 0 {
		return BalanceEstimate{Basis: BasisNoData}
	}

	est := BalanceEstimate{
		MonthlyIncome:   round2(income),
		MonthlyExpenses: round2(expenses),
		MonthlyFlow:     round2(income - expenses),
	}

	if income == 0 {
		est.InitialBalance = round2(0.5 * expenses)
		est.Basis = BasisExpensesOnly
		return est
	}

	ratio := math.Inf(1)
	if expenses > 0 {
		ratio = income / expenses
	}
	switch {
	case ratio > 1.2:
		est.InitialBalance = round2(0.3 * income)
		est.Basis = BasisStrongSurplus
	case ratio > 0.8:
		est.InitialBalance = round2(0.1 * income)
		est.Basis = BasisBalanced
	default:
		est.InitialBalance = math.Max(0, est.MonthlyFlow)
		est.Basis = BasisDeficit
	}
	return est
}
