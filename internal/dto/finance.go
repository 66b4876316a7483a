package dto

import "github.com/shopspring/decimal"

// FinanceMonthSummary is the derived financial picture for one month, on
// both accrual (projected) and cash (realized) bases. Both are always
// exposed; neither is silently preferred.
type FinanceMonthSummary struct {
	Month            string          `json:"month"`
	RealizedRevenue  decimal.Decimal `json:"realRevenue"`
	ProjectedRevenue decimal.Decimal `json:"projectedRevenue"`
	TeacherExpense   decimal.Decimal `json:"teacherExpense"`
	FixedCosts       decimal.Decimal `json:"fixedCosts"`
	TotalExpenses    decimal.Decimal `json:"totalExpenses"`
	ProjectedProfit  decimal.Decimal `json:"projectedProfit"`
	RealizedProfit   decimal.Decimal `json:"realizedProfit"`
}

// BudgetLine diffs one actual figure against its budgeted target.
type BudgetLine struct {
	Budgeted decimal.Decimal `json:"budgeted"`
	Actual   decimal.Decimal `json:"actual"`
	Variance decimal.Decimal `json:"variance"`
	Percent  int             `json:"percent"`
}

// CategoryBudgetLine is a BudgetLine scoped to an expense category.
type CategoryBudgetLine struct {
	Category string `json:"category"`
	BudgetLine
}

// BudgetComparisonResponse diffs a month's actuals against its stored
// budget. Categories present on either side appear; unbudgeted spend is
// never dropped.
type BudgetComparisonResponse struct {
	Month    string               `json:"month"`
	Revenue  BudgetLine           `json:"revenue"`
	Expenses []CategoryBudgetLine `json:"expenses"`
}

// UpsertBudgetRequest captures PUT /finance/budgets payload.
type UpsertBudgetRequest struct {
	Month         string            `json:"month" binding:"required"`
	RevenueTarget string            `json:"revenueTarget" binding:"required"`
	ExpenseLimits map[string]string `json:"expenseLimits"`
}

// RecordExpenseRequest captures POST /finance/expenses payload.
type RecordExpenseRequest struct {
	Category string  `json:"category" binding:"required"`
	Amount   string  `json:"amount" binding:"required"`
	SpentOn  string  `json:"spentOn" binding:"required"`
	Notes    *string `json:"notes,omitempty"`
}
