package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/dto"
	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type mockFinancePayments struct {
	payments []models.Payment
	calls    int
	err      error
}

func (m *mockFinancePayments) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Payment, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		if p.PaidAt.Before(from) || p.PaidAt.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type mockFinanceEnrollments struct {
	enrollments []models.Enrollment
	err         error
}

func (m *mockFinanceEnrollments) ListActive(ctx context.Context) ([]models.Enrollment, error) {
	return m.enrollments, m.err
}

type mockFeeRepo struct {
	fees models.FeeStructure
	err  error
}

func (m *mockFeeRepo) FeeStructure(ctx context.Context) (models.FeeStructure, error) {
	return m.fees, m.err
}

type mockExpenseRepo struct {
	expenses []models.Expense
	created  []models.Expense
	err      error
}

func (m *mockExpenseRepo) List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	out := make([]models.Expense, 0, len(m.expenses))
	for _, e := range m.expenses {
		if filter.DateFrom != nil && e.SpentOn.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && e.SpentOn.After(*filter.DateTo) {
			continue
		}
		out = append(out, e)
	}
	return out, &models.Pagination{TotalCount: len(out)}, nil
}

func (m *mockExpenseRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Expense, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Expense, 0, len(m.expenses))
	for _, e := range m.expenses {
		if e.SpentOn.Before(from) || e.SpentOn.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *models.Expense) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, *expense)
	return nil
}

type mockBudgetRepo struct {
	budgets map[string]*models.Budget
	upserts []models.Budget
	err     error
}

func (m *mockBudgetRepo) GetByMonth(ctx context.Context, month string) (*models.Budget, error) {
	if m.err != nil {
		return nil, m.err
	}
	budget, ok := m.budgets[month]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no budget for month")
	}
	return budget, nil
}

func (m *mockBudgetRepo) Upsert(ctx context.Context, budget *models.Budget) error {
	if m.err != nil {
		return m.err
	}
	m.upserts = append(m.upserts, *budget)
	return nil
}

type stubPayoutTotal struct {
	total decimal.Decimal
	err   error
}

func (s *stubPayoutTotal) MonthlyPayoutTotal(ctx context.Context) (decimal.Decimal, error) {
	return s.total, s.err
}

func money(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func newFinanceServiceForTest(payments *mockFinancePayments, enrollments *mockFinanceEnrollments, fees *mockFeeRepo, expenses *mockExpenseRepo, budgets *mockBudgetRepo, payouts *stubPayoutTotal, cache *CacheService) *FinanceService {
	svc := NewFinanceService(payments, enrollments, fees, expenses, budgets, payouts, cache, zap.NewNop(), FinanceServiceConfig{})
	svc.now = func() time.Time { return date("2024-03-15") }
	return svc
}

func TestMonthlyAccrualRate(t *testing.T) {
	fee := models.InstrumentFee{Monthly: money("3000"), Quarterly: money("8100")}

	assert.True(t, MonthlyAccrualRate(models.FrequencyMonthly, fee).Equal(money("3000")))
	assert.True(t, MonthlyAccrualRate(models.FrequencyQuarterly, fee).Equal(money("2700")))
	assert.True(t, MonthlyAccrualRate(models.FrequencyHalfYearly, fee).Equal(money("2700")))
	assert.True(t, MonthlyAccrualRate(models.FrequencyYearly, fee).Equal(money("2700")))
	assert.True(t, MonthlyAccrualRate(models.FrequencyUnknown, fee).IsZero())
}

func TestProjectedMonthlyRevenue(t *testing.T) {
	fees := models.FeeStructure{
		"piano":  {Monthly: money("3000"), Quarterly: money("8100")},
		"guitar": {Monthly: money("2500"), Quarterly: money("6600")},
	}
	enrollments := []models.Enrollment{
		{StudentID: "s1", InstrumentID: "piano", Frequency: models.FrequencyMonthly, Active: true},
		{StudentID: "s2", InstrumentID: "guitar", Frequency: models.FrequencyQuarterly, Active: true},
		{StudentID: "s3", InstrumentID: "piano", Frequency: models.FrequencyMonthly, Active: false},
		// No fee schedule entry: contributes zero, never fails.
		{StudentID: "s4", InstrumentID: "violin", Frequency: models.FrequencyMonthly, Active: true},
	}

	total := ProjectedMonthlyRevenue(enrollments, fees)
	assert.True(t, total.Equal(money("5200")), "got %s", total)
}

func TestCompareBudgetLine(t *testing.T) {
	line := CompareBudgetLine(money("10000"), money("12500"))
	assert.True(t, line.Variance.Equal(money("2500")))
	assert.Equal(t, 125, line.Percent)

	line = CompareBudgetLine(money("0"), money("4000"))
	assert.True(t, line.Variance.Equal(money("4000")))
	assert.Equal(t, 0, line.Percent)

	line = CompareBudgetLine(money("3000"), money("0"))
	assert.True(t, line.Variance.Equal(money("-3000")))
	assert.Equal(t, 0, line.Percent)
}

func TestBuildBudgetComparisonCategoryUnion(t *testing.T) {
	budget := &models.Budget{
		Month:         "2024-03",
		RevenueTarget: money("100000"),
		ExpenseLimits: map[string]decimal.Decimal{
			"rent":      money("30000"),
			"utilities": money("5000"),
		},
	}
	expenses := []models.Expense{
		{Category: "rent", Amount: money("30000"), SpentOn: date("2024-03-01")},
		{Category: "repairs", Amount: money("2000"), SpentOn: date("2024-03-10")},
		{Category: "repairs", Amount: money("1500"), SpentOn: date("2024-03-20")},
	}

	resp := BuildBudgetComparison("2024-03", budget, money("95000"), expenses)
	assert.Equal(t, 95, resp.Revenue.Percent)

	require.Len(t, resp.Expenses, 3)
	assert.Equal(t, "rent", resp.Expenses[0].Category)
	assert.Equal(t, 100, resp.Expenses[0].Percent)
	// Unbudgeted spend still surfaces, with percent pinned to zero.
	assert.Equal(t, "repairs", resp.Expenses[1].Category)
	assert.True(t, resp.Expenses[1].Actual.Equal(money("3500")))
	assert.Equal(t, 0, resp.Expenses[1].Percent)
	// Budgeted but unspent categories appear too.
	assert.Equal(t, "utilities", resp.Expenses[2].Category)
	assert.True(t, resp.Expenses[2].Actual.IsZero())
}

func TestMonthSummary(t *testing.T) {
	payments := &mockFinancePayments{payments: []models.Payment{
		{StudentID: "s1", Amount: money("3000"), PaidAt: date("2024-03-05")},
		{StudentID: "s2", Amount: money("8100"), PaidAt: date("2024-03-20")},
		{StudentID: "s3", Amount: money("3000"), PaidAt: date("2024-02-05")},
	}}
	enrollments := &mockFinanceEnrollments{enrollments: []models.Enrollment{
		{StudentID: "s1", InstrumentID: "piano", Frequency: models.FrequencyMonthly, Active: true},
		{StudentID: "s2", InstrumentID: "piano", Frequency: models.FrequencyQuarterly, Active: true},
	}}
	fees := &mockFeeRepo{fees: models.FeeStructure{"piano": {Monthly: money("3000"), Quarterly: money("8100")}}}
	expenses := &mockExpenseRepo{expenses: []models.Expense{
		{Category: "rent", Amount: money("3000"), SpentOn: date("2024-03-01")},
		{Category: "rent", Amount: money("3000"), SpentOn: date("2024-04-01")},
	}}
	svc := newFinanceServiceForTest(payments, enrollments, fees, expenses, &mockBudgetRepo{}, &stubPayoutTotal{total: money("4000")}, nil)

	summary, cached, err := svc.MonthSummary(context.Background(), "2024-03")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.True(t, summary.RealizedRevenue.Equal(money("11100")), "realized %s", summary.RealizedRevenue)
	assert.True(t, summary.ProjectedRevenue.Equal(money("5700")), "projected %s", summary.ProjectedRevenue)
	assert.True(t, summary.TeacherExpense.Equal(money("4000")))
	assert.True(t, summary.FixedCosts.Equal(money("3000")))
	assert.True(t, summary.TotalExpenses.Equal(money("7000")))
	assert.True(t, summary.ProjectedProfit.Equal(money("-1300")), "projected profit %s", summary.ProjectedProfit)
	assert.True(t, summary.RealizedProfit.Equal(money("4100")))
}

func TestMonthSummaryTreatsNegativeAmountsAsZero(t *testing.T) {
	payments := &mockFinancePayments{payments: []models.Payment{
		{StudentID: "s1", Amount: money("3000"), PaidAt: date("2024-03-05")},
		// Legacy refund row imported with a negative amount.
		{StudentID: "s2", Amount: money("-500"), PaidAt: date("2024-03-10")},
	}}
	expenses := &mockExpenseRepo{expenses: []models.Expense{
		{Category: "rent", Amount: money("3000"), SpentOn: date("2024-03-01")},
		{Category: "rent", Amount: money("-250"), SpentOn: date("2024-03-02")},
	}}
	svc := newFinanceServiceForTest(payments, &mockFinanceEnrollments{}, &mockFeeRepo{}, expenses, &mockBudgetRepo{}, &stubPayoutTotal{}, nil)

	summary, _, err := svc.MonthSummary(context.Background(), "2024-03")
	require.NoError(t, err)
	assert.True(t, summary.RealizedRevenue.Equal(money("3000")), "realized %s", summary.RealizedRevenue)
	assert.True(t, summary.FixedCosts.Equal(money("3000")), "fixed costs %s", summary.FixedCosts)
}

func TestBuildBudgetComparisonClampsNegativeSpend(t *testing.T) {
	budget := &models.Budget{Month: "2024-03", ExpenseLimits: map[string]decimal.Decimal{}}
	expenses := []models.Expense{
		{Category: "repairs", Amount: money("2000"), SpentOn: date("2024-03-10")},
		{Category: "repairs", Amount: money("-800"), SpentOn: date("2024-03-12")},
		// A category whose only row is negative still surfaces, at zero.
		{Category: "supplies", Amount: money("-100"), SpentOn: date("2024-03-15")},
	}

	resp := BuildBudgetComparison("2024-03", budget, money("0"), expenses)
	require.Len(t, resp.Expenses, 2)
	assert.Equal(t, "repairs", resp.Expenses[0].Category)
	assert.True(t, resp.Expenses[0].Actual.Equal(money("2000")))
	assert.Equal(t, "supplies", resp.Expenses[1].Category)
	assert.True(t, resp.Expenses[1].Actual.IsZero())
}

func TestMonthSummaryCaching(t *testing.T) {
	payments := &mockFinancePayments{}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := newFinanceServiceForTest(payments, &mockFinanceEnrollments{}, &mockFeeRepo{}, &mockExpenseRepo{}, &mockBudgetRepo{}, &stubPayoutTotal{}, cacheSvc)

	_, cached, err := svc.MonthSummary(context.Background(), "2024-03")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, payments.calls)

	_, cached, err = svc.MonthSummary(context.Background(), "2024-03")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, payments.calls)
}

func TestMonthSummaryInvalidMonth(t *testing.T) {
	svc := newFinanceServiceForTest(&mockFinancePayments{}, &mockFinanceEnrollments{}, &mockFeeRepo{}, &mockExpenseRepo{}, &mockBudgetRepo{}, &stubPayoutTotal{}, nil)

	_, _, err := svc.MonthSummary(context.Background(), "March 2024")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBudgetComparisonMissingBudget(t *testing.T) {
	expenses := &mockExpenseRepo{expenses: []models.Expense{
		{Category: "rent", Amount: money("3000"), SpentOn: date("2024-03-01")},
	}}
	svc := newFinanceServiceForTest(&mockFinancePayments{}, &mockFinanceEnrollments{}, &mockFeeRepo{}, expenses, &mockBudgetRepo{}, &stubPayoutTotal{}, nil)

	resp, err := svc.BudgetComparison(context.Background(), "2024-03")
	require.NoError(t, err)
	require.Len(t, resp.Expenses, 1)
	assert.Equal(t, "rent", resp.Expenses[0].Category)
	assert.Equal(t, 0, resp.Expenses[0].Percent)
}

func TestUpsertBudgetReplacesPrevious(t *testing.T) {
	budgets := &mockBudgetRepo{}
	svc := newFinanceServiceForTest(&mockFinancePayments{}, &mockFinanceEnrollments{}, &mockFeeRepo{}, &mockExpenseRepo{}, budgets, &stubPayoutTotal{}, nil)

	budget, err := svc.UpsertBudget(context.Background(), dto.UpsertBudgetRequest{
		Month:         "2024-03",
		RevenueTarget: "100000",
		ExpenseLimits: map[string]string{"rent": "30000"},
	})
	require.NoError(t, err)
	assert.True(t, budget.RevenueTarget.Equal(money("100000")))
	assert.True(t, budget.ExpenseLimits["rent"].Equal(money("30000")))
	require.Len(t, budgets.upserts, 1)
}

func TestUpsertBudgetValidation(t *testing.T) {
	svc := newFinanceServiceForTest(&mockFinancePayments{}, &mockFinanceEnrollments{}, &mockFeeRepo{}, &mockExpenseRepo{}, &mockBudgetRepo{}, &stubPayoutTotal{}, nil)

	_, err := svc.UpsertBudget(context.Background(), dto.UpsertBudgetRequest{Month: "bad", RevenueTarget: "100"})
	require.Error(t, err)

	_, err = svc.UpsertBudget(context.Background(), dto.UpsertBudgetRequest{Month: "2024-03", RevenueTarget: "lots"})
	require.Error(t, err)

	_, err = svc.UpsertBudget(context.Background(), dto.UpsertBudgetRequest{
		Month:         "2024-03",
		RevenueTarget: "100",
		ExpenseLimits: map[string]string{"rent": "cheap"},
	})
	require.Error(t, err)
}

func TestRecordExpense(t *testing.T) {
	expenses := &mockExpenseRepo{}
	svc := newFinanceServiceForTest(&mockFinancePayments{}, &mockFinanceEnrollments{}, &mockFeeRepo{}, expenses, &mockBudgetRepo{}, &stubPayoutTotal{}, nil)

	expense, err := svc.RecordExpense(context.Background(), dto.RecordExpenseRequest{
		Category: "rent",
		Amount:   "30000",
		SpentOn:  "2024-03-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "rent", expense.Category)
	require.Len(t, expenses.created, 1)

	_, err = svc.RecordExpense(context.Background(), dto.RecordExpenseRequest{Category: "rent", Amount: "-5", SpentOn: "2024-03-01"})
	require.Error(t, err)

	_, err = svc.RecordExpense(context.Background(), dto.RecordExpenseRequest{Category: "rent", Amount: "10", SpentOn: "yesterday"})
	require.Error(t, err)
}
