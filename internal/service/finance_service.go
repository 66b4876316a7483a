package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/dto"
	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type financePaymentLister interface {
	ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Payment, error)
}

type financeEnrollmentLister interface {
	ListActive(ctx context.Context) ([]models.Enrollment, error)
}

type financeFeeLister interface {
	FeeStructure(ctx context.Context) (models.FeeStructure, error)
}

type financeExpenseStore interface {
	List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Expense, error)
	Create(ctx context.Context, expense *models.Expense) error
}

type financeBudgetStore interface {
	GetByMonth(ctx context.Context, month string) (*models.Budget, error)
	Upsert(ctx context.Context, budget *models.Budget) error
}

type payoutTotaler interface {
	MonthlyPayoutTotal(ctx context.Context) (decimal.Decimal, error)
}

// FinanceServiceConfig tunes the finance summary layer.
type FinanceServiceConfig struct {
	CacheTTL time.Duration
}

// FinanceService derives monthly revenue, expense and profit figures and
// compares them against stored budgets. Revenue is reported on both bases:
// cash (payments received in the month) and accrual (active plans spread
// over the months they cover).
type FinanceService struct {
	payments    financePaymentLister
	enrollments financeEnrollmentLister
	fees        financeFeeLister
	expenses    financeExpenseStore
	budgets     financeBudgetStore
	payouts     payoutTotaler
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
	cfg         FinanceServiceConfig
}

// NewFinanceService constructs a FinanceService.
func NewFinanceService(payments financePaymentLister, enrollments financeEnrollmentLister, fees financeFeeLister, expenses financeExpenseStore, budgets financeBudgetStore, payouts payoutTotaler, cache *CacheService, logger *zap.Logger, cfg FinanceServiceConfig) *FinanceService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceService{
		payments:    payments,
		enrollments: enrollments,
		fees:        fees,
		expenses:    expenses,
		budgets:     budgets,
		payouts:     payouts,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// MonthSummary builds the financial picture for one month key. The boolean
// indicates cache utilisation. Realized figures are scoped to the month;
// projected figures always accrue the current enrollment snapshot, even for
// past month keys.
func (s *FinanceService) MonthSummary(ctx context.Context, monthKey string) (*dto.FinanceMonthSummary, bool, error) {
	month, err := models.ParseMonthKey(monthKey)
	if err != nil {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "invalid month, expected YYYY-MM")
	}

	cacheKey := fmt.Sprintf("finance:summary:%s", monthKey)
	if s.cache != nil {
		var cached dto.FinanceMonthSummary
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	realized, err := s.realizedRevenue(ctx, month)
	if err != nil {
		return nil, false, err
	}
	projected, err := s.projectedRevenue(ctx)
	if err != nil {
		return nil, false, err
	}
	teacherExpense, err := s.payouts.MonthlyPayoutTotal(ctx)
	if err != nil {
		return nil, false, err
	}
	fixedCosts, err := s.fixedCosts(ctx, month)
	if err != nil {
		return nil, false, err
	}

	totalExpenses := teacherExpense.Add(fixedCosts)
	summary := &dto.FinanceMonthSummary{
		Month:            monthKey,
		RealizedRevenue:  realized,
		ProjectedRevenue: projected,
		TeacherExpense:   teacherExpense,
		FixedCosts:       fixedCosts,
		TotalExpenses:    totalExpenses,
		ProjectedProfit:  projected.Sub(totalExpenses),
		RealizedProfit:   realized.Sub(totalExpenses),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("finance cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return summary, false, nil
}

// BudgetComparison diffs a month's actual figures against its stored budget.
// A month without a budget compares against zeros rather than failing, so
// unplanned spend still surfaces.
func (s *FinanceService) BudgetComparison(ctx context.Context, monthKey string) (*dto.BudgetComparisonResponse, error) {
	month, err := models.ParseMonthKey(monthKey)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid month, expected YYYY-MM")
	}

	budget, err := s.budgets.GetByMonth(ctx, monthKey)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			budget = &models.Budget{Month: monthKey, ExpenseLimits: map[string]decimal.Decimal{}}
		} else {
			return nil, err
		}
	}

	realized, err := s.realizedRevenue(ctx, month)
	if err != nil {
		return nil, err
	}
	from, to := models.MonthRange(month)
	expenses, err := s.expenses.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return BuildBudgetComparison(monthKey, budget, realized, expenses), nil
}

// UpsertBudget stores the budget for a month, replacing any previous one.
func (s *FinanceService) UpsertBudget(ctx context.Context, req dto.UpsertBudgetRequest) (*models.Budget, error) {
	if _, err := models.ParseMonthKey(req.Month); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid month, expected YYYY-MM")
	}
	target, err := decimal.NewFromString(req.RevenueTarget)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid revenueTarget amount")
	}
	limits := make(map[string]decimal.Decimal, len(req.ExpenseLimits))
	for category, raw := range req.ExpenseLimits {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid limit for category %q", category))
		}
		limits[category] = amount
	}

	budget := &models.Budget{
		Month:         req.Month,
		RevenueTarget: target,
		ExpenseLimits: limits,
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.budgets.Upsert(ctx, budget); err != nil {
		return nil, err
	}
	s.invalidateMonth(ctx, req.Month)
	return budget, nil
}

// RecordExpense stores a fixed cost entry.
func (s *FinanceService) RecordExpense(ctx context.Context, req dto.RecordExpenseRequest) (*models.Expense, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid expense amount")
	}
	spentOn, err := time.Parse("2006-01-02", req.SpentOn)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid spentOn date, expected YYYY-MM-DD")
	}

	expense := &models.Expense{
		Category: req.Category,
		Amount:   amount,
		SpentOn:  spentOn,
		Notes:    req.Notes,
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, err
	}
	s.invalidateMonth(ctx, spentOn.Format(models.MonthKeyLayout))
	return expense, nil
}

// ListExpenses returns expenses matching the filter.
func (s *FinanceService) ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error) {
	return s.expenses.List(ctx, filter)
}

func (s *FinanceService) realizedRevenue(ctx context.Context, month time.Time) (decimal.Decimal, error) {
	from, to := models.MonthRange(month)
	payments, err := s.payments.ListByDateRange(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range payments {
		// Legacy rows can carry negative amounts; they count as zero here.
		if p.Amount.IsNegative() {
			continue
		}
		total = total.Add(p.Amount)
	}
	return total, nil
}

func (s *FinanceService) projectedRevenue(ctx context.Context) (decimal.Decimal, error) {
	enrollments, err := s.enrollments.ListActive(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	fees, err := s.fees.FeeStructure(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return ProjectedMonthlyRevenue(enrollments, fees), nil
}

func (s *FinanceService) fixedCosts(ctx context.Context, month time.Time) (decimal.Decimal, error) {
	from, to := models.MonthRange(month)
	expenses, err := s.expenses.ListByDateRange(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range expenses {
		if e.Amount.IsNegative() {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (s *FinanceService) invalidateMonth(ctx context.Context, monthKey string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("finance:summary:%s", monthKey)); err != nil {
		s.logger.Warn("finance cache invalidate failed", zap.String("month", monthKey), zap.Error(err))
	}
}

// ProjectedMonthlyRevenue accrues every active enrollment's plan to a
// monthly figure. Instruments with no fee entry contribute zero.
func ProjectedMonthlyRevenue(enrollments []models.Enrollment, fees models.FeeStructure) decimal.Decimal {
	total := decimal.Zero
	for _, enrollment := range enrollments {
		if !enrollment.Active {
			continue
		}
		total = total.Add(MonthlyAccrualRate(enrollment.Frequency, fees.Fee(enrollment.InstrumentID)))
	}
	return total
}

// MonthlyAccrualRate spreads a plan's fee over the months it covers. Plans
// longer than a quarter are priced off the quarterly fee since schedules do
// not carry half-yearly or yearly prices.
func MonthlyAccrualRate(frequency models.PaymentFrequency, fee models.InstrumentFee) decimal.Decimal {
	three := decimal.NewFromInt(3)
	switch frequency {
	case models.FrequencyMonthly:
		return fee.Monthly
	case models.FrequencyQuarterly, models.FrequencyHalfYearly, models.FrequencyYearly:
		return fee.Quarterly.Div(three)
	default:
		return decimal.Zero
	}
}

// BuildBudgetComparison diffs actuals against a budget. Every category on
// either side appears exactly once, sorted by name. Pure function.
func BuildBudgetComparison(monthKey string, budget *models.Budget, realizedRevenue decimal.Decimal, expenses []models.Expense) *dto.BudgetComparisonResponse {
	actualByCategory := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		amount := e.Amount
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		actualByCategory[e.Category] = actualByCategory[e.Category].Add(amount)
	}

	categories := make(map[string]struct{}, len(actualByCategory)+len(budget.ExpenseLimits))
	for category := range actualByCategory {
		categories[category] = struct{}{}
	}
	for category := range budget.ExpenseLimits {
		categories[category] = struct{}{}
	}
	names := make([]string, 0, len(categories))
	for category := range categories {
		names = append(names, category)
	}
	sort.Strings(names)

	lines := make([]dto.CategoryBudgetLine, 0, len(names))
	for _, category := range names {
		lines = append(lines, dto.CategoryBudgetLine{
			Category:   category,
			BudgetLine: CompareBudgetLine(budget.ExpenseLimits[category], actualByCategory[category]),
		})
	}

	return &dto.BudgetComparisonResponse{
		Month:    monthKey,
		Revenue:  CompareBudgetLine(budget.RevenueTarget, realizedRevenue),
		Expenses: lines,
	}
}

// CompareBudgetLine diffs one actual against its target. A zero target
// yields zero percent regardless of spend; it never divides.
func CompareBudgetLine(budgeted, actual decimal.Decimal) dto.BudgetLine {
	line := dto.BudgetLine{
		Budgeted: budgeted,
		Actual:   actual,
		Variance: actual.Sub(budgeted),
	}
	if !budgeted.IsZero() {
		line.Percent = int(actual.Div(budgeted).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	}
	return line
}
