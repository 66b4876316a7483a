package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/muse-ops-api/internal/dto"
	"github.com/noah-isme/muse-ops-api/internal/middleware"
	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
	"github.com/noah-isme/muse-ops-api/pkg/response"
)

type financeProvider interface {
	MonthSummary(ctx context.Context, monthKey string) (*dto.FinanceMonthSummary, bool, error)
	BudgetComparison(ctx context.Context, monthKey string) (*dto.BudgetComparisonResponse, error)
	UpsertBudget(ctx context.Context, req dto.UpsertBudgetRequest) (*models.Budget, error)
	RecordExpense(ctx context.Context, req dto.RecordExpenseRequest) (*models.Expense, error)
	ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error)
}

// FinanceHandler exposes finance summary, budget and expense endpoints.
type FinanceHandler struct {
	finance financeProvider
}

// NewFinanceHandler constructs FinanceHandler.
func NewFinanceHandler(finance financeProvider) *FinanceHandler {
	return &FinanceHandler{finance: finance}
}

// Summary godoc
// @Summary Financial summary for one month
// @Tags Finance
// @Produce json
// @Param month query string true "Month YYYY-MM"
// @Success 200 {object} response.Envelope
// @Router /finance/summary [get]
func (h *FinanceHandler) Summary(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month is required"))
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.finance.MonthSummary(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}

// BudgetComparison godoc
// @Summary Actuals versus budget for one month
// @Tags Finance
// @Produce json
// @Param month query string true "Month YYYY-MM"
// @Success 200 {object} response.Envelope
// @Router /finance/budgets/comparison [get]
func (h *FinanceHandler) BudgetComparison(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month is required"))
		return
	}
	comparison, err := h.finance.BudgetComparison(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comparison, nil)
}

// UpsertBudget godoc
// @Summary Create or replace the budget of a month
// @Tags Finance
// @Accept json
// @Produce json
// @Param payload body dto.UpsertBudgetRequest true "Budget payload"
// @Success 200 {object} response.Envelope
// @Router /finance/budgets [put]
func (h *FinanceHandler) UpsertBudget(c *gin.Context) {
	var req dto.UpsertBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	budget, err := h.finance.UpsertBudget(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, budget, nil)
}

// RecordExpense godoc
// @Summary Record a fixed cost
// @Tags Finance
// @Accept json
// @Produce json
// @Param payload body dto.RecordExpenseRequest true "Expense payload"
// @Success 201 {object} response.Envelope
// @Router /finance/expenses [post]
func (h *FinanceHandler) RecordExpense(c *gin.Context) {
	var req dto.RecordExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	expense, err := h.finance.RecordExpense(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, expense)
}

// ListExpenses godoc
// @Summary List recorded expenses
// @Tags Finance
// @Produce json
// @Param category query string false "Filter by category"
// @Param from query string false "Spent on or after YYYY-MM-DD"
// @Param to query string false "Spent on or before YYYY-MM-DD"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /finance/expenses [get]
func (h *FinanceHandler) ListExpenses(c *gin.Context) {
	var filter models.ExpenseFilter
	filter.Category = c.Query("category")
	from, err := parseDateQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.DateFrom = from
	filter.DateTo = to
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	expenses, pagination, err := h.finance.ListExpenses(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expenses, pagination)
}
