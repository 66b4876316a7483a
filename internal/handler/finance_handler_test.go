package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/muse-ops-api/internal/dto"
	"github.com/noah-isme/muse-ops-api/internal/models"
)

type fakeFinanceSrv struct {
	summary     *dto.FinanceMonthSummary
	summaryHit  bool
	summaryErr  error
	comparison  *dto.BudgetComparisonResponse
	budget      *models.Budget
	expense     *models.Expense
	lastRequest dto.RecordExpenseRequest
}

func (f *fakeFinanceSrv) MonthSummary(context.Context, string) (*dto.FinanceMonthSummary, bool, error) {
	return f.summary, f.summaryHit, f.summaryErr
}

func (f *fakeFinanceSrv) BudgetComparison(context.Context, string) (*dto.BudgetComparisonResponse, error) {
	return f.comparison, nil
}

func (f *fakeFinanceSrv) UpsertBudget(context.Context, dto.UpsertBudgetRequest) (*models.Budget, error) {
	return f.budget, nil
}

func (f *fakeFinanceSrv) RecordExpense(_ context.Context, req dto.RecordExpenseRequest) (*models.Expense, error) {
	f.lastRequest = req
	return f.expense, nil
}

func (f *fakeFinanceSrv) ListExpenses(context.Context, models.ExpenseFilter) ([]models.Expense, *models.Pagination, error) {
	return nil, nil, nil
}

func TestFinanceHandlerSummaryRequiresMonth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewFinanceHandler(&fakeFinanceSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/finance/summary", nil)

	h.Summary(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFinanceHandlerSummarySuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewFinanceHandler(&fakeFinanceSrv{
		summary: &dto.FinanceMonthSummary{
			Month:           "2024-02",
			RealizedRevenue: decimal.NewFromInt(11100),
		},
		summaryHit: true,
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/finance/summary?month=2024-02", nil)

	h.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data dto.FinanceMonthSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-02", body.Data.Month)
	assert.True(t, body.Data.RealizedRevenue.Equal(decimal.NewFromInt(11100)))
}

func TestFinanceHandlerRecordExpense(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := &fakeFinanceSrv{expense: &models.Expense{ID: "exp-1", Category: "rent"}}
	h := NewFinanceHandler(fake)

	payload := `{"category":"rent","amount":"4000","spentOn":"2024-02-01"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/finance/expenses", strings.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")

	h.RecordExpense(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "rent", fake.lastRequest.Category)
	assert.Equal(t, "4000", fake.lastRequest.Amount)
}

func TestFinanceHandlerRecordExpenseRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewFinanceHandler(&fakeFinanceSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/finance/expenses", strings.NewReader(`{"category":"rent"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.RecordExpense(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
