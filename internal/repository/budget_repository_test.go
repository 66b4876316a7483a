package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

func TestBudgetRepositoryGetByMonth(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBudgetRepository(db)

	rows := sqlmock.NewRows([]string{"month", "revenue_target", "expense_limits", "updated_at"}).
		AddRow("2024-03", "100000", []byte(`{"rent":"30000"}`), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT month, revenue_target, expense_limits, updated_at FROM budgets WHERE month = $1")).
		WithArgs("2024-03").
		WillReturnRows(rows)

	budget, err := repo.GetByMonth(context.Background(), "2024-03")
	require.NoError(t, err)
	assert.True(t, budget.RevenueTarget.Equal(decimal.RequireFromString("100000")))
	assert.True(t, budget.ExpenseLimits["rent"].Equal(decimal.RequireFromString("30000")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepositoryGetByMonthMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBudgetRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT month, revenue_target, expense_limits, updated_at FROM budgets WHERE month = $1")).
		WithArgs("2024-04").
		WillReturnRows(sqlmock.NewRows([]string{"month", "revenue_target", "expense_limits", "updated_at"}))

	_, err := repo.GetByMonth(context.Background(), "2024-04")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBudgetRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBudgetRepository(db)

	mock.ExpectExec("(?s)INSERT INTO budgets .*ON CONFLICT \\(month\\)").
		WithArgs("2024-03", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	budget := &models.Budget{
		Month:         "2024-03",
		RevenueTarget: decimal.RequireFromString("100000"),
		ExpenseLimits: map[string]decimal.Decimal{"rent": decimal.RequireFromString("30000")},
	}
	require.NoError(t, repo.Upsert(context.Background(), budget))
	assert.NoError(t, mock.ExpectationsWereMet())
}
