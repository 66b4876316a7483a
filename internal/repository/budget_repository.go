package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

// BudgetRepository manages monthly budget rows. The month key is the primary
// key; an upsert is a full replacement, last write wins.
type BudgetRepository struct {
	db *sqlx.DB
}

// NewBudgetRepository constructs a BudgetRepository.
func NewBudgetRepository(db *sqlx.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

type budgetRow struct {
	Month         string          `db:"month"`
	RevenueTarget decimal.Decimal `db:"revenue_target"`
	ExpenseLimits []byte          `db:"expense_limits"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// GetByMonth fetches the budget stored for the month key.
func (r *BudgetRepository) GetByMonth(ctx context.Context, month string) (*models.Budget, error) {
	const query = `SELECT month, revenue_target, expense_limits, updated_at FROM budgets WHERE month = $1`
	var row budgetRow
	if err := r.db.GetContext(ctx, &row, query, month); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no budget for month")
		}
		return nil, fmt.Errorf("get budget: %w", err)
	}

	budget := &models.Budget{
		Month:         row.Month,
		RevenueTarget: row.RevenueTarget,
		ExpenseLimits: map[string]decimal.Decimal{},
		UpdatedAt:     row.UpdatedAt,
	}
	if len(row.ExpenseLimits) > 0 {
		if err := json.Unmarshal(row.ExpenseLimits, &budget.ExpenseLimits); err != nil {
			return nil, fmt.Errorf("unmarshal expense limits: %w", err)
		}
	}
	return budget, nil
}

// Upsert stores the budget for its month, replacing any previous row.
func (r *BudgetRepository) Upsert(ctx context.Context, budget *models.Budget) error {
	if budget.UpdatedAt.IsZero() {
		budget.UpdatedAt = time.Now().UTC()
	}
	limits, err := json.Marshal(budget.ExpenseLimits)
	if err != nil {
		return fmt.Errorf("marshal expense limits: %w", err)
	}
	const query = `INSERT INTO budgets (month, revenue_target, expense_limits, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (month)
        DO UPDATE SET revenue_target = EXCLUDED.revenue_target, expense_limits = EXCLUDED.expense_limits, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, budget.Month, budget.RevenueTarget, limits, budget.UpdatedAt); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}
