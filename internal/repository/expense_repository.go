package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/muse-ops-api/internal/models"
)

// ExpenseRepository manages fixed cost records.
type ExpenseRepository struct {
	db *sqlx.DB
}

// NewExpenseRepository constructs an ExpenseRepository.
func NewExpenseRepository(db *sqlx.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// List returns expenses matching the provided filters.
func (r *ExpenseRepository) List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("spent_on >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("spent_on <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	where := strings.Join(conditions, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 100
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, category, amount, spent_on, notes, created_at FROM expenses WHERE %s ORDER BY spent_on DESC LIMIT %d OFFSET %d", where, size, offset)
	var expenses []models.Expense
	if err := r.db.SelectContext(ctx, &expenses, query, args...); err != nil {
		return nil, nil, fmt.Errorf("list expenses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM expenses WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, nil, fmt.Errorf("count expenses: %w", err)
	}
	return expenses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListByDateRange returns every expense spent in the inclusive range,
// without pagination. Aggregation callers must see every row.
func (r *ExpenseRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Expense, error) {
	query := "SELECT id, category, amount, spent_on, notes, created_at FROM expenses WHERE spent_on >= $1 AND spent_on <= $2 ORDER BY spent_on"
	var expenses []models.Expense
	if err := r.db.SelectContext(ctx, &expenses, query, from, to); err != nil {
		return nil, fmt.Errorf("list expenses by date range: %w", err)
	}
	return expenses, nil
}

// Create inserts a fixed cost record.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO expenses (id, category, amount, spent_on, notes, created_at)
        VALUES (:id, :category, :amount, :spent_on, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}
