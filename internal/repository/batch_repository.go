package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

const batchColumns = "id, name, instrument_id, teacher_id, recurrence, start_time, end_time, capacity, active, created_at, updated_at"

// BatchRepository manages recurring class groups.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs a BatchRepository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// List returns batches matching the provided filters.
func (r *BatchRepository) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, *models.Pagination, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.InstrumentID != "" {
		conditions = append(conditions, fmt.Sprintf("instrument_id = $%d", len(args)+1))
		args = append(args, filter.InstrumentID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	where := strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM batches WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d", batchColumns, where, column, order, size, offset)
	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, nil, fmt.Errorf("list batches: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM batches WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, nil, fmt.Errorf("count batches: %w", err)
	}
	return batches, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetByID fetches a batch by ID.
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*models.Batch, error) {
	query := fmt.Sprintf("SELECT %s FROM batches WHERE id = $1", batchColumns)
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &batch, nil
}

// ListByTeacher returns the active batches assigned to a teacher.
func (r *BatchRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Batch, error) {
	query := fmt.Sprintf("SELECT %s FROM batches WHERE teacher_id = $1 ORDER BY name ASC", batchColumns)
	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, query, teacherID); err != nil {
		return nil, fmt.Errorf("list batches by teacher: %w", err)
	}
	return batches, nil
}

// ListActive returns every active batch, without pagination.
func (r *BatchRepository) ListActive(ctx context.Context) ([]models.Batch, error) {
	query := fmt.Sprintf("SELECT %s FROM batches WHERE active = true ORDER BY name ASC", batchColumns)
	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, query); err != nil {
		return nil, fmt.Errorf("list active batches: %w", err)
	}
	return batches, nil
}

// Create inserts a new batch. The recurrence string is normalised before it
// is stored so downstream parsing never sees malformed segments.
func (r *BatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	batch.Recurrence = models.NormalizeRecurrence(batch.Recurrence)
	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now
	const query = `INSERT INTO batches (id, name, instrument_id, teacher_id, recurrence, start_time, end_time, capacity, active, created_at, updated_at)
        VALUES (:id, :name, :instrument_id, :teacher_id, :recurrence, :start_time, :end_time, :capacity, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// Update modifies an existing batch.
func (r *BatchRepository) Update(ctx context.Context, batch *models.Batch) error {
	batch.Recurrence = models.NormalizeRecurrence(batch.Recurrence)
	batch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE batches SET name = :name, instrument_id = :instrument_id, teacher_id = :teacher_id, recurrence = :recurrence, start_time = :start_time, end_time = :end_time, capacity = :capacity, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}
