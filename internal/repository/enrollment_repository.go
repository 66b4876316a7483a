package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/muse-ops-api/internal/models"
)

const enrollmentColumns = "id, student_id, batch_id, instrument_id, frequency, enrolled_on, active"

// EnrollmentRepository manages student-to-batch enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByStudent returns every enrollment for the student, including inactive
// ones. Callers filter; the ledger derivation needs the full history.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE student_id = $1 ORDER BY enrolled_on DESC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments by student: %w", err)
	}
	return enrollments, nil
}

// ListByBatch returns every enrollment in the batch.
func (r *EnrollmentRepository) ListByBatch(ctx context.Context, batchID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE batch_id = $1 ORDER BY enrolled_on DESC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, batchID); err != nil {
		return nil, fmt.Errorf("list enrollments by batch: %w", err)
	}
	return enrollments, nil
}

// ListActive returns all active enrollments across the school.
func (r *EnrollmentRepository) ListActive(ctx context.Context) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE active = true", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return enrollments, nil
}

// Create inserts a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledOn.IsZero() {
		enrollment.EnrolledOn = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, batch_id, instrument_id, frequency, enrolled_on, active)
        VALUES (:id, :student_id, :batch_id, :instrument_id, :frequency, :enrolled_on, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Deactivate closes an enrollment without deleting its history.
func (r *EnrollmentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE enrollments SET active = false WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate enrollment: %w", err)
	}
	return nil
}
