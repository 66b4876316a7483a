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

const attendanceColumns = "id, student_id, batch_id, session_date, status, notes, created_at, updated_at"

// AttendanceRepository manages per-student session marks. One row exists per
// (student, batch, date); re-marking overwrites in place.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListByStudent returns every attendance mark for the student.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Attendance, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE student_id = $1 ORDER BY session_date DESC", attendanceColumns)
	var marks []models.Attendance
	if err := r.db.SelectContext(ctx, &marks, query, studentID); err != nil {
		return nil, fmt.Errorf("list attendance by student: %w", err)
	}
	return marks, nil
}

// List returns marks matching the provided filters.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, *models.Pagination, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("session_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("session_date <= $%d", len(args)+1))
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

	query := fmt.Sprintf("SELECT %s FROM attendance WHERE %s ORDER BY session_date DESC LIMIT %d OFFSET %d", attendanceColumns, where, size, offset)
	var marks []models.Attendance
	if err := r.db.SelectContext(ctx, &marks, query, args...); err != nil {
		return nil, nil, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, nil, fmt.Errorf("count attendance: %w", err)
	}
	return marks, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Upsert writes a mark, overwriting any previous mark for the same
// (student, batch, date) triple.
func (r *AttendanceRepository) Upsert(ctx context.Context, mark *models.Attendance) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = now
	}
	mark.UpdatedAt = now
	const query = `INSERT INTO attendance (id, student_id, batch_id, session_date, status, notes, created_at, updated_at)
        VALUES (:id, :student_id, :batch_id, :session_date, :status, :notes, :created_at, :updated_at)
        ON CONFLICT (student_id, batch_id, session_date)
        DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}
