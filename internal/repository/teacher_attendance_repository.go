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

const teacherAttendanceColumns = "id, teacher_id, batch_id, session_date, status, reason, notes, created_at, updated_at"

// TeacherAttendanceRepository manages conducted/not-conducted marks.
type TeacherAttendanceRepository struct {
	db *sqlx.DB
}

// NewTeacherAttendanceRepository constructs a TeacherAttendanceRepository.
func NewTeacherAttendanceRepository(db *sqlx.DB) *TeacherAttendanceRepository {
	return &TeacherAttendanceRepository{db: db}
}

// ListByTeacher returns teacher marks matching the filter.
func (r *TeacherAttendanceRepository) ListByTeacher(ctx context.Context, filter models.TeacherAttendanceFilter) ([]models.TeacherAttendance, error) {
	args := []interface{}{filter.TeacherID}
	conditions := []string{"teacher_id = $1"}

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

	query := fmt.Sprintf("SELECT %s FROM teacher_attendance WHERE %s ORDER BY session_date ASC", teacherAttendanceColumns, strings.Join(conditions, " AND "))
	var marks []models.TeacherAttendance
	if err := r.db.SelectContext(ctx, &marks, query, args...); err != nil {
		return nil, fmt.Errorf("list teacher attendance: %w", err)
	}
	return marks, nil
}

// Upsert writes a mark, overwriting any previous mark for the same
// (teacher, batch, date) triple.
func (r *TeacherAttendanceRepository) Upsert(ctx context.Context, mark *models.TeacherAttendance) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = now
	}
	mark.UpdatedAt = now
	const query = `INSERT INTO teacher_attendance (id, teacher_id, batch_id, session_date, status, reason, notes, created_at, updated_at)
        VALUES (:id, :teacher_id, :batch_id, :session_date, :status, :reason, :notes, :created_at, :updated_at)
        ON CONFLICT (teacher_id, batch_id, session_date)
        DO UPDATE SET status = EXCLUDED.status, reason = EXCLUDED.reason, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("upsert teacher attendance: %w", err)
	}
	return nil
}
