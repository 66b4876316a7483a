package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/dto"
	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type attendanceStore interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, *models.Pagination, error)
	Upsert(ctx context.Context, mark *models.Attendance) error
}

// AttendanceService writes per-student session marks. Marks are keyed by
// (student, batch, date): re-marking the same session replaces the previous
// mark, so bulk submissions can be retried safely.
type AttendanceService struct {
	attendance attendanceStore
	cache      *CacheService
	logger     *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(attendance attendanceStore, cache *CacheService, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{attendance: attendance, cache: cache, logger: logger}
}

// List returns marks matching the filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, *models.Pagination, error) {
	return s.attendance.List(ctx, filter)
}

// Mark upserts a single attendance mark.
func (s *AttendanceService) Mark(ctx context.Context, req dto.MarkAttendanceRequest) (*models.Attendance, error) {
	sessionDate, err := time.Parse("2006-01-02", req.SessionDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid sessionDate, expected YYYY-MM-DD")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported attendance status")
	}

	mark := &models.Attendance{
		StudentID:   req.StudentID,
		BatchID:     req.BatchID,
		SessionDate: sessionDate,
		Status:      req.Status,
		Notes:       req.Notes,
	}
	if err := s.attendance.Upsert(ctx, mark); err != nil {
		return nil, err
	}
	s.invalidateLedger(ctx, req.StudentID)
	return mark, nil
}

// BulkMark upserts marks for several students of one batch session. The
// whole payload is validated before any row is written so a rejected request
// changes nothing.
func (s *AttendanceService) BulkMark(ctx context.Context, req dto.BulkMarkAttendanceRequest) ([]models.Attendance, error) {
	sessionDate, err := time.Parse("2006-01-02", req.SessionDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid sessionDate, expected YYYY-MM-DD")
	}
	for _, entry := range req.Marks {
		if !entry.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported attendance status for student %s", entry.StudentID))
		}
	}

	marks := make([]models.Attendance, 0, len(req.Marks))
	for _, entry := range req.Marks {
		mark := models.Attendance{
			StudentID:   entry.StudentID,
			BatchID:     req.BatchID,
			SessionDate: sessionDate,
			Status:      entry.Status,
			Notes:       entry.Notes,
		}
		if err := s.attendance.Upsert(ctx, &mark); err != nil {
			return nil, err
		}
		s.invalidateLedger(ctx, entry.StudentID)
		marks = append(marks, mark)
	}
	return marks, nil
}

func (s *AttendanceService) invalidateLedger(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("ledger:student:%s:*", studentID)); err != nil {
		s.logger.Warn("ledger cache invalidate failed", zap.String("studentId", studentID), zap.Error(err))
	}
}
