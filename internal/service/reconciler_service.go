package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/dto"
	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type reconcilerBatchLister interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Batch, error)
}

type teacherAttendanceStore interface {
	ListByTeacher(ctx context.Context, filter models.TeacherAttendanceFilter) ([]models.TeacherAttendance, error)
	Upsert(ctx context.Context, record *models.TeacherAttendance) error
}

// ReconcilerService compares scheduled sessions against recorded
// conducted/not-conducted marks. Expected counts derive solely from batch
// recurrence; ad hoc marks raise conducted totals but never expectations.
type ReconcilerService struct {
	batches    reconcilerBatchLister
	attendance teacherAttendanceStore
	logger     *zap.Logger
	now        func() time.Time
}

// NewReconcilerService constructs a ReconcilerService.
func NewReconcilerService(batches reconcilerBatchLister, attendance teacherAttendanceStore, logger *zap.Logger) *ReconcilerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcilerService{batches: batches, attendance: attendance, logger: logger, now: time.Now}
}

// Reconciliation builds the month-by-month compliance view for a teacher
// over an inclusive month-key range ("2006-01").
func (s *ReconcilerService) Reconciliation(ctx context.Context, teacherID, fromMonth, toMonth string) (*dto.TeacherReconciliationResponse, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacherId is required")
	}
	from, err := models.ParseMonthKey(fromMonth)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from month, expected YYYY-MM")
	}
	to, err := models.ParseMonthKey(toMonth)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid to month, expected YYYY-MM")
	}
	if from.After(to) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "month range is inverted")
	}

	batches, err := s.batches.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	_, rangeEnd := models.MonthRange(to)
	marks, err := s.attendance.ListByTeacher(ctx, models.TeacherAttendanceFilter{
		TeacherID: teacherID,
		DateFrom:  &from,
		DateTo:    &rangeEnd,
	})
	if err != nil {
		return nil, err
	}

	rows := BuildMonthlyBreakdown(batches, marks, from, to)
	resp := &dto.TeacherReconciliationResponse{
		TeacherID:        teacherID,
		MonthlyBreakdown: rows,
	}
	currentKey := s.now().UTC().Format(models.MonthKeyLayout)
	for _, row := range rows {
		if row.Month == currentKey {
			resp.CurrentMonthRate = ComplianceRate(row.Expected, row.Conducted)
			break
		}
	}
	return resp, nil
}

// RecordMark upserts a teacher session mark. On a date where none of the
// teacher's batches are scheduled, a reason tag is required and the chosen
// batch must still be one of the teacher's own.
func (s *ReconcilerService) RecordMark(ctx context.Context, req dto.TeacherMarkRequest) (*models.TeacherAttendance, error) {
	sessionDate, err := time.Parse("2006-01-02", req.SessionDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid sessionDate, expected YYYY-MM-DD")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported session status")
	}

	batches, err := s.batches.ListByTeacher(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}
	var target *models.Batch
	scheduledToday := false
	for i := range batches {
		if batches[i].ID == req.BatchID {
			target = &batches[i]
		}
		if batches[i].RunsOn(sessionDate.Weekday()) {
			scheduledToday = true
		}
	}
	if target == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch is not assigned to teacher")
	}

	record := &models.TeacherAttendance{
		TeacherID:   req.TeacherID,
		BatchID:     req.BatchID,
		SessionDate: sessionDate,
		Status:      req.Status,
		Notes:       req.Notes,
	}
	if !scheduledToday {
		if req.Reason == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required for unscheduled sessions")
		}
		reason := models.SessionReason(*req.Reason)
		if !reason.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported session reason")
		}
		record.Reason = &reason
	}

	if err := s.attendance.Upsert(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// BuildMonthlyBreakdown computes expected-versus-conducted rows for each
// month in the inclusive range. Pure function of its snapshot inputs.
func BuildMonthlyBreakdown(batches []models.Batch, marks []models.TeacherAttendance, from, to time.Time) []dto.MonthlyReconciliationRow {
	conductedByMonth := make(map[string]int)
	for _, mark := range marks {
		if mark.Status != models.SessionConducted {
			continue
		}
		conductedByMonth[mark.SessionDate.UTC().Format(models.MonthKeyLayout)]++
	}

	var rows []dto.MonthlyReconciliationRow
	for cursor := from; !cursor.After(to); cursor = cursor.AddDate(0, 1, 0) {
		monthStart, monthEnd := models.MonthRange(cursor)
		expected := 0
		for _, batch := range batches {
			expected += models.ExpectedSessionCount(batch.Segments(), monthStart, monthEnd)
		}
		key := cursor.Format(models.MonthKeyLayout)
		conducted := conductedByMonth[key]
		delta := conducted - expected
		rows = append(rows, dto.MonthlyReconciliationRow{
			Month:     key,
			Expected:  expected,
			Conducted: conducted,
			Delta:     delta,
			Severity:  severityFor(delta),
		})
	}
	return rows
}

// ComplianceRate returns conducted/expected as a percentage. Zero expected
// sessions rate as fully compliant: nothing was owed, nothing was missed.
func ComplianceRate(expected, conducted int) float64 {
	if expected == 0 {
		return 100
	}
	return float64(conducted) / float64(expected) * 100
}

func severityFor(delta int) string {
	switch {
	case delta >= 0:
		return dto.SeverityCompliant
	case delta == -1:
		return dto.SeverityShortOne
	default:
		return dto.SeverityShortMany
	}
}
