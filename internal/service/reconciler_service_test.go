package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/dto"
	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type mockBatchRepo struct {
	batches []models.Batch
	calls   int
	err     error
}

func (m *mockBatchRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.Batch, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.batches, nil
}

type mockTeacherAttendanceRepo struct {
	marks   []models.TeacherAttendance
	upserts []models.TeacherAttendance
	err     error
}

func (m *mockTeacherAttendanceRepo) ListByTeacher(ctx context.Context, filter models.TeacherAttendanceFilter) ([]models.TeacherAttendance, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.marks, nil
}

func (m *mockTeacherAttendanceRepo) Upsert(ctx context.Context, record *models.TeacherAttendance) error {
	if m.err != nil {
		return m.err
	}
	m.upserts = append(m.upserts, *record)
	return nil
}

func conductedMarks(teacherID, batchID string, dates ...string) []models.TeacherAttendance {
	marks := make([]models.TeacherAttendance, 0, len(dates))
	for _, d := range dates {
		marks = append(marks, models.TeacherAttendance{
			TeacherID:   teacherID,
			BatchID:     batchID,
			SessionDate: date(d),
			Status:      models.SessionConducted,
		})
	}
	return marks
}

func TestBuildMonthlyBreakdownSeverities(t *testing.T) {
	// January 2024 has five Mondays, February has four.
	batches := []models.Batch{{ID: "b1", Recurrence: "MON 17:00-18:00", Active: true}}
	marks := conductedMarks("t1", "b1", "2024-01-08", "2024-01-15", "2024-01-22", "2024-01-29")
	marks = append(marks, conductedMarks("t1", "b1", "2024-02-05", "2024-02-12", "2024-02-19", "2024-02-26")...)
	// A not-conducted mark must not raise the conducted count.
	marks = append(marks, models.TeacherAttendance{
		TeacherID: "t1", BatchID: "b1", SessionDate: date("2024-01-01"), Status: models.SessionNotConducted,
	})

	rows := BuildMonthlyBreakdown(batches, marks, date("2024-01-01"), date("2024-03-01"))
	require.Len(t, rows, 3)

	assert.Equal(t, "2024-01", rows[0].Month)
	assert.Equal(t, 5, rows[0].Expected)
	assert.Equal(t, 4, rows[0].Conducted)
	assert.Equal(t, -1, rows[0].Delta)
	assert.Equal(t, dto.SeverityShortOne, rows[0].Severity)

	assert.Equal(t, "2024-02", rows[1].Month)
	assert.Equal(t, 4, rows[1].Expected)
	assert.Equal(t, 4, rows[1].Conducted)
	assert.Equal(t, dto.SeverityCompliant, rows[1].Severity)

	assert.Equal(t, "2024-03", rows[2].Month)
	assert.Equal(t, 0, rows[2].Conducted)
	assert.Equal(t, dto.SeverityShortMany, rows[2].Severity)
}

func TestBuildMonthlyBreakdownAdHocNeverRaisesExpected(t *testing.T) {
	batches := []models.Batch{{ID: "b1", Recurrence: "MON 17:00-18:00", Active: true}}
	// Six conducted marks against five scheduled Mondays.
	marks := conductedMarks("t1", "b1",
		"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22", "2024-01-29", "2024-01-13")

	rows := BuildMonthlyBreakdown(batches, marks, date("2024-01-01"), date("2024-01-01"))
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].Expected)
	assert.Equal(t, 6, rows[0].Conducted)
	assert.Equal(t, 1, rows[0].Delta)
	assert.Equal(t, dto.SeverityCompliant, rows[0].Severity)
}

func TestComplianceRate(t *testing.T) {
	assert.InDelta(t, 100.0, ComplianceRate(0, 0), 0.001)
	assert.InDelta(t, 100.0, ComplianceRate(0, 2), 0.001)
	assert.InDelta(t, 80.0, ComplianceRate(5, 4), 0.001)
	assert.InDelta(t, 0.0, ComplianceRate(4, 0), 0.001)
}

func TestReconciliationCurrentMonthRate(t *testing.T) {
	batches := &mockBatchRepo{batches: []models.Batch{{ID: "b1", Recurrence: "MON 17:00-18:00", Active: true}}}
	attendance := &mockTeacherAttendanceRepo{marks: conductedMarks("t1", "b1", "2024-01-08", "2024-01-15", "2024-01-22", "2024-01-29")}
	svc := NewReconcilerService(batches, attendance, zap.NewNop())
	svc.now = func() time.Time { return date("2024-01-20") }

	resp, err := svc.Reconciliation(context.Background(), "t1", "2024-01", "2024-02")
	require.NoError(t, err)
	require.Len(t, resp.MonthlyBreakdown, 2)
	assert.InDelta(t, 80.0, resp.CurrentMonthRate, 0.001)
}

func TestReconciliationInvertedRange(t *testing.T) {
	svc := NewReconcilerService(&mockBatchRepo{}, &mockTeacherAttendanceRepo{}, zap.NewNop())

	_, err := svc.Reconciliation(context.Background(), "t1", "2024-05", "2024-01")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidInput.Code, appErrors.FromError(err).Code)
}

func TestRecordMarkScheduledDay(t *testing.T) {
	batches := &mockBatchRepo{batches: []models.Batch{{ID: "b1", Recurrence: "MON 17:00-18:00", Active: true}}}
	attendance := &mockTeacherAttendanceRepo{}
	svc := NewReconcilerService(batches, attendance, zap.NewNop())

	// 2024-01-08 is a Monday.
	record, err := svc.RecordMark(context.Background(), dto.TeacherMarkRequest{
		TeacherID:   "t1",
		BatchID:     "b1",
		SessionDate: "2024-01-08",
		Status:      models.SessionConducted,
	})
	require.NoError(t, err)
	assert.Nil(t, record.Reason)
	require.Len(t, attendance.upserts, 1)
	assert.Equal(t, models.SessionConducted, attendance.upserts[0].Status)
}

func TestRecordMarkUnscheduledRequiresReason(t *testing.T) {
	batches := &mockBatchRepo{batches: []models.Batch{{ID: "b1", Recurrence: "MON 17:00-18:00", Active: true}}}
	svc := NewReconcilerService(batches, &mockTeacherAttendanceRepo{}, zap.NewNop())

	// 2024-01-10 is a Wednesday with nothing scheduled.
	req := dto.TeacherMarkRequest{
		TeacherID:   "t1",
		BatchID:     "b1",
		SessionDate: "2024-01-10",
		Status:      models.SessionConducted,
	}
	_, err := svc.RecordMark(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	reason := "compensation"
	req.Reason = &reason
	record, err := svc.RecordMark(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, record.Reason)
	assert.Equal(t, models.ReasonCompensation, *record.Reason)
}

func TestRecordMarkRejectsUnknownReason(t *testing.T) {
	batches := &mockBatchRepo{batches: []models.Batch{{ID: "b1", Recurrence: "MON 17:00-18:00", Active: true}}}
	svc := NewReconcilerService(batches, &mockTeacherAttendanceRepo{}, zap.NewNop())

	reason := "vibes"
	_, err := svc.RecordMark(context.Background(), dto.TeacherMarkRequest{
		TeacherID:   "t1",
		BatchID:     "b1",
		SessionDate: "2024-01-10",
		Status:      models.SessionConducted,
		Reason:      &reason,
	})
	require.Error(t, err)
}

func TestRecordMarkForeignBatch(t *testing.T) {
	batches := &mockBatchRepo{batches: []models.Batch{{ID: "b1", Recurrence: "MON 17:00-18:00", Active: true}}}
	svc := NewReconcilerService(batches, &mockTeacherAttendanceRepo{}, zap.NewNop())

	_, err := svc.RecordMark(context.Background(), dto.TeacherMarkRequest{
		TeacherID:   "t1",
		BatchID:     "other",
		SessionDate: "2024-01-08",
		Status:      models.SessionConducted,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
