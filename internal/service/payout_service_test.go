package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type mockTeacherRepo struct {
	teachers map[string]*models.Teacher
	err      error
}

func (m *mockTeacherRepo) GetByID(ctx context.Context, id string) (*models.Teacher, error) {
	if m.err != nil {
		return nil, m.err
	}
	teacher, ok := m.teachers[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return teacher, nil
}

func (m *mockTeacherRepo) ListActive(ctx context.Context) ([]models.Teacher, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Teacher, 0, len(m.teachers))
	for _, teacher := range m.teachers {
		if teacher.Active {
			out = append(out, *teacher)
		}
	}
	return out, nil
}

type mockEnrollmentByBatch struct {
	byBatch map[string][]models.Enrollment
	err     error
}

func (m *mockEnrollmentByBatch) ListByBatch(ctx context.Context, batchID string) ([]models.Enrollment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byBatch[batchID], nil
}

func fixedTeacher(id, rate string) *models.Teacher {
	return &models.Teacher{ID: id, PayoutType: models.PayoutFixed, PayoutRate: decimal.RequireFromString(rate), Active: true}
}

func perStudentTeacher(id, rate string) *models.Teacher {
	return &models.Teacher{ID: id, PayoutType: models.PayoutPerStudent, PayoutRate: decimal.RequireFromString(rate), Active: true}
}

func TestComputeProjectedPayoutFixed(t *testing.T) {
	payout := ComputeProjectedPayout(fixedTeacher("t1", "25000"), 17)
	assert.Equal(t, models.PayoutFixed, payout.Model)
	assert.True(t, payout.Amount.Equal(decimal.RequireFromString("25000")))
	assert.Equal(t, 1, payout.BasisCount)
	assert.Equal(t, "fixed monthly", payout.BasisLabel)
}

func TestComputeProjectedPayoutPerStudent(t *testing.T) {
	payout := ComputeProjectedPayout(perStudentTeacher("t1", "1500"), 12)
	assert.True(t, payout.Amount.Equal(decimal.RequireFromString("18000")))
	assert.Equal(t, 12, payout.BasisCount)
	assert.True(t, payout.BasisRate.Equal(decimal.RequireFromString("1500")))
	assert.Equal(t, "12 active students x 1500.00", payout.BasisLabel)
}

func TestComputeProjectedPayoutPerStudentZeroStudents(t *testing.T) {
	payout := ComputeProjectedPayout(perStudentTeacher("t1", "1500"), 0)
	assert.True(t, payout.Amount.IsZero())
	assert.Equal(t, 0, payout.BasisCount)
}

func TestTeacherPayoutCountsDistinctStudents(t *testing.T) {
	teacherID := "t1"
	teachers := &mockTeacherRepo{teachers: map[string]*models.Teacher{teacherID: perStudentTeacher(teacherID, "1000")}}
	batches := &mockBatchRepo{batches: []models.Batch{
		{ID: "b1", TeacherID: &teacherID, Recurrence: "MON 17:00-18:00", Active: true},
		{ID: "b2", TeacherID: &teacherID, Recurrence: "WED 17:00-18:00", Active: true},
		{ID: "b3", TeacherID: &teacherID, Recurrence: "FRI 17:00-18:00", Active: false},
	}}
	enrollments := &mockEnrollmentByBatch{byBatch: map[string][]models.Enrollment{
		"b1": {
			{StudentID: "s1", BatchID: "b1", Active: true},
			{StudentID: "s2", BatchID: "b1", Active: true},
			{StudentID: "s3", BatchID: "b1", Active: false},
		},
		// s1 appears in both batches and must count once.
		"b2": {
			{StudentID: "s1", BatchID: "b2", Active: true},
			{StudentID: "s4", BatchID: "b2", Active: true},
		},
		// Inactive batch: its students never count.
		"b3": {
			{StudentID: "s5", BatchID: "b3", Active: true},
		},
	}}
	svc := NewPayoutService(teachers, batches, enrollments, &mockTeacherAttendanceRepo{}, zap.NewNop())
	svc.now = func() time.Time { return date("2024-01-20") }

	resp, err := svc.TeacherPayout(context.Background(), teacherID, "2024-01", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Projected.BasisCount)
	assert.True(t, resp.Projected.Amount.Equal(decimal.RequireFromString("3000")))
}

func TestTeacherPayoutTotalOverRange(t *testing.T) {
	teacherID := "t1"
	teachers := &mockTeacherRepo{teachers: map[string]*models.Teacher{teacherID: fixedTeacher(teacherID, "20000")}}
	svc := NewPayoutService(teachers, &mockBatchRepo{}, &mockEnrollmentByBatch{}, &mockTeacherAttendanceRepo{}, zap.NewNop())
	svc.now = func() time.Time { return date("2024-03-15") }

	resp, err := svc.TeacherPayout(context.Background(), teacherID, "2024-01", "2024-03")
	require.NoError(t, err)
	assert.True(t, resp.TotalPaid.Equal(decimal.RequireFromString("60000")))
	assert.Len(t, resp.MonthlyBreakdown, 3)
}

func TestTeacherPayoutUnknownTeacher(t *testing.T) {
	svc := NewPayoutService(&mockTeacherRepo{}, &mockBatchRepo{}, &mockEnrollmentByBatch{}, &mockTeacherAttendanceRepo{}, zap.NewNop())

	_, err := svc.TeacherPayout(context.Background(), "missing", "2024-01", "2024-01")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTeacherPayoutInvalidRange(t *testing.T) {
	svc := NewPayoutService(&mockTeacherRepo{}, &mockBatchRepo{}, &mockEnrollmentByBatch{}, &mockTeacherAttendanceRepo{}, zap.NewNop())

	_, err := svc.TeacherPayout(context.Background(), "t1", "2024-13", "2024-01")
	require.Error(t, err)

	_, err = svc.TeacherPayout(context.Background(), "t1", "2024-06", "2024-01")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidInput.Code, appErrors.FromError(err).Code)
}

func TestMonthlyPayoutTotalAcrossTeachers(t *testing.T) {
	teacherA := "ta"
	teacherB := "tb"
	teachers := &mockTeacherRepo{teachers: map[string]*models.Teacher{
		teacherA: fixedTeacher(teacherA, "20000"),
		teacherB: perStudentTeacher(teacherB, "1000"),
	}}
	batches := &mockBatchRepo{batches: []models.Batch{{ID: "b1", Recurrence: "MON 17:00-18:00", Active: true}}}
	enrollments := &mockEnrollmentByBatch{byBatch: map[string][]models.Enrollment{
		"b1": {
			{StudentID: "s1", BatchID: "b1", Active: true},
			{StudentID: "s2", BatchID: "b1", Active: true},
		},
	}}
	svc := NewPayoutService(teachers, batches, enrollments, &mockTeacherAttendanceRepo{}, zap.NewNop())

	// The batch mock returns the same batches for both teachers, so the
	// per-student teacher sees two students: 20000 + 2*1000.
	total, err := svc.MonthlyPayoutTotal(context.Background())
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("22000")))
}
