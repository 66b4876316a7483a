package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/dto"
	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type mockAttendanceStore struct {
	// keyed by student|batch|date so repeated upserts overwrite like the
	// real table does
	marks map[string]models.Attendance
	err   error
}

func (m *mockAttendanceStore) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, *models.Pagination, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	out := make([]models.Attendance, 0, len(m.marks))
	for _, mark := range m.marks {
		out = append(out, mark)
	}
	return out, &models.Pagination{TotalCount: len(out)}, nil
}

func (m *mockAttendanceStore) Upsert(ctx context.Context, mark *models.Attendance) error {
	if m.err != nil {
		return m.err
	}
	if m.marks == nil {
		m.marks = make(map[string]models.Attendance)
	}
	key := mark.StudentID + "|" + mark.BatchID + "|" + mark.SessionDate.Format("2006-01-02")
	m.marks[key] = *mark
	return nil
}

func TestAttendanceServiceMark(t *testing.T) {
	store := &mockAttendanceStore{}
	svc := NewAttendanceService(store, nil, zap.NewNop())

	mark, err := svc.Mark(context.Background(), dto.MarkAttendanceRequest{
		StudentID:   "s1",
		BatchID:     "b1",
		SessionDate: "2024-03-04",
		Status:      models.AttendancePresent,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, mark.Status)
	assert.Len(t, store.marks, 1)
}

func TestAttendanceServiceMarkOverwrites(t *testing.T) {
	store := &mockAttendanceStore{}
	svc := NewAttendanceService(store, nil, zap.NewNop())

	req := dto.MarkAttendanceRequest{StudentID: "s1", BatchID: "b1", SessionDate: "2024-03-04", Status: models.AttendanceAbsent}
	_, err := svc.Mark(context.Background(), req)
	require.NoError(t, err)

	req.Status = models.AttendancePresent
	_, err = svc.Mark(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, store.marks, 1)
	for _, mark := range store.marks {
		assert.Equal(t, models.AttendancePresent, mark.Status)
	}
}

func TestAttendanceServiceMarkValidation(t *testing.T) {
	svc := NewAttendanceService(&mockAttendanceStore{}, nil, zap.NewNop())

	_, err := svc.Mark(context.Background(), dto.MarkAttendanceRequest{StudentID: "s1", BatchID: "b1", SessionDate: "last tuesday", Status: models.AttendancePresent})
	require.Error(t, err)

	_, err = svc.Mark(context.Background(), dto.MarkAttendanceRequest{StudentID: "s1", BatchID: "b1", SessionDate: "2024-03-04", Status: "late"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceBulkMark(t *testing.T) {
	store := &mockAttendanceStore{}
	svc := NewAttendanceService(store, nil, zap.NewNop())

	marks, err := svc.BulkMark(context.Background(), dto.BulkMarkAttendanceRequest{
		BatchID:     "b1",
		SessionDate: "2024-03-04",
		Marks: []dto.StudentAttendanceMark{
			{StudentID: "s1", Status: models.AttendancePresent},
			{StudentID: "s2", Status: models.AttendanceAbsent},
			{StudentID: "s3", Status: models.AttendanceExcused},
		},
	})
	require.NoError(t, err)
	assert.Len(t, marks, 3)
	assert.Len(t, store.marks, 3)
}

func TestAttendanceServiceBulkMarkRejectsWholePayload(t *testing.T) {
	store := &mockAttendanceStore{}
	svc := NewAttendanceService(store, nil, zap.NewNop())

	_, err := svc.BulkMark(context.Background(), dto.BulkMarkAttendanceRequest{
		BatchID:     "b1",
		SessionDate: "2024-03-04",
		Marks: []dto.StudentAttendanceMark{
			{StudentID: "s1", Status: models.AttendancePresent},
			{StudentID: "s2", Status: "late"},
		},
	})
	require.Error(t, err)
	// Nothing was written for the valid rows either.
	assert.Empty(t, store.marks)
}

func TestAttendanceServiceBulkMarkIdempotent(t *testing.T) {
	store := &mockAttendanceStore{}
	svc := NewAttendanceService(store, nil, zap.NewNop())

	req := dto.BulkMarkAttendanceRequest{
		BatchID:     "b1",
		SessionDate: "2024-03-04",
		Marks: []dto.StudentAttendanceMark{
			{StudentID: "s1", Status: models.AttendancePresent},
			{StudentID: "s2", Status: models.AttendancePresent},
		},
	}
	_, err := svc.BulkMark(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.BulkMark(context.Background(), req)
	require.NoError(t, err)

	// Resubmitting the same session changes nothing.
	assert.Len(t, store.marks, 2)
}
