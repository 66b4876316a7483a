package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type mockLedgerStore struct {
	enrollments     []models.Enrollment
	payments        []models.Payment
	attendance      []models.Attendance
	enrollmentCalls int
	paymentCalls    int
	attendanceCalls int
	err             error
}

func (m *mockLedgerStore) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	m.enrollmentCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.enrollments, nil
}

type mockLedgerPayments struct {
	mockLedgerStore
}

func (m *mockLedgerPayments) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	m.paymentCalls++
	return m.payments, m.err
}

type mockLedgerAttendance struct {
	mockLedgerStore
}

func (m *mockLedgerAttendance) ListByStudent(ctx context.Context, studentID string) ([]models.Attendance, error) {
	m.attendanceCalls++
	return m.attendance, m.err
}

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range s.store {
		delete(s.store, key)
	}
	return nil
}

func date(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func presentMarks(studentID, batchID string, from time.Time, count int) []models.Attendance {
	marks := make([]models.Attendance, 0, count)
	for i := 0; i < count; i++ {
		marks = append(marks, models.Attendance{
			StudentID:   studentID,
			BatchID:     batchID,
			SessionDate: from.AddDate(0, 0, i*3),
			Status:      models.AttendancePresent,
		})
	}
	return marks
}

func newLedgerServiceForTest(enrollments []models.Enrollment, payments []models.Payment, attendance []models.Attendance, cache *CacheService, today time.Time) *LedgerService {
	enrollmentRepo := &mockLedgerStore{enrollments: enrollments}
	paymentRepo := &mockLedgerPayments{mockLedgerStore{payments: payments}}
	attendanceRepo := &mockLedgerAttendance{mockLedgerStore{attendance: attendance}}
	svc := NewLedgerService(enrollmentRepo, paymentRepo, attendanceRepo, cache, nil, zap.NewNop(), LedgerServiceConfig{})
	svc.now = func() time.Time { return today }
	return svc
}

func TestComputeCreditBalanceOnlyPresentConsumes(t *testing.T) {
	payments := []models.Payment{
		{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyMonthly, PaidAt: date("2024-01-01")},
	}
	attendance := []models.Attendance{
		{StudentID: "s1", BatchID: "b1", SessionDate: date("2024-01-03"), Status: models.AttendancePresent},
		{StudentID: "s1", BatchID: "b1", SessionDate: date("2024-01-05"), Status: models.AttendanceAbsent},
		{StudentID: "s1", BatchID: "b1", SessionDate: date("2024-01-08"), Status: models.AttendanceExcused},
		{StudentID: "s1", BatchID: "b2", SessionDate: date("2024-01-10"), Status: models.AttendancePresent},
		{StudentID: "s2", BatchID: "b1", SessionDate: date("2024-01-10"), Status: models.AttendancePresent},
	}

	balance := ComputeCreditBalance(payments, attendance, "s1", "b1")
	assert.Equal(t, 8, balance.Purchased)
	assert.Equal(t, 1, balance.Consumed)
	assert.Equal(t, 7, balance.Remaining())
}

func TestComputeCreditBalanceConservation(t *testing.T) {
	payments := []models.Payment{
		{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyMonthly, PaidAt: date("2024-01-01")},
		{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyQuarterly, PaidAt: date("2024-02-01")},
	}
	attendance := presentMarks("s1", "b1", date("2024-01-02"), 11)

	balance := ComputeCreditBalance(payments, attendance, "s1", "b1")
	assert.Equal(t, 32, balance.Purchased)
	assert.Equal(t, 11, balance.Consumed)
	assert.Equal(t, balance.Purchased-balance.Consumed, balance.Remaining())
	require.NotNil(t, balance.LastPayment)
	assert.Equal(t, models.FrequencyQuarterly, balance.LastFrequency)
}

func TestComputeCreditBalanceIdempotent(t *testing.T) {
	payments := []models.Payment{
		{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyMonthly, PaidAt: date("2024-01-01")},
	}
	attendance := presentMarks("s1", "b1", date("2024-01-02"), 4)

	first := ComputeCreditBalance(payments, attendance, "s1", "b1")
	second := ComputeCreditBalance(payments, attendance, "s1", "b1")
	assert.Equal(t, first.Purchased, second.Purchased)
	assert.Equal(t, first.Consumed, second.Consumed)
	assert.Equal(t, first.Remaining(), second.Remaining())
}

func TestBuildCreditSummaryMonthlyLifecycle(t *testing.T) {
	enrollment := models.Enrollment{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyMonthly, Active: true}
	payments := []models.Payment{
		{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyMonthly, PaidAt: date("2024-01-01")},
	}
	cfg := LedgerServiceConfig{OverdueLowWaterMark: 2, SessionsPerWeek: 2}

	// Five present marks leave three credits; the window has not lapsed.
	summary := BuildCreditSummary(enrollment, payments, presentMarks("s1", "b1", date("2024-01-02"), 5), date("2024-01-20"), cfg)
	assert.Equal(t, 8, summary.CreditsPurchased)
	assert.Equal(t, 5, summary.CreditsConsumed)
	assert.Equal(t, 3, summary.ClassesRemaining)
	assert.False(t, summary.IsOverdue)
	require.NotNil(t, summary.ExpectedStartDate)
	assert.Equal(t, "2024-01-29", *summary.ExpectedStartDate)
	require.NotNil(t, summary.LastPaymentDate)
	assert.Equal(t, "2024-01-01", *summary.LastPaymentDate)

	// All eight consumed and the four-week window lapsed: overdue.
	summary = BuildCreditSummary(enrollment, payments, presentMarks("s1", "b1", date("2024-01-02"), 8), date("2024-01-30"), cfg)
	assert.Equal(t, 0, summary.ClassesRemaining)
	assert.True(t, summary.IsOverdue)
}

func TestBuildCreditSummaryOverdueNeedsBothConditions(t *testing.T) {
	enrollment := models.Enrollment{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyMonthly, Active: true}
	payments := []models.Payment{
		{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyMonthly, PaidAt: date("2024-01-01")},
	}
	cfg := LedgerServiceConfig{OverdueLowWaterMark: 2, SessionsPerWeek: 2}

	// Window lapsed but five credits remain: record-keeping lag, not overdue.
	summary := BuildCreditSummary(enrollment, payments, presentMarks("s1", "b1", date("2024-01-02"), 3), date("2024-02-15"), cfg)
	assert.Equal(t, 5, summary.ClassesRemaining)
	assert.False(t, summary.IsOverdue)

	// Credits exhausted but window still open: not overdue either.
	summary = BuildCreditSummary(enrollment, payments, presentMarks("s1", "b1", date("2024-01-02"), 8), date("2024-01-15"), cfg)
	assert.Equal(t, 0, summary.ClassesRemaining)
	assert.False(t, summary.IsOverdue)
}

func TestBuildCreditSummaryNoPayments(t *testing.T) {
	enrollment := models.Enrollment{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyMonthly, Active: true}

	summary := BuildCreditSummary(enrollment, nil, presentMarks("s1", "b1", date("2024-01-02"), 2), date("2024-02-01"), LedgerServiceConfig{})
	assert.Equal(t, 0, summary.CreditsPurchased)
	assert.Equal(t, 2, summary.CreditsConsumed)
	assert.Equal(t, 0, summary.ClassesRemaining)
	assert.False(t, summary.IsOverdue)
	assert.Nil(t, summary.LastPaymentDate)
	assert.Nil(t, summary.ExpectedStartDate)
}

func TestBuildCreditSummaryNegativeBalanceClamped(t *testing.T) {
	enrollment := models.Enrollment{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyMonthly, Active: true}
	payments := []models.Payment{
		{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyMonthly, PaidAt: date("2024-01-01")},
	}

	summary := BuildCreditSummary(enrollment, payments, presentMarks("s1", "b1", date("2024-01-02"), 10), date("2024-02-10"), LedgerServiceConfig{})
	assert.Equal(t, 10, summary.CreditsConsumed)
	assert.Equal(t, 0, summary.ClassesRemaining)
	assert.True(t, summary.IsOverdue)
}

func TestDueDateProjection(t *testing.T) {
	paidAt := date("2024-01-01")

	due := DueDate(paidAt, 8, 2)
	require.NotNil(t, due)
	assert.Equal(t, date("2024-01-29"), *due)

	due = DueDate(paidAt, 24, 2)
	require.NotNil(t, due)
	assert.Equal(t, paidAt.AddDate(0, 0, 12*7), *due)

	assert.Nil(t, DueDate(paidAt, 0, 2))
}

func TestCreditsForFrequency(t *testing.T) {
	assert.Equal(t, 8, CreditsForFrequency(models.FrequencyMonthly))
	assert.Equal(t, 24, CreditsForFrequency(models.FrequencyQuarterly))
	assert.Equal(t, 48, CreditsForFrequency(models.FrequencyHalfYearly))
	assert.Equal(t, 96, CreditsForFrequency(models.FrequencyYearly))
	assert.Equal(t, 0, CreditsForFrequency(models.FrequencyUnknown))
}

func TestStudentLedgerSkipsInactiveEnrollments(t *testing.T) {
	enrollments := []models.Enrollment{
		{StudentID: "s1", BatchID: "b2", Frequency: models.FrequencyMonthly, Active: true},
		{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyMonthly, Active: true},
		{StudentID: "s1", BatchID: "b3", Frequency: models.FrequencyMonthly, Active: false},
	}
	svc := newLedgerServiceForTest(enrollments, nil, nil, nil, date("2024-03-01"))

	resp, cached, err := svc.StudentLedger(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, resp.Summaries, 2)
	assert.Equal(t, "b1", resp.Summaries[0].BatchID)
	assert.Equal(t, "b2", resp.Summaries[1].BatchID)
}

func TestStudentLedgerCaching(t *testing.T) {
	enrollments := []models.Enrollment{{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyMonthly, Active: true}}
	enrollmentRepo := &mockLedgerStore{enrollments: enrollments}
	paymentRepo := &mockLedgerPayments{}
	attendanceRepo := &mockLedgerAttendance{}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewLedgerService(enrollmentRepo, paymentRepo, attendanceRepo, cacheSvc, nil, zap.NewNop(), LedgerServiceConfig{})
	svc.now = func() time.Time { return date("2024-03-01") }

	_, cached, err := svc.StudentLedger(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, enrollmentRepo.enrollmentCalls)

	_, cached, err = svc.StudentLedger(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, enrollmentRepo.enrollmentCalls)
}

func TestStudentLedgerRequiresID(t *testing.T) {
	svc := newLedgerServiceForTest(nil, nil, nil, nil, date("2024-03-01"))

	_, _, err := svc.StudentLedger(context.Background(), "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreditSummaryUnknownBatch(t *testing.T) {
	enrollments := []models.Enrollment{{StudentID: "s1", BatchID: "b1", Frequency: models.FrequencyMonthly, Active: true}}
	svc := newLedgerServiceForTest(enrollments, nil, nil, nil, date("2024-03-01"))

	_, err := svc.CreditSummary(context.Background(), "s1", "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
