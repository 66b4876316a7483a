package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/dto"
	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type ledgerEnrollmentLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

type ledgerPaymentLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
}

type ledgerAttendanceLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Attendance, error)
}

// LedgerServiceConfig tunes credit derivation.
type LedgerServiceConfig struct {
	CacheTTL time.Duration
	// OverdueLowWaterMark is the remaining-credit threshold at or below which
	// a lapsed payment window marks the enrollment overdue.
	OverdueLowWaterMark int
	// SessionsPerWeek is the assumed consumption cadence for due-date
	// projection. The school convention is two sessions per week per
	// enrollment.
	SessionsPerWeek int
}

// LedgerService derives credit state for students. It holds no state across
// calls: every result is recomputed from the payment and attendance facts,
// so derived numbers can never drift from source data.
type LedgerService struct {
	enrollments ledgerEnrollmentLister
	payments    ledgerPaymentLister
	attendance  ledgerAttendanceLister
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
	cfg         LedgerServiceConfig
}

// NewLedgerService constructs a LedgerService with sane defaults.
func NewLedgerService(enrollments ledgerEnrollmentLister, payments ledgerPaymentLister, attendance ledgerAttendanceLister, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg LedgerServiceConfig) *LedgerService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.OverdueLowWaterMark <= 0 {
		cfg.OverdueLowWaterMark = 2
	}
	if cfg.SessionsPerWeek <= 0 {
		cfg.SessionsPerWeek = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		enrollments: enrollments,
		payments:    payments,
		attendance:  attendance,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// StudentLedger returns the derived credit state for every enrollment of the
// student. The boolean indicates cache utilisation.
func (s *LedgerService) StudentLedger(ctx context.Context, studentID string) (*dto.StudentLedgerResponse, bool, error) {
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	today := s.now().UTC()
	cacheKey := fmt.Sprintf("ledger:student:%s:%s", studentID, today.Format("2006-01-02"))
	if s.cache != nil {
		var cached dto.StudentLedgerResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	snapshot, err := s.loadSnapshot(ctx, studentID)
	if err != nil {
		return nil, false, err
	}

	resp := &dto.StudentLedgerResponse{
		StudentID: studentID,
		Summaries: s.summarise(snapshot, today),
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("ledger cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return resp, false, nil
}

// CreditSummary returns the derived credit state for one (student, batch)
// enrollment pair.
func (s *LedgerService) CreditSummary(ctx context.Context, studentID, batchID string) (*dto.CreditSummary, error) {
	if studentID == "" || batchID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId and batchId are required")
	}
	snapshot, err := s.loadSnapshot(ctx, studentID)
	if err != nil {
		return nil, err
	}
	today := s.now().UTC()
	for _, summary := range s.summarise(snapshot, today) {
		if summary.BatchID == batchID {
			return &summary, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no enrollment for batch")
}

// LedgerSnapshot bundles the immutable facts a credit derivation consumes.
// Computations never mutate it.
type LedgerSnapshot struct {
	Enrollments []models.Enrollment
	Payments    []models.Payment
	Attendance  []models.Attendance
}

func (s *LedgerService) loadSnapshot(ctx context.Context, studentID string) (*LedgerSnapshot, error) {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	attendance, err := s.attendance.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return &LedgerSnapshot{Enrollments: enrollments, Payments: payments, Attendance: attendance}, nil
}

func (s *LedgerService) summarise(snapshot *LedgerSnapshot, today time.Time) []dto.CreditSummary {
	summaries := make([]dto.CreditSummary, 0, len(snapshot.Enrollments))
	for _, enrollment := range snapshot.Enrollments {
		if !enrollment.Active {
			continue
		}
		summaries = append(summaries, BuildCreditSummary(enrollment, snapshot.Payments, snapshot.Attendance, today, s.cfg))
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].BatchID < summaries[j].BatchID })
	return summaries
}

// CreditBalance is the true ledger position for one enrollment. Remaining
// may go negative internally; only the clamped value is exposed to views.
type CreditBalance struct {
	Purchased     int
	Consumed      int
	LastPayment   *models.Payment
	LastFrequency models.PaymentFrequency
}

// Remaining returns the unclamped balance used for overdue detection.
func (b CreditBalance) Remaining() int {
	return b.Purchased - b.Consumed
}

// RemainingClamped never reports a negative count to the UI.
func (b CreditBalance) RemainingClamped() int {
	if remaining := b.Remaining(); remaining > 0 {
		return remaining
	}
	return 0
}

// ComputeCreditBalance folds payments and attendance for a (student, batch)
// pair into a balance. Only present marks consume credits; absences and
// excused sessions do not.
func ComputeCreditBalance(payments []models.Payment, attendance []models.Attendance, studentID, batchID string) CreditBalance {
	balance := CreditBalance{}
	for i := range payments {
		p := payments[i]
		if p.StudentID != studentID || p.BatchID != batchID {
			continue
		}
		balance.Purchased += p.Credits()
		if balance.LastPayment == nil || p.PaidAt.After(balance.LastPayment.PaidAt) {
			balance.LastPayment = &payments[i]
			balance.LastFrequency = p.Frequency
		}
	}
	for _, a := range attendance {
		if a.StudentID != studentID || a.BatchID != batchID {
			continue
		}
		if a.Status == models.AttendancePresent {
			balance.Consumed++
		}
	}
	return balance
}

// BuildCreditSummary derives the view-model for one enrollment from raw
// facts. It is a pure function of its inputs and the reference date.
func BuildCreditSummary(enrollment models.Enrollment, payments []models.Payment, attendance []models.Attendance, today time.Time, cfg LedgerServiceConfig) dto.CreditSummary {
	if cfg.OverdueLowWaterMark <= 0 {
		cfg.OverdueLowWaterMark = 2
	}
	if cfg.SessionsPerWeek <= 0 {
		cfg.SessionsPerWeek = 2
	}
	balance := ComputeCreditBalance(payments, attendance, enrollment.StudentID, enrollment.BatchID)

	summary := dto.CreditSummary{
		StudentID:        enrollment.StudentID,
		BatchID:          enrollment.BatchID,
		Frequency:        enrollment.Frequency,
		CreditsPurchased: balance.Purchased,
		CreditsConsumed:  balance.Consumed,
		ClassesRemaining: balance.RemainingClamped(),
	}
	if balance.LastPayment == nil {
		return summary
	}

	paidAt := balance.LastPayment.PaidAt.UTC()
	lastPaid := paidAt.Format("2006-01-02")
	summary.Frequency = balance.LastFrequency
	summary.LastPaymentDate = &lastPaid

	if expected := DueDate(paidAt, balance.LastFrequency.Credits(), cfg.SessionsPerWeek); expected != nil {
		formatted := expected.Format("2006-01-02")
		summary.ExpectedStartDate = &formatted
		summary.IsOverdue = today.After(*expected) && balance.Remaining() <= cfg.OverdueLowWaterMark
	}
	return summary
}

// DueDate projects when a purchased block of classes runs out, assuming the
// configured weekly cadence. Zero purchased classes have no due date; the
// payment date itself is never returned as one.
func DueDate(paidAt time.Time, classCount, sessionsPerWeek int) *time.Time {
	if classCount <= 0 {
		return nil
	}
	if sessionsPerWeek <= 0 {
		sessionsPerWeek = 2
	}
	weeks := classCount / sessionsPerWeek
	due := paidAt.AddDate(0, 0, weeks*7)
	return &due
}

// CreditsForFrequency exposes the plan-to-credit lookup. Unknown plans map
// to zero so sparse data still renders.
func CreditsForFrequency(frequency models.PaymentFrequency) int {
	return frequency.Credits()
}
