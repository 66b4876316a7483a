package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/dto"
	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type payoutTeacherGetter interface {
	GetByID(ctx context.Context, id string) (*models.Teacher, error)
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type payoutEnrollmentLister interface {
	ListByBatch(ctx context.Context, batchID string) ([]models.Enrollment, error)
}

// PayoutService derives teacher compensation from the payout model stored on
// the teacher record. Amounts are projections; nothing here writes money.
type PayoutService struct {
	teachers    payoutTeacherGetter
	batches     reconcilerBatchLister
	enrollments payoutEnrollmentLister
	attendance  teacherAttendanceStore
	logger      *zap.Logger
	now         func() time.Time
}

// NewPayoutService constructs a PayoutService.
func NewPayoutService(teachers payoutTeacherGetter, batches reconcilerBatchLister, enrollments payoutEnrollmentLister, attendance teacherAttendanceStore, logger *zap.Logger) *PayoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayoutService{
		teachers:    teachers,
		batches:     batches,
		enrollments: enrollments,
		attendance:  attendance,
		logger:      logger,
		now:         time.Now,
	}
}

// TeacherPayout builds the payout view for one teacher over an inclusive
// month-key range. TotalPaid applies the current projection to each month in
// the range; historical rate changes are not replayed.
func (s *PayoutService) TeacherPayout(ctx context.Context, teacherID, fromMonth, toMonth string) (*dto.TeacherPayoutResponse, error) {
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

	teacher, err := s.teachers.GetByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	batches, err := s.batches.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	count, err := s.activeStudentCount(ctx, batches)
	if err != nil {
		return nil, err
	}
	projected := ComputeProjectedPayout(teacher, count)

	_, rangeEnd := models.MonthRange(to)
	marks, err := s.attendance.ListByTeacher(ctx, models.TeacherAttendanceFilter{
		TeacherID: teacherID,
		DateFrom:  &from,
		DateTo:    &rangeEnd,
	})
	if err != nil {
		return nil, err
	}

	months := monthsInRange(from, to)
	return &dto.TeacherPayoutResponse{
		TeacherID:        teacherID,
		Projected:        projected,
		TotalPaid:        projected.Amount.Mul(decimal.NewFromInt(int64(months))),
		MonthlyBreakdown: BuildMonthlyBreakdown(batches, marks, from, to),
	}, nil
}

// MonthlyPayoutTotal sums projected payouts across every active teacher.
// Used by the finance summary as the teacher expense line.
func (s *PayoutService) MonthlyPayoutTotal(ctx context.Context) (decimal.Decimal, error) {
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for i := range teachers {
		batches, err := s.batches.ListByTeacher(ctx, teachers[i].ID)
		if err != nil {
			return decimal.Zero, err
		}
		count, err := s.activeStudentCount(ctx, batches)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(ComputeProjectedPayout(&teachers[i], count).Amount)
	}
	return total, nil
}

// activeStudentCount counts distinct active students across the given
// batches. A student enrolled in two of a teacher's batches counts once.
func (s *PayoutService) activeStudentCount(ctx context.Context, batches []models.Batch) (int, error) {
	seen := make(map[string]struct{})
	for _, batch := range batches {
		if !batch.Active {
			continue
		}
		enrollments, err := s.enrollments.ListByBatch(ctx, batch.ID)
		if err != nil {
			return 0, err
		}
		for _, enrollment := range enrollments {
			if enrollment.Active {
				seen[enrollment.StudentID] = struct{}{}
			}
		}
	}
	return len(seen), nil
}

// ComputeProjectedPayout applies a teacher's payout model to the active
// student count for one month. Pure function.
func ComputeProjectedPayout(teacher *models.Teacher, activeStudents int) dto.ProjectedPayout {
	payout := dto.ProjectedPayout{
		TeacherID: teacher.ID,
		Model:     teacher.PayoutType,
		BasisRate: teacher.PayoutRate,
	}
	switch teacher.PayoutType {
	case models.PayoutPerStudent:
		payout.Amount = teacher.PayoutRate.Mul(decimal.NewFromInt(int64(activeStudents)))
		payout.BasisCount = activeStudents
		payout.BasisLabel = fmt.Sprintf("%d active students x %s", activeStudents, teacher.PayoutRate.StringFixed(2))
	default:
		payout.Amount = teacher.PayoutRate
		payout.BasisCount = 1
		payout.BasisLabel = "fixed monthly"
	}
	return payout
}

func monthsInRange(from, to time.Time) int {
	months := 0
	for cursor := from; !cursor.After(to); cursor = cursor.AddDate(0, 1, 0) {
		months++
	}
	return months
}
