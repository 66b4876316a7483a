package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type teacherStore interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error)
	GetByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
}

// TeacherService manages instructor records.
type TeacherService struct {
	teachers teacherStore
	logger   *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(teachers teacherStore, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{teachers: teachers, logger: logger}
}

// List returns teachers matching the filter.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	return s.teachers.List(ctx, filter)
}

// Get fetches a teacher by ID.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	return s.teachers.GetByID(ctx, id)
}

// Create validates and stores a new teacher.
func (s *TeacherService) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.FullName == "" {
		return appErrors.Clone(appErrors.ErrValidation, "fullName is required")
	}
	if !teacher.PayoutType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "payoutType must be fixed or per_student_monthly")
	}
	if teacher.PayoutRate.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "payoutRate cannot be negative")
	}
	teacher.Active = true
	return s.teachers.Create(ctx, teacher)
}

// Update modifies a teacher record.
func (s *TeacherService) Update(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	if !teacher.PayoutType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "payoutType must be fixed or per_student_monthly")
	}
	if teacher.PayoutRate.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "payoutRate cannot be negative")
	}
	return s.teachers.Update(ctx, teacher)
}
