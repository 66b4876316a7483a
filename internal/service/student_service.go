package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	GetByID(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

type enrollmentWriter interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Deactivate(ctx context.Context, id string) error
}

// StudentService manages student records and their batch enrollments.
type StudentService struct {
	students    studentStore
	enrollments enrollmentWriter
	logger      *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(students studentStore, enrollments enrollmentWriter, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, enrollments: enrollments, logger: logger}
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	return s.students.List(ctx, filter)
}

// Get fetches a student with their enrollments.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	return s.students.GetByID(ctx, id)
}

// Create stores a new student.
func (s *StudentService) Create(ctx context.Context, student *models.Student) error {
	if student.FullName == "" {
		return appErrors.Clone(appErrors.ErrValidation, "fullName is required")
	}
	student.Active = true
	return s.students.Create(ctx, student)
}

// Update modifies a student record.
func (s *StudentService) Update(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	return s.students.Update(ctx, student)
}

// Deactivate retires a student without deleting history.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	return s.students.Deactivate(ctx, id)
}

// Enroll places a student in a batch under a payment plan.
func (s *StudentService) Enroll(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.StudentID == "" || enrollment.BatchID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "studentId and batchId are required")
	}
	if enrollment.Frequency != models.FrequencyUnknown && !enrollment.Frequency.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported payment frequency")
	}
	enrollment.Active = true
	return s.enrollments.Create(ctx, enrollment)
}

// Unenroll closes an enrollment.
func (s *StudentService) Unenroll(ctx context.Context, enrollmentID string) error {
	return s.enrollments.Deactivate(ctx, enrollmentID)
}
