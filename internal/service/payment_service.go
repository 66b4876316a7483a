package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/dto"
	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type paymentStore interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error)
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	UpdateMetadata(ctx context.Context, payment *models.Payment) error
}

// PaymentService records and edits fee payments. The financial facts of a
// payment (amount, plan) are write-once; edits only reach the descriptive
// metadata.
type PaymentService struct {
	payments  paymentStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(payments paymentStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{payments: payments, cache: cache, validator: validate, logger: logger}
}

// List returns payments matching the filter.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	return s.payments.List(ctx, filter)
}

// Record validates and stores a new payment, then drops the cached ledger
// state it invalidates.
func (s *PaymentService) Record(ctx context.Context, req dto.RecordPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment request")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid payment amount")
	}
	paidAt, err := time.Parse("2006-01-02", req.PaidAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid paidAt date, expected YYYY-MM-DD")
	}
	frequency := models.NormalizeFrequency(req.Frequency)
	if frequency == models.FrequencyUnknown {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported payment frequency")
	}

	payment := &models.Payment{
		StudentID:  req.StudentID,
		BatchID:    req.BatchID,
		Amount:     amount,
		PaidAt:     paidAt,
		Method:     req.Method,
		Frequency:  frequency,
		PaymentFor: req.PaymentFor,
		Notes:      req.Notes,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}
	s.invalidateLedger(ctx, req.StudentID)
	return payment, nil
}

// Update edits a payment's descriptive metadata. Attempts to change the
// amount or frequency are rejected outright.
func (s *PaymentService) Update(ctx context.Context, id string, req dto.UpdatePaymentRequest) (*models.Payment, error) {
	if req.Amount != nil || req.Frequency != nil {
		return nil, appErrors.Clone(appErrors.ErrImmutableField, "amount and paymentFrequency cannot be changed after recording")
	}

	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.PaidAt != nil {
		paidAt, err := time.Parse("2006-01-02", *req.PaidAt)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid paidAt date, expected YYYY-MM-DD")
		}
		payment.PaidAt = paidAt
	}
	if req.Method != nil {
		payment.Method = *req.Method
	}
	if req.Notes != nil {
		payment.Notes = req.Notes
	}

	if err := s.payments.UpdateMetadata(ctx, payment); err != nil {
		return nil, err
	}
	s.invalidateLedger(ctx, payment.StudentID)
	return payment, nil
}

func (s *PaymentService) invalidateLedger(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("ledger:student:%s:*", studentID)); err != nil {
		s.logger.Warn("ledger cache invalidate failed", zap.String("studentId", studentID), zap.Error(err))
	}
}
