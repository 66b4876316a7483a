package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/models"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
)

type batchStore interface {
	List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, *models.Pagination, error)
	ListActive(ctx context.Context) ([]models.Batch, error)
	GetByID(ctx context.Context, id string) (*models.Batch, error)
	Create(ctx context.Context, batch *models.Batch) error
	Update(ctx context.Context, batch *models.Batch) error
}

// BatchService manages recurring class groups.
type BatchService struct {
	batches batchStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewBatchService constructs a BatchService.
func NewBatchService(batches batchStore, logger *zap.Logger) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{batches: batches, logger: logger, now: time.Now}
}

// List returns batches matching the filter.
func (s *BatchService) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, *models.Pagination, error) {
	return s.batches.List(ctx, filter)
}

// Get fetches a batch by ID.
func (s *BatchService) Get(ctx context.Context, id string) (*models.Batch, error) {
	return s.batches.GetByID(ctx, id)
}

// Create validates and stores a new batch. The recurrence must carry at
// least one parseable segment.
func (s *BatchService) Create(ctx context.Context, batch *models.Batch) error {
	if batch.Name == "" {
		return appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	if len(models.ParseRecurrence(batch.Recurrence)) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "recurrence must contain at least one segment like MON 17:00-18:00")
	}
	batch.Active = true
	return s.batches.Create(ctx, batch)
}

// Update modifies a batch.
func (s *BatchService) Update(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "batch id is required")
	}
	if len(models.ParseRecurrence(batch.Recurrence)) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "recurrence must contain at least one segment like MON 17:00-18:00")
	}
	return s.batches.Update(ctx, batch)
}

// RunningToday returns the active batches scheduled on today's weekday.
func (s *BatchService) RunningToday(ctx context.Context) ([]models.Batch, error) {
	batches, err := s.batches.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	today := s.now().UTC().Weekday()
	running := make([]models.Batch, 0, len(batches))
	for _, batch := range batches {
		if batch.RunsOn(today) {
			running = append(running, batch)
		}
	}
	return running, nil
}
