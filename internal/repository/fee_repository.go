package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/muse-ops-api/internal/models"
)

// FeeRepository manages the per-instrument fee schedule.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs a FeeRepository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// FeeStructure loads the complete fee schedule keyed by instrument.
func (r *FeeRepository) FeeStructure(ctx context.Context) (models.FeeStructure, error) {
	const query = `SELECT instrument_id, monthly, quarterly FROM instrument_fees`
	var fees []models.InstrumentFee
	if err := r.db.SelectContext(ctx, &fees, query); err != nil {
		return nil, fmt.Errorf("load fee structure: %w", err)
	}
	structure := make(models.FeeStructure, len(fees))
	for _, fee := range fees {
		structure[fee.InstrumentID] = fee
	}
	return structure, nil
}

// Upsert replaces the fee schedule for one instrument.
func (r *FeeRepository) Upsert(ctx context.Context, fee *models.InstrumentFee) error {
	const query = `INSERT INTO instrument_fees (instrument_id, monthly, quarterly, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (instrument_id)
        DO UPDATE SET monthly = EXCLUDED.monthly, quarterly = EXCLUDED.quarterly, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, fee.InstrumentID, fee.Monthly, fee.Quarterly, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert instrument fee: %w", err)
	}
	return nil
}
