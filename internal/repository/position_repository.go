package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/models"
)

// PositionRepository is C5's accessor for land_position, the first-class
// accounting entity the PnL deriver builds up over a land's lifetime
// (spec §3, §4.4).
type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepository(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create opens a new ACTIVE position.
func (r *PositionRepository) Create(ctx context.Context, pos *models.LandPosition) error {
	if err := r.db.WithContext(ctx).Create(pos).Error; err != nil {
		return fmt.Errorf("failed to create land position at %s for %s: %w", pos.Location, pos.Owner, err)
	}
	return nil
}

// GetActiveByLocation returns the single ACTIVE position at loc, if any
// (invariant: at most one ACTIVE position per location).
func (r *PositionRepository) GetActiveByLocation(ctx context.Context, loc chain.Location) (*models.LandPosition, error) {
	var pos models.LandPosition
	err := r.db.WithContext(ctx).
		Where("location = ? AND status = ?", loc, models.PositionStatusActive).
		First(&pos).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active position at %s: %w", loc, err)
	}
	return &pos, nil
}

// GetActiveByOwnerAndLocation returns the ACTIVE position at loc owned by
// owner, if any (original_source get_active_by_owner_and_location).
func (r *PositionRepository) GetActiveByOwnerAndLocation(ctx context.Context, owner string, loc chain.Location) (*models.LandPosition, error) {
	var pos models.LandPosition
	err := r.db.WithContext(ctx).
		Where("location = ? AND owner = ? AND status = ?", loc, chain.NormalizeAddress(owner), models.PositionStatusActive).
		First(&pos).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active position for %s at %s: %w", owner, loc, err)
	}
	return &pos, nil
}

// Save persists an in-place update to an existing position (e.g. adding
// stake, accruing taxes, or closing it).
func (r *PositionRepository) Save(ctx context.Context, pos *models.LandPosition) error {
	if err := r.db.WithContext(ctx).Save(pos).Error; err != nil {
		return fmt.Errorf("failed to save land position %d: %w", pos.PositionID, err)
	}
	return nil
}

// ListByOwner returns every position (active or closed) ever held by owner,
// newest first — backs the wallet history / leaderboard HTTP endpoints.
func (r *PositionRepository) ListByOwner(ctx context.Context, owner string) ([]models.LandPosition, error) {
	var positions []models.LandPosition
	err := r.db.WithContext(ctx).
		Where("owner = ?", chain.NormalizeAddress(owner)).
		Order("entry_timestamp DESC").
		Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list positions for owner %s: %w", owner, err)
	}
	return positions, nil
}

// WithTx returns a repository bound to tx, for use inside a
// *gorm.DB.Transaction callback so Create/Save participate in the same
// transaction as the position_event_log row logging them.
func (r *PositionRepository) WithTx(tx *gorm.DB) *PositionRepository {
	return &PositionRepository{db: tx}
}

// PositionEventLogRepository is C5's idempotency + audit log accessor.
type PositionEventLogRepository struct {
	db *gorm.DB
}

func NewPositionEventLogRepository(db *gorm.DB) *PositionEventLogRepository {
	return &PositionEventLogRepository{db: db}
}

// AlreadyProcessed reports whether blockchainEventID has already produced a
// position_event_log row — the idempotency check check_event_already_processed
// performs before every mutation (original_source pnl_processor.rs).
func (r *PositionEventLogRepository) AlreadyProcessed(ctx context.Context, blockchainEventID chain.EventId) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PositionEventLog{}).
		Where("blockchain_event_id = ?", blockchainEventID.String()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check position event log for %s: %w", blockchainEventID, err)
	}
	return count > 0, nil
}

// Append records a position_event_log row inside the caller's transaction.
func (r *PositionEventLogRepository) Append(ctx context.Context, entry models.PositionEventLog) error {
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append position event log for position %d: %w", entry.PositionID, err)
	}
	return nil
}

// WithTx returns a repository bound to tx, for use inside a
// *gorm.DB.Transaction callback so Append participates in the same
// transaction as the position mutation it logs.
func (r *PositionEventLogRepository) WithTx(tx *gorm.DB) *PositionEventLogRepository {
	return &PositionEventLogRepository{db: tx}
}

// PnlCursorRepository manages the singleton pnl_processor_state row.
type PnlCursorRepository struct {
	db *gorm.DB
}

func NewPnlCursorRepository(db *gorm.DB) *PnlCursorRepository {
	return &PnlCursorRepository{db: db}
}

// Get returns the cursor, creating the id=1 row at the zero value if it
// does not yet exist (first run against a fresh database).
func (r *PnlCursorRepository) Get(ctx context.Context) (*models.PnlCursor, error) {
	var cur models.PnlCursor
	err := r.db.WithContext(ctx).Where("id = 1").First(&cur).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cur = models.PnlCursor{ID: 1}
		if err := r.db.WithContext(ctx).Create(&cur).Error; err != nil {
			return nil, fmt.Errorf("failed to initialize pnl cursor: %w", err)
		}
		return &cur, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pnl cursor: %w", err)
	}
	return &cur, nil
}

// Advance moves the cursor forward within tx, so it only commits alongside
// the batch of mutations it gates.
func (r *PnlCursorRepository) Advance(tx *gorm.DB, cur models.PnlCursor) error {
	cur.ID = 1
	if err := tx.Save(&cur).Error; err != nil {
		return fmt.Errorf("failed to advance pnl cursor: %w", err)
	}
	return nil
}

// IngestCursorRepository manages the generic named cursors C3/C4/C6/C7 each
// own one row of (spec §4.2-§4.3, SPEC_FULL §4.6).
type IngestCursorRepository struct {
	db *gorm.DB
}

func NewIngestCursorRepository(db *gorm.DB) *IngestCursorRepository {
	return &IngestCursorRepository{db: db}
}

func (r *IngestCursorRepository) Get(ctx context.Context, id string) (*models.IngestCursor, error) {
	var cur models.IngestCursor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cur).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.IngestCursor{ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingest cursor %s: %w", id, err)
	}
	return &cur, nil
}

func (r *IngestCursorRepository) Advance(ctx context.Context, cur models.IngestCursor) error {
	err := r.db.WithContext(ctx).Save(&cur).Error
	if err != nil {
		return fmt.Errorf("failed to advance ingest cursor %s: %w", cur.ID, err)
	}
	return nil
}

// PnlProcessingErrorRepository records poison events the PnL deriver could
// not process, so the cursor can skip past them (SPEC_FULL §4.4).
type PnlProcessingErrorRepository struct {
	db *gorm.DB
}

func NewPnlProcessingErrorRepository(db *gorm.DB) *PnlProcessingErrorRepository {
	return &PnlProcessingErrorRepository{db: db}
}

func (r *PnlProcessingErrorRepository) Record(ctx context.Context, perr models.PnlProcessingError) error {
	var existing models.PnlProcessingError
	err := r.db.WithContext(ctx).Where("event_id = ?", perr.EventID.String()).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.WithContext(ctx).Create(&perr).Error; err != nil {
			return fmt.Errorf("failed to record pnl processing error for %s: %w", perr.EventID, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up pnl processing error for %s: %w", perr.EventID, err)
	default:
		existing.Attempts++
		existing.Error = perr.Error
		existing.LastSeenAt = perr.LastSeenAt
		if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update pnl processing error for %s: %w", perr.EventID, err)
		}
		return nil
	}
}

func (r *PnlProcessingErrorRepository) Attempts(ctx context.Context, eventID chain.EventId) (int, error) {
	var existing models.PnlProcessingError
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID.String()).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up pnl processing error attempts for %s: %w", eventID, err)
	}
	return existing.Attempts, nil
}
