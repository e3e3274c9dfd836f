package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/models"
)

// EventRepository is C1's typed accessor for the envelope table and its
// nine per-kind payload tables (spec §3).
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// InsertResult reports whether InsertEvent actually wrote a row, so callers
// can distinguish "newly ingested" from "already processed" without
// treating the latter as an error (spec §4.2: ingestion is idempotent).
type InsertResult struct {
	Inserted bool
}

// InsertEvent writes the envelope row and its typed payload row in one
// transaction. If id already exists the insert is a no-op (ON CONFLICT DO
// NOTHING) and InsertResult.Inserted is false — the caller uses this to
// increment metrics.EventsDeduplicated instead of metrics.EventsIngested.
func (r *EventRepository) InsertEvent(ctx context.Context, event models.Event, payload interface{}) (InsertResult, error) {
	res := InsertResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&event)
		if result.Error != nil {
			return fmt.Errorf("failed to insert event %s: %w", event.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return nil // already processed; payload table was already written alongside it
		}
		res.Inserted = true
		if payload == nil {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(payload).Error; err != nil {
			return fmt.Errorf("failed to insert payload for event %s: %w", event.ID, err)
		}
		return nil
	})
	return res, err
}

// GetByID returns the envelope row for id.
func (r *EventRepository) GetByID(ctx context.Context, id chain.EventId) (*models.Event, error) {
	var ev models.Event
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return &ev, nil
}

// LastEventAt returns the id of the highest-ordered event (by block,
// tx_index, event_index) and true, or a zero id and false if the table is
// empty (fresh database, spec §4.2 "start from the beginning of time").
func (r *EventRepository) LastEventAt(ctx context.Context) (chain.EventId, bool, error) {
	var ev models.Event
	err := r.db.WithContext(ctx).Order("block DESC, tx_index DESC, event_index DESC").First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chain.EventId{}, false, nil
	}
	if err != nil {
		return chain.EventId{}, false, fmt.Errorf("failed to get last event: %w", err)
	}
	return ev.ID, true, nil
}

// EventsAfter returns every envelope row strictly after cursor, in
// ascending (block, tx_index, event_index) order, capped at limit rows — the local mirror of
// torii.EventsAfter used once events are already persisted (spec §4.4's
// PnL deriver reads through this, not torii, per SPEC_FULL §4.4).
func (r *EventRepository) EventsAfter(ctx context.Context, cursor chain.EventId, limit int) ([]models.Event, error) {
	var events []models.Event
	q := r.db.WithContext(ctx).Order("block ASC, tx_index ASC, event_index ASC").Limit(limit)
	if !cursor.IsZero() {
		q = q.Where("(block, tx_index, event_index) > (?, ?, ?)", cursor.Block, cursor.TxIndex, cursor.EventIndex)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events after %s: %w", cursor, err)
	}
	return events, nil
}
