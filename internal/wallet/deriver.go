// Package wallet implements C7, the Wallet Activity Deriver: it maintains
// wallet_activity, a per-address "last seen / how often" rollup, grounded
// on original_source's WalletActivityListenerTask
// (wallet_activity_listener.rs).
package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/logging"
	"github.com/ponziland/chainindexer/internal/models"
	"github.com/ponziland/chainindexer/internal/repository"
	"github.com/ponziland/chainindexer/internal/supervisor"
)

const pollInterval = 10 * time.Second

const batchSize = 500

// Deriver is C7. Like history.Deriver, it wakes on broadcaster activity but
// is itself cursor-driven over the event table, so a lagged notification
// only costs latency (SPEC_FULL §4.9).
type Deriver struct {
	db      *gorm.DB
	events  *repository.EventRepository
	wallets *repository.WalletRepository
	cursors *repository.IngestCursorRepository
	wake    <-chan supervisor.BroadcastMsg
	log     zerolog.Logger
}

func NewDeriver(db *gorm.DB, events *repository.EventRepository, wallets *repository.WalletRepository, cursors *repository.IngestCursorRepository, wake <-chan supervisor.BroadcastMsg, log zerolog.Logger) *Deriver {
	return &Deriver{
		db: db, events: events, wallets: wallets, cursors: cursors, wake: wake,
		log: logging.Component(log, "wallet-deriver"),
	}
}

func (d *Deriver) Name() string { return "wallet-deriver" }

func (d *Deriver) Run(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	if err := d.pollOnce(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.pollOnce(ctx); err != nil {
				return err
			}
		case msg, ok := <-d.wake:
			if !ok {
				return nil
			}
			if msg.Lagged {
				d.log.Debug().Msg("missed a broadcast notification, falling back to cursor catch-up")
			}
			if err := d.pollOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (d *Deriver) pollOnce(ctx context.Context) error {
	cursor, err := d.cursors.Get(ctx, models.IngestCursorWallet)
	if err != nil {
		return err
	}

	events, err := d.events.EventsAfter(ctx, cursorEventID(cursor), batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	latestTimestamp := cursor.LastProcessedTimestamp
	var latestID *chain.EventId
	for _, event := range events {
		if err := d.processEvent(ctx, event); err != nil {
			d.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to record wallet activity")
			continue
		}
		latestTimestamp = event.At
		id := event.ID
		latestID = &id
	}

	return d.cursors.Advance(ctx, models.IngestCursor{ID: models.IngestCursorWallet, LastProcessedTimestamp: latestTimestamp, LastProcessedEventID: latestID})
}

func cursorEventID(cursor *models.IngestCursor) chain.EventId {
	if cursor.LastProcessedEventID != nil {
		return *cursor.LastProcessedEventID
	}
	return chain.EventId{}
}

func (d *Deriver) processEvent(ctx context.Context, event models.Event) error {
	switch event.Kind {
	case models.EventKindLandBought:
		var payload models.EventLandBought
		if err := d.db.WithContext(ctx).Where("event_id = ?", event.ID.String()).First(&payload).Error; err != nil {
			return fmt.Errorf("loading land_bought payload for %s: %w", event.ID, err)
		}
		return d.recordAll(ctx, event.At, payload.Buyer, payload.Seller)

	case models.EventKindAuctionFinished:
		var payload models.EventAuctionFinished
		if err := d.db.WithContext(ctx).Where("event_id = ?", event.ID.String()).First(&payload).Error; err != nil {
			return fmt.Errorf("loading auction_finished payload for %s: %w", event.ID, err)
		}
		return d.recordAll(ctx, event.At, payload.Buyer)

	case models.EventKindLandNuked:
		var payload models.EventLandNuked
		if err := d.db.WithContext(ctx).Where("event_id = ?", event.ID.String()).First(&payload).Error; err != nil {
			return fmt.Errorf("loading land_nuked payload for %s: %w", event.ID, err)
		}
		return d.recordAll(ctx, event.At, payload.Owner)

	case models.EventKindAddStake:
		var payload models.EventAddStake
		if err := d.db.WithContext(ctx).Where("event_id = ?", event.ID.String()).First(&payload).Error; err != nil {
			return fmt.Errorf("loading add_stake payload for %s: %w", event.ID, err)
		}
		return d.recordAll(ctx, event.At, payload.Owner)

	default:
		// LandTransfer carries locations, not addresses; not tracked here
		// (original_source's handle_land_transfer is the same no-op).
		return nil
	}
}

func (d *Deriver) recordAll(ctx context.Context, at time.Time, addresses ...string) error {
	for _, addr := range addresses {
		if chain.IsZeroAddress(addr) {
			continue
		}
		if err := d.wallets.RecordActivity(ctx, addr, at); err != nil {
			return err
		}
	}
	return nil
}
