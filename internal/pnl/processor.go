// Package pnl implements C5, the Position Deriver: a cursor-driven batch
// processor that turns the raw event log into first-class LandPosition
// accounting rows, grounded directly on original_source's PnlProcessorTask
// (pnl_processor.rs) — same dispatch table (AuctionFinished/LandBought/
// LandNuked/LandTransfer/AddStake), same idempotency check via
// position_event_log, same close_position_at_location helper.
package pnl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/logging"
	"github.com/ponziland/chainindexer/internal/metrics"
	"github.com/ponziland/chainindexer/internal/models"
	"github.com/ponziland/chainindexer/internal/repository"
)

// maxAttempts bounds how many times a poison event is retried before it is
// recorded as permanently failed and the cursor skips past it (SPEC_FULL
// §4.4 [ADD]; original_source has no such ceiling and would loop forever on
// a malformed event).
const maxAttempts = 5

const batchSize = 500

// Processor is C5.
type Processor struct {
	db        *gorm.DB
	events    *repository.EventRepository
	lands     *repository.LandRepository
	stakes    *repository.LandStakeRepository
	positions *repository.PositionRepository
	logs      *repository.PositionEventLogRepository
	cursor    *repository.PnlCursorRepository
	poison    *repository.PnlProcessingErrorRepository
	interval  time.Duration
	log       zerolog.Logger
}

func NewProcessor(
	db *gorm.DB,
	events *repository.EventRepository,
	lands *repository.LandRepository,
	stakes *repository.LandStakeRepository,
	positions *repository.PositionRepository,
	logs *repository.PositionEventLogRepository,
	cursor *repository.PnlCursorRepository,
	poison *repository.PnlProcessingErrorRepository,
	interval time.Duration,
	log zerolog.Logger,
) *Processor {
	return &Processor{
		db: db, events: events, lands: lands, stakes: stakes, positions: positions,
		logs: logs, cursor: cursor, poison: poison, interval: interval,
		log: logging.Component(log, "pnl-processor"),
	}
}

func (p *Processor) Name() string { return "pnl-processor" }

func (p *Processor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.processBatch(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Processor) processBatch(ctx context.Context) error {
	state, err := p.cursor.Get(ctx)
	if err != nil {
		return err
	}

	events, err := p.events.EventsAfter(ctx, cursorEventID(state), batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	p.log.Info().Int("count", len(events)).Msg("processing events for pnl")

	latestTimestamp := state.LastProcessedTimestamp
	latestID := state.LastProcessedEventID

	for _, event := range events {
		if err := p.processEventWithRetryPolicy(ctx, event); err != nil {
			// Stop here so the cursor stays before this event and the next
			// batch retries it.
			p.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to process event, will retry next batch")
			break
		}
		latestTimestamp = event.At
		id := event.ID
		latestID = &id
	}

	return p.cursor.Advance(p.db.WithContext(ctx), models.PnlCursor{LastProcessedTimestamp: latestTimestamp, LastProcessedEventID: latestID})
}

func cursorEventID(state *models.PnlCursor) chain.EventId {
	if state.LastProcessedEventID != nil {
		return *state.LastProcessedEventID
	}
	return chain.EventId{}
}

// processEventWithRetryPolicy processes event, recording a poison-event row
// on failure instead of blocking the whole batch forever, and giving up
// (logging, not erroring) once maxAttempts have been recorded.
func (p *Processor) processEventWithRetryPolicy(ctx context.Context, event models.Event) error {
	err := p.processEvent(ctx, event)
	if err == nil {
		return nil
	}

	attempts, attErr := p.poison.Attempts(ctx, event.ID)
	if attErr != nil {
		return attErr
	}
	now := time.Now()
	recordErr := p.poison.Record(ctx, models.PnlProcessingError{
		EventID: event.ID, EventKind: event.Kind, Error: err.Error(),
		Attempts: attempts + 1, FirstSeenAt: now, LastSeenAt: now,
	})
	if recordErr != nil {
		return recordErr
	}
	metrics.DeriverBatchErrors.WithLabelValues("pnl-processor").Inc()
	if attempts+1 >= maxAttempts {
		return nil // give up, let the cursor move past it
	}
	return err
}

func (p *Processor) processEvent(ctx context.Context, event models.Event) error {
	switch event.Kind {
	case models.EventKindAuctionFinished:
		return p.handleAuctionFinished(ctx, event)
	case models.EventKindLandBought:
		return p.handleLandBought(ctx, event)
	case models.EventKindLandNuked:
		return p.handleLandNuked(ctx, event)
	case models.EventKindLandTransfer:
		return p.handleLandTransfer(ctx, event)
	case models.EventKindAddStake:
		return p.handleAddStake(ctx, event)
	default:
		return nil // not relevant to PnL
	}
}

func (p *Processor) alreadyProcessed(ctx context.Context, event models.Event) (bool, error) {
	return p.logs.AlreadyProcessed(ctx, event.ID)
}

func (p *Processor) handleAuctionFinished(ctx context.Context, event models.Event) error {
	if done, err := p.alreadyProcessed(ctx, event); err != nil || done {
		return err
	}

	var payload models.EventAuctionFinished
	if err := p.db.WithContext(ctx).Where("event_id = ?", event.ID.String()).First(&payload).Error; err != nil {
		return fmt.Errorf("loading auction_finished payload for %s: %w", event.ID, err)
	}

	if chain.IsZeroAddress(payload.Buyer) {
		return nil // unfilled auction, no position to open
	}

	land, err := p.lands.GetByLocation(ctx, payload.Location)
	if err != nil {
		return fmt.Errorf("loading land at %s: %w", payload.Location, err)
	}
	stake, err := p.stakes.GetByLocation(ctx, payload.Location)
	initialStake := "0"
	if err == nil {
		initialStake = stake.Amount
	}

	pos := &models.LandPosition{
		Location: payload.Location, Owner: payload.Buyer, TokenUsed: land.TokenUsed,
		EntryPrice: payload.Price, EntryToken: land.TokenUsed, EntryType: models.EntryTypeAuction,
		EntryTimestamp: event.At, EntryEventID: event.ID, InitialStake: initialStake,
		TotalStakeAdded: "0", TaxesEarnedByToken: emptyJSONObject(), TaxesPaidAmount: "0",
		TotalBuyFee: "0", TotalClaimFees: "0", Status: models.PositionStatusActive,
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := p.positions.WithTx(tx).Create(ctx, pos); err != nil {
			return err
		}
		return p.appendLog(ctx, tx, pos.PositionID, models.PositionEventCreated, event, map[string]any{
			"entry_type": "AUCTION", "buyer": payload.Buyer, "price": payload.Price, "location": payload.Location.String(),
		})
	})
}

func (p *Processor) handleLandBought(ctx context.Context, event models.Event) error {
	if done, err := p.alreadyProcessed(ctx, event); err != nil || done {
		return err
	}

	var payload models.EventLandBought
	if err := p.db.WithContext(ctx).Where("event_id = ?", event.ID.String()).First(&payload).Error; err != nil {
		return fmt.Errorf("loading land_bought payload for %s: %w", event.ID, err)
	}

	if payload.Buyer != payload.Seller {
		land, err := p.lands.GetByLocation(ctx, payload.Location)
		if err != nil {
			return fmt.Errorf("loading land at %s: %w", payload.Location, err)
		}
		stake, err := p.stakes.GetByLocation(ctx, payload.Location)
		initialStake := "0"
		if err == nil {
			initialStake = stake.Amount
		}

		pos := &models.LandPosition{
			Location: payload.Location, Owner: payload.Buyer, TokenUsed: land.TokenUsed,
			EntryPrice: payload.SoldPrice, EntryToken: payload.TokenUsed, EntryType: models.EntryTypeBuy,
			EntryTimestamp: event.At, EntryEventID: event.ID, InitialStake: initialStake,
			TotalStakeAdded: "0", TaxesEarnedByToken: emptyJSONObject(), TaxesPaidAmount: "0",
			TotalBuyFee: "0", TotalClaimFees: "0", Status: models.PositionStatusActive,
		}
		if err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := p.positions.WithTx(tx).Create(ctx, pos); err != nil {
				return err
			}
			return p.appendLog(ctx, tx, pos.PositionID, models.PositionEventCreated, event, map[string]any{
				"entry_type": "BUY", "buyer": payload.Buyer, "seller": payload.Seller,
				"price": payload.SoldPrice, "token_used": payload.TokenUsed, "location": payload.Location.String(),
			})
		}); err != nil {
			return err
		}
	}

	if !chain.IsZeroAddress(payload.Seller) {
		if err := p.closePositionAtLocation(ctx, payload.Location, payload.Seller, payload.SoldPrice, "0", event, models.ExitTypeSold); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) handleLandNuked(ctx context.Context, event models.Event) error {
	if done, err := p.alreadyProcessed(ctx, event); err != nil || done {
		return err
	}
	var payload models.EventLandNuked
	if err := p.db.WithContext(ctx).Where("event_id = ?", event.ID.String()).First(&payload).Error; err != nil {
		return fmt.Errorf("loading land_nuked payload for %s: %w", event.ID, err)
	}
	return p.closePositionAtLocation(ctx, payload.Location, payload.Owner, "0", "0", event, models.ExitTypeNuked)
}

func (p *Processor) handleLandTransfer(ctx context.Context, event models.Event) error {
	if done, err := p.alreadyProcessed(ctx, event); err != nil || done {
		return err
	}
	var payload models.EventLandTransfer
	if err := p.db.WithContext(ctx).Where("event_id = ?", event.ID.String()).First(&payload).Error; err != nil {
		return fmt.Errorf("loading land_transfer payload for %s: %w", event.ID, err)
	}

	fromLand, err := p.lands.GetByLocation(ctx, payload.FromLocation)
	if err != nil {
		return nil // no land recorded yet for this location; nothing to tax
	}

	pos, err := p.positions.GetActiveByOwnerAndLocation(ctx, fromLand.Owner, payload.FromLocation)
	if err == repository.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return p.appendLog(ctx, tx, pos.PositionID, models.PositionEventTaxOut, event, map[string]any{
			"from_location": payload.FromLocation.String(), "to_location": payload.ToLocation.String(),
			"amount": payload.Amount, "token_address": payload.TokenAddress,
		})
	})
}

func (p *Processor) handleAddStake(ctx context.Context, event models.Event) error {
	if done, err := p.alreadyProcessed(ctx, event); err != nil || done {
		return err
	}
	var payload models.EventAddStake
	if err := p.db.WithContext(ctx).Where("event_id = ?", event.ID.String()).First(&payload).Error; err != nil {
		return fmt.Errorf("loading add_stake payload for %s: %w", event.ID, err)
	}

	pos, err := p.positions.GetActiveByOwnerAndLocation(ctx, payload.Owner, payload.Location)
	if err == repository.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	added, err := chain.ParseU256(payload.NewStakeAmount)
	if err != nil {
		return err
	}
	current, err := chain.ParseU256(pos.TotalStakeAdded)
	if err != nil {
		current = chain.ZeroU256
	}
	pos.TotalStakeAdded = current.Add(added).String()

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := p.positions.WithTx(tx).Save(ctx, pos); err != nil {
			return err
		}
		return p.appendLog(ctx, tx, pos.PositionID, models.PositionEventStakeAdded, event, map[string]any{
			"owner": payload.Owner, "new_stake_amount": payload.NewStakeAmount, "location": payload.Location.String(),
		})
	})
}

func (p *Processor) closePositionAtLocation(ctx context.Context, loc chain.Location, owner, exitPrice, stakeRefunded string, event models.Event, exitType models.ExitType) error {
	pos, err := p.positions.GetActiveByOwnerAndLocation(ctx, owner, loc)
	if err == repository.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	exitTimestamp := event.At
	exitEventID := event.ID
	pos.ExitPrice = &exitPrice
	pos.StakeRefunded = &stakeRefunded
	pos.ExitTimestamp = &exitTimestamp
	pos.ExitType = &exitType
	pos.ExitEventID = &exitEventID
	pos.Status = models.PositionStatusClosed

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := p.positions.WithTx(tx).Save(ctx, pos); err != nil {
			return err
		}
		return p.appendLog(ctx, tx, pos.PositionID, models.PositionEventClosed, event, map[string]any{
			"exit_type": exitType, "exit_price": exitPrice, "stake_refunded": stakeRefunded,
			"location": loc.String(), "owner": owner,
		})
	})
}

func (p *Processor) appendLog(ctx context.Context, tx *gorm.DB, positionID int64, eventType models.PositionEventType, event models.Event, data map[string]any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding position event log data: %w", err)
	}
	return p.logs.WithTx(tx).Append(ctx, models.PositionEventLog{
		PositionID: positionID, EventType: eventType, EventData: datatypes.JSON(encoded),
		Timestamp: event.At, BlockchainEventID: event.ID,
	})
}

func emptyJSONObject() datatypes.JSON {
	return datatypes.JSON([]byte(`{}`))
}
