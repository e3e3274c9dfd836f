// Package history implements C6, the History Deriver: it maintains
// land_historical, the flat ownership-lifecycle table backing leaderboards
// and drop analytics, grounded on original_source's
// LandHistoricalListenerTask (land_historical_listener.rs).
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/logging"
	"github.com/ponziland/chainindexer/internal/models"
	"github.com/ponziland/chainindexer/internal/price"
	"github.com/ponziland/chainindexer/internal/repository"
	"github.com/ponziland/chainindexer/internal/supervisor"
)

const pollInterval = 10 * time.Second

const batchSize = 500

// Deriver is C6. It wakes on every supervisor.EventBroadcaster message but
// always re-reads from its own cursor over the event table, so a dropped
// "lagged" notification only costs latency, never correctness (SPEC_FULL
// §4.9).
type Deriver struct {
	db        *gorm.DB
	events    *repository.EventRepository
	historical *repository.LandHistoricalRepository
	cursors   *repository.IngestCursorRepository
	tokens    *repository.TokenRegistryRepository
	prices    *price.Store
	wake      <-chan supervisor.BroadcastMsg
	log       zerolog.Logger
}

func NewDeriver(
	db *gorm.DB,
	events *repository.EventRepository,
	historical *repository.LandHistoricalRepository,
	cursors *repository.IngestCursorRepository,
	tokens *repository.TokenRegistryRepository,
	prices *price.Store,
	wake <-chan supervisor.BroadcastMsg,
	log zerolog.Logger,
) *Deriver {
	return &Deriver{
		db: db, events: events, historical: historical, cursors: cursors,
		tokens: tokens, prices: prices, wake: wake,
		log: logging.Component(log, "history-deriver"),
	}
}

func (d *Deriver) Name() string { return "history-deriver" }

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
	cursor, err := d.cursors.Get(ctx, models.IngestCursorHistory)
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
			d.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to derive land_historical row")
			continue
		}
		latestTimestamp = event.At
		id := event.ID
		latestID = &id
	}

	return d.cursors.Advance(ctx, models.IngestCursor{ID: models.IngestCursorHistory, LastProcessedTimestamp: latestTimestamp, LastProcessedEventID: latestID})
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
		return d.handleLandBought(ctx, event)
	case models.EventKindAuctionFinished:
		return d.handleAuctionFinished(ctx, event)
	case models.EventKindLandNuked:
		return d.handleLandNuked(ctx, event)
	case models.EventKindLandTransfer:
		return d.handleLandTransfer(ctx, event)
	default:
		return nil
	}
}

func (d *Deriver) handleLandBought(ctx context.Context, event models.Event) error {
	var payload models.EventLandBought
	if err := d.db.WithContext(ctx).Where("event_id = ?", event.ID.String()).First(&payload).Error; err != nil {
		return fmt.Errorf("loading land_bought payload for %s: %w", event.ID, err)
	}

	if chain.IsZeroAddress(payload.Buyer) {
		return nil // zero-address buyer: no rows closed, no new row
	}

	saleToken := payload.TokenUsed
	saleRevenueUsd := d.convertToUSD(ctx, payload.SoldPrice, payload.TokenUsed)
	closed, err := d.historical.ClosePositionsByLocationWithSale(ctx, payload.Location, event.At, models.CloseReasonBought, &payload.SoldPrice, saleRevenueUsd, &saleToken)
	if err != nil {
		return err
	}
	if closed > 0 {
		d.log.Info().Int64("closed", closed).Str("location", payload.Location.String()).Msg("closed previous land_historical rows on bought")
	}

	buyCostUsd := d.convertToUSD(ctx, payload.SoldPrice, payload.TokenUsed)
	row := models.LandHistorical{
		ID: landHistoricalID(payload.Buyer, payload.Location, event.At), At: event.At,
		Owner: payload.Buyer, LandLocation: payload.Location, TimeBought: event.At,
		BuyCostToken: &payload.SoldPrice, BuyCostUsd: buyCostUsd, BuyTokenUsed: &payload.TokenUsed,
	}
	return d.historical.Save(ctx, row)
}

func (d *Deriver) handleAuctionFinished(ctx context.Context, event models.Event) error {
	var payload models.EventAuctionFinished
	if err := d.db.WithContext(ctx).Where("event_id = ?", event.ID.String()).First(&payload).Error; err != nil {
		return fmt.Errorf("loading auction_finished payload for %s: %w", event.ID, err)
	}

	if chain.IsZeroAddress(payload.Buyer) {
		return nil
	}

	closed, err := d.historical.ClosePositionsByLocationWithSale(ctx, payload.Location, event.At, models.CloseReasonBought, &payload.Price, nil, nil)
	if err != nil {
		return err
	}
	if closed > 0 {
		d.log.Info().Int64("closed", closed).Str("location", payload.Location.String()).Msg("closed previous land_historical rows on auction won")
	}

	row := models.LandHistorical{
		ID: landHistoricalID(payload.Buyer, payload.Location, event.At), At: event.At,
		Owner: payload.Buyer, LandLocation: payload.Location, TimeBought: event.At,
		BuyCostToken: &payload.Price,
	}
	return d.historical.Save(ctx, row)
}

func (d *Deriver) handleLandNuked(ctx context.Context, event models.Event) error {
	var payload models.EventLandNuked
	if err := d.db.WithContext(ctx).Where("event_id = ?", event.ID.String()).First(&payload).Error; err != nil {
		return fmt.Errorf("loading land_nuked payload for %s: %w", event.ID, err)
	}
	closed, err := d.historical.ClosePositionsByLocation(ctx, payload.Location, event.At, models.CloseReasonNuked)
	if err != nil {
		return err
	}
	d.log.Info().Int64("closed", closed).Str("location", payload.Location.String()).Msg("closed land_historical rows on nuke")
	return nil
}

func (d *Deriver) handleLandTransfer(ctx context.Context, event models.Event) error {
	var payload models.EventLandTransfer
	if err := d.db.WithContext(ctx).Where("event_id = ?", event.ID.String()).First(&payload).Error; err != nil {
		return fmt.Errorf("loading land_transfer payload for %s: %w", event.ID, err)
	}
	amount, err := chain.ParseU256(payload.Amount)
	if err != nil {
		return err
	}

	fromRows, err := d.historical.OpenPositionsByLocation(ctx, payload.FromLocation)
	if err != nil {
		return err
	}
	for _, row := range fromRows {
		repository.AccrueOutflow(&row, payload.TokenAddress, amount)
		if err := d.historical.Save(ctx, row); err != nil {
			return err
		}
	}

	toRows, err := d.historical.OpenPositionsByLocation(ctx, payload.ToLocation)
	if err != nil {
		return err
	}
	for _, row := range toRows {
		repository.AccrueInflow(&row, payload.TokenAddress, amount)
		if err := d.historical.Save(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// convertToUSD renders tokenAmount * usd_ratio as a decimal string, where
// usd_ratio = usdc_ratio/token_ratio (spec §4.7), or nil if the token or
// USDC itself has no price in the current snapshot (§9's explicit
// resolution: skip the column rather than error the deriver).
func (d *Deriver) convertToUSD(ctx context.Context, tokenAmount string, tokenAddress string) *string {
	amount, err := chain.ParseU256(tokenAmount)
	if err != nil {
		return nil
	}
	usdcAddress, ok := price.ResolveUSDCAddress(ctx, d.tokens)
	if !ok {
		return nil
	}
	usdRatio, ok := d.prices.Current().UsdRatioOf(chain.NormalizeAddress(tokenAddress), usdcAddress)
	if !ok {
		return nil
	}
	usd := usdRatio.Mul(chain.DecimalFromU256(amount)).String()
	return &usd
}

// landHistoricalID recipe (spec §3): "{owner_hex}_{location_display}_{unix_timestamp}".
func landHistoricalID(owner string, loc chain.Location, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d", chain.NormalizeAddress(owner), loc.String(), at.Unix())
}
