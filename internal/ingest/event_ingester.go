// Package ingest implements C3 (Event Ingester) and C4 (Model Ingester):
// the two workers that poll torii and persist what it returns, grounded on
// original_source's EventListenerTask and ModelListenerTask
// (event_listener.rs, model_listener.rs) — 10-second poll loop with a
// 1-second safety buffer subtracted from the last-seen timestamp, unique
// violations treated as silent dedup rather than errors, and successfully
// ingested "interesting" events forwarded to downstream derivers.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/logging"
	"github.com/ponziland/chainindexer/internal/metrics"
	"github.com/ponziland/chainindexer/internal/models"
	"github.com/ponziland/chainindexer/internal/repository"
	"github.com/ponziland/chainindexer/internal/supervisor"
	"github.com/ponziland/chainindexer/internal/torii"
)

// safetyBuffer is subtracted from the last-seen timestamp before polling,
// to tolerate upstream timestamp precision loss (spec §4.2).
const safetyBuffer = 1 * time.Second

// pageSize bounds a single torii SQL page.
const pageSize = 500

// EventIngester is C3: it polls torii's event table and persists every
// event it has not already seen.
type EventIngester struct {
	client    *torii.Client
	events    *repository.EventRepository
	cursors   *repository.IngestCursorRepository
	broadcast *supervisor.EventBroadcaster
	interval  time.Duration
	log       zerolog.Logger
}

func NewEventIngester(client *torii.Client, events *repository.EventRepository, cursors *repository.IngestCursorRepository, broadcast *supervisor.EventBroadcaster, interval time.Duration, log zerolog.Logger) *EventIngester {
	return &EventIngester{
		client:    client,
		events:    events,
		cursors:   cursors,
		broadcast: broadcast,
		interval:  interval,
		log:       logging.Component(log, "event-ingester"),
	}
}

func (e *EventIngester) Name() string { return "event-ingester" }

// Run implements supervisor.Worker.
func (e *EventIngester) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		if err := e.pollOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (e *EventIngester) pollOnce(ctx context.Context) error {
	cursor, err := e.cursors.Get(ctx, models.IngestCursorEvent)
	if err != nil {
		return err
	}
	since := cursor.LastProcessedTimestamp.Add(-safetyBuffer)

	count := 0
	var latest time.Time
	for raw, err := range e.client.EventsAfter(ctx, since, pageSize) {
		if err != nil {
			if errors.Is(err, chain.ErrTransport) {
				e.log.Warn().Err(err).Msg("transport error polling torii, will retry next tick")
				return nil
			}
			e.log.Error().Err(err).Msg("failed to decode event from torii, skipping")
			continue
		}
		if procErr := e.processEvent(ctx, raw); procErr != nil {
			e.log.Error().Err(procErr).Str("event_id", raw.EventID).Msg("failed to persist event")
			continue
		}
		count++
		if raw.Timestamp.After(latest) {
			latest = raw.Timestamp
		}
	}

	if count > 0 {
		e.log.Info().Int("count", count).Msg("ingested events")
		if err := e.cursors.Advance(ctx, models.IngestCursor{ID: models.IngestCursorEvent, LastProcessedTimestamp: latest}); err != nil {
			return err
		}
	}
	return nil
}

func (e *EventIngester) processEvent(ctx context.Context, raw torii.RawEvent) error {
	id, err := chain.ParseEventId(raw.EventID)
	if err != nil {
		return err
	}
	kind, payload, err := decodeEventPayload(id, raw.Name, raw.Data)
	if err != nil {
		return err
	}

	envelope := models.NewEvent(id, raw.Timestamp, kind)
	res, err := e.events.InsertEvent(ctx, envelope, payload)
	if err != nil {
		return err
	}
	if !res.Inserted {
		metrics.EventsDeduplicated.WithLabelValues(string(kind)).Inc()
		return nil
	}
	metrics.EventsIngested.WithLabelValues(string(kind)).Inc()

	if e.broadcast != nil && shouldForward(kind) {
		e.broadcast.Publish(envelope)
	}
	return nil
}

// shouldForward mirrors EventListenerTask's should_forward match: only
// events the PnL/history/wallet derivers care about are fanned out.
func shouldForward(kind models.EventKind) bool {
	switch kind {
	case models.EventKindLandBought, models.EventKindAuctionFinished, models.EventKindLandNuked, models.EventKindLandTransfer:
		return true
	default:
		return false
	}
}

type addStakePayload struct {
	Owner          string `json:"owner"`
	Location       uint16 `json:"location"`
	NewStakeAmount string `json:"new_stake_amount"`
}

type auctionFinishedPayload struct {
	Location uint16 `json:"location"`
	Buyer    string `json:"buyer"`
	Price    string `json:"price"`
}

type landBoughtPayload struct {
	Buyer     string `json:"buyer"`
	Seller    string `json:"seller"`
	Location  uint16 `json:"location"`
	SoldPrice string `json:"sold_price"`
	TokenUsed string `json:"token_used"`
}

type landNukedPayload struct {
	Owner    string `json:"owner"`
	Location uint16 `json:"location"`
}

type newAuctionPayload struct {
	Location   uint16 `json:"location"`
	StartTime  int64  `json:"start_time"`
	StartPrice string `json:"start_price"`
	FloorPrice string `json:"floor_price"`
	DecayRate  int64  `json:"decay_rate"`
}

type landTransferPayload struct {
	FromLocation uint16 `json:"from_location"`
	ToLocation   uint16 `json:"to_location"`
	TokenAddress string `json:"token_address"`
	Amount       string `json:"amount"`
}

type addressPayload struct {
	Address string `json:"address"`
}

type verifierUpdatedPayload struct {
	NewVerifier string `json:"new_verifier"`
}

// decodeEventPayload dispatches on the torii model name the way
// original_source's EventData::from_json does, returning the typed
// envelope kind and payload row to insert alongside it.
func decodeEventPayload(id chain.EventId, name string, data json.RawMessage) (models.EventKind, interface{}, error) {
	switch name {
	case "AddStake":
		var p addStakePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("%w: decoding AddStake payload: %v", chain.ErrParse, err)
		}
		return models.EventKindAddStake, &models.EventAddStake{
			EventID: id, Owner: chain.NormalizeAddress(p.Owner),
			Location: chain.Location(p.Location), NewStakeAmount: p.NewStakeAmount,
		}, nil
	case "AuctionFinished":
		var p auctionFinishedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("%w: decoding AuctionFinished payload: %v", chain.ErrParse, err)
		}
		return models.EventKindAuctionFinished, &models.EventAuctionFinished{
			EventID: id, Location: chain.Location(p.Location),
			Buyer: chain.NormalizeAddress(p.Buyer), Price: p.Price,
		}, nil
	case "LandBought":
		var p landBoughtPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("%w: decoding LandBought payload: %v", chain.ErrParse, err)
		}
		return models.EventKindLandBought, &models.EventLandBought{
			EventID: id, Buyer: chain.NormalizeAddress(p.Buyer), Seller: chain.NormalizeAddress(p.Seller),
			Location: chain.Location(p.Location), SoldPrice: p.SoldPrice, TokenUsed: chain.NormalizeAddress(p.TokenUsed),
		}, nil
	case "LandNuked":
		var p landNukedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("%w: decoding LandNuked payload: %v", chain.ErrParse, err)
		}
		return models.EventKindLandNuked, &models.EventLandNuked{
			EventID: id, Owner: chain.NormalizeAddress(p.Owner), Location: chain.Location(p.Location),
		}, nil
	case "NewAuction":
		var p newAuctionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("%w: decoding NewAuction payload: %v", chain.ErrParse, err)
		}
		return models.EventKindNewAuction, &models.EventNewAuction{
			EventID: id, Location: chain.Location(p.Location), StartTime: time.Unix(p.StartTime, 0).UTC(),
			StartPrice: p.StartPrice, FloorPrice: p.FloorPrice, DecayRate: p.DecayRate,
		}, nil
	case "LandTransferEvent", "LandTransfer":
		var p landTransferPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("%w: decoding LandTransfer payload: %v", chain.ErrParse, err)
		}
		return models.EventKindLandTransfer, &models.EventLandTransfer{
			EventID: id, FromLocation: chain.Location(p.FromLocation), ToLocation: chain.Location(p.ToLocation),
			TokenAddress: chain.NormalizeAddress(p.TokenAddress), Amount: p.Amount,
		}, nil
	case "AddressAuthorized":
		var p addressPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("%w: decoding AddressAuthorized payload: %v", chain.ErrParse, err)
		}
		return models.EventKindAddressAuthorized, &models.EventAddressAuthorized{EventID: id, Address: chain.NormalizeAddress(p.Address)}, nil
	case "AddressRemoved":
		var p addressPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("%w: decoding AddressRemoved payload: %v", chain.ErrParse, err)
		}
		return models.EventKindAddressRemoved, &models.EventAddressRemoved{EventID: id, Address: chain.NormalizeAddress(p.Address)}, nil
	case "VerifierUpdated":
		var p verifierUpdatedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", nil, fmt.Errorf("%w: decoding VerifierUpdated payload: %v", chain.ErrParse, err)
		}
		return models.EventKindVerifierUpdated, &models.EventVerifierUpdated{EventID: id, NewVerifier: chain.NormalizeAddress(p.NewVerifier)}, nil
	default:
		return "", nil, fmt.Errorf("%w: unrecognized event kind %q", chain.ErrParse, name)
	}
}
