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
	"github.com/ponziland/chainindexer/internal/torii"
)

// ModelIngester is C4: it polls torii's land/land_stake/auction ECS tables
// and upserts the "latest snapshot per location" rows (spec §4.3),
// grounded on original_source's ModelListenerTask.
type ModelIngester struct {
	client  *torii.Client
	lands   *repository.LandRepository
	stakes  *repository.LandStakeRepository
	auction *repository.AuctionRepository
	cursors *repository.IngestCursorRepository
	interval time.Duration
	log     zerolog.Logger
}

func NewModelIngester(client *torii.Client, lands *repository.LandRepository, stakes *repository.LandStakeRepository, auction *repository.AuctionRepository, cursors *repository.IngestCursorRepository, interval time.Duration, log zerolog.Logger) *ModelIngester {
	return &ModelIngester{
		client: client, lands: lands, stakes: stakes, auction: auction, cursors: cursors,
		interval: interval, log: logging.Component(log, "model-ingester"),
	}
}

func (m *ModelIngester) Name() string { return "model-ingester" }

func (m *ModelIngester) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if err := m.pollOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *ModelIngester) pollOnce(ctx context.Context) error {
	cursor, err := m.cursors.Get(ctx, models.IngestCursorModel)
	if err != nil {
		return err
	}
	since := cursor.LastProcessedTimestamp.Add(-safetyBuffer)

	var latest time.Time
	count := 0

	for _, table := range []torii.ModelTable{torii.ModelTableLand, torii.ModelTableLandStake, torii.ModelTableAuction} {
		for raw, err := range m.client.ModelsAfter(ctx, table, since, pageSize) {
			if err != nil {
				if errors.Is(err, chain.ErrTransport) {
					m.log.Warn().Err(err).Str("table", string(table)).Msg("transport error polling torii models, will retry next tick")
					break
				}
				m.log.Error().Err(err).Str("table", string(table)).Msg("failed to decode model from torii, skipping")
				continue
			}
			if procErr := m.processModel(ctx, table, raw); procErr != nil {
				m.log.Error().Err(procErr).Str("event_id", raw.EventID).Msg("failed to persist model")
				continue
			}
			count++
			if raw.Timestamp.After(latest) {
				latest = raw.Timestamp
			}
		}
	}

	if count > 0 {
		m.log.Info().Int("count", count).Msg("ingested models")
		if err := m.cursors.Advance(ctx, models.IngestCursor{ID: models.IngestCursorModel, LastProcessedTimestamp: latest}); err != nil {
			return err
		}
	}
	return nil
}

type landDTO struct {
	Location        uint16 `json:"location"`
	Owner           string `json:"owner"`
	TokenUsed       string `json:"token_used"`
	SellPrice       string `json:"sell_price"`
	Level           int32  `json:"level"`
	BlockDateBought int64  `json:"block_date_bought"`
}

type landStakeDTO struct {
	Location              uint16 `json:"location"`
	Amount                string `json:"amount"`
	NeighborsInfoPacked   string `json:"neighbors_info_packed"`
}

type auctionDTO struct {
	Location   uint16 `json:"location"`
	StartTime  int64  `json:"start_time"`
	StartPrice string `json:"start_price"`
	FloorPrice string `json:"floor_price"`
	DecayRate  int64  `json:"decay_rate"`
	IsFinished bool   `json:"is_finished"`
}

func (m *ModelIngester) processModel(ctx context.Context, table torii.ModelTable, raw torii.RawModel) error {
	id, err := chain.ParseEventId(raw.EventID)
	if err != nil {
		return err
	}

	switch table {
	case torii.ModelTableLand:
		var dto landDTO
		if err := json.Unmarshal(raw.Data, &dto); err != nil {
			return fmt.Errorf("%w: decoding Land model: %v", chain.ErrParse, err)
		}
		land := models.Land{
			ID: id, At: raw.Timestamp, Location: chain.Location(dto.Location),
			Owner: chain.NormalizeAddress(dto.Owner), TokenUsed: chain.NormalizeAddress(dto.TokenUsed),
			SellPrice: dto.SellPrice, Level: dto.Level, BlockDateBought: dto.BlockDateBought,
		}
		if err := m.lands.Upsert(ctx, land); err != nil {
			return err
		}
		metrics.ModelsIngested.WithLabelValues("Land").Inc()
		return nil

	case torii.ModelTableLandStake:
		var dto landStakeDTO
		if err := json.Unmarshal(raw.Data, &dto); err != nil {
			return fmt.Errorf("%w: decoding LandStake model: %v", chain.ErrParse, err)
		}
		info, err := chain.ParseNeighborsInfoPacked(dto.NeighborsInfoPacked)
		if err != nil {
			return err
		}
		stake := models.LandStake{
			ID: id, At: raw.Timestamp, Location: chain.Location(dto.Location), Amount: dto.Amount,
			EarliestClaimNeighborTime:     info.EarliestClaimNeighborTime,
			EarliestClaimNeighborLocation: info.EarliestClaimNeighborLocation,
			NumActiveNeighbors:            int32(info.NumActiveNeighbors),
		}
		if err := m.stakes.Upsert(ctx, stake); err != nil {
			return err
		}
		metrics.ModelsIngested.WithLabelValues("LandStake").Inc()
		return nil

	case torii.ModelTableAuction:
		var dto auctionDTO
		if err := json.Unmarshal(raw.Data, &dto); err != nil {
			return fmt.Errorf("%w: decoding Auction model: %v", chain.ErrParse, err)
		}
		auction := models.Auction{
			ID: id, At: raw.Timestamp, Location: chain.Location(dto.Location),
			StartTime: time.Unix(dto.StartTime, 0).UTC(), StartPrice: dto.StartPrice,
			FloorPrice: dto.FloorPrice, DecayRate: dto.DecayRate, IsFinished: dto.IsFinished,
		}
		if err := m.auction.Upsert(ctx, auction); err != nil {
			return err
		}
		metrics.ModelsIngested.WithLabelValues("Auction").Inc()
		return nil

	default:
		return fmt.Errorf("%w: unrecognized model table %q", chain.ErrParse, table)
	}
}
