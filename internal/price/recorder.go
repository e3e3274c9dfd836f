package price

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ponziland/chainindexer/internal/logging"
	"github.com/ponziland/chainindexer/internal/models"
	"github.com/ponziland/chainindexer/internal/repository"
)

// Recorder periodically writes the current Snapshot to
// historical_price_feed, so price history survives process restarts
// (spec §4.7).
type Recorder struct {
	store    *Store
	repo     *repository.PriceFeedRepository
	interval time.Duration
	log      zerolog.Logger
}

func NewRecorder(store *Store, repo *repository.PriceFeedRepository, interval time.Duration, log zerolog.Logger) *Recorder {
	return &Recorder{store: store, repo: repo, interval: interval, log: logging.Component(log, "price-recorder")}
}

func (r *Recorder) Name() string { return "price-recorder" }

func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.record(ctx)
		}
	}
}

func (r *Recorder) record(ctx context.Context) {
	snap := r.store.Current()
	if snap.UpdatedAt.IsZero() {
		return // no price data fetched yet
	}
	for symbol, ratio := range snap.Ratios {
		row := models.HistoricalPriceFeed{
			Symbol:    symbol,
			Price:     ratio.String(),
			Timestamp: snap.UpdatedAt,
		}
		if err := r.repo.Record(ctx, row); err != nil {
			r.log.Error().Err(err).Str("symbol", symbol).Msg("failed to record price feed")
		}
	}
}
