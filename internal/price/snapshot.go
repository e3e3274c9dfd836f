package price

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ponziland/chainindexer/internal/logging"
	"github.com/ponziland/chainindexer/internal/metrics"
)

// Snapshot is an immutable view of every token's ratio against the
// configured default/reference token, at one point in time.
type Snapshot struct {
	Ratios    map[string]decimal.Decimal
	UpdatedAt time.Time
}

// RatioOf returns the ratio for address and whether it was present.
func (s *Snapshot) RatioOf(address string) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Zero, false
	}
	r, ok := s.Ratios[address]
	return r, ok
}

// UsdRatioOf returns the USD price of one unit of tokenAddress:
// usd_ratio = usdc_ratio/token_ratio (spec §4.7's historical_price_feed
// formula, reused here since it is exactly "USD per token" once both sides
// are the reference-token-denominated ratios this snapshot stores). False
// if either ratio is missing or tokenRatio is zero.
func (s *Snapshot) UsdRatioOf(tokenAddress, usdcAddress string) (decimal.Decimal, bool) {
	tokenRatio, ok := s.RatioOf(tokenAddress)
	if !ok || tokenRatio.IsZero() {
		return decimal.Zero, false
	}
	usdcRatio, ok := s.RatioOf(usdcAddress)
	if !ok {
		return decimal.Zero, false
	}
	return usdcRatio.Div(tokenRatio), true
}

// Store holds the atomically-swappable current Snapshot (spec §4.7/C8: "a
// concurrent reader must never observe a partially-updated snapshot" — the
// Go analog of the Rust service's arc-swap, implemented with
// sync/atomic.Pointer rather than a mutex since readers never need to
// block a writer).
type Store struct {
	current atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{Ratios: map[string]decimal.Decimal{}, UpdatedAt: time.Time{}})
	return s
}

// NewStoreWithRatios seeds a Store with a fixed snapshot, for callers (tests,
// one-off scripts) that need a known price without driving an Updater.
func NewStoreWithRatios(ratios map[string]decimal.Decimal) *Store {
	s := &Store{}
	s.current.Store(&Snapshot{Ratios: ratios, UpdatedAt: time.Now()})
	return s
}

// Current returns the latest snapshot. Never blocks.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

func (s *Store) swap(next *Snapshot) {
	s.current.Store(next)
	metrics.PriceSnapshotSwaps.Inc()
}

// Updater is the periodic worker that refreshes the Store from a Provider,
// falling back to a secondary provider on error (spec §4.7).
type Updater struct {
	store          *Store
	primary        Provider
	fallback       Provider
	referenceToken string
	tokens         []string
	interval       time.Duration
	log            zerolog.Logger
}

func NewUpdater(store *Store, primary, fallback Provider, referenceToken string, tokens []string, interval time.Duration, log zerolog.Logger) *Updater {
	return &Updater{
		store:          store,
		primary:        primary,
		fallback:       fallback,
		referenceToken: referenceToken,
		tokens:         tokens,
		interval:       interval,
		log:            logging.Component(log, "price-updater"),
	}
}

// Name identifies this worker to the supervisor.
func (u *Updater) Name() string { return "price-updater" }

// Run polls at u.interval until ctx is cancelled, matching the supervisor's
// Worker contract (SPEC_FULL §4.9).
func (u *Updater) Run(ctx context.Context) error {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			u.refresh(ctx)
		}
	}
}

func (u *Updater) refresh(ctx context.Context) {
	ratios, err := u.primary.GetPriceOfPairs(ctx, u.referenceToken, u.tokens)
	if err != nil {
		u.log.Warn().Err(err).Str("provider", u.primary.Name()).Msg("primary price provider failed, trying fallback")
		if u.fallback == nil {
			return
		}
		ratios, err = u.fallback.GetPriceOfPairs(ctx, u.referenceToken, u.tokens)
		if err != nil {
			u.log.Error().Err(err).Str("provider", u.fallback.Name()).Msg("fallback price provider also failed")
			return
		}
	}
	u.store.swap(&Snapshot{Ratios: invertRatios(ratios), UpdatedAt: time.Now()})
}

// invertRatios flips each provider's token/referenceToken ratio into
// referenceToken/token, matching original_source's AvnuService::update
// (`ratio.inverse()`) so the snapshot reads "1 reference token = X token"
// rather than the provider's native "1 token = X reference token".
func invertRatios(ratios map[string]decimal.Decimal) map[string]decimal.Decimal {
	inverted := make(map[string]decimal.Decimal, len(ratios))
	for token, ratio := range ratios {
		if ratio.IsZero() {
			continue
		}
		inverted[token] = decimal.NewFromInt(1).Div(ratio)
	}
	return inverted
}
