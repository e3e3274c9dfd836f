package starknetrpc

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ponziland/chainindexer/internal/logging"
	"github.com/ponziland/chainindexer/internal/models"
	"github.com/ponziland/chainindexer/internal/repository"
)

// DecimalsRefresher is the supervisor.Worker that keeps the token_registry
// table's decimals column in sync with each token's actual ERC20
// decimals(), per SPEC_FULL §3's token-registry [ADD]: config only seeds
// the registry at boot, the contract is the source of truth afterward.
// Shaped like price.Updater — refresh once at start, then on a fixed
// ticker — but over starknetrpc.Client.Decimals instead of a price
// provider, caching results in memory so an RPC hiccup never blanks out a
// previously-known decimals value.
type DecimalsRefresher struct {
	client    *Client
	tokens    *repository.TokenRegistryRepository
	addresses []string
	interval  time.Duration
	log       zerolog.Logger

	cache map[string]int32
}

func NewDecimalsRefresher(client *Client, tokens *repository.TokenRegistryRepository, addresses []string, interval time.Duration, log zerolog.Logger) *DecimalsRefresher {
	return &DecimalsRefresher{
		client:    client,
		tokens:    tokens,
		addresses: addresses,
		interval:  interval,
		log:       logging.Component(log, "decimals-refresher"),
		cache:     make(map[string]int32, len(addresses)),
	}
}

// Name identifies this worker to the supervisor.
func (d *DecimalsRefresher) Name() string { return "decimals-refresher" }

// Run refreshes decimals for every configured token address immediately,
// then once per d.interval until ctx is cancelled.
func (d *DecimalsRefresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.refresh(ctx)
		}
	}
}

func (d *DecimalsRefresher) refresh(ctx context.Context) {
	for _, addr := range d.addresses {
		decimals, err := d.client.Decimals(ctx, addr)
		if err != nil {
			d.log.Warn().Err(err).Str("token", addr).Msg("failed to refresh decimals, keeping cached value")
			continue
		}
		if cached, ok := d.cache[addr]; ok && cached == decimals {
			continue
		}
		d.cache[addr] = decimals

		existing, err := d.tokens.Get(ctx, addr)
		symbol := addr
		if err == nil && existing != nil {
			symbol = existing.Symbol
		}
		if err := d.tokens.Upsert(ctx, models.TokenRegistry{Address: addr, Symbol: symbol, Decimals: decimals}); err != nil {
			d.log.Error().Err(err).Str("token", addr).Msg("failed to persist refreshed decimals")
			continue
		}
		d.log.Info().Str("token", addr).Int32("decimals", decimals).Msg("refreshed token decimals")
	}
}
