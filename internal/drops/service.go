// Package drops implements C9's HTTP-facing aggregate: the total value of
// tokens emitted (paid out as taxes) from the configured reinjector/drop
// wallets, grounded on original_source's DropsRoute
// (crates/indexer/src/routes/drops/mod.rs).
package drops

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/price"
	"github.com/ponziland/chainindexer/internal/repository"
)

const defaultDecimals = 18

// EmittedReport is the JSON shape GET /drops/emitted returns.
type EmittedReport struct {
	TotalUSD        decimal.Decimal            `json:"total_usd"`
	ByToken         map[string]string          `json:"by_token"`
	ByTokenUSD      map[string]decimal.Decimal `json:"by_token_usd"`
	PositionsCount  int                        `json:"positions_count"`
	TrackedWallets  []string                   `json:"tracked_wallets"`
}

// Service is C9's drops-emitted aggregate over the wallets configured as
// drop_emitter_wallets.
type Service struct {
	historical *repository.LandHistoricalRepository
	tokens     *repository.TokenRegistryRepository
	prices     *price.Store
	wallets    []string
}

func NewService(historical *repository.LandHistoricalRepository, tokens *repository.TokenRegistryRepository, prices *price.Store, wallets []string) *Service {
	normalized := make([]string, len(wallets))
	for i, w := range wallets {
		normalized[i] = chain.NormalizeAddress(w)
	}
	return &Service{historical: historical, tokens: tokens, prices: prices, wallets: normalized}
}

// GetDropsEmitted sums token_outflows across every land_historical row owned
// by a tracked wallet and converts each token's total to USD via the current
// price snapshot and the token registry's decimals.
func (s *Service) GetDropsEmitted(ctx context.Context) (EmittedReport, error) {
	positions, err := s.historical.GetByOwners(ctx, s.wallets)
	if err != nil {
		return EmittedReport{}, fmt.Errorf("failed to load drop emitter positions: %w", err)
	}

	aggregated := map[string]chain.U256{}
	for _, pos := range positions {
		for token, raw := range pos.TokenOutflows {
			str, ok := raw.(string)
			if !ok {
				continue
			}
			amount, err := chain.ParseU256(str)
			if err != nil {
				continue
			}
			aggregated[token] = aggregated[token].Add(amount)
		}
	}

	usdcAddress, haveUsdc := price.ResolveUSDCAddress(ctx, s.tokens)

	report := EmittedReport{
		ByToken:        map[string]string{},
		ByTokenUSD:     map[string]decimal.Decimal{},
		PositionsCount: len(positions),
		TrackedWallets: s.wallets,
	}

	snap := s.prices.Current()
	for token, amount := range aggregated {
		report.ByToken[token] = amount.String()

		normalized := chain.NormalizeAddress(token)
		if !haveUsdc {
			continue
		}
		usdPerToken, ok := snap.UsdRatioOf(normalized, usdcAddress)
		if !ok {
			continue
		}

		decimals := s.decimalsOf(ctx, normalized)
		scale := decimal.New(1, decimals)
		amountScaled := chain.DecimalFromU256(amount).Div(scale)
		usdValue := amountScaled.Mul(usdPerToken)

		report.ByTokenUSD[token] = usdValue
		report.TotalUSD = report.TotalUSD.Add(usdValue)
	}

	return report, nil
}

func (s *Service) decimalsOf(ctx context.Context, tokenAddress string) int32 {
	token, err := s.tokens.Get(ctx, tokenAddress)
	if err != nil {
		return defaultDecimals
	}
	return token.Decimals
}
