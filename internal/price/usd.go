package price

import (
	"context"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/repository"
)

const usdcSymbol = "USDC"

// ResolveUSDCAddress looks up the registered USDC token's normalized
// address, the lookup both the drops and history USD-conversion paths need
// before calling Snapshot.UsdRatioOf.
func ResolveUSDCAddress(ctx context.Context, tokens *repository.TokenRegistryRepository) (string, bool) {
	list, err := tokens.List(ctx)
	if err != nil {
		return "", false
	}
	for _, t := range list {
		if t.Symbol == usdcSymbol {
			return chain.NormalizeAddress(t.Address), true
		}
	}
	return "", false
}
