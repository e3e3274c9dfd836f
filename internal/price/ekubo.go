package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/metrics"
)

// EkuboProvider quotes prices from Ekubo's pool-state API, used as C8's
// fallback when Avnu has no listing for a token (SPEC_FULL §4.7 [ADD] —
// the Rust service only had one provider; this pipeline's domain stack
// pulls in Ekubo too since it is a quoted dependency elsewhere in the
// retrieved example pack's price-provider trait).
type EkuboProvider struct {
	baseURL string
	chainID string
	http    *http.Client
}

func NewEkuboProvider(baseURL, chainID string) *EkuboProvider {
	return &EkuboProvider{baseURL: baseURL, chainID: chainID, http: &http.Client{Timeout: 20 * time.Second}}
}

func (p *EkuboProvider) Name() string { return "ekubo" }

// ekuboPool mirrors the fields of original_source's RawPool
// (crates/ekubo/src/api/pool.rs) this provider needs: the liquidity depth on
// each side of the pair, used to both pick the deepest pool and derive its
// spot price.
type ekuboPool struct {
	Depth0 string `json:"depth0"`
	Depth1 string `json:"depth1"`
}

type ekuboPoolsResponse struct {
	TopPools []ekuboPool `json:"topPools"`
}

// GetPriceOfPairs quotes each token against referenceToken individually,
// since Ekubo's public pools endpoint is pairwise rather than batched like
// Avnu's.
func (p *EkuboProvider) GetPriceOfPairs(ctx context.Context, referenceToken string, tokens []string) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal, len(tokens))
	for _, token := range tokens {
		ratio, err := p.quote(ctx, token, referenceToken)
		if err != nil {
			metrics.PriceProviderErrors.WithLabelValues("ekubo").Inc()
			return nil, err
		}
		result[chain.NormalizeAddress(token)] = ratio
	}
	return result, nil
}

// quote fetches every pool for the (token, referenceToken) pair and derives
// token's price in referenceToken from the deepest-liquidity pool's spot
// price, grounded on original_source's get_all_pools (pair/{chain_id}/
// {token0}/{token1}/pools with token0 < token1 lexicographically) and
// RawPool's depth0/depth1 liquidity fields.
func (p *EkuboProvider) quote(ctx context.Context, token, referenceToken string) (decimal.Decimal, error) {
	token = chain.NormalizeAddress(token)
	referenceToken = chain.NormalizeAddress(referenceToken)

	token0, token1 := token, referenceToken
	if token1 < token0 {
		token0, token1 = token1, token0
	}

	url := fmt.Sprintf("%s/pair/%s/%s/%s/pools", p.baseURL, p.chainID, token0, token1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: building ekubo request: %v", chain.ErrTransport, err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: requesting ekubo pools for %s: %v", chain.ErrTransport, token, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Zero, fmt.Errorf("%w: token %s", chain.ErrTokenNotFound, token)
	}

	var dto ekuboPoolsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decoding ekubo pools for %s: %v", chain.ErrParse, token, err)
	}
	if len(dto.TopPools) == 0 {
		return decimal.Zero, fmt.Errorf("%w: token %s", chain.ErrTokenNotFound, token)
	}

	best := dto.TopPools[0]
	bestDepth := poolDepth(best)
	for _, pool := range dto.TopPools[1:] {
		if d := poolDepth(pool); d.GreaterThan(bestDepth) {
			best, bestDepth = pool, d
		}
	}

	depth0, err := decimal.NewFromString(best.Depth0)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: parsing ekubo depth0 %q for %s: %v", chain.ErrParse, best.Depth0, token, err)
	}
	depth1, err := decimal.NewFromString(best.Depth1)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: parsing ekubo depth1 %q for %s: %v", chain.ErrParse, best.Depth1, token, err)
	}
	if depth0.IsZero() || depth1.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: ekubo quoted zero depth for %s", chain.ErrDivisionByZero, token)
	}

	// token0's spot price in units of token1, approximated from the
	// deepest pool's liquidity depth on each side.
	token0InToken1 := depth1.Div(depth0)
	if token == token0 {
		return token0InToken1, nil
	}
	return decimal.NewFromInt(1).Div(token0InToken1), nil
}

func poolDepth(pool ekuboPool) decimal.Decimal {
	d0, err0 := decimal.NewFromString(pool.Depth0)
	if err0 != nil {
		d0 = decimal.Zero
	}
	d1, err1 := decimal.NewFromString(pool.Depth1)
	if err1 != nil {
		d1 = decimal.Zero
	}
	return d0.Add(d1)
}
