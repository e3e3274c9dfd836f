// Package price implements C8, the price oracle: an Avnu HTTP provider with
// an Ekubo fallback, an atomically-swappable snapshot, and a periodic
// recorder — grounded on original_source's avnu-pricing crate
// (AvnuPriceProvider: chunked batch fetch, address-normalizing lookup,
// ratio-against-reference-token computation) translated from async-trait
// methods into a Go interface implemented by two HTTP-backed providers.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/metrics"
)

// maxTokensPerRequest mirrors avnu-pricing's paging limit.
const maxTokensPerRequest = 10

// Provider quotes the ratio of each requested token's price to a reference
// token's price (spec §4.7: "price of token X expressed in token Y").
type Provider interface {
	Name() string
	GetPriceOfPairs(ctx context.Context, referenceToken string, tokens []string) (map[string]decimal.Decimal, error)
}

type avnuTokenPriceDTO struct {
	Address     string  `json:"address"`
	PriceInETH  float64 `json:"priceInETH"`
	PriceInUSD  float64 `json:"priceInUSD"`
	Decimals    int32   `json:"decimals"`
}

// AvnuProvider fetches prices from Avnu's public pricing API.
type AvnuProvider struct {
	baseURL string
	http    *http.Client
}

func NewAvnuProvider(baseURL string) *AvnuProvider {
	return &AvnuProvider{baseURL: baseURL, http: &http.Client{Timeout: 20 * time.Second}}
}

func (p *AvnuProvider) Name() string { return "avnu" }

func (p *AvnuProvider) fetchPrices(ctx context.Context, addresses []string) ([]avnuTokenPriceDTO, error) {
	var all []avnuTokenPriceDTO
	for start := 0; start < len(addresses); start += maxTokensPerRequest {
		end := start + maxTokensPerRequest
		if end > len(addresses) {
			end = len(addresses)
		}
		chunk := addresses[start:end]

		u, err := url.Parse(p.baseURL + "/v1/tokens/prices")
		if err != nil {
			return nil, fmt.Errorf("%w: parsing avnu url: %v", chain.ErrTransport, err)
		}
		q := u.Query()
		for _, addr := range chunk {
			q.Add("token", addr)
		}
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: building avnu request: %v", chain.ErrTransport, err)
		}
		resp, err := p.http.Do(req)
		if err != nil {
			metrics.PriceProviderErrors.WithLabelValues("avnu").Inc()
			return nil, fmt.Errorf("%w: requesting avnu prices: %v", chain.ErrTransport, err)
		}
		var chunkPrices []avnuTokenPriceDTO
		decodeErr := json.NewDecoder(resp.Body).Decode(&chunkPrices)
		resp.Body.Close()
		if decodeErr != nil {
			metrics.PriceProviderErrors.WithLabelValues("avnu").Inc()
			return nil, fmt.Errorf("%w: decoding avnu response: %v", chain.ErrParse, decodeErr)
		}
		all = append(all, chunkPrices...)
	}
	return all, nil
}

// GetPriceOfPairs implements Provider, replicating avnu-pricing's
// address-normalizing lookup and div-by-zero/not-found error taxonomy.
func (p *AvnuProvider) GetPriceOfPairs(ctx context.Context, referenceToken string, tokens []string) (map[string]decimal.Decimal, error) {
	allAddresses := append([]string{}, tokens...)
	if !containsAddress(allAddresses, referenceToken) {
		allAddresses = append(allAddresses, referenceToken)
	}

	prices, err := p.fetchPrices(ctx, allAddresses)
	if err != nil {
		return nil, err
	}

	byAddress := make(map[string]avnuTokenPriceDTO, len(prices))
	for _, dto := range prices {
		byAddress[chain.NormalizeAddress(dto.Address)] = dto
	}

	refDTO, ok := byAddress[chain.NormalizeAddress(referenceToken)]
	if !ok {
		return nil, fmt.Errorf("%w: reference token %s", chain.ErrReferenceTokenNotFound, referenceToken)
	}
	if refDTO.PriceInETH == 0 {
		return nil, fmt.Errorf("%w: reference token %s priced at zero", chain.ErrDivisionByZero, referenceToken)
	}

	result := make(map[string]decimal.Decimal, len(tokens))
	for _, token := range tokens {
		dto, ok := byAddress[chain.NormalizeAddress(token)]
		if !ok {
			return nil, fmt.Errorf("%w: token %s", chain.ErrTokenNotFound, token)
		}
		ratio := decimal.NewFromFloat(dto.PriceInETH).Div(decimal.NewFromFloat(refDTO.PriceInETH))
		result[chain.NormalizeAddress(token)] = ratio
	}
	return result, nil
}

func containsAddress(addresses []string, target string) bool {
	normalizedTarget := chain.NormalizeAddress(target)
	for _, a := range addresses {
		if chain.NormalizeAddress(a) == normalizedTarget {
			return true
		}
	}
	return false
}
