package price

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ethAddr  = "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"
	usdcAddr = "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"
)

func TestAvnuProvider_GetPriceOfPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]avnuTokenPriceDTO{
			{Address: ethAddr, PriceInETH: 1.0, PriceInUSD: 2400, Decimals: 18},
			{Address: usdcAddr, PriceInETH: 0.0004166, PriceInUSD: 1.0, Decimals: 6},
		})
	}))
	defer srv.Close()

	p := NewAvnuProvider(srv.URL)
	ratios, err := p.GetPriceOfPairs(context.Background(), ethAddr, []string{usdcAddr})
	require.NoError(t, err)

	ratio, ok := ratios[usdcAddr]
	require.True(t, ok)
	// GetPriceOfPairs stores the raw token/referenceToken ratio
	// (0.0004166/1.0); inversion into "1 reference token = X token" is the
	// Updater's job, not the provider's.
	want := decimal.NewFromFloat(0.0004166).Div(decimal.NewFromFloat(1.0))
	assert.True(t, ratio.Equal(want), "got %s, want %s", ratio, want)
}

func TestAvnuProvider_ReferenceTokenNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]avnuTokenPriceDTO{
			{Address: usdcAddr, PriceInETH: 0.0004166},
		})
	}))
	defer srv.Close()

	p := NewAvnuProvider(srv.URL)
	_, err := p.GetPriceOfPairs(context.Background(), ethAddr, []string{usdcAddr})
	assert.Error(t, err)
}
