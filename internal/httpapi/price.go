package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/config"
	"github.com/ponziland/chainindexer/internal/price"
)

// tokenWithPrice mirrors original_source's TokenWithPrice: every configured
// token, with its current ratio if the snapshot has one.
type tokenWithPrice struct {
	Symbol     string  `json:"symbol"`
	Address    string  `json:"address"`
	Ratio      *string `json:"ratio"`
	RatioExact *string `json:"ratio_exact"`
}

func priceRouter(tokens []config.TokenConfig, store *price.Store) http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		snap := store.Current()
		out := make([]tokenWithPrice, 0, len(tokens))
		for _, t := range tokens {
			addr := chain.NormalizeAddress(t.Address)
			entry := tokenWithPrice{Symbol: t.Symbol, Address: addr}
			if ratio, ok := snap.RatioOf(addr); ok {
				exact := ratio.String()
				entry.Ratio = &exact
				entry.RatioExact = &exact
			}
			out = append(out, entry)
		}
		writeJSON(w, http.StatusOK, out)
	})
	return r
}
