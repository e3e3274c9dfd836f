package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ponziland/chainindexer/internal/repository"
)

type tokenResponse struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int32  `json:"decimals"`
}

func tokensRouter(tokens *repository.TokenRegistryRepository) http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		list, err := tokens.List(req.Context())
		if err != nil {
			writeRepositoryError(w, err)
			return
		}
		out := make([]tokenResponse, 0, len(list))
		for _, t := range list {
			out = append(out, tokenResponse{Symbol: t.Symbol, Address: t.Address, Decimals: t.Decimals})
		}
		writeJSON(w, http.StatusOK, out)
	})
	return r
}
