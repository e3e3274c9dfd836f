package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ponziland/chainindexer/internal/drops"
	"github.com/ponziland/chainindexer/internal/repository"
)

// dropsRouter backs GET /drops/emitted (C9's wallet-outflow aggregate) and
// mounts the drop query engine's /metrics and /global routes alongside it.
func dropsRouter(service *drops.Service, queries *repository.DropLandQueriesRepository, defaultFeeRateBasisPoints uint64) http.Handler {
	r := chi.NewRouter()
	r.Get("/emitted", func(w http.ResponseWriter, req *http.Request) {
		report, err := service.GetDropsEmitted(req.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	})
	mountDropMetricsRoutes(r, queries, defaultFeeRateBasisPoints)
	return r
}
