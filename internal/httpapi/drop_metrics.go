package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/repository"
)

// dropMetricsResponse mirrors original_source's per-drop-land analytics
// tuple (DropLandQueriesRepository::get_drop_metrics), plus the
// distributed-total/roi fields the route derives from it (spec §4.8).
type dropMetricsResponse struct {
	DropInitialStake      string `json:"drop_initial_stake"`
	DropRemainingStake    string `json:"drop_remaining_stake"`
	NeighborTaxesReceived string `json:"neighbor_taxes_received"`
	AreaProtocolFeesTotal string `json:"area_protocol_fees_total"`
	DropDistributedTotal  string `json:"drop_distributed_total"`
	DropROI               string `json:"drop_roi"`
}

type globalMetricsResponse struct {
	TotalRevenueInPeriod          string `json:"total_revenue_in_period"`
	TotalDropsDistributedInPeriod string `json:"total_drops_distributed_in_period"`
}

// mountDropMetricsRoutes adds GET /metrics/{x}/{y} and GET /global to r,
// the C9 drop query engine's HTTP surface, grounded on original_source's
// drop_land_queries routes.
func mountDropMetricsRoutes(r chi.Router, repo *repository.DropLandQueriesRepository, defaultFeeRateBasisPoints uint64) {
	r.Get("/metrics/{x}/{y}", func(w http.ResponseWriter, req *http.Request) {
		x, y, ok := parseXY(w, req)
		if !ok {
			return
		}
		feeRate, ok := feeRateBasisPoints(w, req, defaultFeeRateBasisPoints)
		if !ok {
			return
		}

		metrics, err := repo.GetDropMetrics(req.Context(), chain.NewLocation(x, y), feeRate)
		if err != nil {
			writeRepositoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDropMetricsResponse(metrics))
	})

	r.Get("/global", func(w http.ResponseWriter, req *http.Request) {
		reinjector := req.URL.Query().Get("reinjector")
		if reinjector == "" {
			writeError(w, http.StatusBadRequest, "reinjector is required")
			return
		}
		feeRate, ok := feeRateBasisPoints(w, req, defaultFeeRateBasisPoints)
		if !ok {
			return
		}
		since, until, ok := leaderboardWindow(w, req)
		if !ok {
			return
		}
		effectiveUntil := time.Now().UTC()
		if until != nil {
			effectiveUntil = *until
		}

		metrics, err := repo.GetGlobalMetrics(req.Context(), reinjector, feeRate, since, effectiveUntil)
		if err != nil {
			writeRepositoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, globalMetricsResponse{
			TotalRevenueInPeriod:          metrics.TotalRevenueInPeriod.String(),
			TotalDropsDistributedInPeriod: metrics.TotalDropsDistributedInPeriod.String(),
		})
	})
}

// toDropMetricsResponse derives drop_distributed_total (saturating
// subtraction) and drop_roi (0 when the denominator is 0), per spec §4.8.
func toDropMetricsResponse(m repository.DropMetrics) dropMetricsResponse {
	distributed := m.DropInitialStake.SaturatingSub(m.DropRemainingStake)

	roi := decimal.Zero
	if !distributed.IsZero() {
		roi = chain.DecimalFromU256(m.AreaProtocolFeesTotal).Div(chain.DecimalFromU256(distributed))
	}

	return dropMetricsResponse{
		DropInitialStake:      m.DropInitialStake.String(),
		DropRemainingStake:    m.DropRemainingStake.String(),
		NeighborTaxesReceived: m.NeighborTaxesReceived.String(),
		AreaProtocolFeesTotal: m.AreaProtocolFeesTotal.String(),
		DropDistributedTotal:  distributed.String(),
		DropROI:               roi.String(),
	}
}

func feeRateBasisPoints(w http.ResponseWriter, req *http.Request, fallback uint64) (uint64, bool) {
	raw := req.URL.Query().Get("fee_rate")
	if raw == "" {
		return fallback, true
	}
	rate, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "fee_rate must be a non-negative integer")
		return 0, false
	}
	return rate, true
}
