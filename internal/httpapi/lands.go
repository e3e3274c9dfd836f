package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/models"
	"github.com/ponziland/chainindexer/internal/repository"
)

type landResponse struct {
	Location        uint16  `json:"location"`
	Owner           string  `json:"owner"`
	TokenUsed       string  `json:"token_used"`
	SellPrice       string  `json:"sell_price"`
	Level           int32   `json:"level"`
	BlockDateBought int64   `json:"block_date_bought"`
	StakeAmount     *string `json:"stake_amount,omitempty"`
}

// landsRouter backs GET /lands/{owner} (every land currently owned by
// owner) and GET /lands/location/{x}/{y} (the single land + its current
// stake at that grid cell) — a generalization of original_source's
// simple_positions route shape over the live `land`/`land_stake` tables
// rather than the PnL-derived position table.
func landsRouter(lands *repository.LandRepository, stakes *repository.LandStakeRepository) http.Handler {
	r := chi.NewRouter()

	r.Get("/{owner}", func(w http.ResponseWriter, req *http.Request) {
		owner := chi.URLParam(req, "owner")
		rows, err := lands.ListByOwner(req.Context(), owner)
		if err != nil {
			writeRepositoryError(w, err)
			return
		}
		out := make([]landResponse, 0, len(rows))
		for _, l := range rows {
			out = append(out, toLandResponse(l, nil))
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Get("/location/{x}/{y}", func(w http.ResponseWriter, req *http.Request) {
		x, y, ok := parseXY(w, req)
		if !ok {
			return
		}
		loc := chain.NewLocation(x, y)

		land, err := lands.GetByLocation(req.Context(), loc)
		if err != nil {
			writeRepositoryError(w, err)
			return
		}

		var stakeAmount *string
		stake, err := stakes.GetByLocation(req.Context(), loc)
		switch {
		case err == nil:
			stakeAmount = &stake.Amount
		case errors.Is(err, repository.ErrNotFound):
			// no stake row yet at this location; stake_amount stays nil
		default:
			writeRepositoryError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toLandResponse(*land, stakeAmount))
	})

	return r
}

func toLandResponse(l models.Land, stakeAmount *string) landResponse {
	return landResponse{
		Location:        uint16(l.Location),
		Owner:           l.Owner,
		TokenUsed:       l.TokenUsed,
		SellPrice:       l.SellPrice,
		Level:           l.Level,
		BlockDateBought: l.BlockDateBought,
		StakeAmount:     stakeAmount,
	}
}

func parseXY(w http.ResponseWriter, req *http.Request) (uint8, uint8, bool) {
	x, errX := strconv.ParseUint(chi.URLParam(req, "x"), 10, 8)
	y, errY := strconv.ParseUint(chi.URLParam(req, "y"), 10, 8)
	if errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "x and y must be integers in [0, 255]")
		return 0, 0, false
	}
	return uint8(x), uint8(y), true
}
