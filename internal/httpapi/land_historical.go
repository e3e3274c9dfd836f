package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/models"
	"github.com/ponziland/chainindexer/internal/repository"
)

// landHistoricalResponse mirrors original_source's LandHistoricalResponse
// (crates/indexer/src/routes/land_historical/mod.rs), including the
// derived net_profit_token/net_profit_usd fields computed the same way:
// sale - buy, with a leading "-" on loss.
type landHistoricalResponse struct {
	ID               string         `json:"id"`
	Owner            string         `json:"owner"`
	LandLocation     uint16         `json:"land_location"`
	TimeBought       string         `json:"time_bought"`
	CloseDate        *string        `json:"close_date"`
	CloseReason      *models.CloseReason `json:"close_reason"`
	BuyCostToken     *string        `json:"buy_cost_token"`
	BuyCostUsd       *string        `json:"buy_cost_usd"`
	BuyTokenUsed     *string        `json:"buy_token_used"`
	SaleRevenueToken *string        `json:"sale_revenue_token"`
	SaleRevenueUsd   *string        `json:"sale_revenue_usd"`
	SaleTokenUsed    *string        `json:"sale_token_used"`
	NetProfitToken   *string        `json:"net_profit_token"`
	NetProfitUsd     *string        `json:"net_profit_usd"`
	TokenInflows     map[string]any `json:"token_inflows"`
	TokenOutflows    map[string]any `json:"token_outflows"`
}

func toLandHistoricalResponse(row models.LandHistorical) landHistoricalResponse {
	resp := landHistoricalResponse{
		ID: row.ID, Owner: row.Owner, LandLocation: uint16(row.LandLocation),
		TimeBought:       row.TimeBought.UTC().Format(time.RFC3339),
		CloseReason:      row.CloseReason,
		BuyCostToken:     row.BuyCostToken, BuyCostUsd: row.BuyCostUsd, BuyTokenUsed: row.BuyTokenUsed,
		SaleRevenueToken: row.SaleRevenueToken, SaleRevenueUsd: row.SaleRevenueUsd, SaleTokenUsed: row.SaleTokenUsed,
		TokenInflows:  map[string]any(row.TokenInflows),
		TokenOutflows: map[string]any(row.TokenOutflows),
	}
	if row.CloseDate != nil {
		s := row.CloseDate.UTC().Format(time.RFC3339)
		resp.CloseDate = &s
	}
	resp.NetProfitToken = netProfit(row.BuyCostToken, row.SaleRevenueToken)
	resp.NetProfitUsd = netProfit(row.BuyCostUsd, row.SaleRevenueUsd)
	return resp
}

// netProfit computes sale-buy as a signed decimal U256 string ("-" prefix
// on loss, since U256 itself cannot represent negative values).
func netProfit(buy, sale *string) *string {
	if buy == nil || sale == nil {
		return nil
	}
	buyAmount, err := chain.ParseU256(*buy)
	if err != nil {
		return nil
	}
	saleAmount, err := chain.ParseU256(*sale)
	if err != nil {
		return nil
	}
	if saleAmount.Cmp(buyAmount) >= 0 {
		profit := saleAmount.SaturatingSub(buyAmount).String()
		return &profit
	}
	loss := "-" + buyAmount.SaturatingSub(saleAmount).String()
	return &loss
}

func landHistoricalRouter(repo *repository.LandHistoricalRepository) http.Handler {
	r := chi.NewRouter()

	r.Get("/leaderboard", func(w http.ResponseWriter, req *http.Request) {
		since, until, ok := leaderboardWindow(w, req)
		if !ok {
			return
		}
		rows, err := repo.GetClosedPositionsBetween(req.Context(), since, until)
		if err != nil {
			writeRepositoryError(w, err)
			return
		}

		type entry struct {
			Owner          string                   `json:"owner"`
			TotalPositions int                      `json:"total_positions"`
			Positions      []landHistoricalResponse `json:"positions"`
		}
		grouped := map[string]*entry{}
		order := []string{}
		for _, row := range rows {
			e, ok := grouped[row.Owner]
			if !ok {
				e = &entry{Owner: row.Owner}
				grouped[row.Owner] = e
				order = append(order, row.Owner)
			}
			e.Positions = append(e.Positions, toLandHistoricalResponse(row))
			e.TotalPositions++
		}
		entries := make([]entry, 0, len(order))
		for _, owner := range order {
			entries = append(entries, *grouped[owner])
		}

		resp := map[string]any{
			"entries": entries,
			"since":   since.UTC().Format(time.RFC3339),
		}
		if until != nil {
			resp["until"] = until.UTC().Format(time.RFC3339)
		} else {
			resp["until"] = nil
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/snapshot", func(w http.ResponseWriter, req *http.Request) {
		atParam := req.URL.Query().Get("at")
		if atParam == "" {
			writeError(w, http.StatusBadRequest, "at is required (RFC3339 timestamp)")
			return
		}
		at, err := time.Parse(time.RFC3339, atParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "at must be an RFC3339 timestamp")
			return
		}
		rows, err := repo.GetSnapshotAt(req.Context(), at)
		if err != nil {
			writeRepositoryError(w, err)
			return
		}
		lands := make([]landHistoricalResponse, 0, len(rows))
		for _, row := range rows {
			lands = append(lands, toLandHistoricalResponse(row))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"at":    at.UTC().Format(time.RFC3339),
			"lands": lands,
		})
	})

	r.Get("/{owner}", func(w http.ResponseWriter, req *http.Request) {
		owner := chi.URLParam(req, "owner")
		rows, err := repo.ListByOwner(req.Context(), owner)
		if err != nil {
			writeRepositoryError(w, err)
			return
		}
		rows = paginate(rows, req)
		out := make([]landHistoricalResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, toLandHistoricalResponse(row))
		}
		writeJSON(w, http.StatusOK, out)
	})

	return r
}

// leaderboardWindow resolves `since`/`until`/`days` query params the way
// original_source's LeaderboardQuery does: an explicit `since` wins over
// `days` (default 7).
func leaderboardWindow(w http.ResponseWriter, req *http.Request) (time.Time, *time.Time, bool) {
	q := req.URL.Query()

	var since time.Time
	if s := q.Get("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
			return time.Time{}, nil, false
		}
		since = parsed
	} else {
		days := 7
		if d := q.Get("days"); d != "" {
			parsed, err := strconv.Atoi(d)
			if err != nil {
				writeError(w, http.StatusBadRequest, "days must be an integer")
				return time.Time{}, nil, false
			}
			days = parsed
		}
		since = time.Now().UTC().AddDate(0, 0, -days)
	}

	var until *time.Time
	if u := q.Get("until"); u != "" {
		parsed, err := time.Parse(time.RFC3339, u)
		if err != nil {
			writeError(w, http.StatusBadRequest, "until must be an RFC3339 timestamp")
			return time.Time{}, nil, false
		}
		until = &parsed
	}
	return since, until, true
}

// paginate applies the offset/limit query params the same way
// original_source's LandHistoricalQuery does.
func paginate(rows []models.LandHistorical, req *http.Request) []models.LandHistorical {
	q := req.URL.Query()
	if o := q.Get("offset"); o != "" {
		if offset, err := strconv.Atoi(o); err == nil {
			if offset >= len(rows) {
				return nil
			}
			rows = rows[offset:]
		}
	}
	if l := q.Get("limit"); l != "" {
		if limit, err := strconv.Atoi(l); err == nil && limit < len(rows) {
			rows = rows[:limit]
		}
	}
	return rows
}
