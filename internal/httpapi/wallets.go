package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ponziland/chainindexer/internal/repository"
)

type walletInfo struct {
	Address        string `json:"address"`
	ActivityCount  int64  `json:"activity_count"`
	FirstActivity  string `json:"first_activity"`
	LastActivity   string `json:"last_activity"`
}

type activeWalletsResponse struct {
	ActiveWallets []walletInfo `json:"active_wallets"`
	TotalCount    int64        `json:"total_count"`
	TimeFilter    *string      `json:"time_filter"`
	GeneratedAt   string       `json:"generated_at"`
}

// walletsRouter backs GET /wallets/active?weeks=N, grounded on
// original_source's WalletsRoute (crates/indexer/src/routes/wallets/mod.rs)
// minus its moka response cache — this is ambient plumbing the teacher's
// stack has no analog for, and the underlying query is cheap enough on an
// indexed last_activity_at column not to need one.
func walletsRouter(wallets *repository.WalletRepository) http.Handler {
	r := chi.NewRouter()
	r.Get("/active", func(w http.ResponseWriter, req *http.Request) {
		var since *time.Time
		var timeFilter *string
		if weeksParam := req.URL.Query().Get("weeks"); weeksParam != "" {
			weeks, err := strconv.Atoi(weeksParam)
			if err != nil || weeks < 0 {
				writeError(w, http.StatusBadRequest, "weeks must be a non-negative integer")
				return
			}
			cutoff := time.Now().UTC().AddDate(0, 0, -7*weeks)
			since = &cutoff
			label := strconv.Itoa(weeks) + " weeks"
			timeFilter = &label
		}

		rows, err := wallets.ListActive(req.Context(), since)
		if err != nil {
			writeRepositoryError(w, err)
			return
		}
		count, err := wallets.CountActive(req.Context(), since)
		if err != nil {
			writeRepositoryError(w, err)
			return
		}

		out := make([]walletInfo, 0, len(rows))
		for _, row := range rows {
			out = append(out, walletInfo{
				Address:       row.Address,
				ActivityCount: row.ActivityCount,
				FirstActivity: row.FirstActivityAt.UTC().Format(time.RFC3339),
				LastActivity:  row.LastActivityAt.UTC().Format(time.RFC3339),
			})
		}

		writeJSON(w, http.StatusOK, activeWalletsResponse{
			ActiveWallets: out,
			TotalCount:    count,
			TimeFilter:    timeFilter,
			GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		})
	})
	return r
}
