package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ponziland/chainindexer/internal/config"
	"github.com/ponziland/chainindexer/internal/drops"
	"github.com/ponziland/chainindexer/internal/logging"
	"github.com/ponziland/chainindexer/internal/messaging"
	"github.com/ponziland/chainindexer/internal/price"
	"github.com/ponziland/chainindexer/internal/repository"
)

// Deps bundles every collaborator the router dispatches to; exported so
// cmd/indexer can construct it without this package reaching into
// repository.DB or the worker set directly.
type Deps struct {
	Tokens         *repository.TokenRegistryRepository
	Lands          *repository.LandRepository
	LandStakes     *repository.LandStakeRepository
	LandHistorical *repository.LandHistoricalRepository
	Wallets        *repository.WalletRepository
	Prices         *price.Store
	Drops          *drops.Service
	DropQueries    *repository.DropLandQueriesRepository
	ProtocolFeeRateBasisPoints uint64
	Messages       *messaging.Service
	TokenConfig    []config.TokenConfig
	CORS           config.CORSConfig
}

// NewRouter builds the chi.Mux serving SPEC_FULL §6's inbound HTTP surface,
// following the teacher corpus's addRoutes shape (chi.NewRouter, Logger +
// Recoverer middleware, go-chi/cors) rather than a custom logging/CORS
// layer — grounded on AKJUS-bsc-erigon's go.mod dependency and the
// dexas-project-fnodata explorer's addRoutes.
func NewRouter(deps Deps, log zerolog.Logger) http.Handler {
	log = logging.Component(log, "httpapi")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORS.Origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Mount("/price", priceRouter(deps.TokenConfig, deps.Prices))
	r.Mount("/tokens", tokensRouter(deps.Tokens))
	r.Mount("/lands", landsRouter(deps.Lands, deps.LandStakes))
	r.Mount("/land-historical", landHistoricalRouter(deps.LandHistorical))
	r.Mount("/wallets", walletsRouter(deps.Wallets))
	r.Mount("/drops", dropsRouter(deps.Drops, deps.DropQueries, deps.ProtocolFeeRateBasisPoints))
	r.Mount("/messages", messagesRouter(deps.Messages))

	return r
}

// requestLogger is the zerolog analog of chi/middleware.Logger, matching
// this codebase's structured-logging convention instead of middleware's
// stdlib-log default.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
