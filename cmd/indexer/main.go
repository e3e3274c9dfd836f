// Command indexer is the bootstrap entrypoint: it loads config, dials every
// upstream (torii, Starknet RPC, Avnu, Ekubo), opens Postgres, wires every
// worker (C2-C9) into the supervisor, and serves the HTTP surface — the
// generalization of the teacher's cmd/main.go (load config, decrypt key,
// dial ethclient, construct one Blackhole, run one strategy goroutine)
// into a fixed worker registry under supervisor.Supervisor.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ponziland/chainindexer/internal/config"
	"github.com/ponziland/chainindexer/internal/drops"
	"github.com/ponziland/chainindexer/internal/history"
	"github.com/ponziland/chainindexer/internal/httpapi"
	"github.com/ponziland/chainindexer/internal/ingest"
	"github.com/ponziland/chainindexer/internal/logging"
	"github.com/ponziland/chainindexer/internal/messaging"
	"github.com/ponziland/chainindexer/internal/models"
	"github.com/ponziland/chainindexer/internal/pnl"
	"github.com/ponziland/chainindexer/internal/price"
	"github.com/ponziland/chainindexer/internal/repository"
	"github.com/ponziland/chainindexer/internal/starknetrpc"
	"github.com/ponziland/chainindexer/internal/supervisor"
	"github.com/ponziland/chainindexer/internal/torii"
	"github.com/ponziland/chainindexer/internal/wallet"
)

// decimalsRefreshInterval is the §3 token-registry [ADD]'s "refreshed
// hourly" cadence for re-reading each token's on-chain decimals().
const decimalsRefreshInterval = time.Hour

const shutdownTimeout = 15 * time.Second

func main() {
	log := logging.New(envOr("LOG_LEVEL", "info"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := repository.Open(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	toriiClient, err := torii.New(cfg.Torii.ToriiURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct torii client")
	}

	starknetClient, err := starknetrpc.Dial(context.Background(), cfg.Starknet.RPCURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to dial starknet rpc")
	}
	defer starknetClient.Close()

	// Repositories (C1).
	events := repository.NewEventRepository(db)
	lands := repository.NewLandRepository(db)
	stakes := repository.NewLandStakeRepository(db)
	auctions := repository.NewAuctionRepository(db)
	positions := repository.NewPositionRepository(db)
	positionLogs := repository.NewPositionEventLogRepository(db)
	pnlCursor := repository.NewPnlCursorRepository(db)
	pnlErrors := repository.NewPnlProcessingErrorRepository(db)
	ingestCursors := repository.NewIngestCursorRepository(db)
	historical := repository.NewLandHistoricalRepository(db)
	walletActivity := repository.NewWalletRepository(db)
	priceFeed := repository.NewPriceFeedRepository(db)
	tokenRegistry := repository.NewTokenRegistryRepository(db)
	messages := repository.NewMessageRepository(db)

	seedTokenRegistry(context.Background(), cfg, tokenRegistry, log)

	// C8: price oracle.
	priceStore := price.NewStore()
	avnuProvider := price.NewAvnuProvider(cfg.Avnu.APIURL)
	ekuboProvider := price.NewEkuboProvider(cfg.Ekubo.APIURL, cfg.Ekubo.ChainID)
	tokenAddresses := make([]string, 0, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		tokenAddresses = append(tokenAddresses, t.Address)
	}
	priceUpdater := price.NewUpdater(priceStore, avnuProvider, ekuboProvider, cfg.Default.Token, tokenAddresses, config.AvnuUpdateInterval, log)
	priceRecorder := price.NewRecorder(priceStore, priceFeed, config.PriceFeedRecordInterval, log)
	decimalsRefresher := starknetrpc.NewDecimalsRefresher(starknetClient, tokenRegistry, tokenAddresses, decimalsRefreshInterval, log)

	// C10's fan-out: C6 and C7 wake on every ingested event but remain
	// cursor-driven over the event table (SPEC_FULL §4.9 design note).
	broadcaster := supervisor.NewEventBroadcaster()
	historyWake := broadcaster.Subscribe()
	walletWake := broadcaster.Subscribe()

	eventIngester := ingest.NewEventIngester(toriiClient, events, ingestCursors, broadcaster, config.IngestPollInterval, log)
	modelIngester := ingest.NewModelIngester(toriiClient, lands, stakes, auctions, ingestCursors, config.IngestPollInterval, log)
	pnlProcessor := pnl.NewProcessor(db, events, lands, stakes, positions, positionLogs, pnlCursor, pnlErrors, config.PnlPollInterval, log)
	historyDeriver := history.NewDeriver(db, events, historical, ingestCursors, tokenRegistry, priceStore, historyWake, log)
	walletDeriver := wallet.NewDeriver(db, events, walletActivity, ingestCursors, walletWake, log)

	sup := supervisor.New(log, 5*time.Second,
		eventIngester, modelIngester, pnlProcessor, historyDeriver, walletDeriver,
		priceUpdater, priceRecorder, decimalsRefresher,
	)

	dropsService := drops.NewService(historical, tokenRegistry, priceStore, cfg.DropEmitterWallets)
	dropQueries := repository.NewDropLandQueriesRepository(db)
	messagingService := messaging.NewService(messages)

	router := httpapi.NewRouter(httpapi.Deps{
		Tokens:                     tokenRegistry,
		Lands:                      lands,
		LandStakes:                 stakes,
		LandHistorical:             historical,
		Wallets:                    walletActivity,
		Prices:                     priceStore,
		Drops:                      dropsService,
		DropQueries:                dropQueries,
		ProtocolFeeRateBasisPoints: cfg.ProtocolFeeRateBasisPoints,
		Messages:                   messagingService,
		TokenConfig:                cfg.Tokens,
		CORS:                       cfg.CORS,
	}, log)

	addr := cfg.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	port := cfg.Port
	if port == 0 {
		port = 8080
	}
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", addr, strconv.Itoa(port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server exited with error")
		}
	}()

	go sup.Run(ctx, shutdownTimeout)

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown did not complete cleanly")
	}
	broadcaster.Close()
}

// seedTokenRegistry upserts every config-declared token, generalizing
// original_source's hardcoded get_token_decimals switch statement into a
// real table so the HTTP surface and the USD-conversion derivers have
// decimals to read before the first price refresh completes.
func seedTokenRegistry(ctx context.Context, cfg *config.Config, tokens *repository.TokenRegistryRepository, log zerolog.Logger) {
	for _, t := range cfg.Tokens {
		row := models.TokenRegistry{Address: t.Address, Symbol: t.Symbol, Decimals: t.Decimals}
		if err := tokens.Upsert(ctx, row); err != nil {
			log.Error().Err(err).Str("symbol", t.Symbol).Msg("failed to seed token registry entry")
		}
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
