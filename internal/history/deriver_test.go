package history

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/models"
	"github.com/ponziland/chainindexer/internal/price"
	"github.com/ponziland/chainindexer/internal/repository"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		WithoutReturning:     false,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestCursorEventIDDefaultsToZero(t *testing.T) {
	got := cursorEventID(&models.IngestCursor{})
	assert.True(t, got.IsZero())
}

func TestCursorEventIDReturnsStoredValue(t *testing.T) {
	id, err := chain.ParseEventId("5:0:0")
	require.NoError(t, err)
	got := cursorEventID(&models.IngestCursor{LastProcessedEventID: &id})
	assert.Equal(t, id, got)
}

func TestLandHistoricalIDRecipe(t *testing.T) {
	at := time.Unix(1700000000, 0).UTC()
	loc := chain.NewLocation(3, 4)
	id := landHistoricalID("0xABC", loc, at)
	assert.Equal(t, chain.NormalizeAddress("0xABC")+"_"+loc.String()+"_1700000000", id)
}

func TestConvertToUSDReturnsNilWithoutAPrice(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "token_registry"`).
		WillReturnRows(sqlmock.NewRows([]string{"address", "symbol", "decimals"}).
			AddRow(chain.NormalizeAddress("0xusdc"), "USDC", 6))

	d := &Deriver{prices: price.NewStore(), tokens: repository.NewTokenRegistryRepository(db), log: zerolog.Nop()}
	got := d.convertToUSD(context.Background(), "1000", "0xtoken")
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertToUSDReturnsNilOnUnparsableAmount(t *testing.T) {
	d := &Deriver{prices: price.NewStore(), log: zerolog.Nop()}
	got := d.convertToUSD(context.Background(), "not-a-number", "0xtoken")
	assert.Nil(t, got)
}

// TestConvertToUSDComputesUsdcOverTokenRatio pins down the review
// requirement: usd = (usdc_ratio/token_ratio) * amount, not the raw
// token/reference-token ratio.
func TestConvertToUSDComputesUsdcOverTokenRatio(t *testing.T) {
	db, mock := newMockDB(t)
	tokenAddr := chain.NormalizeAddress("0xtoken")
	usdcAddr := chain.NormalizeAddress("0xusdc")

	mock.ExpectQuery(`SELECT \* FROM "token_registry"`).
		WillReturnRows(sqlmock.NewRows([]string{"address", "symbol", "decimals"}).
			AddRow(usdcAddr, "USDC", 6))

	prices := price.NewStoreWithRatios(map[string]decimal.Decimal{
		tokenAddr: decimal.NewFromFloat(0.5),
		usdcAddr:  decimal.NewFromFloat(1),
	})
	d := &Deriver{prices: prices, tokens: repository.NewTokenRegistryRepository(db), log: zerolog.Nop()}

	got := d.convertToUSD(context.Background(), "2000000000000000000", tokenAddr)
	require.NotNil(t, got)

	// usd_ratio = 1/0.5 = 2; amount is a raw U256 (no decimals scaling in
	// this path, matching original_source's historical price feed), so
	// 2 * 2_000_000_000_000_000_000 = 4_000_000_000_000_000_000.
	assert.Equal(t, "4000000000000000000", *got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessEventIgnoresIrrelevantKinds(t *testing.T) {
	d := &Deriver{log: zerolog.Nop()}
	err := d.processEvent(context.Background(), models.Event{Kind: models.EventKindAddStake})
	assert.NoError(t, err)
}

func TestDeriverName(t *testing.T) {
	d := &Deriver{}
	assert.Equal(t, "history-deriver", d.Name())
}
