package drops

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ponziland/chainindexer/internal/chain"
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

func TestGetDropsEmittedWithNoPositions(t *testing.T) {
	db, mock := newMockDB(t)
	historical := repository.NewLandHistoricalRepository(db)
	tokens := repository.NewTokenRegistryRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "land_historical"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner"}))
	mock.ExpectQuery(`SELECT \* FROM "token_registry"`).
		WillReturnRows(sqlmock.NewRows([]string{"address", "symbol", "decimals"}))

	s := NewService(historical, tokens, price.NewStore(), []string{"0xDROP"})
	report, err := s.GetDropsEmitted(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.PositionsCount)
	assert.Empty(t, report.ByToken)
	assert.Empty(t, report.ByTokenUSD)
	assert.True(t, report.TotalUSD.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecimalsOfFallsBackToDefaultWhenTokenUnknown(t *testing.T) {
	db, mock := newMockDB(t)
	s := &Service{tokens: repository.NewTokenRegistryRepository(db)}

	mock.ExpectQuery(`SELECT \* FROM "token_registry"`).
		WillReturnRows(sqlmock.NewRows([]string{"address", "symbol", "decimals"}))

	got := s.decimalsOf(context.Background(), "0xunknown")
	assert.Equal(t, int32(defaultDecimals), got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveUSDCAddressFalseWhenNoUSDCInRegistry(t *testing.T) {
	db, mock := newMockDB(t)
	tokens := repository.NewTokenRegistryRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "token_registry"`).
		WillReturnRows(sqlmock.NewRows([]string{"address", "symbol", "decimals"}).
			AddRow("0xabc", "ETH", 18))

	_, ok := price.ResolveUSDCAddress(context.Background(), tokens)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestGetDropsEmittedComputesUSDValue pins down the review requirement that
// ByTokenUSD/TotalUSD are non-trivial, grounded on usd_ratio =
// usdc_ratio/token_ratio: usdc_ratio=1, token_ratio=0.5 -> usd_ratio=2, so
// a 2-token (18 decimals) outflow is worth 4 USD.
func TestGetDropsEmittedComputesUSDValue(t *testing.T) {
	db, mock := newMockDB(t)
	historical := repository.NewLandHistoricalRepository(db)
	tokens := repository.NewTokenRegistryRepository(db)

	tokenAddr := chain.NormalizeAddress("0xtok")
	usdcAddr := chain.NormalizeAddress("0xusdc")
	wallet := chain.NormalizeAddress("0xdrop")

	outflowsJSON := fmt.Sprintf(`{"%s":"2000000000000000000"}`, tokenAddr)
	mock.ExpectQuery(`SELECT \* FROM "land_historical"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "token_outflows"}).
			AddRow("row-1", wallet, outflowsJSON))
	mock.ExpectQuery(`SELECT \* FROM "token_registry"`).
		WillReturnRows(sqlmock.NewRows([]string{"address", "symbol", "decimals"}).
			AddRow(usdcAddr, "USDC", 6))
	mock.ExpectQuery(`SELECT \* FROM "token_registry" WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"address", "symbol", "decimals"}).
			AddRow(tokenAddr, "TOK", 18))

	prices := price.NewStoreWithRatios(map[string]decimal.Decimal{
		tokenAddr: decimal.NewFromFloat(0.5),
		usdcAddr:  decimal.NewFromFloat(1),
	})

	s := NewService(historical, tokens, prices, []string{wallet})
	report, err := s.GetDropsEmitted(context.Background())
	require.NoError(t, err)

	want := decimal.NewFromFloat(4)
	assert.True(t, report.TotalUSD.Equal(want), "got %s, want %s", report.TotalUSD, want)
	usd, ok := report.ByTokenUSD[tokenAddr]
	require.True(t, ok)
	assert.True(t, usd.Equal(want), "got %s, want %s", usd, want)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewServiceNormalizesWalletAddresses(t *testing.T) {
	s := NewService(nil, nil, nil, []string{"0xABC"})
	assert.NotEqual(t, "0xABC", s.wallets[0])
}
