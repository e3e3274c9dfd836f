package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/config"
	"github.com/ponziland/chainindexer/internal/drops"
	"github.com/ponziland/chainindexer/internal/messaging"
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

func modelLandFixture() models.Land {
	return models.Land{
		Location:        chain.NewLocation(1, 1),
		Owner:           "0xabc",
		TokenUsed:       "0xtoken",
		SellPrice:       "1000",
		Level:           1,
		BlockDateBought: 1700000000,
	}
}

func TestNewRouterMountsEveryResource(t *testing.T) {
	db, mock := newMockDB(t)
	deps := Deps{
		Tokens:         repository.NewTokenRegistryRepository(db),
		Lands:          repository.NewLandRepository(db),
		LandStakes:     repository.NewLandStakeRepository(db),
		LandHistorical: repository.NewLandHistoricalRepository(db),
		Wallets:        repository.NewWalletRepository(db),
		Prices:         price.NewStore(),
		Drops:          drops.NewService(repository.NewLandHistoricalRepository(db), repository.NewTokenRegistryRepository(db), price.NewStore(), nil),
		DropQueries:    repository.NewDropLandQueriesRepository(db),
		Messages:       messaging.NewService(repository.NewMessageRepository(db)),
		TokenConfig:    nil,
		CORS:           config.CORSConfig{Origins: []string{"*"}},
	}
	h := NewRouter(deps, zerolog.Nop())

	mock.ExpectQuery(`SELECT \* FROM "token_registry"`).
		WillReturnRows(sqlmock.NewRows([]string{"address"}))

	req := httptest.NewRequest("GET", "/tokens/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
}

func TestNewRouterReturns404ForUnknownRoute(t *testing.T) {
	db, _ := newMockDB(t)
	deps := Deps{
		Tokens:         repository.NewTokenRegistryRepository(db),
		Lands:          repository.NewLandRepository(db),
		LandStakes:     repository.NewLandStakeRepository(db),
		LandHistorical: repository.NewLandHistoricalRepository(db),
		Wallets:        repository.NewWalletRepository(db),
		Prices:         price.NewStore(),
		Drops:          drops.NewService(repository.NewLandHistoricalRepository(db), repository.NewTokenRegistryRepository(db), price.NewStore(), nil),
		DropQueries:    repository.NewDropLandQueriesRepository(db),
		Messages:       messaging.NewService(repository.NewMessageRepository(db)),
	}
	h := NewRouter(deps, zerolog.Nop())

	req := httptest.NewRequest("GET", "/nope", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, 404, w.Code)
}
