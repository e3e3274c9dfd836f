package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/ponziland/chainindexer/internal/drops"
	"github.com/ponziland/chainindexer/internal/price"
	"github.com/ponziland/chainindexer/internal/repository"
)

func TestDropsRouterEmittedWithNoPositions(t *testing.T) {
	db, mock := newMockDB(t)
	service := drops.NewService(
		repository.NewLandHistoricalRepository(db),
		repository.NewTokenRegistryRepository(db),
		price.NewStore(),
		nil,
	)

	mock.ExpectQuery(`SELECT \* FROM "land_historical"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner"}))
	mock.ExpectQuery(`SELECT \* FROM "token_registry"`).
		WillReturnRows(sqlmock.NewRows([]string{"address", "symbol", "decimals"}))

	h := dropsRouter(service, nil, 900_000)
	req := httptest.NewRequest("GET", "/emitted", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
