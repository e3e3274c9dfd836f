package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponziland/chainindexer/internal/repository"
)

func TestDropMetricsRouterByLocationComputesSeedScenarioS4(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewDropLandQueriesRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "land_historical" WHERE land_location = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "land_location", "buy_cost_token"}).
			AddRow("row-1", 2570, "1000"))
	mock.ExpectQuery(`SELECT \* FROM "land_stake" WHERE location = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"location", "amount"}).AddRow(2570, "200"))
	mock.ExpectQuery(`SELECT \* FROM "land_historical" WHERE land_location = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "land_location", "token_inflows"}))
	areaRows := sqlmock.NewRows([]string{"amount"})
	for i := 0; i < 9; i++ {
		areaRows.AddRow("1000000000000000000")
	}
	mock.ExpectQuery(`SELECT "amount" FROM "event_land_transfer" WHERE from_location IN`).
		WillReturnRows(areaRows)

	h := dropsRouter(nil, repo, 900_000)

	req := httptest.NewRequest("GET", "/metrics/10/10", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	var got dropMetricsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "1000", got.DropInitialStake)
	assert.Equal(t, "200", got.DropRemainingStake)
	assert.Equal(t, "810000000000000000", got.AreaProtocolFeesTotal)
	assert.Equal(t, "800", got.DropDistributedTotal)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDropMetricsRouterByLocationRejectsNonIntegerCoordinates(t *testing.T) {
	h := dropsRouter(nil, nil, 900_000)

	req := httptest.NewRequest("GET", "/metrics/abc/10", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, 400, w.Code)
}

func TestDropMetricsRouterGlobalRequiresReinjector(t *testing.T) {
	h := dropsRouter(nil, nil, 900_000)

	req := httptest.NewRequest("GET", "/global", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, 400, w.Code)
}
