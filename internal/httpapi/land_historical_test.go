package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponziland/chainindexer/internal/models"
	"github.com/ponziland/chainindexer/internal/repository"
)

func TestNetProfitComputesGainWithoutSign(t *testing.T) {
	buy, sale := "100", "150"
	got := netProfit(&buy, &sale)
	require.NotNil(t, got)
	assert.Equal(t, "50", *got)
}

func TestNetProfitComputesLossWithLeadingMinus(t *testing.T) {
	buy, sale := "150", "100"
	got := netProfit(&buy, &sale)
	require.NotNil(t, got)
	assert.Equal(t, "-50", *got)
}

func TestNetProfitNilWhenEitherSideMissing(t *testing.T) {
	buy := "100"
	assert.Nil(t, netProfit(&buy, nil))
	assert.Nil(t, netProfit(nil, &buy))
}

func TestPaginateAppliesOffsetAndLimit(t *testing.T) {
	rows := []models.LandHistorical{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	req := httptest.NewRequest("GET", "/?offset=1&limit=1", nil)
	got := paginate(rows, req)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestPaginateOffsetPastEndReturnsEmpty(t *testing.T) {
	rows := []models.LandHistorical{{ID: "1"}}
	req := httptest.NewRequest("GET", "/?offset=5", nil)
	got := paginate(rows, req)
	assert.Empty(t, got)
}

func TestLandHistoricalRouterByOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewLandHistoricalRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "land_historical" WHERE owner = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner"}).AddRow("row-1", "0xabc"))

	h := landHistoricalRouter(repo)
	req := httptest.NewRequest("GET", "/0xabc", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	var out []landHistoricalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLandHistoricalRouterSnapshotRequiresAtParam(t *testing.T) {
	db, _ := newMockDB(t)
	h := landHistoricalRouter(repository.NewLandHistoricalRepository(db))

	req := httptest.NewRequest("GET", "/snapshot", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, 400, w.Code)
}

func TestLandHistoricalRouterLeaderboardDefaultsToSevenDays(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewLandHistoricalRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "land_historical" WHERE \(close_date IS NOT NULL AND close_date >= \$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner"}))

	h := landHistoricalRouter(repo)
	req := httptest.NewRequest("GET", "/leaderboard", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
