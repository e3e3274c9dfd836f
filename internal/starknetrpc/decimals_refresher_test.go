package starknetrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ponziland/chainindexer/internal/repository"
)

func newMockRegistry(t *testing.T) (*repository.TokenRegistryRepository, sqlmock.Sqlmock) {
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
	return repository.NewTokenRegistryRepository(gormDB), mock
}

func newFakeStarknetServer(t *testing.T, decimalsHex string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  []string{decimalsHex},
		})
	}))
}

func TestDecimalsRefresherUpsertsOnChange(t *testing.T) {
	srv := newFakeStarknetServer(t, "0x12")
	defer srv.Close()

	client, err := Dial(context.Background(), srv.URL)
	require.NoError(t, err)
	defer client.Close()

	tokens, mock := newMockRegistry(t)
	mock.ExpectQuery(`SELECT \* FROM "token_registry"`).
		WillReturnRows(sqlmock.NewRows([]string{"address", "symbol", "decimals"}))
	mock.ExpectQuery(`INSERT INTO "token_registry"`).
		WillReturnRows(sqlmock.NewRows([]string{}))

	r := NewDecimalsRefresher(client, tokens, []string{"0xabc"}, time.Hour, zerolog.Nop())
	r.refresh(context.Background())

	require.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, int32(18), r.cache["0xabc"])
}

func TestDecimalsRefresherSkipsUnchangedCachedValue(t *testing.T) {
	srv := newFakeStarknetServer(t, "0x12")
	defer srv.Close()

	client, err := Dial(context.Background(), srv.URL)
	require.NoError(t, err)
	defer client.Close()

	tokens, mock := newMockRegistry(t)
	r := NewDecimalsRefresher(client, tokens, []string{"0xabc"}, time.Hour, zerolog.Nop())
	r.cache["0xabc"] = 18

	r.refresh(context.Background())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecimalsRefresherName(t *testing.T) {
	r := &DecimalsRefresher{}
	require.Equal(t, "decimals-refresher", r.Name())
}
