package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletRepositoryRecordActivityUpserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)

	mock.ExpectQuery(`INSERT INTO "wallet_activity"`).WillReturnRows(sqlmock.NewRows([]string{}))

	err := repo.RecordActivity(context.Background(), "0xABC", time.Now())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepositoryGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "wallet_activity"`).WillReturnRows(sqlmock.NewRows([]string{"address"}))

	_, err := repo.Get(context.Background(), "0xabc")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepositoryListActiveWithoutSince(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "wallet_activity" ORDER BY last_activity_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"address"}).AddRow("0xabc"))

	rows, err := repo.ListActive(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepositoryListActiveWithSince(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "wallet_activity" WHERE last_activity_at >= \$1 ORDER BY last_activity_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"address"}))

	since := time.Now().Add(-7 * 24 * time.Hour)
	rows, err := repo.ListActive(context.Background(), &since)
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepositoryCountActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "wallet_activity"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountActive(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	require.NoError(t, mock.ExpectationsWereMet())
}
