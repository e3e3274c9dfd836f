package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/models"
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

func TestEventRepository_InsertEvent_NewRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepository(db)

	id, err := chain.ParseEventId("100:0:1")
	require.NoError(t, err)
	event := models.NewEvent(id, time.Now(), models.EventKindLandNuked)
	payload := models.EventLandNuked{EventID: id, Owner: "0xabc", Location: chain.NewLocation(1, 1)}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "event"`).WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectQuery(`INSERT INTO "event_land_nuked"`).WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectCommit()

	res, err := repo.InsertEvent(context.Background(), event, &payload)
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "event"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	id, err := chain.ParseEventId("1:0:0")
	require.NoError(t, err)
	_, err = repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}
