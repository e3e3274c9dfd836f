package pnl

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/models"
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
	got := cursorEventID(&models.PnlCursor{})
	assert.True(t, got.IsZero())
}

func TestCursorEventIDReturnsStoredValue(t *testing.T) {
	id, err := chain.ParseEventId("10:1:2")
	require.NoError(t, err)
	got := cursorEventID(&models.PnlCursor{LastProcessedEventID: &id})
	assert.Equal(t, id, got)
}

func TestEmptyJSONObject(t *testing.T) {
	assert.Equal(t, "{}", string(emptyJSONObject()))
}

func TestProcessEventIgnoresIrrelevantKinds(t *testing.T) {
	p := &Processor{log: zerolog.Nop()}
	for _, kind := range []models.EventKind{
		models.EventKindNewAuction,
		models.EventKindAddressAuthorized,
		models.EventKindAddressRemoved,
		models.EventKindVerifierUpdated,
	} {
		err := p.processEvent(context.Background(), models.Event{Kind: kind})
		assert.NoError(t, err, "kind %s should be a no-op", kind)
	}
}

func TestProcessBatchNoOpWhenNoPendingEvents(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "pnl_processor_state"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "last_processed_timestamp"}).
			AddRow(1, "2024-01-01 00:00:00"))
	mock.ExpectQuery(`SELECT \* FROM "event"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	p := NewProcessor(db,
		repository.NewEventRepository(db),
		repository.NewLandRepository(db),
		repository.NewLandStakeRepository(db),
		repository.NewPositionRepository(db),
		repository.NewPositionEventLogRepository(db),
		repository.NewPnlCursorRepository(db),
		repository.NewPnlProcessingErrorRepository(db),
		0, zerolog.Nop(),
	)

	require.NoError(t, p.processBatch(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleAuctionFinishedSkipsZeroAddressBuyer(t *testing.T) {
	db, mock := newMockDB(t)

	eventID, err := chain.ParseEventId("1:0:0")
	require.NoError(t, err)
	event := models.Event{ID: eventID, Kind: models.EventKindAuctionFinished}

	mock.ExpectQuery(`SELECT count\(\*\) FROM "position_event_log"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "event_auction_finished"`).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "location", "buyer", "price"}).
			AddRow(eventID.String(), 0, chain.ZeroAddress, "1000"))

	p := NewProcessor(db,
		repository.NewEventRepository(db),
		repository.NewLandRepository(db),
		repository.NewLandStakeRepository(db),
		repository.NewPositionRepository(db),
		repository.NewPositionEventLogRepository(db),
		repository.NewPnlCursorRepository(db),
		repository.NewPnlProcessingErrorRepository(db),
		0, zerolog.Nop(),
	)

	require.NoError(t, p.handleAuctionFinished(context.Background(), event))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessorName(t *testing.T) {
	p := &Processor{}
	assert.Equal(t, "pnl-processor", p.Name())
}
