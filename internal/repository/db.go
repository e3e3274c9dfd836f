// Package repository is the typed CRUD layer (C1), generalizing the
// teacher's single MySQLRecorder (internal/db/transaction_recorder.go —
// one struct wrapping *gorm.DB, constructor-from-DSN, one repository method
// per query the caller needs) into one small repository type per aggregate
// in spec §3, backed by Postgres instead of MySQL.
package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ponziland/chainindexer/internal/models"
)

// Open connects to Postgres at dsn and runs AutoMigrate against every model
// this pipeline owns. It mirrors NewMySQLRecorder's dial-then-migrate
// shape, swapped to the postgres driver.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates/updates every table this pipeline owns. The
// hand-written SQL migrations under migrations/ are the source of truth for
// production deploys (see internal/migrate); AutoMigrate here exists so
// sqlmock-backed unit tests and local development can stand up a schema
// without invoking cmd/migrate.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Event{},
		&models.EventAddStake{},
		&models.EventAuctionFinished{},
		&models.EventLandBought{},
		&models.EventLandNuked{},
		&models.EventNewAuction{},
		&models.EventLandTransfer{},
		&models.EventAddressAuthorized{},
		&models.EventAddressRemoved{},
		&models.EventVerifierUpdated{},
		&models.Land{},
		&models.LandStake{},
		&models.Auction{},
		&models.LandPosition{},
		&models.LandHistorical{},
		&models.PositionEventLog{},
		&models.PnlProcessingError{},
		&models.PnlCursor{},
		&models.IngestCursor{},
		&models.WalletActivity{},
		&models.HistoricalPriceFeed{},
		&models.TokenRegistry{},
		&models.Message{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
