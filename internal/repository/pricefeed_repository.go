package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ponziland/chainindexer/internal/models"
)

// PriceFeedRepository appends to historical_price_feed, C8's persistence of
// the periodic price snapshot recorder (spec §4.7).
type PriceFeedRepository struct {
	db *gorm.DB
}

func NewPriceFeedRepository(db *gorm.DB) *PriceFeedRepository {
	return &PriceFeedRepository{db: db}
}

func (r *PriceFeedRepository) Record(ctx context.Context, row models.HistoricalPriceFeed) error {
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record price feed for %s: %w", row.Symbol, err)
	}
	return nil
}

// Latest returns the most recently recorded price for symbol.
func (r *PriceFeedRepository) Latest(ctx context.Context, symbol string) (*models.HistoricalPriceFeed, error) {
	var row models.HistoricalPriceFeed
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price feed for %s: %w", symbol, err)
	}
	return &row, nil
}

// TokenRegistryRepository backs GET /tokens and the decimals lookups the
// price and history derivers need (SPEC_FULL §3).
type TokenRegistryRepository struct {
	db *gorm.DB
}

func NewTokenRegistryRepository(db *gorm.DB) *TokenRegistryRepository {
	return &TokenRegistryRepository{db: db}
}

func (r *TokenRegistryRepository) Upsert(ctx context.Context, token models.TokenRegistry) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"symbol", "decimals"}),
	}).Create(&token).Error
	if err != nil {
		return fmt.Errorf("failed to upsert token registry entry %s: %w", token.Address, err)
	}
	return nil
}

func (r *TokenRegistryRepository) Get(ctx context.Context, address string) (*models.TokenRegistry, error) {
	var token models.TokenRegistry
	err := r.db.WithContext(ctx).Where("address = ?", address).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token registry entry %s: %w", address, err)
	}
	return &token, nil
}

func (r *TokenRegistryRepository) List(ctx context.Context) ([]models.TokenRegistry, error) {
	var tokens []models.TokenRegistry
	if err := r.db.WithContext(ctx).Order("symbol ASC").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("failed to list token registry: %w", err)
	}
	return tokens, nil
}
