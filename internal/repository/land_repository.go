package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/models"
)

// LandRepository maintains the "latest snapshot per location" land table
// (spec §3, §4.3).
type LandRepository struct {
	db *gorm.DB
}

func NewLandRepository(db *gorm.DB) *LandRepository {
	return &LandRepository{db: db}
}

// Upsert writes land, replacing any existing row for land.Location unless
// the stored row carries a strictly newer `at` (spec §4.3 edge case: models
// can arrive out of order, so the ingester must not regress a snapshot).
func (r *LandRepository) Upsert(ctx context.Context, land models.Land) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "location"}},
			DoUpdates: clause.AssignmentColumns([]string{"id", "at", "owner", "token_used", "sell_price", "level", "block_date_bought"}),
			Where:     clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "land.at <= EXCLUDED.at"}}},
		}).
		Create(&land).Error
	if err != nil {
		return fmt.Errorf("failed to upsert land at %s: %w", land.Location, err)
	}
	return nil
}

// GetByLocation returns the latest land row at loc.
func (r *LandRepository) GetByLocation(ctx context.Context, loc chain.Location) (*models.Land, error) {
	var land models.Land
	err := r.db.WithContext(ctx).Where("location = ?", loc).First(&land).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get land at %s: %w", loc, err)
	}
	return &land, nil
}

// ListByOwner returns every land currently owned by owner.
func (r *LandRepository) ListByOwner(ctx context.Context, owner string) ([]models.Land, error) {
	var lands []models.Land
	if err := r.db.WithContext(ctx).Where("owner = ?", chain.NormalizeAddress(owner)).Find(&lands).Error; err != nil {
		return nil, fmt.Errorf("failed to list lands for owner %s: %w", owner, err)
	}
	return lands, nil
}

// LandStakeRepository maintains the land_stake table, decoded from
// neighbors_info_packed (spec §4.3, §9).
type LandStakeRepository struct {
	db *gorm.DB
}

func NewLandStakeRepository(db *gorm.DB) *LandStakeRepository {
	return &LandStakeRepository{db: db}
}

func (r *LandStakeRepository) Upsert(ctx context.Context, stake models.LandStake) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "location"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"id", "at", "amount", "earliest_claim_neighbor_time",
				"earliest_claim_neighbor_location", "num_active_neighbors",
			}),
			Where: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "land_stake.at <= EXCLUDED.at"}}},
		}).
		Create(&stake).Error
	if err != nil {
		return fmt.Errorf("failed to upsert land stake at %s: %w", stake.Location, err)
	}
	return nil
}

func (r *LandStakeRepository) GetByLocation(ctx context.Context, loc chain.Location) (*models.LandStake, error) {
	var stake models.LandStake
	err := r.db.WithContext(ctx).Where("location = ?", loc).First(&stake).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get land stake at %s: %w", loc, err)
	}
	return &stake, nil
}

// SumRemainingStake returns the current stake amount at loc as a U256, or
// zero if no stake row exists (original_source
// get_current_remaining_stake).
func (r *LandStakeRepository) SumRemainingStake(ctx context.Context, loc chain.Location) (chain.U256, error) {
	stake, err := r.GetByLocation(ctx, loc)
	if errors.Is(err, ErrNotFound) {
		return chain.ZeroU256, nil
	}
	if err != nil {
		return chain.U256{}, err
	}
	return chain.ParseU256(stake.Amount)
}

// AuctionRepository maintains the auction table, at most one live row per
// location (spec §3, §4.3).
type AuctionRepository struct {
	db *gorm.DB
}

func NewAuctionRepository(db *gorm.DB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

func (r *AuctionRepository) Upsert(ctx context.Context, auction models.Auction) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "location"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"id", "at", "start_time", "start_price", "floor_price",
				"decay_rate", "is_finished", "sold_at_price",
			}),
			Where: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "auction.at <= EXCLUDED.at"}}},
		}).
		Create(&auction).Error
	if err != nil {
		return fmt.Errorf("failed to upsert auction at %s: %w", auction.Location, err)
	}
	return nil
}

func (r *AuctionRepository) GetByLocation(ctx context.Context, loc chain.Location) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).Where("location = ?", loc).First(&auction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auction at %s: %w", loc, err)
	}
	return &auction, nil
}

// MarkFinished flips is_finished and records the clearing price.
func (r *AuctionRepository) MarkFinished(ctx context.Context, loc chain.Location, soldAtPrice chain.U256) error {
	price := soldAtPrice.String()
	err := r.db.WithContext(ctx).Model(&models.Auction{}).
		Where("location = ?", loc).
		Updates(map[string]interface{}{"is_finished": true, "sold_at_price": price}).Error
	if err != nil {
		return fmt.Errorf("failed to mark auction at %s finished: %w", loc, err)
	}
	return nil
}
