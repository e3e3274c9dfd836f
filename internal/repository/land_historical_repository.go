package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/models"
)

// LandHistoricalRepository is C6's accessor for land_historical, grounded on
// original_source's LandHistoricalRepository (crates/chaindata/repository/src/land_historical.rs).
type LandHistoricalRepository struct {
	db *gorm.DB
}

func NewLandHistoricalRepository(db *gorm.DB) *LandHistoricalRepository {
	return &LandHistoricalRepository{db: db}
}

// Save upserts row, keyed on id (the recipe from spec §3 collapses
// same-second replays into one row rather than erroring).
func (r *LandHistoricalRepository) Save(ctx context.Context, row models.LandHistorical) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save land historical row %s: %w", row.ID, err)
	}
	return nil
}

// GetByOwners returns every land_historical row owned by any of owners —
// backs the drops-emitted rollup over the configured reinjector wallets.
func (r *LandHistoricalRepository) GetByOwners(ctx context.Context, owners []string) ([]models.LandHistorical, error) {
	normalized := make([]string, len(owners))
	for i, o := range owners {
		normalized[i] = chain.NormalizeAddress(o)
	}
	var rows []models.LandHistorical
	err := r.db.WithContext(ctx).Where("owner IN ?", normalized).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list land historical rows for %d owners: %w", len(owners), err)
	}
	return rows, nil
}

// ListByOwner returns every land_historical row owned by owner, newest first
// — backs GET /land-historical/{owner}.
func (r *LandHistoricalRepository) ListByOwner(ctx context.Context, owner string) ([]models.LandHistorical, error) {
	var rows []models.LandHistorical
	err := r.db.WithContext(ctx).
		Where("owner = ?", chain.NormalizeAddress(owner)).
		Order("time_bought DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list land historical rows for %s: %w", owner, err)
	}
	return rows, nil
}

// OpenPositionsByLocation returns every land_historical row at loc that has
// not yet been closed (close_date IS NULL) — the set handle_land_transfer
// accrues token inflow/outflow onto.
func (r *LandHistoricalRepository) OpenPositionsByLocation(ctx context.Context, loc chain.Location) ([]models.LandHistorical, error) {
	var rows []models.LandHistorical
	err := r.db.WithContext(ctx).
		Where("land_location = ? AND close_date IS NULL", loc).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open land historical rows at %s: %w", loc, err)
	}
	return rows, nil
}

// ClosePositionsByLocation closes every open row at loc with reason and no
// sale data (LandNuked).
func (r *LandHistoricalRepository) ClosePositionsByLocation(ctx context.Context, loc chain.Location, at time.Time, reason models.CloseReason) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.LandHistorical{}).
		Where("land_location = ? AND close_date IS NULL", loc).
		Updates(map[string]any{"close_date": at, "close_reason": reason})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to close land historical rows at %s: %w", loc, result.Error)
	}
	return result.RowsAffected, nil
}

// ClosePositionsByLocationWithSale closes every open row at loc with reason
// and sale proceeds (LandBought / AuctionFinished).
func (r *LandHistoricalRepository) ClosePositionsByLocationWithSale(ctx context.Context, loc chain.Location, at time.Time, reason models.CloseReason, saleRevenueToken, saleRevenueUsd, saleTokenUsed *string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.LandHistorical{}).
		Where("land_location = ? AND close_date IS NULL", loc).
		Updates(map[string]any{
			"close_date": at, "close_reason": reason,
			"sale_revenue_token": saleRevenueToken, "sale_revenue_usd": saleRevenueUsd, "sale_token_used": saleTokenUsed,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to close-with-sale land historical rows at %s: %w", loc, result.Error)
	}
	return result.RowsAffected, nil
}

// GetClosedPositionsBetween returns every row closed in [since, until) —
// backs GET /land-historical/leaderboard. until is optional (no upper
// bound when nil).
func (r *LandHistoricalRepository) GetClosedPositionsBetween(ctx context.Context, since time.Time, until *time.Time) ([]models.LandHistorical, error) {
	q := r.db.WithContext(ctx).Where("close_date IS NOT NULL AND close_date >= ?", since)
	if until != nil {
		q = q.Where("close_date < ?", *until)
	}
	var rows []models.LandHistorical
	if err := q.Order("close_date DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list closed land historical rows since %s: %w", since, err)
	}
	return rows, nil
}

// GetSnapshotAt returns every row that was owned at the instant at: bought
// on or before at, and either still open or closed strictly after at —
// backs GET /land-historical/snapshot.
func (r *LandHistoricalRepository) GetSnapshotAt(ctx context.Context, at time.Time) ([]models.LandHistorical, error) {
	var rows []models.LandHistorical
	err := r.db.WithContext(ctx).
		Where("time_bought <= ? AND (close_date IS NULL OR close_date > ?)", at, at).
		Order("land_location ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list land historical snapshot at %s: %w", at, err)
	}
	return rows, nil
}

// AccrueOutflow adds amount to row's token_outflows[token] in memory; the
// caller persists row.
func AccrueOutflow(row *models.LandHistorical, token string, amount chain.U256) {
	row.TokenOutflows = accrue(row.TokenOutflows, token, amount)
}

// AccrueInflow adds amount to row's token_inflows[token] in memory; the
// caller persists row.
func AccrueInflow(row *models.LandHistorical, token string, amount chain.U256) {
	row.TokenInflows = accrue(row.TokenInflows, token, amount)
}

func accrue(m datatypes.JSONMap, token string, amount chain.U256) datatypes.JSONMap {
	if m == nil {
		m = datatypes.JSONMap{}
	}
	current := chain.ZeroU256
	if existing, ok := m[token]; ok {
		if s, ok := existing.(string); ok {
			if parsed, err := chain.ParseU256(s); err == nil {
				current = parsed
			}
		}
	}
	m[token] = current.Add(amount).String()
	return m
}
