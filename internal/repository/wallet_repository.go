package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/models"
)

// WalletRepository maintains the per-address activity rollup C7 derives
// (spec §3).
type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// RecordActivity upserts the rollup for address, incrementing
// activity_count and advancing last_activity_at on every call; the first
// call for a never-seen address seeds first_activity_at too.
func (r *WalletRepository) RecordActivity(ctx context.Context, address string, at time.Time) error {
	address = chain.NormalizeAddress(address)
	row := models.WalletActivity{
		Address:         address,
		FirstActivityAt: at,
		LastActivityAt:  at,
		ActivityCount:   1,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_activity_at": gorm.Expr("GREATEST(wallet_activity.last_activity_at, EXCLUDED.last_activity_at)"),
			"activity_count":   gorm.Expr("wallet_activity.activity_count + 1"),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to record wallet activity for %s: %w", address, err)
	}
	return nil
}

func (r *WalletRepository) Get(ctx context.Context, address string) (*models.WalletActivity, error) {
	var row models.WalletActivity
	err := r.db.WithContext(ctx).Where("address = ?", chain.NormalizeAddress(address)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet activity for %s: %w", address, err)
	}
	return &row, nil
}

// ListActive returns every wallet active since (or every wallet ever
// recorded, if since is nil), newest-activity first — backs
// GET /wallets/active.
func (r *WalletRepository) ListActive(ctx context.Context, since *time.Time) ([]models.WalletActivity, error) {
	q := r.db.WithContext(ctx).Order("last_activity_at DESC")
	if since != nil {
		q = q.Where("last_activity_at >= ?", *since)
	}
	var rows []models.WalletActivity
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list active wallets: %w", err)
	}
	return rows, nil
}

// CountActive returns how many wallets have been active since since (or the
// total row count, if since is nil).
func (r *WalletRepository) CountActive(ctx context.Context, since *time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.WalletActivity{})
	if since != nil {
		q = q.Where("last_activity_at >= ?", *since)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count active wallets: %w", err)
	}
	return count, nil
}
