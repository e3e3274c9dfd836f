package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/models"
)

// DropLandQueriesRepository is C9's drop-analytics accessor, grounded on
// original_source's DropLandQueriesRepository (drop_land_queries.rs):
// reinjector-owned drop land listing, 3x3 area neighbor aggregation, and
// protocol-fee ROI computation.
type DropLandQueriesRepository struct {
	db *gorm.DB
}

func NewDropLandQueriesRepository(db *gorm.DB) *DropLandQueriesRepository {
	return &DropLandQueriesRepository{db: db}
}

// DropLand is one row returned by GetDropLands.
type DropLand struct {
	Location     chain.Location
	Owner        string
	TimeBought   time.Time
	BuyCostToken string
	CloseDate    *time.Time
}

// GetDropLands lists every land_historical row owned by reinjectorAddress,
// optionally bounded by [since, until], newest first.
func (r *DropLandQueriesRepository) GetDropLands(ctx context.Context, reinjectorAddress string, since, until *time.Time) ([]DropLand, error) {
	q := r.db.WithContext(ctx).Model(&models.LandHistorical{}).
		Where("owner = ?", chain.NormalizeAddress(reinjectorAddress))
	if since != nil {
		q = q.Where("time_bought >= ?", *since)
	}
	if until != nil {
		q = q.Where("time_bought <= ?", *until)
	}

	var rows []models.LandHistorical
	if err := q.Order("time_bought DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list drop lands for %s: %w", reinjectorAddress, err)
	}

	out := make([]DropLand, 0, len(rows))
	for _, row := range rows {
		cost := "0"
		if row.BuyCostToken != nil {
			cost = *row.BuyCostToken
		}
		out = append(out, DropLand{
			Location:     row.LandLocation,
			Owner:        row.Owner,
			TimeBought:   row.TimeBought,
			BuyCostToken: cost,
			CloseDate:    row.CloseDate,
		})
	}
	return out, nil
}

// GetCurrentRemainingStake returns the current stake at location, or zero
// if none has ever been recorded.
func (r *DropLandQueriesRepository) GetCurrentRemainingStake(ctx context.Context, location chain.Location) (chain.U256, error) {
	var stake models.LandStake
	err := r.db.WithContext(ctx).Where("location = ?", location).First(&stake).Error
	if err == gorm.ErrRecordNotFound {
		return chain.ZeroU256, nil
	}
	if err != nil {
		return chain.U256{}, fmt.Errorf("failed to get remaining stake at %s: %w", location, err)
	}
	return chain.ParseU256(stake.Amount)
}

// GetTokenInflowsSum returns the latest land_historical token_inflows map
// for location, or an empty map if none exists.
func (r *DropLandQueriesRepository) GetTokenInflowsSum(ctx context.Context, location chain.Location) (map[string]string, error) {
	var row models.LandHistorical
	err := r.db.WithContext(ctx).
		Where("land_location = ?", location).
		Order("time_bought DESC").
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token inflows at %s: %w", location, err)
	}
	out := map[string]string{}
	for k, v := range row.TokenInflows {
		if s, ok := v.(string); ok {
			out[k] = s
		} else if b, err := json.Marshal(v); err == nil {
			out[k] = string(b)
		}
	}
	return out, nil
}

// GetNeighborTaxesReceived sums every token inflow at location — the taxes
// a drop land has received from the transfers that flowed into it.
func (r *DropLandQueriesRepository) GetNeighborTaxesReceived(ctx context.Context, location chain.Location) (chain.U256, error) {
	inflows, err := r.GetTokenInflowsSum(ctx, location)
	if err != nil {
		return chain.U256{}, err
	}
	total := chain.ZeroU256
	for _, v := range inflows {
		amt, err := chain.ParseU256(v)
		if err != nil {
			continue
		}
		total = total.Add(amt)
	}
	return total, nil
}

// GetAreaProtocolFeesTotal sums the amount of every event_land_transfer
// whose from_location is location or one of its 8 neighbors, then applies
// the protocol fee rate (basis points over 10_000_000, spec §9) to the sum.
func (r *DropLandQueriesRepository) GetAreaProtocolFeesTotal(ctx context.Context, location chain.Location, feeRateBasisPoints uint64, since, until *time.Time) (chain.U256, error) {
	area := append([]chain.Location{location}, location.AreaNeighbors()...)

	var amounts []string
	q := r.db.WithContext(ctx).Model(&models.EventLandTransfer{}).
		Select("amount").
		Where("from_location IN ?", area)
	if since != nil || until != nil {
		q = q.Joins("JOIN event ON event.id = event_land_transfer.event_id")
		if since != nil {
			q = q.Where("event.at >= ?", *since)
		}
		if until != nil {
			q = q.Where("event.at <= ?", *until)
		}
	}
	if err := q.Pluck("amount", &amounts).Error; err != nil {
		return chain.U256{}, fmt.Errorf("failed to sum area transfers around %s: %w", location, err)
	}

	total := chain.ZeroU256
	for _, a := range amounts {
		v, err := chain.ParseU256(a)
		if err != nil {
			continue
		}
		total = total.Add(v)
	}
	return calculateProtocolFee(total, feeRateBasisPoints), nil
}

// calculateProtocolFee computes floor(amount * feeRateBasisPoints / 10_000_000),
// matching original_source's calculate_protocol_fee exactly (spec §9).
func calculateProtocolFee(amount chain.U256, feeRateBasisPoints uint64) chain.U256 {
	return amount.MulDiv(chain.U256FromUint64(feeRateBasisPoints), chain.U256FromUint64(10_000_000))
}

// DropMetrics is the per-drop-land analytics tuple get_drop_metrics returns.
type DropMetrics struct {
	DropInitialStake       chain.U256
	DropRemainingStake     chain.U256
	NeighborTaxesReceived  chain.U256
	AreaProtocolFeesTotal  chain.U256
}

// GetDropMetrics assembles the four metrics shown on a drop land's detail
// view (original_source get_drop_metrics).
func (r *DropLandQueriesRepository) GetDropMetrics(ctx context.Context, location chain.Location, feeRateBasisPoints uint64) (DropMetrics, error) {
	var row models.LandHistorical
	initial := chain.ZeroU256
	err := r.db.WithContext(ctx).
		Where("land_location = ?", location).
		Order("time_bought DESC").
		First(&row).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return DropMetrics{}, fmt.Errorf("failed to get drop initial stake at %s: %w", location, err)
	}
	if err == nil && row.BuyCostToken != nil {
		initial, _ = chain.ParseU256(*row.BuyCostToken)
	}

	remaining, err := r.GetCurrentRemainingStake(ctx, location)
	if err != nil {
		return DropMetrics{}, err
	}
	taxes, err := r.GetNeighborTaxesReceived(ctx, location)
	if err != nil {
		return DropMetrics{}, err
	}
	fees, err := r.GetAreaProtocolFeesTotal(ctx, location, feeRateBasisPoints, nil, nil)
	if err != nil {
		return DropMetrics{}, err
	}

	return DropMetrics{
		DropInitialStake:      initial,
		DropRemainingStake:    remaining,
		NeighborTaxesReceived: taxes,
		AreaProtocolFeesTotal: fees,
	}, nil
}

// GlobalMetrics is the period-aggregated tuple get_global_metrics returns.
type GlobalMetrics struct {
	TotalRevenueInPeriod           chain.U256
	TotalDropsDistributedInPeriod  chain.U256
}

// GetGlobalMetrics aggregates revenue and distributed-stake totals across
// every drop land reinjectorAddress owns within [since, until].
func (r *DropLandQueriesRepository) GetGlobalMetrics(ctx context.Context, reinjectorAddress string, feeRateBasisPoints uint64, since, until time.Time) (GlobalMetrics, error) {
	dropLands, err := r.GetDropLands(ctx, reinjectorAddress, &since, &until)
	if err != nil {
		return GlobalMetrics{}, err
	}

	totalRevenue := chain.ZeroU256
	totalDistributed := chain.ZeroU256

	for _, drop := range dropLands {
		fees, err := r.GetAreaProtocolFeesTotal(ctx, drop.Location, feeRateBasisPoints, &since, &until)
		if err != nil {
			return GlobalMetrics{}, err
		}
		totalRevenue = totalRevenue.Add(fees)

		initial, err := chain.ParseU256(drop.BuyCostToken)
		if err != nil {
			initial = chain.ZeroU256
		}
		remaining, err := r.GetCurrentRemainingStake(ctx, drop.Location)
		if err != nil {
			return GlobalMetrics{}, err
		}
		totalDistributed = totalDistributed.Add(initial.SaturatingSub(remaining))
	}

	return GlobalMetrics{TotalRevenueInPeriod: totalRevenue, TotalDropsDistributedInPeriod: totalDistributed}, nil
}
