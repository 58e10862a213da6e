package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cojovi/material-pricing-api/internal/models"
)

// DashboardRepository runs the aggregate queries behind the dashboard views.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository creates a new repository instance.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// AvgChangePercent averages the change percent of approved history entries
// submitted after the cutoff. Materials with no recent changes contribute
// nothing to the average.
func (r *DashboardRepository) AvgChangePercent(ctx context.Context, cutoff time.Time) (float64, error) {
	var avg float64
	const query = `SELECT COALESCE(AVG(change_percent), 0) FROM price_history
	WHERE status = $1 AND submitted_at >= $2`
	if err := r.db.GetContext(ctx, &avg, query, models.PriceChangeStatusApproved, cutoff); err != nil {
		return 0, fmt.Errorf("average change percent: %w", err)
	}
	return avg, nil
}

// LocationPerformance aggregates approved change percent per branch location
// over the window.
func (r *DashboardRepository) LocationPerformance(ctx context.Context, cutoff time.Time) ([]models.LocationPerformance, error) {
	const query = `SELECT m.location,
	COALESCE(AVG(ph.change_percent), 0) AS change_percent,
	COUNT(DISTINCT m.id) AS material_count
	FROM materials m
	LEFT JOIN price_history ph ON ph.material_id = m.id AND ph.status = $1 AND ph.submitted_at >= $2
	GROUP BY m.location
	ORDER BY m.location`
	var rows []models.LocationPerformance
	if err := r.db.SelectContext(ctx, &rows, query, models.PriceChangeStatusApproved, cutoff); err != nil {
		return nil, fmt.Errorf("location performance: %w", err)
	}
	return rows, nil
}

// DistributorPerformance aggregates approved change percent per distributor
// over the window.
func (r *DashboardRepository) DistributorPerformance(ctx context.Context, cutoff time.Time) ([]models.DistributorPerformance, error) {
	const query = `SELECT m.distributor, m.ticker_symbol,
	COALESCE(AVG(ph.change_percent), 0) AS change_percent,
	COUNT(DISTINCT m.id) AS material_count
	FROM materials m
	LEFT JOIN price_history ph ON ph.material_id = m.id AND ph.status = $1 AND ph.submitted_at >= $2
	GROUP BY m.distributor, m.ticker_symbol
	ORDER BY m.distributor`
	var rows []models.DistributorPerformance
	if err := r.db.SelectContext(ctx, &rows, query, models.PriceChangeStatusApproved, cutoff); err != nil {
		return nil, fmt.Errorf("distributor performance: %w", err)
	}
	return rows, nil
}

// TrendingMaterials returns materials with the largest absolute recent price
// movement, computed from current against previous price.
func (r *DashboardRepository) TrendingMaterials(ctx context.Context, limit int) ([]models.Material, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT %s FROM materials
	WHERE previous_price IS NOT NULL AND previous_price <> 0
	ORDER BY ABS((current_price - previous_price) / previous_price) DESC, last_updated DESC
	LIMIT %d`, materialColumns, limit)
	var materials []models.Material
	if err := r.db.SelectContext(ctx, &materials, query); err != nil {
		return nil, fmt.Errorf("trending materials: %w", err)
	}
	return materials, nil
}
