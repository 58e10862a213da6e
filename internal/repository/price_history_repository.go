package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cojovi/material-pricing-api/internal/models"
)

// PriceHistoryRepository handles persistence for price history entries.
type PriceHistoryRepository struct {
	db *sqlx.DB
}

// NewPriceHistoryRepository creates a new repository instance.
func NewPriceHistoryRepository(db *sqlx.DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

// Create persists a history entry outside of a material update transaction,
// used by the historical import and by rejected-request records.
func (r *PriceHistoryRepository) Create(ctx context.Context, entry *models.PriceHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SubmittedAt.IsZero() {
		entry.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO price_history
	(id, material_id, old_price, new_price, change_percent, submitted_by, submitted_at, approved_by, approved_at, status, notes)
	VALUES (:id, :material_id, :old_price, :new_price, :change_percent, :submitted_by, :submitted_at, :approved_by, :approved_at, :status, :notes)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create price history entry: %w", err)
	}
	return nil
}

// ListByMaterial returns a material's history newest-first, optionally limited
// to the last N days.
func (r *PriceHistoryRepository) ListByMaterial(ctx context.Context, materialID string, days int) ([]models.PriceHistoryEntry, error) {
	query := `SELECT id, material_id, old_price, new_price, change_percent, submitted_by, submitted_at,
	approved_by, approved_at, status, notes
	FROM price_history WHERE material_id = $1`
	args := []interface{}{materialID}
	if days > 0 {
		query += ` AND submitted_at >= $2`
		args = append(args, time.Now().UTC().AddDate(0, 0, -days))
	}
	query += ` ORDER BY submitted_at DESC`

	var entries []models.PriceHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list price history: %w", err)
	}
	return entries, nil
}

// RecentApproved returns the latest approved changes joined with their
// material identity, for the dashboard activity feed.
func (r *PriceHistoryRepository) RecentApproved(ctx context.Context, limit int) ([]models.PriceHistoryWithMaterial, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT ph.id, ph.material_id, ph.old_price, ph.new_price, ph.change_percent,
	ph.submitted_by, ph.submitted_at, ph.approved_by, ph.approved_at, ph.status, ph.notes,
	m.name AS material_name, m.distributor, m.location, m.ticker_symbol
	FROM price_history ph
	JOIN materials m ON m.id = ph.material_id
	WHERE ph.status = $1
	ORDER BY ph.submitted_at DESC
	LIMIT %d`, limit)

	var entries []models.PriceHistoryWithMaterial
	if err := r.db.SelectContext(ctx, &entries, query, models.PriceChangeStatusApproved); err != nil {
		return nil, fmt.Errorf("list recent approved changes: %w", err)
	}
	return entries, nil
}

// CountSince counts approved price changes submitted after the cutoff.
func (r *PriceHistoryRepository) CountSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM price_history WHERE status = $1 AND submitted_at >= $2`
	if err := r.db.GetContext(ctx, &count, query, models.PriceChangeStatusApproved, cutoff); err != nil {
		return 0, fmt.Errorf("count recent changes: %w", err)
	}
	return count, nil
}
