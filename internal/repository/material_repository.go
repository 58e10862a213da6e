package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cojovi/material-pricing-api/internal/models"
)

const materialColumns = `id, name, location, manufacturer, product_category, distributor,
       ticker_symbol, current_price, previous_price, last_updated, updated_by`

// MaterialRepository handles persistence for materials.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository creates a new repository instance.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// List returns all materials ordered by most recently updated.
func (r *MaterialRepository) List(ctx context.Context) ([]models.Material, error) {
	query := fmt.Sprintf(`SELECT %s FROM materials ORDER BY last_updated DESC`, materialColumns)
	var materials []models.Material
	if err := r.db.SelectContext(ctx, &materials, query); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// FindByID returns a material by id.
func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*models.Material, error) {
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE id = $1`, materialColumns)
	var material models.Material
	if err := r.db.GetContext(ctx, &material, query, id); err != nil {
		return nil, err
	}
	return &material, nil
}

// Search returns materials whose name contains the query, case-insensitive.
func (r *MaterialRepository) Search(ctx context.Context, term string, limit int) ([]models.Material, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE name ILIKE $1 ORDER BY name LIMIT %d`, materialColumns, limit)
	var materials []models.Material
	if err := r.db.SelectContext(ctx, &materials, query, "%"+term+"%"); err != nil {
		return nil, fmt.Errorf("search materials: %w", err)
	}
	return materials, nil
}

// FindByNameAndPrice locates a material by exact name and current price.
// Used as the first step of price-change request resolution.
func (r *MaterialRepository) FindByNameAndPrice(ctx context.Context, name string, price float64) (*models.Material, error) {
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE LOWER(name) = LOWER($1) AND current_price = $2 LIMIT 1`, materialColumns)
	var material models.Material
	if err := r.db.GetContext(ctx, &material, query, name, price); err != nil {
		return nil, err
	}
	return &material, nil
}

// FindByName locates a material by exact name only (resolution fallback).
func (r *MaterialRepository) FindByName(ctx context.Context, name string) (*models.Material, error) {
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE LOWER(name) = LOWER($1) LIMIT 1`, materialColumns)
	var material models.Material
	if err := r.db.GetContext(ctx, &material, query, name); err != nil {
		return nil, err
	}
	return &material, nil
}

// FindByNameDistributorLocation resolves the composite key used by the
// historical price import.
func (r *MaterialRepository) FindByNameDistributorLocation(ctx context.Context, name, distributor, location string) (*models.Material, error) {
	query := fmt.Sprintf(`SELECT %s FROM materials
	WHERE LOWER(name) = LOWER($1) AND distributor = $2 AND location = $3 LIMIT 1`, materialColumns)
	var material models.Material
	if err := r.db.GetContext(ctx, &material, query, name, distributor, location); err != nil {
		return nil, err
	}
	return &material, nil
}

// Create persists a new material.
func (r *MaterialRepository) Create(ctx context.Context, material *models.Material) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	if material.LastUpdated.IsZero() {
		material.LastUpdated = time.Now().UTC()
	}
	const query = `INSERT INTO materials
	(id, name, location, manufacturer, product_category, distributor, ticker_symbol, current_price, previous_price, last_updated, updated_by)
	VALUES (:id, :name, :location, :manufacturer, :product_category, :distributor, :ticker_symbol, :current_price, :previous_price, :last_updated, :updated_by)`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// Update persists non-price field changes on a material.
func (r *MaterialRepository) Update(ctx context.Context, material *models.Material) error {
	material.LastUpdated = time.Now().UTC()
	const query = `UPDATE materials SET name = :name, location = :location, manufacturer = :manufacturer,
	product_category = :product_category, distributor = :distributor, ticker_symbol = :ticker_symbol,
	current_price = :current_price, previous_price = :previous_price, last_updated = :last_updated, updated_by = :updated_by
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	return nil
}

// UpdateWithHistory applies a price change to the material and writes its
// history entry inside a single transaction. Readers never observe a changed
// price without the matching history row.
func (r *MaterialRepository) UpdateWithHistory(ctx context.Context, material *models.Material, entry *models.PriceHistoryEntry) error {
	material.LastUpdated = time.Now().UTC()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SubmittedAt.IsZero() {
		entry.SubmittedAt = time.Now().UTC()
	}
	entry.MaterialID = material.ID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin price update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertHistory = `INSERT INTO price_history
	(id, material_id, old_price, new_price, change_percent, submitted_by, submitted_at, approved_by, approved_at, status, notes)
	VALUES (:id, :material_id, :old_price, :new_price, :change_percent, :submitted_by, :submitted_at, :approved_by, :approved_at, :status, :notes)`
	if _, err := tx.NamedExecContext(ctx, insertHistory, entry); err != nil {
		return fmt.Errorf("insert price history: %w", err)
	}

	const updateMaterial = `UPDATE materials SET name = :name, location = :location, manufacturer = :manufacturer,
	product_category = :product_category, distributor = :distributor, ticker_symbol = :ticker_symbol,
	current_price = :current_price, previous_price = :previous_price, last_updated = :last_updated, updated_by = :updated_by
	WHERE id = :id`
	result, err := tx.NamedExecContext(ctx, updateMaterial, material)
	if err != nil {
		return fmt.Errorf("update material price: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit price update: %w", err)
	}
	return nil
}

// Delete removes a material record.
func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountAll returns the number of tracked materials.
func (r *MaterialRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM materials`); err != nil {
		return 0, fmt.Errorf("count materials: %w", err)
	}
	return count, nil
}
