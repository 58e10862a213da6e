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

const requestColumns = `id, material_id, material_name, distributor, current_price, requested_price,
       change_percent, submitted_by, submitted_at, status, reviewed_by, reviewed_at, notes, slack_message_ts`

// PriceRequestRepository handles persistence for price-change requests.
type PriceRequestRepository struct {
	db *sqlx.DB
}

// NewPriceRequestRepository creates a new repository instance.
func NewPriceRequestRepository(db *sqlx.DB) *PriceRequestRepository {
	return &PriceRequestRepository{db: db}
}

// Create persists a new pending request.
func (r *PriceRequestRepository) Create(ctx context.Context, request *models.PriceChangeRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.SubmittedAt.IsZero() {
		request.SubmittedAt = time.Now().UTC()
	}
	if request.Status == "" {
		request.Status = models.PriceChangeStatusPending
	}
	const query = `INSERT INTO price_change_requests
	(id, material_id, material_name, distributor, current_price, requested_price, change_percent,
	 submitted_by, submitted_at, status, reviewed_by, reviewed_at, notes, slack_message_ts)
	VALUES (:id, :material_id, :material_name, :distributor, :current_price, :requested_price, :change_percent,
	 :submitted_by, :submitted_at, :status, :reviewed_by, :reviewed_at, :notes, :slack_message_ts)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create price change request: %w", err)
	}
	return nil
}

// GetByID returns a request by id.
func (r *PriceRequestRepository) GetByID(ctx context.Context, id string) (*models.PriceChangeRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM price_change_requests WHERE id = $1`, requestColumns)
	var request models.PriceChangeRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests newest-first, optionally filtered by status.
func (r *PriceRequestRepository) List(ctx context.Context, status models.PriceChangeStatus) ([]models.PriceChangeRequest, error) {
	var requests []models.PriceChangeRequest
	if status == "" {
		query := fmt.Sprintf(`SELECT %s FROM price_change_requests ORDER BY submitted_at DESC`, requestColumns)
		if err := r.db.SelectContext(ctx, &requests, query); err != nil {
			return nil, fmt.Errorf("list price change requests: %w", err)
		}
		return requests, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM price_change_requests WHERE status = $1 ORDER BY submitted_at DESC`, requestColumns)
	if err := r.db.SelectContext(ctx, &requests, query, status); err != nil {
		return nil, fmt.Errorf("list price change requests: %w", err)
	}
	return requests, nil
}

// UpdateStatus transitions a request out of pending. The status predicate
// makes concurrent reviews race-safe: the second reviewer matches zero rows
// and gets sql.ErrNoRows.
func (r *PriceRequestRepository) UpdateStatus(ctx context.Context, id string, status models.PriceChangeStatus, reviewedBy string, notes *string) error {
	const query = `UPDATE price_change_requests
	SET status = $1, reviewed_by = $2, reviewed_at = $3, notes = COALESCE($4, notes)
	WHERE id = $5 AND status = $6`
	result, err := r.db.ExecContext(ctx, query, status, reviewedBy, time.Now().UTC(), notes, id, models.PriceChangeStatusPending)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateResolvedMaterial pins the request to the material it resolved to
// during review.
func (r *PriceRequestRepository) UpdateResolvedMaterial(ctx context.Context, id, materialID string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE price_change_requests SET material_id = $1 WHERE id = $2`, materialID, id); err != nil {
		return fmt.Errorf("update resolved material: %w", err)
	}
	return nil
}

// UpdateSlackMessageTS records the Slack message timestamp after the
// notification for a request is posted.
func (r *PriceRequestRepository) UpdateSlackMessageTS(ctx context.Context, id, ts string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE price_change_requests SET slack_message_ts = $1 WHERE id = $2`, ts, id); err != nil {
		return fmt.Errorf("update slack message ts: %w", err)
	}
	return nil
}

// CountByStatus counts requests in the given status.
func (r *PriceRequestRepository) CountByStatus(ctx context.Context, status models.PriceChangeStatus) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM price_change_requests WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return count, nil
}
