package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cojovi/material-pricing-api/internal/models"
)

// ExportJobRepository handles persistence for background export jobs.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository creates a new repository instance.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create persists a freshly queued job.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	const query = `INSERT INTO export_jobs (id, type, format, status, progress, result_path, created_by, created_at, finished_at, error_message)
	VALUES (:id, :type, :format, :status, :progress, :result_path, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID returns a job by id.
func (r *ExportJobRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT id, type, format, status, progress, result_path, created_by, created_at, finished_at, error_message
	FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateProgress moves a job through its lifecycle.
func (r *ExportJobRepository) UpdateProgress(ctx context.Context, id string, status models.ExportStatus, progress int) error {
	const query = `UPDATE export_jobs SET status = $1, progress = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, progress, id); err != nil {
		return fmt.Errorf("update export job progress: %w", err)
	}
	return nil
}

// MarkFinished records a successful run and the stored result path.
func (r *ExportJobRepository) MarkFinished(ctx context.Context, id, resultPath string) error {
	const query = `UPDATE export_jobs SET status = $1, progress = 100, result_path = $2, finished_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, models.ExportStatusFinished, resultPath, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark export job finished: %w", err)
	}
	return nil
}

// MarkFailed records a failed run with its error message.
func (r *ExportJobRepository) MarkFailed(ctx context.Context, id, message string) error {
	const query = `UPDATE export_jobs SET status = $1, finished_at = $2, error_message = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, models.ExportStatusFailed, time.Now().UTC(), message, id); err != nil {
		return fmt.Errorf("mark export job failed: %w", err)
	}
	return nil
}
