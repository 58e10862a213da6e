package dto

import "time"

// CreateExportRequest asks for a price-sheet export job.
type CreateExportRequest struct {
	Type   string `json:"type" validate:"required,oneof=materials price_history"`
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse reports job identity and progress.
type ExportJobResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	DownloadURL *string    `json:"download_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
}
