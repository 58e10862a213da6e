package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cojovi/material-pricing-api/internal/dto"
	"github.com/cojovi/material-pricing-api/internal/models"
	appErrors "github.com/cojovi/material-pricing-api/pkg/errors"
	"github.com/cojovi/material-pricing-api/pkg/export"
	"github.com/cojovi/material-pricing-api/pkg/jobs"
	"github.com/cojovi/material-pricing-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	UpdateProgress(ctx context.Context, id string, status models.ExportStatus, progress int) error
	MarkFinished(ctx context.Context, id, resultPath string) error
	MarkFailed(ctx context.Context, id, message string) error
}

type exportMaterialSource interface {
	List(ctx context.Context) ([]models.Material, error)
}

type exportHistorySource interface {
	RecentApproved(ctx context.Context, limit int) ([]models.PriceHistoryWithMaterial, error)
}

// ExportService runs price-sheet exports on a background worker pool and
// serves results through HMAC-signed download URLs.
type ExportService struct {
	store     exportJobStore
	materials exportMaterialSource
	history   exportHistorySource
	storage   *storage.LocalStorage
	signer    *storage.SignedURLSigner
	queue     *jobs.Queue
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs an ExportService. Call Start before enqueuing.
func NewExportService(store exportJobStore, materials exportMaterialSource, history exportHistorySource, localStorage *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, validate *validator.Validate, workers int, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	s := &ExportService{
		store:     store,
		materials: materials,
		history:   history,
		storage:   localStorage,
		signer:    signer,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
	s.queue = jobs.NewQueue("exports", s.process, jobs.QueueConfig{
		Workers: workers,
		Logger:  logger,
	})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Enqueue persists a queued job and hands it to the worker pool.
func (s *ExportService) Enqueue(ctx context.Context, req dto.CreateExportRequest, createdBy string) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}

	job := &models.ExportJob{
		Type:      models.ExportType(req.Type),
		Format:    models.ExportFormat(req.Format),
		Status:    models.ExportStatusQueued,
		CreatedBy: createdBy,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		if markErr := s.store.MarkFailed(ctx, job.ID, "worker pool unavailable"); markErr != nil {
			s.logger.Warn("failed to mark unqueued job", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return job, nil
}

// Status reports a job's progress with a signed download URL once finished.
func (s *ExportService) Status(ctx context.Context, jobID string) (*dto.ExportJobResponse, error) {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}

	resp := &dto.ExportJobResponse{
		ID:       job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
		Error:    job.ErrorMessage,
	}
	if job.Status == models.ExportStatusFinished && job.ResultPath != nil {
		url, expiresAt, err := s.signer.Generate(job.ID, *job.ResultPath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		resp.DownloadURL = &url
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// ResolveDownload validates a signed token and returns the stored file path.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (string, error) {
	jobID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if job.Status != models.ExportStatusFinished || job.ResultPath == nil || *job.ResultPath != relPath {
		return "", appErrors.Clone(appErrors.ErrForbidden, "download not available")
	}
	return s.storage.Path(relPath), nil
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	record, err := s.store.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", job.ID, err)
	}
	if record.Status != models.ExportStatusQueued {
		return nil
	}

	if err := s.store.UpdateProgress(ctx, record.ID, models.ExportStatusProcessing, 10); err != nil {
		s.logger.Warn("failed to mark export processing", zap.String("job_id", record.ID), zap.Error(err))
	}

	data, err := s.buildDataset(ctx, record.Type)
	if err != nil {
		s.fail(ctx, record.ID, err)
		return nil
	}

	payload, ext, err := s.render(record.Format, record.Type, data)
	if err != nil {
		s.fail(ctx, record.ID, err)
		return nil
	}

	filename := fmt.Sprintf("%s-%s-%s.%s", record.Type, time.Now().UTC().Format("20060102-150405"), record.ID, ext)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		s.fail(ctx, record.ID, fmt.Errorf("store export file: %w", err))
		return nil
	}

	if err := s.store.MarkFinished(ctx, record.ID, relPath); err != nil {
		s.logger.Error("failed to mark export finished", zap.String("job_id", record.ID), zap.Error(err))
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordExportJob(string(models.ExportStatusFinished))
	}
	s.logger.Info("export job finished", zap.String("job_id", record.ID), zap.String("path", relPath))
	return nil
}

func (s *ExportService) fail(ctx context.Context, jobID string, cause error) {
	s.logger.Error("export job failed", zap.String("job_id", jobID), zap.Error(cause))
	if err := s.store.MarkFailed(ctx, jobID, cause.Error()); err != nil {
		s.logger.Error("failed to mark export failed", zap.String("job_id", jobID), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordExportJob(string(models.ExportStatusFailed))
	}
}

func (s *ExportService) buildDataset(ctx context.Context, exportType models.ExportType) (export.Dataset, error) {
	switch exportType {
	case models.ExportTypeMaterials:
		materials, err := s.materials.List(ctx)
		if err != nil {
			return export.Dataset{}, fmt.Errorf("load materials: %w", err)
		}
		data := export.Dataset{
			Headers: []string{"Name", "Location", "Manufacturer", "Category", "Distributor", "Ticker", "Current Price", "Previous Price", "Last Updated"},
		}
		for _, m := range materials {
			previous := ""
			if m.PreviousPrice != nil {
				previous = fmt.Sprintf("%.2f", *m.PreviousPrice)
			}
			data.Rows = append(data.Rows, map[string]string{
				"Name":           m.Name,
				"Location":       m.Location,
				"Manufacturer":   m.Manufacturer,
				"Category":       m.ProductCategory,
				"Distributor":    m.Distributor,
				"Ticker":         m.TickerSymbol,
				"Current Price":  fmt.Sprintf("%.2f", m.CurrentPrice),
				"Previous Price": previous,
				"Last Updated":   m.LastUpdated.Format("2006-01-02"),
			})
		}
		return data, nil
	case models.ExportTypePriceHistory:
		entries, err := s.history.RecentApproved(ctx, 100)
		if err != nil {
			return export.Dataset{}, fmt.Errorf("load price history: %w", err)
		}
		data := export.Dataset{
			Headers: []string{"Material", "Distributor", "Location", "Old Price", "New Price", "Change %", "Submitted At", "Submitted By"},
		}
		for _, e := range entries {
			oldPrice := ""
			if e.OldPrice != nil {
				oldPrice = fmt.Sprintf("%.2f", *e.OldPrice)
			}
			data.Rows = append(data.Rows, map[string]string{
				"Material":     e.MaterialName,
				"Distributor":  e.Distributor,
				"Location":     e.Location,
				"Old Price":    oldPrice,
				"New Price":    fmt.Sprintf("%.2f", e.NewPrice),
				"Change %":     fmt.Sprintf("%.2f", e.ChangePercent),
				"Submitted At": e.SubmittedAt.Format("2006-01-02"),
				"Submitted By": e.SubmittedBy,
			})
		}
		return data, nil
	default:
		return export.Dataset{}, fmt.Errorf("unsupported export type %q", exportType)
	}
}

func (s *ExportService) render(format models.ExportFormat, exportType models.ExportType, data export.Dataset) ([]byte, string, error) {
	switch format {
	case models.ExportFormatCSV:
		payload, err := export.NewCSVExporter().Render(data)
		return payload, "csv", err
	case models.ExportFormatPDF:
		title := "Materials Price Sheet"
		if exportType == models.ExportTypePriceHistory {
			title = "Price Change History"
		}
		payload, err := export.NewPDFExporter().Render(data, title)
		return payload, "pdf", err
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
}
