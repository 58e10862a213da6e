package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cojovi/material-pricing-api/internal/dto"
	"github.com/cojovi/material-pricing-api/internal/models"
	"github.com/cojovi/material-pricing-api/internal/notify"
	"github.com/cojovi/material-pricing-api/internal/pricing"
	appErrors "github.com/cojovi/material-pricing-api/pkg/errors"
)

type materialStore interface {
	List(ctx context.Context) ([]models.Material, error)
	FindByID(ctx context.Context, id string) (*models.Material, error)
	Search(ctx context.Context, term string, limit int) ([]models.Material, error)
	Create(ctx context.Context, material *models.Material) error
	Update(ctx context.Context, material *models.Material) error
	UpdateWithHistory(ctx context.Context, material *models.Material, entry *models.PriceHistoryEntry) error
	Delete(ctx context.Context, id string) error
}

type materialHistoryStore interface {
	ListByMaterial(ctx context.Context, materialID string, days int) ([]models.PriceHistoryEntry, error)
}

// MaterialService implements material CRUD and the price update operation.
type MaterialService struct {
	materials materialStore
	history   materialHistoryStore
	notifier  notify.Notifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMaterialService constructs a MaterialService.
func NewMaterialService(materials materialStore, history materialHistoryStore, notifier notify.Notifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *MaterialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &MaterialService{
		materials: materials,
		history:   history,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns all materials decorated with their price trend.
func (s *MaterialService) List(ctx context.Context) ([]models.MaterialWithTrend, error) {
	materials, err := s.materials.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materials")
	}
	out := make([]models.MaterialWithTrend, 0, len(materials))
	for _, m := range materials {
		out = append(out, withTrend(m))
	}
	return out, nil
}

// Get returns one material with its trend.
func (s *MaterialService) Get(ctx context.Context, id string) (*models.MaterialWithTrend, error) {
	material, err := s.materials.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	result := withTrend(*material)
	return &result, nil
}

// Search returns materials matching the term by name, capped at ten results.
func (s *MaterialService) Search(ctx context.Context, term string) ([]models.Material, error) {
	if term == "" {
		return []models.Material{}, nil
	}
	materials, err := s.materials.Search(ctx, term, 10)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search materials")
	}
	return materials, nil
}

// History returns a material's price history, optionally windowed in days.
func (s *MaterialService) History(ctx context.Context, materialID string, days int) ([]models.PriceHistoryEntry, error) {
	if _, err := s.materials.FindByID(ctx, materialID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	entries, err := s.history.ListByMaterial(ctx, materialID, days)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load price history")
	}
	return entries, nil
}

// Create registers a new material. The ticker symbol is always derived from
// the distributor, never taken from the client.
func (s *MaterialService) Create(ctx context.Context, req dto.CreateMaterialRequest, createdBy string) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}
	if !models.IsValidDistributor(req.Distributor) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown distributor")
	}

	material := &models.Material{
		Name:            req.Name,
		Location:        req.Location,
		Manufacturer:    req.Manufacturer,
		ProductCategory: req.ProductCategory,
		Distributor:     req.Distributor,
		TickerSymbol:    models.TickerForDistributor(req.Distributor),
		CurrentPrice:    pricing.Round2(req.CurrentPrice),
		UpdatedBy:       &createdBy,
	}
	if err := s.materials.Create(ctx, material); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create material")
	}
	return material, nil
}

// Update applies a partial update. A price change snapshots the previous
// price and writes an approved history entry atomically with the material
// row; non-price edits never touch history.
func (s *MaterialService) Update(ctx context.Context, id string, req dto.UpdateMaterialRequest, updatedBy string) (*models.Material, error) {
	if !req.HasChanges() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}

	material, err := s.materials.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}

	if req.Name != nil {
		material.Name = *req.Name
	}
	if req.Location != nil {
		if !containsString(models.Locations, *req.Location) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown location")
		}
		material.Location = *req.Location
	}
	if req.Manufacturer != nil {
		material.Manufacturer = *req.Manufacturer
	}
	if req.ProductCategory != nil {
		material.ProductCategory = *req.ProductCategory
	}
	if req.Distributor != nil {
		if !models.IsValidDistributor(*req.Distributor) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown distributor")
		}
		material.Distributor = *req.Distributor
		material.TickerSymbol = models.TickerForDistributor(*req.Distributor)
	}
	material.UpdatedBy = &updatedBy

	if req.CurrentPrice == nil {
		if err := s.materials.Update(ctx, material); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update material")
		}
		return material, nil
	}

	newPrice := pricing.Round2(*req.CurrentPrice)
	if newPrice <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "price must be greater than zero")
	}

	oldPrice := material.CurrentPrice
	change := pricing.Compute(&oldPrice, newPrice)
	now := time.Now().UTC()
	entry := &models.PriceHistoryEntry{
		OldPrice:      &oldPrice,
		NewPrice:      newPrice,
		ChangePercent: pricing.Round2(change.Percent),
		SubmittedBy:   updatedBy,
		ApprovedBy:    &updatedBy,
		ApprovedAt:    &now,
		Status:        models.PriceChangeStatusApproved,
	}

	material.PreviousPrice = &oldPrice
	material.CurrentPrice = newPrice
	if err := s.materials.UpdateWithHistory(ctx, material, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update material price")
	}

	// Notification failures never roll back a committed price change.
	if err := s.notifier.PriceUpdated(ctx, material, &oldPrice, updatedBy); err != nil {
		s.logger.Warn("price update notification failed",
			zap.String("material_id", material.ID), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordNotificationFailure()
		}
	}

	return material, nil
}

// Delete removes a material.
func (s *MaterialService) Delete(ctx context.Context, id string) error {
	if err := s.materials.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete material")
	}
	return nil
}

func withTrend(m models.Material) models.MaterialWithTrend {
	change := pricing.Compute(m.PreviousPrice, m.CurrentPrice)
	return models.MaterialWithTrend{
		Material:        m,
		ChangePercent:   pricing.Round2(change.Percent),
		ChangeDirection: string(change.Direction),
	}
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
