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

type requestStore interface {
	Create(ctx context.Context, request *models.PriceChangeRequest) error
	GetByID(ctx context.Context, id string) (*models.PriceChangeRequest, error)
	List(ctx context.Context, status models.PriceChangeStatus) ([]models.PriceChangeRequest, error)
	UpdateStatus(ctx context.Context, id string, status models.PriceChangeStatus, reviewedBy string, notes *string) error
	UpdateResolvedMaterial(ctx context.Context, id, materialID string) error
	UpdateSlackMessageTS(ctx context.Context, id, ts string) error
}

type requestMaterialStore interface {
	FindByNameAndPrice(ctx context.Context, name string, price float64) (*models.Material, error)
	FindByName(ctx context.Context, name string) (*models.Material, error)
	UpdateWithHistory(ctx context.Context, material *models.Material, entry *models.PriceHistoryEntry) error
}

// PriceRequestService implements the price-change approval workflow.
type PriceRequestService struct {
	requests  requestStore
	materials requestMaterialStore
	notifier  notify.Notifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPriceRequestService constructs a PriceRequestService.
func NewPriceRequestService(requests requestStore, materials requestMaterialStore, notifier notify.Notifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PriceRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &PriceRequestService{
		requests:  requests,
		materials: materials,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Submit records a pending request and posts the review card to Slack.
// The Slack call happens after the commit; its failure leaves the request
// pending and merely unposted.
func (s *PriceRequestService) Submit(ctx context.Context, req dto.CreatePriceChangeRequest, submittedBy string) (*models.PriceChangeRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid price change request")
	}
	if !models.IsValidDistributor(req.Distributor) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown distributor")
	}

	currentPrice := req.CurrentPrice
	if currentPrice == nil {
		// Best-effort snapshot of the price on file at submission time.
		if material, err := s.materials.FindByName(ctx, req.MaterialName); err == nil {
			price := material.CurrentPrice
			currentPrice = &price
		}
	}

	change := pricing.Compute(currentPrice, req.RequestedPrice)
	request := &models.PriceChangeRequest{
		MaterialName:   req.MaterialName,
		Distributor:    req.Distributor,
		RequestedPrice: pricing.Round2(req.RequestedPrice),
		CurrentPrice:   currentPrice,
		ChangePercent:  pricing.Round2(change.Percent),
		SubmittedBy:    submittedBy,
		Status:         models.PriceChangeStatusPending,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create price change request")
	}

	ts, err := s.notifier.PriceChangeRequested(ctx, request)
	if err != nil {
		s.logger.Warn("request notification failed", zap.String("request_id", request.ID), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordNotificationFailure()
		}
		return request, nil
	}
	if ts != "" {
		if err := s.requests.UpdateSlackMessageTS(ctx, request.ID, ts); err != nil {
			s.logger.Warn("failed to store slack message ts", zap.String("request_id", request.ID), zap.Error(err))
		} else {
			request.SlackMessageTS = &ts
		}
	}
	return request, nil
}

// List returns requests, optionally filtered by status.
func (s *PriceRequestService) List(ctx context.Context, status string) ([]models.PriceChangeRequest, error) {
	var filter models.PriceChangeStatus
	switch status {
	case "":
		filter = ""
	case string(models.PriceChangeStatusPending), string(models.PriceChangeStatusApproved), string(models.PriceChangeStatusRejected):
		filter = models.PriceChangeStatus(status)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}
	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list price change requests")
	}
	return requests, nil
}

// Get returns one request by id.
func (s *PriceRequestService) Get(ctx context.Context, id string) (*models.PriceChangeRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "price change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load price change request")
	}
	return request, nil
}

// Approve transitions a pending request to approved and applies the price to
// the matched material. A request whose material cannot be matched still
// becomes approved; the mismatch is logged for manual follow-up.
func (s *PriceRequestService) Approve(ctx context.Context, id string, reviewer *models.JWTClaims) (*models.PriceChangeRequest, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.requests.UpdateStatus(ctx, id, models.PriceChangeStatusApproved, reviewer.UserID, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request has already been reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve request")
	}

	request.Status = models.PriceChangeStatusApproved
	request.ReviewedBy = &reviewer.UserID
	now := time.Now().UTC()
	request.ReviewedAt = &now

	material := s.resolveMaterial(ctx, request)
	if material == nil {
		s.logger.Warn("approved request did not match any material",
			zap.String("request_id", request.ID),
			zap.String("material_name", request.MaterialName))
	} else {
		oldPrice := material.CurrentPrice
		change := pricing.Compute(&oldPrice, request.RequestedPrice)
		entry := &models.PriceHistoryEntry{
			OldPrice:      &oldPrice,
			NewPrice:      request.RequestedPrice,
			ChangePercent: pricing.Round2(change.Percent),
			SubmittedBy:   request.SubmittedBy,
			SubmittedAt:   request.SubmittedAt,
			ApprovedBy:    &reviewer.UserID,
			ApprovedAt:    &now,
			Status:        models.PriceChangeStatusApproved,
		}
		material.PreviousPrice = &oldPrice
		material.CurrentPrice = request.RequestedPrice
		material.UpdatedBy = &reviewer.UserID
		if err := s.materials.UpdateWithHistory(ctx, material, entry); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply approved price")
		}
		if err := s.requests.UpdateResolvedMaterial(ctx, request.ID, material.ID); err != nil {
			s.logger.Warn("failed to record resolved material", zap.String("request_id", request.ID), zap.Error(err))
		} else {
			request.MaterialID = &material.ID
		}
	}

	s.notifyReview(ctx, request, reviewer.Name)
	return request, nil
}

// Reject transitions a pending request to rejected with optional notes.
func (s *PriceRequestService) Reject(ctx context.Context, id string, req dto.RejectPriceChangeRequest, reviewer *models.JWTClaims) (*models.PriceChangeRequest, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var notes *string
	if req.Notes != "" {
		notes = &req.Notes
	}
	if err := s.requests.UpdateStatus(ctx, id, models.PriceChangeStatusRejected, reviewer.UserID, notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request has already been reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject request")
	}

	request.Status = models.PriceChangeStatusRejected
	request.ReviewedBy = &reviewer.UserID
	now := time.Now().UTC()
	request.ReviewedAt = &now
	if notes != nil {
		request.Notes = notes
	}

	s.notifyReview(ctx, request, reviewer.Name)
	return request, nil
}

// resolveMaterial matches a request to a material by name plus recorded
// price, falling back to name alone when the price on file has moved since
// submission.
func (s *PriceRequestService) resolveMaterial(ctx context.Context, request *models.PriceChangeRequest) *models.Material {
	if request.CurrentPrice != nil {
		if material, err := s.materials.FindByNameAndPrice(ctx, request.MaterialName, *request.CurrentPrice); err == nil {
			return material
		}
	}
	material, err := s.materials.FindByName(ctx, request.MaterialName)
	if err != nil {
		return nil
	}
	return material
}

func (s *PriceRequestService) notifyReview(ctx context.Context, request *models.PriceChangeRequest, reviewerName string) {
	if err := s.notifier.RequestReviewed(ctx, request, reviewerName); err != nil {
		s.logger.Warn("review notification failed", zap.String("request_id", request.ID), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordNotificationFailure()
		}
	}
}
