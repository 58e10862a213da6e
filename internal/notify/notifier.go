package notify

import (
	"context"

	"github.com/cojovi/material-pricing-api/internal/models"
)

// Notifier publishes pricing workflow events to the team channel.
// Implementations must be safe for concurrent use; callers treat every
// method as best-effort and never fail the triggering operation on error.
type Notifier interface {
	// PriceChangeRequested announces a new pending request and returns the
	// message timestamp so the review outcome can thread onto it.
	PriceChangeRequested(ctx context.Context, request *models.PriceChangeRequest) (string, error)
	// RequestReviewed announces an approval or rejection, threaded onto the
	// original request message when its timestamp is known.
	RequestReviewed(ctx context.Context, request *models.PriceChangeRequest, reviewerName string) error
	// PriceUpdated announces a direct admin price edit.
	PriceUpdated(ctx context.Context, material *models.Material, oldPrice *float64, updatedBy string) error
}

// NoopNotifier is used when no Slack credentials are configured.
type NoopNotifier struct{}

func (NoopNotifier) PriceChangeRequested(context.Context, *models.PriceChangeRequest) (string, error) {
	return "", nil
}

func (NoopNotifier) RequestReviewed(context.Context, *models.PriceChangeRequest, string) error {
	return nil
}

func (NoopNotifier) PriceUpdated(context.Context, *models.Material, *float64, string) error {
	return nil
}
