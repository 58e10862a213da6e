package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/cojovi/material-pricing-api/internal/models"
)

// SlackNotifier posts Block Kit messages to the pricing channel.
type SlackNotifier struct {
	client    *slack.Client
	channelID string
}

// NewSlackNotifier creates a notifier backed by the Slack Web API.
func NewSlackNotifier(botToken, channelID string) *SlackNotifier {
	return &SlackNotifier{
		client:    slack.New(botToken),
		channelID: channelID,
	}
}

func formatPrice(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func formatOptionalPrice(v *float64) string {
	if v == nil {
		return "—"
	}
	return formatPrice(*v)
}

func changeEmoji(percent float64) string {
	if percent > 0 {
		return ":chart_with_upwards_trend:"
	}
	return ":chart_with_downwards_trend:"
}

// PriceChangeRequested posts the pending-request card with approve and reject
// buttons and returns the message timestamp.
func (n *SlackNotifier) PriceChangeRequested(ctx context.Context, request *models.PriceChangeRequest) (string, error) {
	header := slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "New Price Change Request", false, false))
	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Material:*\n%s", request.MaterialName), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Distributor:*\n%s", request.Distributor), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Current Price:*\n%s", formatOptionalPrice(request.CurrentPrice)), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Requested Price:*\n%s", formatPrice(request.RequestedPrice)), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Change:*\n%s %.2f%%", changeEmoji(request.ChangePercent), request.ChangePercent), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Submitted By:*\n%s", request.SubmittedBy), false, false),
	}
	section := slack.NewSectionBlock(nil, fields, nil)

	approve := slack.NewButtonBlockElement("approve_request", request.ID,
		slack.NewTextBlockObject(slack.PlainTextType, "Approve", false, false))
	approve.Style = slack.StylePrimary
	reject := slack.NewButtonBlockElement("reject_request", request.ID,
		slack.NewTextBlockObject(slack.PlainTextType, "Reject", false, false))
	reject.Style = slack.StyleDanger
	actions := slack.NewActionBlock("request_actions", approve, reject)

	_, ts, err := n.client.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionBlocks(header, section, actions),
		slack.MsgOptionText(fmt.Sprintf("Price change requested for %s", request.MaterialName), false),
	)
	if err != nil {
		return "", fmt.Errorf("post request notification: %w", err)
	}
	return ts, nil
}

// RequestReviewed posts the review outcome, threading onto the original
// request message when the timestamp was recorded.
func (n *SlackNotifier) RequestReviewed(ctx context.Context, request *models.PriceChangeRequest, reviewerName string) error {
	var title string
	switch request.Status {
	case models.PriceChangeStatusApproved:
		title = ":white_check_mark: Price Change Approved"
	case models.PriceChangeStatusRejected:
		title = ":x: Price Change Rejected"
	default:
		return fmt.Errorf("unexpected review status %q", request.Status)
	}

	text := fmt.Sprintf("%s\n*%s* → %s (%s) reviewed by %s",
		title, request.MaterialName, formatPrice(request.RequestedPrice), request.Distributor, reviewerName)
	if request.Notes != nil && *request.Notes != "" {
		text += fmt.Sprintf("\n*Notes:* %s", *request.Notes)
	}
	section := slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)

	options := []slack.MsgOption{
		slack.MsgOptionBlocks(section),
		slack.MsgOptionText(title, false),
	}
	if request.SlackMessageTS != nil && *request.SlackMessageTS != "" {
		options = append(options, slack.MsgOptionTS(*request.SlackMessageTS))
	}

	if _, _, err := n.client.PostMessageContext(ctx, n.channelID, options...); err != nil {
		return fmt.Errorf("post review notification: %w", err)
	}
	return nil
}

// PriceUpdated posts a direct admin edit announcement.
func (n *SlackNotifier) PriceUpdated(ctx context.Context, material *models.Material, oldPrice *float64, updatedBy string) error {
	text := fmt.Sprintf(":memo: *Price Updated*\n*%s* (%s / %s): %s → %s by %s",
		material.Name, material.TickerSymbol, material.Location,
		formatOptionalPrice(oldPrice), formatPrice(material.CurrentPrice), updatedBy)
	section := slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)

	if _, _, err := n.client.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionBlocks(section),
		slack.MsgOptionText("Price updated", false),
	); err != nil {
		return fmt.Errorf("post update notification: %w", err)
	}
	return nil
}
