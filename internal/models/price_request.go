package models

import "time"

// PriceChangeRequest is a user-submitted proposal to change a material's price.
// The target material is matched by name (plus recorded price) at approval
// time; MaterialID is filled in once that resolution succeeds.
type PriceChangeRequest struct {
	ID             string            `db:"id" json:"id"`
	MaterialID     *string           `db:"material_id" json:"material_id,omitempty"`
	MaterialName   string            `db:"material_name" json:"material_name"`
	Distributor    string            `db:"distributor" json:"distributor"`
	RequestedPrice float64           `db:"requested_price" json:"requested_price"`
	CurrentPrice   *float64          `db:"current_price" json:"current_price,omitempty"`
	ChangePercent  float64           `db:"change_percent" json:"change_percent"`
	SubmittedBy    string            `db:"submitted_by" json:"submitted_by"`
	SubmittedAt    time.Time         `db:"submitted_at" json:"submitted_at"`
	Status         PriceChangeStatus `db:"status" json:"status"`
	ReviewedBy     *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
	Notes          *string           `db:"notes" json:"notes,omitempty"`
	SlackMessageTS *string           `db:"slack_message_ts" json:"slack_message_ts,omitempty"`
}
