package models

import "time"

// PriceChangeStatus captures workflow states shared by history entries and requests.
type PriceChangeStatus string

const (
	PriceChangeStatusPending  PriceChangeStatus = "pending"
	PriceChangeStatusApproved PriceChangeStatus = "approved"
	PriceChangeStatusRejected PriceChangeStatus = "rejected"
)

// PriceHistoryEntry records one price change applied to a material.
// OldPrice is nil for the first-ever price; ChangePercent is zero when
// there was no prior non-zero price to compare against.
type PriceHistoryEntry struct {
	ID            string            `db:"id" json:"id"`
	MaterialID    string            `db:"material_id" json:"material_id"`
	OldPrice      *float64          `db:"old_price" json:"old_price,omitempty"`
	NewPrice      float64           `db:"new_price" json:"new_price"`
	ChangePercent float64           `db:"change_percent" json:"change_percent"`
	SubmittedBy   string            `db:"submitted_by" json:"submitted_by"`
	SubmittedAt   time.Time         `db:"submitted_at" json:"submitted_at"`
	ApprovedBy    *string           `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt    *time.Time        `db:"approved_at" json:"approved_at,omitempty"`
	Status        PriceChangeStatus `db:"status" json:"status"`
	Notes         *string           `db:"notes" json:"notes,omitempty"`
}

// PriceHistoryWithMaterial joins a history entry with its material for feeds.
type PriceHistoryWithMaterial struct {
	PriceHistoryEntry
	MaterialName string `db:"material_name" json:"material_name"`
	Distributor  string `db:"distributor" json:"distributor"`
	Location     string `db:"location" json:"location"`
	TickerSymbol string `db:"ticker_symbol" json:"ticker_symbol"`
}
