package dto

// CreatePriceChangeRequest is the submission payload for a price-change proposal.
type CreatePriceChangeRequest struct {
	MaterialName   string   `json:"material_name" validate:"required"`
	Distributor    string   `json:"distributor" validate:"required"`
	RequestedPrice float64  `json:"requested_price" validate:"required,gt=0"`
	CurrentPrice   *float64 `json:"current_price,omitempty"`
}

// RejectPriceChangeRequest carries the optional rejection notes.
type RejectPriceChangeRequest struct {
	Notes string `json:"notes,omitempty"`
}
