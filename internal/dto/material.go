package dto

// CreateMaterialRequest carries the fields required to register a material.
// The ticker symbol is always derived server-side from the distributor.
type CreateMaterialRequest struct {
	Name            string  `json:"name" validate:"required"`
	Location        string  `json:"location" validate:"required,oneof=DFW ATX HOU OKC ATL ARK NSH"`
	Manufacturer    string  `json:"manufacturer" validate:"required"`
	ProductCategory string  `json:"product_category" validate:"required"`
	Distributor     string  `json:"distributor" validate:"required"`
	CurrentPrice    float64 `json:"current_price" validate:"required,gt=0"`
}

// UpdateMaterialRequest is a partial update payload; nil fields are untouched.
type UpdateMaterialRequest struct {
	Name            *string  `json:"name,omitempty"`
	Location        *string  `json:"location,omitempty"`
	Manufacturer    *string  `json:"manufacturer,omitempty"`
	ProductCategory *string  `json:"product_category,omitempty"`
	Distributor     *string  `json:"distributor,omitempty"`
	CurrentPrice    *float64 `json:"current_price,omitempty"`
}

// HasChanges reports whether the payload touches any field at all.
func (r UpdateMaterialRequest) HasChanges() bool {
	return r.Name != nil || r.Location != nil || r.Manufacturer != nil ||
		r.ProductCategory != nil || r.Distributor != nil || r.CurrentPrice != nil
}
