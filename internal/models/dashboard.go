package models

// DashboardStats summarises the pricing board for the landing view.
type DashboardStats struct {
	TotalMaterials  int     `json:"total_materials"`
	AvgPriceChange  float64 `json:"avg_price_change"`
	RecentUpdates   int     `json:"recent_updates"`
	PendingRequests int     `json:"pending_requests"`
}

// LocationPerformance aggregates 30-day price movement per branch location.
type LocationPerformance struct {
	Location      string  `db:"location" json:"location"`
	ChangePercent float64 `db:"change_percent" json:"change_percent"`
	MaterialCount int     `db:"material_count" json:"material_count"`
}

// DistributorPerformance aggregates 30-day price movement per distributor.
type DistributorPerformance struct {
	Distributor   string  `db:"distributor" json:"distributor"`
	TickerSymbol  string  `db:"ticker_symbol" json:"ticker_symbol"`
	ChangePercent float64 `db:"change_percent" json:"change_percent"`
	MaterialCount int     `db:"material_count" json:"material_count"`
}
