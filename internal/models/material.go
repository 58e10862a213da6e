package models

import "time"

// Location codes for the branches materials are priced under.
var Locations = []string{"DFW", "ATX", "HOU", "OKC", "ATL", "ARK", "NSH"}

// DefaultLocation is the fallback when an import row carries no usable location.
const DefaultLocation = "DFW"

// Manufacturers recognised by the material schema.
var Manufacturers = []string{
	"Atlas", "Malarky", "Tri-Built", "CertainTeed", "Tamko",
	"GAF", "Owens Corning", "IKO", "Other",
}

// ProductCategories recognised by the material schema.
var ProductCategories = []string{
	"Shingle", "Accessory", "Decking", "Underlayment",
	"Ventilation", "Flashing", "Garage Door", "Door Motor", "Other",
}

// DistributorTickers maps each distributor to its display ticker symbol.
// The ticker stored on a material must always agree with this mapping.
var DistributorTickers = map[string]string{
	"ABCSupply":              "ABC",
	"Beacon":                 "QXO",
	"SRSProducts":            "SRS",
	"CommercialDistributors": "CDH",
	"Other":                  "OTH",
}

// TickerForDistributor derives the ticker symbol for a distributor,
// falling back to the "Other" bucket for anything unknown.
func TickerForDistributor(distributor string) string {
	if ticker, ok := DistributorTickers[distributor]; ok {
		return ticker
	}
	return "OTH"
}

// IsValidDistributor reports whether the value is a canonical distributor name.
func IsValidDistributor(distributor string) bool {
	_, ok := DistributorTickers[distributor]
	return ok
}

// Material is a purchasable construction item tracked with a current price.
type Material struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Location        string    `db:"location" json:"location"`
	Manufacturer    string    `db:"manufacturer" json:"manufacturer"`
	ProductCategory string    `db:"product_category" json:"product_category"`
	Distributor     string    `db:"distributor" json:"distributor"`
	TickerSymbol    string    `db:"ticker_symbol" json:"ticker_symbol"`
	CurrentPrice    float64   `db:"current_price" json:"current_price"`
	PreviousPrice   *float64  `db:"previous_price" json:"previous_price,omitempty"`
	LastUpdated     time.Time `db:"last_updated" json:"last_updated"`
	UpdatedBy       *string   `db:"updated_by" json:"updated_by,omitempty"`
}

// MaterialWithTrend decorates a material with its computed price movement.
type MaterialWithTrend struct {
	Material
	ChangePercent   float64 `json:"change_percent"`
	ChangeDirection string  `json:"change_direction"`
}
