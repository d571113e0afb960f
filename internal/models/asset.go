package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset type constants
const (
	AssetTypeStock    = "stock"
	AssetTypeFund     = "fund"
	AssetTypeGold     = "gold"
	AssetTypeCurrency = "currency"
)

// Schema versions for persisted asset documents. Records written before
// versioning existed carry no tag and are classified by inferVersion on load.
const (
	SchemaVersionFlat    = 1 // single amount/cost/price at the top level
	SchemaVersionLots    = 2 // lot and sale lists, no periods
	SchemaVersionPeriods = 3 // period-segmented lot/sale history
	SchemaVersionCurrent = SchemaVersionPeriods
)

// Lot represents one purchase event for an asset
type Lot struct {
	ID      string          `json:"id"`
	Amount  decimal.Decimal `json:"amount"`
	Cost    decimal.Decimal `json:"cost"`
	Price   decimal.Decimal `json:"price"`
	AddedAt time.Time       `json:"addedAt"`
}

// Sale represents one disposal event. AvgCost is the weighted-average cost
// of the holding at the moment of sale and is never recomputed afterwards,
// so historical profit figures do not drift when later edits change lots.
type Sale struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	SalePrice decimal.Decimal `json:"salePrice"`
	AvgCost   decimal.Decimal `json:"avgCost"`
	Profit    decimal.Decimal `json:"profit"`
	SoldAt    time.Time       `json:"soldAt"`
}

// Period is a maximal contiguous ownership interval. ClosedAt is nil while
// the period is open and set the instant net quantity reaches zero.
type Period struct {
	ID       string     `json:"id"`
	Lots     []Lot      `json:"lots"`
	Sales    []Sale     `json:"sales,omitempty"`
	ClosedAt *time.Time `json:"closedAt,omitempty"`
}

// Asset is one tracked instrument. Lots and Sales mirror the active
// period's contents for consumers of the pre-period record shape and are
// kept consistent after every mutation.
type Asset struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	SchemaVersion   int    `json:"schemaVersion,omitempty"`
	CurrentPeriodID string `json:"currentPeriodId,omitempty"`

	Periods []Period `json:"periods,omitempty"`

	// Legacy mirror of the active period (schema v2 shape).
	Lots  []Lot  `json:"lots,omitempty"`
	Sales []Sale `json:"sales,omitempty"`

	// Flat legacy fields (schema v1 shape); nil on upgraded records.
	FlatAmount *decimal.Decimal `json:"amount,omitempty"`
	FlatCost   *decimal.Decimal `json:"cost,omitempty"`
	FlatPrice  *decimal.Decimal `json:"price,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
