package portfolio

import (
	"github.com/google/uuid"
	"github.com/ktezcan/fintrack/internal/models"
)

// Upgrade brings a persisted asset document up to the current schema
// version. It is pure and idempotent: upgrading an already-current asset
// returns it unchanged, and upgrading twice equals upgrading once.
//
// v1 (flat): a single amount/cost/price at the top level.
// v2 (lots): lot and sale lists, no period segmentation.
// v3 (periods): the current shape.
func Upgrade(a models.Asset) models.Asset {
	if a.SchemaVersion == 0 {
		a.SchemaVersion = inferVersion(&a)
	}
	for a.SchemaVersion < models.SchemaVersionCurrent {
		switch a.SchemaVersion {
		case models.SchemaVersionFlat:
			a = upgradeFlatToLots(a)
		case models.SchemaVersionLots:
			a = upgradeLotsToPeriods(a)
		}
	}
	syncLegacyMirror(&a)
	return a
}

// inferVersion classifies records written before the version tag existed.
func inferVersion(a *models.Asset) int {
	if len(a.Periods) > 0 {
		return models.SchemaVersionPeriods
	}
	if len(a.Lots) > 0 || len(a.Sales) > 0 {
		return models.SchemaVersionLots
	}
	return models.SchemaVersionFlat
}

func upgradeFlatToLots(a models.Asset) models.Asset {
	if a.FlatAmount != nil && a.FlatAmount.Sign() > 0 {
		lot := models.Lot{
			ID:      uuid.NewString(),
			Amount:  *a.FlatAmount,
			AddedAt: a.CreatedAt,
		}
		if a.FlatCost != nil {
			lot.Cost = *a.FlatCost
		}
		if a.FlatPrice != nil {
			lot.Price = *a.FlatPrice
		} else {
			lot.Price = lot.Cost
		}
		a.Lots = []models.Lot{lot}
	}
	a.FlatAmount = nil
	a.FlatCost = nil
	a.FlatPrice = nil
	a.SchemaVersion = models.SchemaVersionLots
	return a
}

func upgradeLotsToPeriods(a models.Asset) models.Asset {
	if len(a.Lots) > 0 || len(a.Sales) > 0 {
		p := models.Period{
			ID:    uuid.NewString(),
			Lots:  append([]models.Lot(nil), a.Lots...),
			Sales: append([]models.Sale(nil), a.Sales...),
		}
		// The implicit period spans the asset's whole history; it is
		// closed only if the quantity was already sold down to zero.
		if shouldClosePeriod(&p) {
			closedAt := a.UpdatedAt
			if len(p.Sales) > 0 {
				closedAt = p.Sales[len(p.Sales)-1].SoldAt
			}
			p.ClosedAt = &closedAt
		}
		a.Periods = []models.Period{p}
		a.CurrentPeriodID = p.ID
	}
	a.SchemaVersion = models.SchemaVersionPeriods
	return a
}
