package portfolio

import (
	"time"

	"github.com/google/uuid"
	"github.com/ktezcan/fintrack/internal/models"
	"github.com/shopspring/decimal"
)

// AddLot records a purchase. It appends to the active period, opening a new
// one when the previous holding interval closed, so a repurchase after a
// full exit starts with a fresh cost basis.
func AddLot(a *models.Asset, amount, cost, price decimal.Decimal, date time.Time) (*models.Lot, error) {
	if err := requirePositive("amount", amount); err != nil {
		return nil, err
	}
	if err := requirePositive("cost", cost); err != nil {
		return nil, err
	}

	p := ensureActivePeriod(a)
	p.Lots = append(p.Lots, models.Lot{
		ID:      uuid.NewString(),
		Amount:  amount,
		Cost:    cost,
		Price:   price,
		AddedAt: date,
	})
	syncLegacyMirror(a)
	return &p.Lots[len(p.Lots)-1], nil
}

// EditLot mutates a lot in place, keeping its id. Shrinking a lot is
// rejected when the period's sales would no longer be covered; an edit that
// brings net quantity to zero closes the period, and growing a lot in a
// closed period reopens it.
func EditLot(a *models.Asset, lotID string, amount, cost decimal.Decimal, date time.Time) error {
	if err := requirePositive("amount", amount); err != nil {
		return err
	}
	if err := requirePositive("cost", cost); err != nil {
		return err
	}

	p, i := findLot(a, lotID)
	if p == nil {
		return &ValidationError{Field: "lotId", Reason: "lot not found"}
	}

	newPurchased := periodPurchased(p).Sub(p.Lots[i].Amount).Add(amount)
	if sold := periodSold(p); sold.GreaterThan(newPurchased) {
		return &InsufficientQuantityError{Requested: sold, Available: newPurchased}
	}

	p.Lots[i].Amount = amount
	p.Lots[i].Cost = cost
	if !date.IsZero() {
		p.Lots[i].AddedAt = date
	}
	reconcilePeriodState(a, p, time.Now())
	syncLegacyMirror(a)
	return nil
}

// DeleteLot removes a lot. The delete is rejected when the period's sales
// would no longer be covered by its remaining purchases. The returned flag
// is true when the asset has no lots left in any period, signalling the
// caller to delete the asset itself.
func DeleteLot(a *models.Asset, lotID string) (assetEmpty bool, err error) {
	p, i := findLot(a, lotID)
	if p == nil {
		return false, &ValidationError{Field: "lotId", Reason: "lot not found"}
	}

	newPurchased := periodPurchased(p).Sub(p.Lots[i].Amount)
	if sold := periodSold(p); sold.GreaterThan(newPurchased) {
		return false, &InsufficientQuantityError{Requested: sold, Available: newPurchased}
	}

	wasOpen := p.ClosedAt == nil
	p.Lots = append(p.Lots[:i], p.Lots[i+1:]...)

	if len(p.Lots) == 0 && len(p.Sales) == 0 {
		removePeriod(a, p.ID)
	} else if wasOpen {
		closePeriodIfDone(p, time.Now())
	}
	syncLegacyMirror(a)

	for pi := range a.Periods {
		if len(a.Periods[pi].Lots) > 0 {
			return false, nil
		}
	}
	return true, nil
}

// RecordSale records a disposal against the active period. The sale's
// average cost and profit are computed from the pre-sale weighted average
// and frozen. The period closes the instant net quantity reaches zero.
func RecordSale(a *models.Asset, amount, salePrice decimal.Decimal, date time.Time) (*models.Sale, error) {
	if err := requirePositive("amount", amount); err != nil {
		return nil, err
	}
	if err := requirePositive("salePrice", salePrice); err != nil {
		return nil, err
	}

	p := ActivePeriod(a)
	available := decimal.Zero
	if p != nil {
		available = periodNet(p)
	}
	if amount.GreaterThan(available) {
		return nil, &InsufficientQuantityError{Requested: amount, Available: available}
	}

	avgCost := weightedAvgCost(p.Lots)
	sale := models.Sale{
		ID:        uuid.NewString(),
		Amount:    amount,
		SalePrice: salePrice,
		AvgCost:   avgCost,
		Profit:    amount.Mul(salePrice).Sub(amount.Mul(avgCost)),
		SoldAt:    date,
	}
	p.Sales = append(p.Sales, sale)
	closePeriodIfDone(p, date)
	syncLegacyMirror(a)
	return &p.Sales[len(p.Sales)-1], nil
}

// EditSale changes a sale's amount and price. Profit is recomputed from the
// sale's frozen average cost; the average is deliberately not recalculated.
func EditSale(a *models.Asset, saleID string, amount, salePrice decimal.Decimal) error {
	if err := requirePositive("amount", amount); err != nil {
		return err
	}
	if err := requirePositive("salePrice", salePrice); err != nil {
		return err
	}

	p, i := findSale(a, saleID)
	if p == nil {
		return &ValidationError{Field: "saleId", Reason: "sale not found"}
	}

	otherSold := periodSold(p).Sub(p.Sales[i].Amount)
	purchased := periodPurchased(p)
	if otherSold.Add(amount).GreaterThan(purchased) {
		return &InsufficientQuantityError{
			Requested: amount,
			Available: purchased.Sub(otherSold),
		}
	}

	s := &p.Sales[i]
	s.Amount = amount
	s.SalePrice = salePrice
	s.Profit = amount.Mul(salePrice).Sub(amount.Mul(s.AvgCost))

	reconcilePeriodState(a, p, s.SoldAt)
	syncLegacyMirror(a)
	return nil
}

// DeleteSale removes a sale. Removing the sale that closed a period reopens
// it; deleting the only sale of an untouched period restores the pre-sale
// net quantity exactly.
func DeleteSale(a *models.Asset, saleID string) error {
	p, i := findSale(a, saleID)
	if p == nil {
		return &ValidationError{Field: "saleId", Reason: "sale not found"}
	}
	soldAt := p.Sales[i].SoldAt
	p.Sales = append(p.Sales[:i], p.Sales[i+1:]...)

	reconcilePeriodState(a, p, soldAt)
	syncLegacyMirror(a)
	return nil
}

// reconcilePeriodState re-evaluates a period's closed flag after a sale
// mutation and repairs the open-period invariant if reopening violated it.
func reconcilePeriodState(a *models.Asset, p *models.Period, at time.Time) {
	if p.ClosedAt != nil && periodNet(p).Sign() > 0 {
		p.ClosedAt = nil
	}
	closePeriodIfDone(p, at)
	repairOpenPeriods(a)
}

func removePeriod(a *models.Asset, periodID string) {
	for i := range a.Periods {
		if a.Periods[i].ID == periodID {
			a.Periods = append(a.Periods[:i], a.Periods[i+1:]...)
			return
		}
	}
}
