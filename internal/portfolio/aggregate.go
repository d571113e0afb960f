package portfolio

import (
	"github.com/ktezcan/fintrack/internal/models"
	"github.com/shopspring/decimal"
)

// Summary holds the valuation figures for one asset, computed from the
// active period only. Closed periods never contribute: repurchasing after a
// full exit starts a fresh average cost.
type Summary struct {
	TotalAmount      decimal.Decimal `json:"total_amount"`
	AvgCost          decimal.Decimal `json:"avg_cost"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	TotalValue       decimal.Decimal `json:"total_value"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	ProfitPercentage decimal.Decimal `json:"profit_percentage"`
}

// weightedAvgCost is the quantity-weighted mean unit cost across lots,
// or zero with no lots.
func weightedAvgCost(lots []models.Lot) decimal.Decimal {
	totalAmount := decimal.Zero
	totalCost := decimal.Zero
	for i := range lots {
		totalAmount = totalAmount.Add(lots[i].Amount)
		totalCost = totalCost.Add(lots[i].Amount.Mul(lots[i].Cost))
	}
	if totalAmount.Sign() == 0 {
		return decimal.Zero
	}
	return totalCost.Div(totalAmount)
}

// lastKnownPrice is the most recently added lot's stored price, falling
// back to the first lot when timestamps do not order the lots.
func lastKnownPrice(lots []models.Lot) decimal.Decimal {
	if len(lots) == 0 {
		return decimal.Zero
	}
	latest := 0
	for i := 1; i < len(lots); i++ {
		if lots[i].AddedAt.After(lots[latest].AddedAt) {
			latest = i
		}
	}
	return lots[latest].Price
}

// Summarize computes the holding metrics for an asset. A positive livePrice
// overrides the stored lot price; pass zero when no live price is available.
// An asset with no active period yields all zeros.
func Summarize(a *models.Asset, livePrice decimal.Decimal) Summary {
	p := ActivePeriod(a)
	if p == nil {
		return Summary{}
	}

	totalAmount := periodNet(p)
	avgCost := weightedAvgCost(p.Lots)

	price := lastKnownPrice(p.Lots)
	if livePrice.Sign() > 0 {
		price = livePrice
	}

	totalValue := totalAmount.Mul(price)
	costBasis := totalAmount.Mul(avgCost)
	totalProfit := totalValue.Sub(costBasis)

	pct := decimal.Zero
	if costBasis.Sign() != 0 {
		pct = totalProfit.Div(costBasis).Mul(decimal.NewFromInt(100))
	}

	return Summary{
		TotalAmount:      totalAmount,
		AvgCost:          avgCost,
		CurrentPrice:     price,
		TotalValue:       totalValue,
		TotalProfit:      totalProfit,
		ProfitPercentage: pct,
	}
}
