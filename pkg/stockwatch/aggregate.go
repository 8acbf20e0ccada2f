package stockwatch

import "github.com/shopspring/decimal"

// Aggregate totals the profit and position value of a refresh cycle. Misses
// contribute zero. The profit rate is measured against cost basis
// (position value minus profit) and is "0.00" whenever that basis or the
// position value is zero.
func Aggregate(results []Result) Stats {
	profit := decimal.Zero
	value := decimal.Zero
	for _, r := range results {
		if r.Quote == nil {
			continue
		}
		profit = profit.Add(amountOrZero(r.Quote.Profit))
		value = value.Add(amountOrZero(r.Quote.PositionValue))
	}

	totalProfit := profit.Round(1)
	totalValue := value.Round(0)
	rate := "0.00"
	if cost := totalValue.Sub(totalProfit); !totalValue.IsZero() && !cost.IsZero() {
		rate = totalProfit.Div(cost).Mul(hundred).StringFixed(2)
	}
	return Stats{
		TotalProfit:        totalProfit.StringFixed(1),
		TotalPositionValue: totalValue.StringFixed(0),
		TotalProfitRate:    rate,
	}
}
