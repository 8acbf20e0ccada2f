package stockwatch

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Sina A-share record layout (comma separated).
const (
	aFieldName           = 0
	aFieldYesterdayClose = 2
	aFieldPrice          = 3
	aFieldHigh           = 4
	aFieldLow            = 5
	aFieldVolume         = 8
	aFieldDate           = 30
	aFieldTime           = 31
	aMinFields           = aFieldTime + 1

	sharesPerLotA = 100
)

// Tencent HK record layout (JSON array under r_<symbol>).
const (
	hkFieldName           = 1
	hkFieldPrice          = 3
	hkFieldYesterdayClose = 4
	hkFieldDateTime       = 30
	hkFieldHigh           = 33
	hkFieldLow            = 34
	hkFieldVolume         = 36
	hkFieldLotSize        = 60
	hkMinFields           = hkFieldVolume + 1
)

// normalizeAShare builds a quote from one Sina record. trend may be nil when
// no history is available, in which case the trend fields stay empty.
func normalizeAShare(symbol, raw string, heldLots *int, trend *TrendPrices) (*Quote, error) {
	market, code := splitSymbol(symbol)
	fields := strings.Split(raw, ",")
	if len(fields) < aMinFields {
		return nil, NewError(ErrCodeUnparseable, fmt.Sprintf("%s: expected %d fields, got %d", symbol, aMinFields, len(fields)))
	}
	current, ok := parseAmount(fields[aFieldPrice])
	if !ok {
		return nil, NewError(ErrCodeUnparseable, fmt.Sprintf("%s: invalid price %q", symbol, fields[aFieldPrice]))
	}
	yesterdayClose, ok := parseAmount(fields[aFieldYesterdayClose])
	if !ok {
		return nil, NewError(ErrCodeUnparseable, fmt.Sprintf("%s: invalid close %q", symbol, fields[aFieldYesterdayClose]))
	}

	places := int32(2)
	profitPlaces := int32(0)
	if isIndexFund(code) {
		places = 3
		profitPlaces = 1
	}
	delta := current.Sub(yesterdayClose)
	change := delta.Round(places)
	price, _ := current.Float64()
	wap, url := eastmoneyLinks(market, code)

	q := &Quote{
		Name:           fields[aFieldName],
		Market:         market,
		Code:           code,
		Price:          price,
		PriceFormatted: current.StringFixed(places),
		PriceChange:    change.StringFixed(places),
		ChangePercent:  percentOf(delta, yesterdayClose),
		High:           fields[aFieldHigh],
		Low:            fields[aFieldLow],
		Volume:         fields[aFieldVolume],
		Date:           fields[aFieldDate],
		Time:           fields[aFieldTime],
		HeldLots:       heldLots,
		WapHref:        wap,
		URL:            url,
	}

	if holds(heldLots) && !current.IsZero() {
		shares := decimal.NewFromInt(int64(*heldLots) * sharesPerLotA)
		q.Profit = change.Mul(shares).StringFixed(profitPlaces)
		q.PositionValue = current.Mul(shares).StringFixed(2)
	}

	if trend != nil {
		q.WeeklyChange = trendPercent(current, trend.Week)
		q.MonthlyChange = trendPercent(current, trend.Month)
	}
	return q, nil
}

// normalizeHKShare builds a quote from one Tencent record. Position values
// are converted to CNY with rate, which is recorded on the quote.
func normalizeHKShare(symbol string, fields []string, heldLots *int, rate float64) (*Quote, error) {
	_, code := splitSymbol(symbol)
	if len(fields) < hkMinFields {
		return nil, NewError(ErrCodeUnparseable, fmt.Sprintf("%s: expected %d fields, got %d", symbol, hkMinFields, len(fields)))
	}
	current, ok := parseAmount(fields[hkFieldPrice])
	if !ok {
		return nil, NewError(ErrCodeUnparseable, fmt.Sprintf("%s: invalid price %q", symbol, fields[hkFieldPrice]))
	}
	yesterdayClose, ok := parseAmount(fields[hkFieldYesterdayClose])
	if !ok {
		return nil, NewError(ErrCodeUnparseable, fmt.Sprintf("%s: invalid close %q", symbol, fields[hkFieldYesterdayClose]))
	}

	var lotSize decimal.Decimal
	if len(fields) > hkFieldLotSize {
		lotSize, _ = parseAmount(fields[hkFieldLotSize])
	}
	date, clock, _ := strings.Cut(fields[hkFieldDateTime], " ")
	delta := current.Sub(yesterdayClose)
	change := delta.Round(2)
	price, _ := current.Float64()
	rateAmount := decimal.NewFromFloat(rate)
	wap, url := eastmoneyLinks(MarketHK, code)

	q := &Quote{
		Name:           fields[hkFieldName],
		Market:         MarketHK,
		Code:           code,
		Price:          price,
		PriceFormatted: current.StringFixed(2),
		PriceChange:    change.StringFixed(2),
		ChangePercent:  percentOf(delta, yesterdayClose),
		High:           fields[hkFieldHigh],
		Low:            fields[hkFieldLow],
		Volume:         fields[hkFieldVolume],
		Date:           date,
		Time:           clock,
		HeldLots:       heldLots,
		HKDCNYRate:     rateAmount.StringFixed(4),
		LotSize:        int(lotSize.IntPart()),
		WapHref:        wap,
		URL:            url,
	}

	if holds(heldLots) && !current.IsZero() && lotSize.IsPositive() {
		shares := decimal.NewFromInt(int64(*heldLots)).Mul(lotSize)
		q.Profit = change.Mul(shares).Mul(rateAmount).StringFixed(0)
		q.PositionValue = current.Mul(shares).Mul(rateAmount).StringFixed(2)
	}
	return q, nil
}

func holds(heldLots *int) bool {
	return heldLots != nil && *heldLots > 0
}
