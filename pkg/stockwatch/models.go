package stockwatch

import "encoding/json"

// Market is the two-letter exchange prefix of a symbol.
type Market string

const (
	MarketSH Market = "sh"
	MarketSZ Market = "sz"
	MarketBJ Market = "bj"
	MarketHK Market = "hk"
)

// SymbolEntry is one configured position: a market-prefixed code such as
// "sz000001" or "hk01952" and an optional number of held lots.
type SymbolEntry struct {
	Code     string `json:"code" yaml:"code"`
	HeldLots *int   `json:"count,omitempty" yaml:"count,omitempty"`
}

// Quote is a normalized real-time quote. Optional fields are empty when the
// value does not apply (no position held, no trend history, A-share quote).
type Quote struct {
	Name           string  `json:"name"`
	Market         Market  `json:"market"`
	Code           string  `json:"code"`
	Price          float64 `json:"price"`
	PriceFormatted string  `json:"priceFormatted"`
	PriceChange    string  `json:"priceChange"`
	ChangePercent  string  `json:"changePercent"`
	High           string  `json:"high"`
	Low            string  `json:"low"`
	Volume         string  `json:"volume"`
	Date           string  `json:"date"`
	Time           string  `json:"time"`
	HeldLots       *int    `json:"count,omitempty"`
	Profit         string  `json:"profit,omitempty"`
	PositionValue  string  `json:"positionValue,omitempty"`
	WeeklyChange   string  `json:"weeklyChange,omitempty"`
	MonthlyChange  string  `json:"monthlyChange,omitempty"`
	HKDCNYRate     string  `json:"hkdCnyRate,omitempty"`
	LotSize        int     `json:"lotSize,omitempty"`
	WapHref        string  `json:"wapHref"`
	URL            string  `json:"url"`
}

// Symbol returns the market-prefixed code, e.g. "sz000001".
func (q *Quote) Symbol() string {
	return string(q.Market) + q.Code
}

// Result is one slot of a refresh cycle: either a Quote for Code, or a miss
// when the upstream returned nothing usable for it.
type Result struct {
	Code  string
	Quote *Quote
}

// Found reports whether the slot holds a quote.
func (r Result) Found() bool {
	return r.Quote != nil
}

// MarshalJSON encodes a miss as null so clients keep positional alignment.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Quote == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.Quote)
}

// Stats holds portfolio-level totals derived from one refresh cycle.
type Stats struct {
	TotalProfit        string `json:"totalProfit"`
	TotalPositionValue string `json:"totalPositionValue"`
	TotalProfitRate    string `json:"totalProfitRate"`
}

// Snapshot is the output of one refresh cycle.
type Snapshot struct {
	Quotes  []Result `json:"quotes"`
	Stats   Stats    `json:"stats"`
	Skipped []string `json:"skipped,omitempty"`
}

// UserStockData is the realtime payload for one user's saved portfolio.
type UserStockData struct {
	UserID        string        `json:"userId"`
	StockCells    []SymbolEntry `json:"stockCells"`
	AllStocksData []Result      `json:"allStocksData"`
	StatsData     Stats         `json:"statsData"`
	Skipped       []string      `json:"skipped,omitempty"`
}

func intPtr(v int) *int {
	return &v
}
