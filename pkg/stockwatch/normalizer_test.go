package stockwatch

import "testing"

func TestNormalizeAShareWithPosition(t *testing.T) {
	lots := 3
	q, err := normalizeAShare("sz000001", sinaRecord("平安银行", "10.00", "10.50"), &lots, nil)
	assertNoError(t, err, "normalize")

	if q.Name != "平安银行" || q.Market != MarketSZ || q.Code != "000001" {
		t.Fatalf("unexpected identity: %+v", q)
	}
	cases := []struct {
		field string
		got   string
		want  string
	}{
		{"priceFormatted", q.PriceFormatted, "10.50"},
		{"priceChange", q.PriceChange, "0.50"},
		{"changePercent", q.ChangePercent, "5.00"},
		{"profit", q.Profit, "150"},
		{"positionValue", q.PositionValue, "3150.00"},
		{"date", q.Date, "2024-03-15"},
		{"time", q.Time, "15:00:03"},
		{"wapHref", q.WapHref, "https://wap.eastmoney.com/quote/stock/0.000001.html"},
		{"url", q.URL, "https://quote.eastmoney.com/sz000001.html"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
	if q.Price != 10.5 {
		t.Errorf("price = %v, want 10.5", q.Price)
	}
	if q.HeldLots == nil || *q.HeldLots != 3 {
		t.Errorf("held lots not carried through: %v", q.HeldLots)
	}
	if q.WeeklyChange != "" || q.MonthlyChange != "" {
		t.Errorf("expected no trend fields without history, got %q %q", q.WeeklyChange, q.MonthlyChange)
	}
}

func TestNormalizeAShareWithoutPosition(t *testing.T) {
	zero := 0
	for name, lots := range map[string]*int{"nil": nil, "zero": &zero} {
		q, err := normalizeAShare("sh600000", sinaRecord("浦发银行", "8.00", "7.92"), lots, nil)
		assertNoError(t, err, name)
		if q.Profit != "" || q.PositionValue != "" {
			t.Errorf("%s: expected no position fields, got %q %q", name, q.Profit, q.PositionValue)
		}
		if q.PriceChange != "-0.08" || q.ChangePercent != "-1.00" {
			t.Errorf("%s: change = %q %q", name, q.PriceChange, q.ChangePercent)
		}
		if q.WapHref != "https://wap.eastmoney.com/quote/stock/1.600000.html" {
			t.Errorf("%s: wapHref = %q", name, q.WapHref)
		}
	}
}

func TestNormalizeAShareIndexFundPrecision(t *testing.T) {
	lots := 10
	q, err := normalizeAShare("sh510300", sinaRecord("沪深300ETF", "3.500", "3.512"), &lots, nil)
	assertNoError(t, err, "normalize etf")

	if q.PriceFormatted != "3.512" {
		t.Errorf("priceFormatted = %q, want 3.512", q.PriceFormatted)
	}
	if q.PriceChange != "0.012" {
		t.Errorf("priceChange = %q, want 0.012", q.PriceChange)
	}
	if q.Profit != "12.0" {
		t.Errorf("profit = %q, want 12.0", q.Profit)
	}
	if q.PositionValue != "3512.00" {
		t.Errorf("positionValue = %q, want 3512.00", q.PositionValue)
	}
}

func TestNormalizeAShareZeroYesterdayClose(t *testing.T) {
	q, err := normalizeAShare("sz300001", sinaRecord("新股", "0.00", "12.00"), nil, nil)
	assertNoError(t, err, "normalize")
	if q.ChangePercent != UnavailableMarker {
		t.Errorf("changePercent = %q, want %q", q.ChangePercent, UnavailableMarker)
	}
}

func TestNormalizeAShareZeroPriceSkipsPosition(t *testing.T) {
	lots := 5
	q, err := normalizeAShare("sz000002", sinaRecord("停牌", "10.00", "0.00"), &lots, nil)
	assertNoError(t, err, "normalize")
	if q.Profit != "" || q.PositionValue != "" {
		t.Errorf("expected no position fields for zero price, got %q %q", q.Profit, q.PositionValue)
	}
}

func TestNormalizeAShareTrend(t *testing.T) {
	trend := &TrendPrices{Week: 10.0, Month: 0}
	q, err := normalizeAShare("sz000001", sinaRecord("平安银行", "10.00", "10.50"), nil, trend)
	assertNoError(t, err, "normalize")
	if q.WeeklyChange != "5.00" {
		t.Errorf("weeklyChange = %q, want 5.00", q.WeeklyChange)
	}
	if q.MonthlyChange != "" {
		t.Errorf("monthlyChange = %q, want empty for zero reference", q.MonthlyChange)
	}
}

func TestNormalizeAShareUnparseable(t *testing.T) {
	cases := map[string]string{
		"short":     "name,1,2,3",
		"bad price": sinaRecord("x", "10.00", "abc"),
		"bad close": sinaRecord("x", "", "10.00"),
	}
	for name, raw := range cases {
		if _, err := normalizeAShare("sz000001", raw, nil, nil); !IsErrorCode(err, ErrCodeUnparseable) {
			t.Errorf("%s: expected UNPARSEABLE, got %v", name, err)
		}
	}
}

func TestNormalizeHKShare(t *testing.T) {
	lots := 2
	q, err := normalizeHKShare("hk00700", tencentRecord("腾讯控股", "98.00", "100.00", "500"), &lots, 0.934)
	assertNoError(t, err, "normalize hk")

	cases := []struct {
		field string
		got   string
		want  string
	}{
		{"priceFormatted", q.PriceFormatted, "100.00"},
		{"priceChange", q.PriceChange, "2.00"},
		{"changePercent", q.ChangePercent, "2.04"},
		{"profit", q.Profit, "1868"},
		{"positionValue", q.PositionValue, "93400.00"},
		{"hkdCnyRate", q.HKDCNYRate, "0.9340"},
		{"date", q.Date, "2024/03/15"},
		{"time", q.Time, "16:08:10"},
		{"wapHref", q.WapHref, "https://wap.eastmoney.com/quote/stock/116.00700.html"},
		{"url", q.URL, "https://quote.eastmoney.com/hk/00700.html"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
	if q.Market != MarketHK || q.Code != "00700" || q.LotSize != 500 {
		t.Errorf("unexpected identity: %+v", q)
	}
	if q.WeeklyChange != "" || q.MonthlyChange != "" {
		t.Errorf("hk quotes carry no trend fields")
	}
}

func TestNormalizeHKShareMissingLotSize(t *testing.T) {
	lots := 2
	fields := tencentRecord("腾讯控股", "98.00", "100.00", "")[:hkMinFields]
	q, err := normalizeHKShare("hk00700", fields, &lots, 0.934)
	assertNoError(t, err, "normalize hk")
	if q.LotSize != 0 {
		t.Errorf("lotSize = %d, want 0", q.LotSize)
	}
	if q.Profit != "" || q.PositionValue != "" {
		t.Errorf("expected no position fields without lot size, got %q %q", q.Profit, q.PositionValue)
	}
	if q.HKDCNYRate != "0.9340" {
		t.Errorf("rate should be recorded regardless: %q", q.HKDCNYRate)
	}
}

func TestNormalizeHKShareUnparseable(t *testing.T) {
	if _, err := normalizeHKShare("hk00700", []string{"1", "x"}, nil, 0.9); !IsErrorCode(err, ErrCodeUnparseable) {
		t.Fatalf("expected UNPARSEABLE for short record, got %v", err)
	}
	fields := tencentRecord("x", "98.00", "n/a", "500")
	if _, err := normalizeHKShare("hk00700", fields, nil, 0.9); !IsErrorCode(err, ErrCodeUnparseable) {
		t.Fatalf("expected UNPARSEABLE for bad price, got %v", err)
	}
}
