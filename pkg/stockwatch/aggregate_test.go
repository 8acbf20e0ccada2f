package stockwatch

import "testing"

func TestAggregateEmpty(t *testing.T) {
	want := Stats{TotalProfit: "0.0", TotalPositionValue: "0", TotalProfitRate: "0.00"}
	if got := Aggregate(nil); got != want {
		t.Fatalf("Aggregate(nil) = %+v, want %+v", got, want)
	}
	if got := Aggregate([]Result{{Code: "sz000001"}, {Code: "hk00700"}}); got != want {
		t.Fatalf("Aggregate(misses) = %+v, want %+v", got, want)
	}
}

func TestAggregateMixedMarkets(t *testing.T) {
	results := []Result{
		{Code: "sz000001", Quote: &Quote{Profit: "150", PositionValue: "3150.00"}},
		{Code: "hk00700", Quote: &Quote{Profit: "1868", PositionValue: "93400.00"}},
		{Code: "sh600000", Quote: &Quote{}},
		{Code: "sz000002"},
	}
	got := Aggregate(results)
	want := Stats{TotalProfit: "2018.0", TotalPositionValue: "96550", TotalProfitRate: "2.13"}
	if got != want {
		t.Fatalf("Aggregate = %+v, want %+v", got, want)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	a := Result{Code: "sh510300", Quote: &Quote{Profit: "12.5", PositionValue: "3512.40"}}
	b := Result{Code: "sz000001", Quote: &Quote{Profit: "-30", PositionValue: "990.00"}}
	c := Result{Code: "hk00700", Quote: &Quote{Profit: "7", PositionValue: "210.55"}}

	first := Aggregate([]Result{a, b, c})
	second := Aggregate([]Result{c, a, b})
	if first != second {
		t.Fatalf("order changed totals: %+v vs %+v", first, second)
	}
	if first.TotalProfit != "-10.5" {
		t.Errorf("totalProfit = %q, want -10.5", first.TotalProfit)
	}
	if first.TotalPositionValue != "4713" {
		t.Errorf("totalPositionValue = %q, want 4713", first.TotalPositionValue)
	}
}

func TestAggregateZeroCostBasis(t *testing.T) {
	results := []Result{{Code: "sz000001", Quote: &Quote{Profit: "100", PositionValue: "100.00"}}}
	got := Aggregate(results)
	if got.TotalProfitRate != "0.00" {
		t.Fatalf("totalProfitRate = %q, want 0.00", got.TotalProfitRate)
	}
}
