package stockwatch

import (
	"regexp"
	"strings"
)

var (
	reAShareSymbol = regexp.MustCompile(`^(bj|sh|sz)`)
	reHKSymbol     = regexp.MustCompile(`^hk`)
)

// Index/ETF style codes quote to three decimals. Shanghai funds start with 5,
// Shenzhen ETFs with 15 and LOFs with 16.
var indexFundPrefixes = []string{"5", "15", "16"}

// hasAnyPrefix checks if s starts with any of the given prefixes.
func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func isIndexFund(code string) bool {
	return hasAnyPrefix(code, indexFundPrefixes)
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// splitSymbol separates "sz000001" into its market and numeric code.
func splitSymbol(symbol string) (Market, string) {
	if len(symbol) < 2 {
		return Market(symbol), ""
	}
	return Market(symbol[:2]), symbol[2:]
}

// normalizeEntries trims and lower-cases codes without touching held lots.
func normalizeEntries(entries []SymbolEntry) []SymbolEntry {
	out := make([]SymbolEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, SymbolEntry{Code: normalizeCode(e.Code), HeldLots: e.HeldLots})
	}
	return out
}

// partitionEntries splits entries into A-share and HK lists. Codes with any
// other prefix are returned as skipped.
func partitionEntries(entries []SymbolEntry) (aShares, hkShares []SymbolEntry, skipped []string) {
	for _, e := range entries {
		switch {
		case reAShareSymbol.MatchString(e.Code):
			aShares = append(aShares, e)
		case reHKSymbol.MatchString(e.Code):
			hkShares = append(hkShares, e)
		default:
			skipped = append(skipped, e.Code)
		}
	}
	return aShares, hkShares, skipped
}

func entryCodes(entries []SymbolEntry) []string {
	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		codes = append(codes, e.Code)
	}
	return codes
}

func missingResults(entries []SymbolEntry) []Result {
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		results = append(results, Result{Code: e.Code})
	}
	return results
}

// eastmoneyLinks builds the mobile and desktop quote page links for a symbol.
func eastmoneyLinks(market Market, code string) (wap, desktop string) {
	switch market {
	case MarketHK:
		return "https://wap.eastmoney.com/quote/stock/116." + code + ".html",
			"https://quote.eastmoney.com/hk/" + code + ".html"
	case MarketSZ:
		return "https://wap.eastmoney.com/quote/stock/0." + code + ".html",
			"https://quote.eastmoney.com/" + string(market) + code + ".html"
	default:
		return "https://wap.eastmoney.com/quote/stock/1." + code + ".html",
			"https://quote.eastmoney.com/" + string(market) + code + ".html"
	}
}
