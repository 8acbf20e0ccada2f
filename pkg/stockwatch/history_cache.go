package stockwatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// K-line window sizes. The first record of each window is the reference close:
// five trading days back for the week, twenty-two for the month.
const (
	weekKLineDays  = 5
	monthKLineDays = 22
)

// TrendPrices are the reference closes used for week/month comparisons. A
// zero price means the upstream had no record for that horizon.
type TrendPrices struct {
	Week  float64 `json:"weekPrice"`
	Month float64 `json:"monthPrice"`
}

type klineSource interface {
	FetchKLine(ctx context.Context, symbol string, days int) (string, error)
}

type historyEntry struct {
	data *TrendPrices
	date string
}

// HistoryCache keeps one reference-price entry per symbol, refreshed at most
// once per market day. Entries are never evicted: a stale entry is served when
// a refresh fails.
type HistoryCache struct {
	logger *slog.Logger
	source klineSource
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]historyEntry
	flight  singleflight.Group
}

// NewHistoryCache creates a cache backed by source. now defaults to time.Now.
func NewHistoryCache(source klineSource, logger *slog.Logger, now func() time.Time) *HistoryCache {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &HistoryCache{
		logger:  logger,
		source:  source,
		now:     now,
		entries: map[string]historyEntry{},
	}
}

// lookup is the outcome of one shared refresh. abandoned marks a refresh cut
// short by its caller's context; nothing was recorded for it.
type lookup struct {
	data      *TrendPrices
	abandoned bool
}

// Get returns the reference prices for symbol, or nil when none are known.
// Concurrent misses for the same symbol share one upstream refresh. A caller
// whose shared refresh was abandoned by another caller retries on its own ctx.
func (h *HistoryCache) Get(ctx context.Context, symbol string) *TrendPrices {
	today := dayKey(h.now())
	for {
		if data, ok := h.fresh(symbol, today); ok {
			return data
		}
		v, _, _ := h.flight.Do(symbol, func() (any, error) {
			if data, ok := h.fresh(symbol, today); ok {
				return lookup{data: data}, nil
			}
			return h.refresh(ctx, symbol, today), nil
		})
		res, _ := v.(lookup)
		if !res.abandoned || ctx.Err() != nil {
			return copyTrend(res.data)
		}
	}
}

func (h *HistoryCache) fresh(symbol, today string) (*TrendPrices, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.entries[symbol]
	if !ok || entry.date != today {
		return nil, false
	}
	return copyTrend(entry.data), true
}

func (h *HistoryCache) refresh(ctx context.Context, symbol, today string) lookup {
	week, err := h.referenceClose(ctx, symbol, weekKLineDays)
	var month float64
	if err == nil {
		month, err = h.referenceClose(ctx, symbol, monthKLineDays)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	prev, hasPrev := h.entries[symbol]
	if err != nil && ctx.Err() != nil {
		// Cancelled by the caller: record nothing so the next cycle retries.
		h.logger.Debug("history refresh abandoned", "symbol", symbol, "err", err)
		return lookup{data: copyTrend(prev.data), abandoned: true}
	}
	if err != nil {
		h.logger.Warn("fetch history failed", "symbol", symbol, "err", err)
		if hasPrev && prev.data != nil {
			h.logger.Warn("using stale history", "symbol", symbol, "cached_date", prev.date)
			return lookup{data: copyTrend(prev.data)}
		}
		// Remember the miss for today so un-fetchable symbols are not retried.
		h.entries[symbol] = historyEntry{date: today}
		return lookup{}
	}
	data := &TrendPrices{Week: week, Month: month}
	h.entries[symbol] = historyEntry{data: data, date: today}
	return lookup{data: copyTrend(data)}
}

func (h *HistoryCache) referenceClose(ctx context.Context, symbol string, days int) (float64, error) {
	text, err := h.source.FetchKLine(ctx, symbol, days)
	if err != nil {
		return 0, err
	}
	price, _, err := parseFirstClose(text)
	return price, err
}

func copyTrend(data *TrendPrices) *TrendPrices {
	if data == nil {
		return nil
	}
	cp := *data
	return &cp
}
