package stockwatch

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultCycleTimeout       = 10 * time.Second
	defaultHistoryConcurrency = 4
)

// MonitorOptions controls Monitor initialization.
type MonitorOptions struct {
	Logger     *slog.Logger
	HTTPClient HTTPDoer // Optional: inject custom client for testing
	Endpoints  Endpoints
	// HTTPTimeout bounds every single upstream call.
	HTTPTimeout time.Duration
	// CycleTimeout bounds a whole Refresh; in-flight fetches are abandoned
	// and their symbols reported as misses.
	CycleTimeout       time.Duration
	HistoryConcurrency int
	RateTTL            time.Duration
	DefaultHKDRate     float64
	Now                func() time.Time
}

// Monitor runs refresh cycles: it fetches both markets concurrently,
// normalizes each record and aggregates the portfolio totals. The history and
// FX caches live for the lifetime of the Monitor and are shared by cycles.
type Monitor struct {
	logger             *slog.Logger
	source             *SourceClient
	history            *HistoryCache
	rates              *RateCache
	cycleTimeout       time.Duration
	historyConcurrency int
}

// NewMonitor creates a Monitor with its own source client and caches.
func NewMonitor(opts MonitorOptions) *Monitor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	source := NewSourceClient(opts.HTTPClient, opts.Endpoints, opts.HTTPTimeout)
	return &Monitor{
		logger:  logger,
		source:  source,
		history: NewHistoryCache(source, logger, opts.Now),
		rates: NewRateCache(source, RateCacheOptions{
			Logger:      logger,
			TTL:         opts.RateTTL,
			DefaultRate: opts.DefaultHKDRate,
			Now:         opts.Now,
		}),
		cycleTimeout:       defaultDuration(opts.CycleTimeout, defaultCycleTimeout),
		historyConcurrency: defaultInt(opts.HistoryConcurrency, defaultHistoryConcurrency),
	}
}

// Refresh runs one cycle for entries. Found quotes come back in the order of
// entries; misses follow, also in entry order. Codes outside the A-share and
// HK markets are never fetched and are listed in Snapshot.Skipped.
func (m *Monitor) Refresh(ctx context.Context, entries []SymbolEntry) Snapshot {
	if len(entries) == 0 {
		return Snapshot{Quotes: []Result{}, Stats: Aggregate(nil)}
	}
	entries = normalizeEntries(entries)
	aShares, hkShares, skipped := partitionEntries(entries)
	if len(skipped) > 0 {
		m.logger.Warn("skipping symbols with unsupported market prefix", "symbols", skipped)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cycleTimeout)
	defer cancel()

	var aResults, hkResults []Result
	var g errgroup.Group
	g.Go(func() error {
		aResults = m.fetchAShares(ctx, aShares)
		return nil
	})
	g.Go(func() error {
		hkResults = m.fetchHKShares(ctx, hkShares)
		return nil
	})
	_ = g.Wait()

	quotes := mergeInOrder(entries, append(aResults, hkResults...))
	return Snapshot{
		Quotes:  quotes,
		Stats:   Aggregate(quotes),
		Skipped: skipped,
	}
}

func (m *Monitor) fetchAShares(ctx context.Context, entries []SymbolEntry) []Result {
	if len(entries) == 0 {
		return nil
	}
	text, err := m.source.FetchRawA(ctx, entryCodes(entries))
	if err != nil {
		m.logger.Warn("fetch a-share quotes failed", "count", len(entries), "err", err)
		return missingResults(entries)
	}
	records := parseSinaRecords(text)

	results := missingResults(entries)
	var g errgroup.Group
	g.SetLimit(m.historyConcurrency)
	for i, entry := range entries {
		i, entry := i, entry
		raw, ok := records[entry.Code]
		if !ok {
			continue
		}
		g.Go(func() error {
			trend := m.history.Get(ctx, entry.Code)
			quote, err := normalizeAShare(entry.Code, raw, entry.HeldLots, trend)
			if err != nil {
				m.logger.Warn("normalize a-share quote failed", "symbol", entry.Code, "err", err)
				return nil
			}
			results[i].Quote = quote
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (m *Monitor) fetchHKShares(ctx context.Context, entries []SymbolEntry) []Result {
	if len(entries) == 0 {
		return nil
	}
	payload, err := m.source.FetchRawHK(ctx, entryCodes(entries))
	if err != nil {
		m.logger.Warn("fetch hk quotes failed", "count", len(entries), "err", err)
		return missingResults(entries)
	}
	rate := m.rates.HKDCNYRate(ctx)

	results := missingResults(entries)
	for i, entry := range entries {
		record := payload.Get("r_" + entry.Code)
		if !record.IsArray() {
			continue
		}
		quote, err := normalizeHKShare(entry.Code, jsonStrings(record), entry.HeldLots, rate)
		if err != nil {
			m.logger.Warn("normalize hk quote failed", "symbol", entry.Code, "err", err)
			continue
		}
		results[i].Quote = quote
	}
	return results
}

// mergeInOrder sorts results by the position of their code in entries, with
// misses moved after every found quote.
func mergeInOrder(entries []SymbolEntry, results []Result) []Result {
	position := make(map[string]int, len(entries))
	for i, e := range entries {
		if _, ok := position[e.Code]; !ok {
			position[e.Code] = i
		}
	}
	merged := make([]Result, 0, len(results))
	merged = append(merged, results...)
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Found() != b.Found() {
			return a.Found()
		}
		return position[a.Code] < position[b.Code]
	})
	return merged
}
