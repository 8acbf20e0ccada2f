package stockwatch

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultHKDCNYRate is served until the first successful FX fetch.
	DefaultHKDCNYRate = 0.934
	// DefaultRateTTL is how long a fetched rate is reused verbatim.
	DefaultRateTTL = 5 * time.Minute
)

var reHKDCNY = regexp.MustCompile(`var hq_str_fx_shkdcny="[^,]*,([^,]*),`)

type fxSource interface {
	FetchFxRate(ctx context.Context) (string, error)
}

// RateCacheOptions controls RateCache initialization.
type RateCacheOptions struct {
	Logger      *slog.Logger
	TTL         time.Duration
	DefaultRate float64
	Now         func() time.Time
}

// RateCache serves the HKD→CNY rate, refreshing it once the TTL has elapsed.
// A failed refresh keeps serving the previous rate, however old.
type RateCache struct {
	logger *slog.Logger
	source fxSource
	ttl    time.Duration
	now    func() time.Time

	// mu is held across a refresh so overlapping cycles issue one fetch.
	mu        sync.Mutex
	rate      float64
	fetchedAt time.Time
}

// NewRateCache creates a rate cache backed by source.
func NewRateCache(source fxSource, opts RateCacheOptions) *RateCache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &RateCache{
		logger: logger,
		source: source,
		ttl:    defaultDuration(opts.TTL, DefaultRateTTL),
		now:    now,
		rate:   defaultFloat(opts.DefaultRate, DefaultHKDCNYRate),
	}
}

// HKDCNYRate returns the current HKD→CNY rate. It never fails.
func (r *RateCache) HKDCNYRate(ctx context.Context) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !r.fetchedAt.IsZero() && now.Sub(r.fetchedAt) < r.ttl {
		return r.rate
	}

	text, err := r.source.FetchFxRate(ctx)
	if err != nil {
		r.logger.Warn("fetch hkd/cny rate failed", "err", err, "rate", r.rate)
		return r.rate
	}
	rate, err := parseHKDCNYRate(text)
	if err != nil {
		r.logger.Warn("parse hkd/cny rate failed", "err", err, "body", text, "rate", r.rate)
		return r.rate
	}
	r.rate = rate
	r.fetchedAt = now
	r.logger.Info("hkd/cny rate updated", "rate", rate)
	return rate
}

func parseHKDCNYRate(text string) (float64, error) {
	matches := reHKDCNY.FindStringSubmatch(text)
	if len(matches) < 2 {
		return 0, NewError(ErrCodeUnparseable, "fx record not found")
	}
	rate, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, WrapError(ErrCodeUnparseable, "fx rate field", err)
	}
	if rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
		return 0, WrapError(ErrCodeUnparseable, "fx rate field", errors.New("non-positive rate"))
	}
	return rate, nil
}
