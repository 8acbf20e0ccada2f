package stockwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Options controls Core initialization.
type Options struct {
	DBPath             string
	Logger             *slog.Logger
	HTTPClient         HTTPDoer
	Endpoints          Endpoints
	HTTPTimeout        time.Duration
	CycleTimeout       time.Duration
	HistoryConcurrency int
	RateTTL            time.Duration
	DefaultHKDRate     float64
}

// Core combines the saved portfolios with the quote Monitor.
type Core struct {
	db      *sqlx.DB
	logger  *slog.Logger
	monitor *Monitor
	dbPath  string
}

// Open initializes a Core using the provided database path.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	if opts.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	cleanPath := filepath.Clean(opts.DBPath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlx.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}

	if err := initDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	monitor := NewMonitor(MonitorOptions{
		Logger:             logger,
		HTTPClient:         opts.HTTPClient,
		Endpoints:          opts.Endpoints,
		HTTPTimeout:        defaultDuration(opts.HTTPTimeout, defaultHTTPTimeout),
		CycleTimeout:       defaultDuration(opts.CycleTimeout, defaultCycleTimeout),
		HistoryConcurrency: defaultInt(opts.HistoryConcurrency, defaultHistoryConcurrency),
		RateTTL:            defaultDuration(opts.RateTTL, DefaultRateTTL),
		DefaultHKDRate:     opts.DefaultHKDRate,
	})

	return &Core{
		db:      db,
		logger:  logger,
		monitor: monitor,
		dbPath:  cleanPath,
	}, nil
}

// Close releases database resources.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DBPath returns the underlying database path.
func (c *Core) DBPath() string {
	return c.dbPath
}

// Refresh runs one quote cycle for an ad-hoc entry list.
func (c *Core) Refresh(ctx context.Context, entries []SymbolEntry) Snapshot {
	return c.monitor.Refresh(ctx, entries)
}

// Realtime loads the user's saved portfolio and refreshes it.
func (c *Core) Realtime(ctx context.Context, userID string) (UserStockData, error) {
	entries, err := c.GetUserStocks(ctx, userID)
	if err != nil {
		return UserStockData{}, err
	}
	snapshot := c.monitor.Refresh(ctx, entries)
	return UserStockData{
		UserID:        userID,
		StockCells:    entries,
		AllStocksData: snapshot.Quotes,
		StatsData:     snapshot.Stats,
		Skipped:       snapshot.Skipped,
	}, nil
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultFloat(v float64, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}
