package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stockwatch/pkg/stockwatch"
)

const (
	defaultHost   = "127.0.0.1"
	defaultPort   = 8000
	defaultDBName = "stockwatch.db"
	configName    = "config.yaml"
	envPrefix     = "STOCKWATCH_"
)

// Config is the application configuration. Values come from defaults, then
// the YAML file, then STOCKWATCH_* environment variables; CLI flags are
// applied last by the caller.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DataDir  string `yaml:"data_dir,omitempty"`
	DBName   string `yaml:"db_name"`
	DBPath   string `yaml:"db_path,omitempty"`
	LogLevel string `yaml:"log_level"`
	// LogDir defaults to <data dir>/logs.
	LogDir string      `yaml:"log_dir,omitempty"`
	Quotes QuoteConfig `yaml:"quotes"`
	// Stocks is the watch list used by the quote command when no codes are given.
	Stocks []stockwatch.SymbolEntry `yaml:"stocks,omitempty"`
}

// QuoteConfig tunes the upstream feeds and caches.
type QuoteConfig struct {
	HTTPTimeout        time.Duration  `yaml:"http_timeout"`
	CycleTimeout       time.Duration  `yaml:"cycle_timeout"`
	HistoryConcurrency int            `yaml:"history_concurrency"`
	RateTTL            time.Duration  `yaml:"rate_ttl"`
	DefaultHKDRate     float64        `yaml:"default_hkd_rate"`
	Endpoints          EndpointConfig `yaml:"endpoints,omitempty"`
}

// EndpointConfig overrides upstream base URLs. Empty values use the built-in feeds.
type EndpointConfig struct {
	AShare string `yaml:"a_share,omitempty"`
	HK     string `yaml:"hk,omitempty"`
	FX     string `yaml:"fx,omitempty"`
	KLine  string `yaml:"kline,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:     defaultHost,
		Port:     defaultPort,
		DBName:   defaultDBName,
		LogLevel: "info",
		Quotes: QuoteConfig{
			HTTPTimeout:        5 * time.Second,
			CycleTimeout:       10 * time.Second,
			HistoryConcurrency: 4,
			RateTTL:            stockwatch.DefaultRateTTL,
			DefaultHKDRate:     stockwatch.DefaultHKDCNYRate,
		},
	}
}

func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

func appConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if IsMacOS() {
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "StockWatch"), nil
	}
	if IsWindows() {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "StockWatch"), nil
	}
	configDir, cfgErr := os.UserConfigDir()
	if cfgErr != nil {
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "stockwatch"), nil
	}
	return filepath.Join(configDir, "stockwatch"), nil
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := appConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configName), nil
}

// Load builds the configuration. An empty path means the default location,
// which may be absent; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case explicit || !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	lookup := func(name string) (string, bool) {
		v := strings.TrimSpace(getenv(envPrefix + name))
		return v, v != ""
	}
	if v, ok := lookup("HOST"); ok {
		cfg.Host = v
	}
	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", envPrefix, err)
		}
		cfg.Port = port
	}
	if v, ok := lookup("DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := lookup("DB_NAME"); ok {
		cfg.DBName = v
	}
	if v, ok := lookup("DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookup("LOG_DIR"); ok {
		cfg.LogDir = v
	}
	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"HTTP_TIMEOUT", &cfg.Quotes.HTTPTimeout},
		{"CYCLE_TIMEOUT", &cfg.Quotes.CycleTimeout},
		{"RATE_TTL", &cfg.Quotes.RateTTL},
	}
	for _, d := range durations {
		v, ok := lookup(d.name)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, d.name, err)
		}
		*d.dst = parsed
	}
	if v, ok := lookup("HISTORY_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sHISTORY_CONCURRENCY: %w", envPrefix, err)
		}
		cfg.Quotes.HistoryConcurrency = n
	}
	if v, ok := lookup("DEFAULT_HKD_RATE"); ok {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sDEFAULT_HKD_RATE: %w", envPrefix, err)
		}
		cfg.Quotes.DefaultHKDRate = rate
	}
	return nil
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Quotes.HTTPTimeout <= 0 || c.Quotes.CycleTimeout <= 0 || c.Quotes.RateTTL <= 0 {
		return errors.New("timeouts and rate ttl must be positive")
	}
	if c.Quotes.HistoryConcurrency <= 0 {
		return errors.New("history concurrency must be positive")
	}
	if c.Quotes.DefaultHKDRate <= 0 {
		return errors.New("default hkd rate must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ResolveDataDir returns the configured data directory, or the per-user
// application directory, creating it when missing.
func (c Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		var err error
		dir, err = appConfigDir()
		if err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ResolveDBPath returns the database file path.
func (c Config) ResolveDBPath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(c.DBName)
	if name == "" {
		name = defaultDBName
	}
	return filepath.Join(dir, name), nil
}

// ResolveLogDir returns the directory for daily log files.
func (c Config) ResolveLogDir() (string, error) {
	if c.LogDir != "" {
		return c.LogDir, nil
	}
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs"), nil
}

// CoreOptions maps the quote settings onto stockwatch.Options.
func (c Config) CoreOptions(dbPath string) stockwatch.Options {
	return stockwatch.Options{
		DBPath: dbPath,
		Endpoints: stockwatch.Endpoints{
			AShare: c.Quotes.Endpoints.AShare,
			HK:     c.Quotes.Endpoints.HK,
			FX:     c.Quotes.Endpoints.FX,
			KLine:  c.Quotes.Endpoints.KLine,
		},
		HTTPTimeout:        c.Quotes.HTTPTimeout,
		CycleTimeout:       c.Quotes.CycleTimeout,
		HistoryConcurrency: c.Quotes.HistoryConcurrency,
		RateTTL:            c.Quotes.RateTTL,
		DefaultHKDRate:     c.Quotes.DefaultHKDRate,
	}
}

// MonitorOptions maps the quote settings onto stockwatch.MonitorOptions for
// callers that refresh quotes without a portfolio store.
func (c Config) MonitorOptions(logger *slog.Logger) stockwatch.MonitorOptions {
	opts := c.CoreOptions("")
	return stockwatch.MonitorOptions{
		Logger:             logger,
		Endpoints:          opts.Endpoints,
		HTTPTimeout:        opts.HTTPTimeout,
		CycleTimeout:       opts.CycleTimeout,
		HistoryConcurrency: opts.HistoryConcurrency,
		RateTTL:            opts.RateTTL,
		DefaultHKDRate:     opts.DefaultHKDRate,
	}
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
