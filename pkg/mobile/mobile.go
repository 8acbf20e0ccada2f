package mobile

import (
	"context"
	"encoding/json"

	"stockwatch/pkg/stockwatch"
)

// Core wraps the stockwatch core for gomobile bindings. Every method takes
// and returns JSON strings.
type Core struct {
	core *stockwatch.Core
}

// Open initializes the core with a database path.
func Open(dbPath string) (*Core, error) {
	core, err := stockwatch.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// RefreshJSON runs one refresh cycle for a JSON array of
// {"code":"sz000001","count":3} entries and returns the snapshot JSON.
func (c *Core) RefreshJSON(entriesJSON string) (string, error) {
	entries, err := parseEntries(entriesJSON)
	if err != nil {
		return "", err
	}
	return marshalJSON(c.core.Refresh(context.Background(), entries))
}

// GetUserStocksJSON returns the saved watch list of a user.
func (c *Core) GetUserStocksJSON(userID string) (string, error) {
	data, err := c.core.GetUserStocks(context.Background(), userID)
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

// SaveUserStocksJSON replaces the watch list of a user and returns the
// normalized list.
func (c *Core) SaveUserStocksJSON(userID, entriesJSON string) (string, error) {
	entries, err := parseEntries(entriesJSON)
	if err != nil {
		return "", err
	}
	saved, err := c.core.SaveUserStocks(context.Background(), userID, entries)
	if err != nil {
		return "", err
	}
	return marshalJSON(saved)
}

// RealtimeJSON refreshes the saved watch list of a user.
func (c *Core) RealtimeJSON(userID string) (string, error) {
	data, err := c.core.Realtime(context.Background(), userID)
	if err != nil {
		return "", err
	}
	return marshalJSON(data)
}

func parseEntries(entriesJSON string) ([]stockwatch.SymbolEntry, error) {
	var entries []stockwatch.SymbolEntry
	if entriesJSON == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(entriesJSON), &entries); err != nil {
		return nil, stockwatch.WrapError(stockwatch.ErrCodeInvalidInput, "invalid entries json", err)
	}
	return entries, nil
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
