package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stockwatch/pkg/stockwatch"
)

// maxRequestBody caps portfolio payloads.
const maxRequestBody = 1 << 20

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getUserStocks(w http.ResponseWriter, r *http.Request) {
	entries, err := h.core.GetUserStocks(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) saveUserStocks(w http.ResponseWriter, r *http.Request) {
	var entries []stockwatch.SymbolEntry
	if err := decodeJSON(w, r, &entries); err != nil {
		writeErrorResponse(w, r, stockwatch.WrapError(stockwatch.ErrCodeInvalidInput, "invalid request body", err))
		return
	}
	saved, err := h.core.SaveUserStocks(r.Context(), chi.URLParam(r, "userID"), entries)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *handler) getRealtime(w http.ResponseWriter, r *http.Request) {
	data, err := h.core.Realtime(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	noteRefresh(w, len(data.StockCells), data.AllStocksData, data.Skipped)
	writeJSON(w, http.StatusOK, data)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var entries []stockwatch.SymbolEntry
	if err := decodeJSON(w, r, &entries); err != nil {
		writeErrorResponse(w, r, stockwatch.WrapError(stockwatch.ErrCodeInvalidInput, "invalid request body", err))
		return
	}
	snapshot := h.core.Refresh(r.Context(), entries)
	h.logger.Debug("ad-hoc refresh", "symbols", len(entries), "skipped", len(snapshot.Skipped))
	noteRefresh(w, len(entries), snapshot.Quotes, snapshot.Skipped)
	writeJSON(w, http.StatusOK, snapshot)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}
