package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"stockwatch/pkg/stockwatch"
)

// Service is the subset of stockwatch.Core the API serves.
type Service interface {
	GetUserStocks(ctx context.Context, userID string) ([]stockwatch.SymbolEntry, error)
	SaveUserStocks(ctx context.Context, userID string, entries []stockwatch.SymbolEntry) ([]stockwatch.SymbolEntry, error)
	Realtime(ctx context.Context, userID string) (stockwatch.UserStockData, error)
	Refresh(ctx context.Context, entries []stockwatch.SymbolEntry) stockwatch.Snapshot
}

// NewRouter builds the HTTP API router.
func NewRouter(core Service, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Compress(5))
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core, logger: logger}

	r.Get("/api/health", h.health)

	// Saved portfolios
	r.Route("/api/users/{userID}", func(r chi.Router) {
		r.Get("/stocks", h.getUserStocks)
		r.Put("/stocks", h.saveUserStocks)
		r.Get("/realtime", h.getRealtime)
	})

	// Ad-hoc refresh
	r.Post("/api/realtime", h.refresh)

	return r
}

type handler struct {
	core   Service
	logger *slog.Logger
}
