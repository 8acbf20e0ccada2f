package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"stockwatch/pkg/stockwatch"
)

// requestLog wraps the response writer and collects what handlers report
// about a request, so the middleware can log one line per call.
type requestLog struct {
	middleware.WrapResponseWriter
	errorMessage string

	refreshed bool
	symbols   int
	found     int
	missed    []string
	skipped   []string
}

func newRequestLog(w http.ResponseWriter, r *http.Request) *requestLog {
	return &requestLog{WrapResponseWriter: middleware.NewWrapResponseWriter(w, r.ProtoMajor)}
}

func (l *requestLog) SetErrorMessage(message string) {
	l.errorMessage = message
}

func (l *requestLog) ErrorMessage() string {
	return l.errorMessage
}

// NoteRefresh records the outcome of a refresh cycle served by the request.
func (l *requestLog) NoteRefresh(symbols int, quotes []stockwatch.Result, skipped []string) {
	l.refreshed = true
	l.symbols = symbols
	l.skipped = skipped
	for _, q := range quotes {
		if q.Found() {
			l.found++
		} else {
			l.missed = append(l.missed, q.Code)
		}
	}
}

func (l *requestLog) fields(r *http.Request, status int, elapsed time.Duration) []any {
	fields := []any{
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"route", routePattern(r),
		"status", status,
		"bytes", l.BytesWritten(),
		"duration_ms", elapsed.Milliseconds(),
		"remote_ip", r.RemoteAddr,
		"user_agent", r.UserAgent(),
	}
	if userID := chi.URLParamFromCtx(r.Context(), "userID"); userID != "" {
		fields = append(fields, "user_id", userID)
	}
	if l.refreshed {
		fields = append(fields, "symbols", l.symbols, "found", l.found)
		if len(l.missed) > 0 {
			fields = append(fields, "missed", l.missed)
		}
		if len(l.skipped) > 0 {
			fields = append(fields, "skipped", l.skipped)
		}
	}
	if l.errorMessage != "" {
		fields = append(fields, "error_message", l.errorMessage)
	}
	return fields
}

func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rl := newRequestLog(w, r)

			next.ServeHTTP(rl, r)

			status := rl.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := rl.fields(r, status, time.Since(start))
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("api request", fields...)
			case status >= http.StatusBadRequest:
				logger.Warn("api request", fields...)
			default:
				logger.Info("api request", fields...)
			}
		})
	}
}

// recoveryLoggingMiddleware turns a handler panic into an INTERNAL_ERROR
// response unless the handler already wrote a status.
func recoveryLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				logger.Error("handler panic",
					"request_id", middleware.GetReqID(r.Context()),
					"route", routePattern(r),
					"user_id", chi.URLParamFromCtx(r.Context(), "userID"),
					"panic", fmt.Sprint(recovered),
					"stack", string(debug.Stack()),
				)
				if sw, ok := w.(interface{ Status() int }); ok && sw.Status() != 0 {
					return
				}
				writeErrorResponse(w, r, stockwatch.NewError(stockwatch.ErrCodeInternal, "internal server error"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
