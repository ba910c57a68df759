package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/oggyb/matchfeed/internal/logger"
)

// RequestLogger logs every request once on completion and stores a
// request-scoped child logger in the context (see logger.FromContext).
// It must run after chi's RequestID middleware.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := logger.With("request_id", chimw.GetReqID(r.Context()))
		ctx := logger.WithContext(r.Context(), reqLog)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			logger.Since(start),
		}
		switch {
		case status >= http.StatusInternalServerError:
			reqLog.Error("request", args...)
		case status >= http.StatusBadRequest:
			reqLog.Warn("request", args...)
		default:
			reqLog.Info("request", args...)
		}
	})
}
