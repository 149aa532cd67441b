package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/mindspero/mindspero/internal/pkg/logger"
)

const logFieldsKey ContextKey = "logFields"

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

type logFields struct {
	mu     sync.Mutex
	fields map[string]interface{}
}

// AddLogField adds a field to the access log line of the request
func AddLogField(r *http.Request, key string, value interface{}) {
	if lf, ok := r.Context().Value(logFieldsKey).(*logFields); ok {
		lf.mu.Lock()
		lf.fields[key] = value
		lf.mu.Unlock()
	}
}

// Logger returns a middleware that logs HTTP requests
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			extra := &logFields{fields: make(map[string]interface{})}
			r = r.WithContext(context.WithValue(r.Context(), logFieldsKey, extra))

			next.ServeHTTP(wrapped, r)

			fields := map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"query":      r.URL.RawQuery,
				"status":     wrapped.statusCode,
				"duration":   time.Since(start).Milliseconds(),
				"bytes":      wrapped.written,
				"ip":         clientIP(r),
				"user_agent": r.UserAgent(),
				"request_id": GetRequestID(r),
			}
			extra.mu.Lock()
			for k, v := range extra.fields {
				fields[k] = v
			}
			extra.mu.Unlock()

			entry := log.WithFields(fields)
			switch {
			case wrapped.statusCode >= 500:
				entry.Error("HTTP request")
			case wrapped.statusCode >= 400:
				entry.Warn("HTTP request")
			default:
				entry.Info("HTTP request")
			}
		})
	}
}
