package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fixora/kpiboard/internal/infra/logger"
	"github.com/fixora/kpiboard/internal/infra/response"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs method, path, status and latency of every request
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			fields := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"ip":          getClientIP(r, false),
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				fields["forwarded_for"] = xff
			}
			log.Info(r.Context(), "HTTP request", fields)
		})
	}
}

// Recovery turns a handler panic into a 500 response
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err, ok := rec.(error)
					if !ok {
						err = fmt.Errorf("%v", rec)
					}
					if errors.Is(err, http.ErrAbortHandler) {
						panic(rec)
					}
					log.Error(r.Context(), "Panic recovered", err, map[string]interface{}{"path": r.URL.Path})
					response.InternalServerError(w, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
