package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fixora/kpiboard/internal/infra/logger"
)

const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationIDMiddleware ensures every request/response carries a
// correlation ID and makes it available to loggers through the context
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(CorrelationIDHeader)
		if cid == "" {
			cid = uuid.NewString()
		}
		w.Header().Set(CorrelationIDHeader, cid)
		next.ServeHTTP(w, r.WithContext(logger.WithCorrelationID(r.Context(), cid)))
	})
}
