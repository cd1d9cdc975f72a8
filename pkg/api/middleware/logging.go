package middleware

import (
	"net/http"
	"time"

	"github.com/seclens/alertgraph/pkg/logging"
)

// Logging creates middleware that logs HTTP requests with timing
// information, including the request ID when present.
func Logging(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Duration("duration", time.Since(start)),
			}
			if requestID := GetRequestID(r); requestID != "" {
				fields = append(fields, logging.RequestID(requestID))
			}
			logger.Info("http request", fields...)
		})
	}
}
