package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/seclens/alertgraph/pkg/logging"
)

// PanicRecovery creates middleware that recovers from panics in HTTP
// handlers. Internal details are logged but not exposed to clients.
func PanicRecovery(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic in http handler",
						logging.String("method", r.Method),
						logging.String("path", r.URL.Path),
						logging.Field{Key: "panic", Value: err},
						logging.String("stack", string(debug.Stack())))

					http.Error(w,
						"Internal server error",
						http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
