package transport

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/oaigw/gateway/pkg/api"
)

// Recovery catches panics in the wrapped handler and converts them into a
// server_error response instead of crashing the process.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("transport: recovered panic", "error", rec, "request_id", RequestIDFromContext(r.Context()))
					WriteAPIError(w, api.NewServerError(fmt.Sprintf("internal server error: %v", rec)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
