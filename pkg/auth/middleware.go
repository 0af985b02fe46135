package auth

import (
	"context"
	"net/http"

	"github.com/oaigw/gateway/pkg/api"
	"github.com/oaigw/gateway/pkg/transport"
)

type identityKeyType struct{}

var identityKey = identityKeyType{}

// Middleware runs chain against every incoming request, rejecting
// unauthenticated callers before they reach the translation pipeline and
// attaching the resolved Identity to the request context otherwise. The
// rejection body carries the same {"error": {...}} envelope as every other
// error response.
func Middleware(chain *Chain) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := chain.Authenticate(r.Context(), r)
			if result.Decision != Yes {
				transport.WriteAPIError(w, api.NewAuthenticationError("authentication required"))
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, result.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the Identity attached by Middleware, if any.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
