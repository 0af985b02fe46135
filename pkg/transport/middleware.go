// Package transport wires the HTTP-facing cross-cutting concerns
// (request IDs, panic recovery, logging, error rendering) around the
// core translation handlers.
package transport

import "net/http"

// Middleware wraps an http.Handler to add cross-cutting behavior.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares so that Chain(a, b, c) produces
// a(b(c(handler))): the first middleware is outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
