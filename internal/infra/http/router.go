package http

import (
	"net/http"
)

// Middleware wraps an http.Handler in the standard net/http style.
type Middleware func(http.Handler) http.Handler

// Router is the routing surface handlers are registered against. It
// hides the concrete mux so route tables and tests do not depend on
// chi directly.
type Router interface {
	// Method handlers take optional route-specific middleware,
	// applied in order with the first wrapping outermost.
	GET(path string, handler http.HandlerFunc, middlewares ...Middleware)
	POST(path string, handler http.HandlerFunc, middlewares ...Middleware)
	PUT(path string, handler http.HandlerFunc, middlewares ...Middleware)
	PATCH(path string, handler http.HandlerFunc, middlewares ...Middleware)
	DELETE(path string, handler http.HandlerFunc, middlewares ...Middleware)

	// Group registers routes under a shared prefix. Group middleware
	// applies to every route registered inside fn.
	Group(prefix string, fn func(Router), middlewares ...Middleware)

	// Use adds middleware for all subsequently registered routes.
	Use(middlewares ...Middleware)

	// Handler returns the assembled http.Handler.
	Handler() http.Handler

	// Walk visits every registered route. Used by the route printer.
	Walk(fn func(method, path string, handler http.Handler) error) error
}

// Chain applies middlewares to a handler, first middleware outermost.
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// ChainFunc is Chain for http.HandlerFunc.
func ChainFunc(handler http.HandlerFunc, middlewares ...Middleware) http.Handler {
	return Chain(handler, middlewares...)
}
