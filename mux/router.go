package mux

import (
	"bufio"
	"context"
	"errors"

	"github.com/vitalvas/wsecho/httpmsg"
)

// ErrNotFound is returned by Router.Match when no route matches.
var ErrNotFound = errors.New("mux: no matching route was found")

// Router registers routes to be matched and dispatches a handler.
//
// It implements the Handler interface, so it can be passed straight to the
// transport server:
//
//	r := mux.NewRouter()
//	r.HandleFunc("/", handler)
//	srv := &server.Server{Addr: ":8080", Handler: r}
type Router struct {
	// NotFoundHandler is called when no route matches.
	// If nil, a plain 404 Not Found response is written.
	NotFoundHandler Handler

	routes      []*Route
	middlewares []MiddlewareFunc
}

// NewRouter returns a new router instance.
func NewRouter() *Router {
	return &Router{}
}

// Handle registers a new route with a handler for the given path.
func (r *Router) Handle(path string, handler Handler) *Route {
	route := &Route{path: path, handler: handler}
	r.routes = append(r.routes, route)
	return route
}

// HandleFunc registers a new route with a handler function for the given path.
func (r *Router) HandleFunc(path string, f func(context.Context, *bufio.ReadWriter, *httpmsg.Request) error) *Route {
	return r.Handle(path, HandlerFunc(f))
}

// Use appends a MiddlewareFunc to the chain. Middleware is applied to
// matched handlers only.
func (r *Router) Use(mwf ...MiddlewareFunc) {
	r.middlewares = append(r.middlewares, mwf...)
}

// Match returns the first route matching req, in registration order.
func (r *Router) Match(req *httpmsg.Request) (*Route, error) {
	for _, route := range r.routes {
		if route.handler != nil && route.Match(req) {
			return route, nil
		}
	}
	return nil, ErrNotFound
}

// ServeConn dispatches the connection to the handler of the matched route.
func (r *Router) ServeConn(ctx context.Context, rw *bufio.ReadWriter, req *httpmsg.Request) error {
	route, err := r.Match(req)
	if err != nil {
		handler := r.NotFoundHandler
		if handler == nil {
			handler = defaultNotFoundHandler
		}
		return handler.ServeConn(ctx, rw, req)
	}

	return r.applyMiddleware(route.handler).ServeConn(withRoute(ctx, route), rw, req)
}

// applyMiddleware wraps the handler with all registered middleware.
func (r *Router) applyMiddleware(handler Handler) Handler {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i].Middleware(handler)
	}
	return handler
}

var defaultNotFoundHandler = HandlerFunc(func(_ context.Context, rw *bufio.ReadWriter, _ *httpmsg.Request) error {
	return WriteResponse(rw, httpmsg.NotFound())
})
