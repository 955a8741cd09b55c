package mux

import (
	"bufio"
	"context"
	"strings"

	"github.com/vitalvas/wsecho/httpmsg"
)

// Route stores the matching rules and handler for one path.
type Route struct {
	path    string
	name    string
	upgrade *bool
	handler Handler
}

// Upgrade restricts the route to requests that do (true) or do not (false)
// ask for a WebSocket upgrade. Without it the route matches both.
func (r *Route) Upgrade(want bool) *Route {
	r.upgrade = &want
	return r
}

// Name sets a name for the route, used in logs.
func (r *Route) Name(name string) *Route {
	r.name = name
	return r
}

// GetName returns the route name, or an empty string.
func (r *Route) GetName() string {
	return r.name
}

// GetPathTemplate returns the path the route was registered with.
func (r *Route) GetPathTemplate() string {
	return r.path
}

// GetHandler returns the handler for the route, if any.
func (r *Route) GetHandler() Handler {
	return r.handler
}

// Handler sets a handler for the route.
func (r *Route) Handler(handler Handler) *Route {
	r.handler = handler
	return r
}

// HandlerFunc sets a handler function for the route.
func (r *Route) HandlerFunc(f func(context.Context, *bufio.ReadWriter, *httpmsg.Request) error) *Route {
	return r.Handler(HandlerFunc(f))
}

// Match reports whether the route matches req.
func (r *Route) Match(req *httpmsg.Request) bool {
	if req.Method != httpmsg.MethodGet {
		return false
	}
	if RequestPath(req.Target) != r.path {
		return false
	}
	if r.upgrade != nil && req.IsUpgrade() != *r.upgrade {
		return false
	}
	return true
}

// RequestPath strips the query and fragment from a request target. An empty
// result is reported as "/".
func RequestPath(target string) string {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	if target == "" {
		return "/"
	}
	return target
}
