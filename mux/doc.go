// Package mux dispatches parsed HTTP/1.1 requests to connection handlers.
//
// Unlike a net/http router, handlers receive the raw buffered connection
// stream so that a route can take over the socket, for example to upgrade
// it to the WebSocket protocol:
//
//	r := mux.NewRouter()
//	r.HandleFunc("/", indexHandler).Upgrade(false)
//	r.Handle("/ws", websocket.NewHandler(websocket.JSON{}, websocket.Echo[any](), websocket.Config{})).Upgrade(true)
//
// A route matches on the request path and, optionally, on whether the
// request asks for a protocol upgrade. Requests that match no route are
// answered with 404 Not Found.
//
// # Middleware
//
// Middleware wraps the handler of a matched route. It is applied in the
// order it was registered, the first registered middleware being the
// outermost:
//
//	r.Use(muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{}))
package mux
