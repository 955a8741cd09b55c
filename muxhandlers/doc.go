// Package muxhandlers provides connection middleware and simple handlers
// for the mux router.
//
// # Recovery Middleware
//
// RecoveryMiddleware turns a panic in a downstream handler into an error
// wrapping ErrPanicRecovered, so that one misbehaving connection never takes
// the server down. Plain requests are answered with 500 Internal Server
// Error.
//
//	r.Use(muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{}))
//
// # Connection ID Middleware
//
// ConnIDMiddleware assigns every connection a UUID (v4 by default, v7 via
// GenerateUUIDv7) and adds it to the connection logger, so log entries
// written during a long WebSocket session can be correlated.
//
//	r.Use(muxhandlers.ConnIDMiddleware(muxhandlers.ConnIDConfig{
//	    GenerateFunc: muxhandlers.GenerateUUIDv7,
//	}))
//
// # Deadline Middleware
//
// DeadlineMiddleware bounds the time a client may take before the handler
// is done with the connection. The WebSocket handshake clears the deadline
// once the connection is upgraded.
//
//	mw, err := muxhandlers.DeadlineMiddleware(muxhandlers.DeadlineConfig{
//	    Duration: 10 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Use(mw)
//
// # Static Files
//
// StaticFilesHandler serves files from any fs.FS. It is usually installed as
// the router's NotFoundHandler so that every path without an explicit route
// is looked up in the file system:
//
//	h, err := muxhandlers.StaticFilesHandler(muxhandlers.StaticFilesConfig{
//	    FS: os.DirFS("public"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.NotFoundHandler = h
package muxhandlers
