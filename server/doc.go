// Package server runs a mux.Handler over raw TCP connections.
//
// Each accepted connection is served on its own goroutine: the request line
// and headers are parsed with httpmsg.ReadRequest, the network connection
// and a connection logger are attached to the context, and the handler is
// called with the buffered connection stream. The socket is closed when the
// handler returns. A malformed request is answered with 400 Bad Request; a
// connection that closes without sending anything is dropped silently.
//
//	cfg, err := server.LoadConfig("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	srv := &server.Server{Addr: cfg.Address(), Handler: router}
//	if err := srv.ListenAndServe(); !errors.Is(err, server.ErrServerClosed) {
//	    log.Fatal(err)
//	}
package server
