// Package websocket implements the server side of the WebSocket protocol
// defined in RFC 6455, restricted to unfragmented text and close frames.
//
// This package provides:
//   - Sec-WebSocket-Accept computation (ComputeAcceptKey)
//   - Frame encoding and decoding with 7, 16 and 64-bit payload lengths and
//     client masking (EncodeFrame, ReadFrame)
//   - Opening handshake negotiation for a single subprotocol (Negotiate)
//   - A per-connection read, handle, respond loop (Serve) driven by a
//     Communicator for the message format, such as JSON
//
// Server Example:
//
//	r := mux.NewRouter()
//	r.Handle("/ws", websocket.NewHandler(websocket.JSON{}, websocket.Echo[any](), websocket.Config{})).Upgrade(true)
//
//	srv := &server.Server{Addr: ":8080", Handler: r}
//	log.Fatal(srv.ListenAndServe())
//
// Lifecycle:
//
// A Conn starts in StateNegotiating. A successful handshake moves it to
// StateOpen; a failed handshake, a close frame from the peer, the end of the
// stream or any read error moves it to StateClosed. A close frame from the
// peer is reported as io.EOF, never as an error.
//
// Concurrency:
//
// A Conn belongs to the goroutine serving its socket and must not be shared.
// Connections have no state in common, so the package needs no locking.
//
// Unsupported:
//
// Continuation, binary, ping and pong frames are rejected as protocol
// errors. Extensions such as permessage-deflate are never negotiated.
package websocket
