package muxhandlers

import (
	"bufio"
	"context"

	"github.com/vitalvas/wsecho/httpmsg"
	"github.com/vitalvas/wsecho/mux"
)

// TextHandler returns a handler that answers every request with a fixed
// 200 OK body.
func TextHandler(body, contentType string) mux.Handler {
	payload := []byte(body)

	return mux.HandlerFunc(func(_ context.Context, rw *bufio.ReadWriter, _ *httpmsg.Request) error {
		return mux.WriteResponse(rw, httpmsg.OK(payload, contentType))
	})
}
