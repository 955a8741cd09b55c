package mux

import (
	"bufio"

	"github.com/vitalvas/wsecho/httpmsg"
)

// WriteResponse writes resp to the connection and flushes it.
func WriteResponse(rw *bufio.ReadWriter, resp *httpmsg.Response) error {
	if _, err := resp.WriteTo(rw.Writer); err != nil {
		return err
	}
	return rw.Flush()
}

// ResponseText writes a 200 response with the given body and content type.
func ResponseText(rw *bufio.ReadWriter, contentType, body string) error {
	return WriteResponse(rw, httpmsg.OK([]byte(body), contentType))
}
