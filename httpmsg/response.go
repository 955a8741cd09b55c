package httpmsg

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

// Field is a single response header line.
type Field struct {
	Name  string
	Value string
}

// Response is an HTTP/1.1 response. Header fields are written in the order
// they were set, followed by Content-Length.
type Response struct {
	StatusCode int
	Reason     string
	Fields     []Field
	Body       []byte
}

// NewResponse returns a response with the given status line and no headers.
func NewResponse(code int, reason string) *Response {
	return &Response{StatusCode: code, Reason: reason}
}

// OK returns a 200 response carrying body.
func OK(body []byte, contentType string) *Response {
	resp := NewResponse(200, "OK")
	if contentType != "" {
		resp.Set("Content-Type", contentType)
	}
	resp.Body = body
	return resp
}

// NotFound returns a plain-text 404 response.
func NotFound() *Response {
	return OK([]byte("404 page not found\n"), "text/plain; charset=utf-8").withStatus(404, "Not Found")
}

// BadRequest returns a plain-text 400 response.
func BadRequest() *Response {
	return OK([]byte("400 bad request\n"), "text/plain; charset=utf-8").withStatus(400, "Bad Request")
}

func (r *Response) withStatus(code int, reason string) *Response {
	r.StatusCode = code
	r.Reason = reason
	return r
}

// Set replaces the value of the named field, or appends it.
func (r *Response) Set(name, value string) {
	for i := range r.Fields {
		if strings.EqualFold(r.Fields[i].Name, name) {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

// Get returns the value of the named field.
func (r *Response) Get(name string) string {
	for _, f := range r.Fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Bytes returns the wire encoding of the response.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(r.StatusCode))
	buf.WriteByte(' ')
	buf.WriteString(r.Reason)
	buf.WriteString("\r\n")

	for _, f := range r.Fields {
		if strings.EqualFold(f.Name, "Content-Length") {
			continue
		}
		buf.WriteString(f.Name)
		buf.WriteString(": ")
		buf.WriteString(f.Value)
		buf.WriteString("\r\n")
	}

	buf.WriteString("Content-Length: ")
	buf.WriteString(strconv.Itoa(len(r.Body)))
	buf.WriteString("\r\n\r\n")
	buf.Write(r.Body)

	return buf.Bytes()
}

// WriteTo writes the wire encoding of the response to w.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}
