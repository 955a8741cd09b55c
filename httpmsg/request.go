package httpmsg

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Method is the request method. Only GET is recognised.
type Method string

// MethodGet is the only method the parser accepts.
const MethodGet Method = "GET"

const (
	// maxHeaderLines bounds the number of header lines read for one request.
	maxHeaderLines = 100

	// maxHeaderBytes bounds the request line and header block together.
	maxHeaderBytes = 1 << 20
)

// Errors returned by ReadRequest.
var (
	ErrEmptyRequest         = errors.New("httpmsg: empty request")
	ErrMalformedRequestLine = errors.New("httpmsg: malformed request line")
	ErrInvalidMethod        = errors.New("httpmsg: invalid method")
	ErrMalformedHeader      = errors.New("httpmsg: malformed header line")
	ErrTooManyHeaders       = errors.New("httpmsg: too many header lines")
	ErrHeaderTooLarge       = errors.New("httpmsg: request header too large")
)

// Request is a parsed HTTP/1.1 request. It is not modified after
// ReadRequest returns.
type Request struct {
	Method Method
	Target string
	Proto  string

	// Header maps lowercase header names to their raw values. Repeated
	// headers are joined with ", ".
	Header map[string]string

	// Body is always nil: GET requests carry no body.
	Body []byte
}

// Lookup returns the value of the named header and whether it was present.
// The name is matched case-insensitively.
func (r *Request) Lookup(name string) (string, bool) {
	v, ok := r.Header[strings.ToLower(name)]
	return v, ok
}

// Get returns the value of the named header or an empty string.
func (r *Request) Get(name string) string {
	v, _ := r.Lookup(name)
	return v
}

// HasToken reports whether the comma-separated header value contains token,
// compared case-insensitively.
func (r *Request) HasToken(name, token string) bool {
	for _, t := range strings.Split(r.Get(name), ",") {
		if strings.EqualFold(strings.TrimSpace(t), token) {
			return true
		}
	}
	return false
}

// IsUpgrade reports whether the request asks to switch to the WebSocket
// protocol (Connection contains "upgrade" and Upgrade is "websocket").
func (r *Request) IsUpgrade() bool {
	return r.HasToken("connection", "upgrade") &&
		strings.EqualFold(strings.TrimSpace(r.Get("upgrade")), "websocket")
}

// ReadRequest reads a request line and header block from br. Bytes after the
// terminating blank line are left in br.
func ReadRequest(br *bufio.Reader) (*Request, error) {
	budget := maxHeaderBytes

	line, err := readLine(br, &budget)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyRequest
		}
		return nil, err
	}

	req, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	for n := 0; ; n++ {
		line, err := readLine(br, &budget)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if line == "" {
			break
		}
		if n >= maxHeaderLines {
			return nil, ErrTooManyHeaders
		}

		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}

		key := strings.ToLower(name)
		value = strings.TrimSpace(value)
		if prev, exists := req.Header[key]; exists {
			value = prev + ", " + value
		}
		req.Header[key] = value
	}

	return req, nil
}

// readLine reads one line ending in LF or CRLF and returns it without the
// line ending. Every byte read is charged to budget; exceeding it fails
// with ErrHeaderTooLarge before the line is complete. A final line without
// a line ending is returned as is.
func readLine(br *bufio.Reader, budget *int) (string, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		*budget -= len(chunk)
		if *budget < 0 {
			return "", ErrHeaderTooLarge
		}
		line = append(line, chunk...)

		switch {
		case err == nil:
			line = bytes.TrimSuffix(line, []byte("\n"))
			line = bytes.TrimSuffix(line, []byte("\r"))
			return string(line), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(line) > 0:
			return string(bytes.TrimSuffix(line, []byte("\r"))), nil
		default:
			return "", err
		}
	}
}

func parseRequestLine(line string) (*Request, error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}

	method, err := parseMethod(parts[0])
	if err != nil {
		return nil, err
	}

	return &Request{
		Method: method,
		Target: parts[1],
		Proto:  parts[2],
		Header: make(map[string]string),
	}, nil
}

func parseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodGet:
		return MethodGet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
	}
}
