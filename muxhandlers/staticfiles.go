package muxhandlers

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"mime"
	"path"
	"strings"

	"github.com/vitalvas/wsecho/httpmsg"
	"github.com/vitalvas/wsecho/mux"
	"go.uber.org/multierr"
)

// ErrStaticFilesNoFS is returned when StaticFilesConfig.FS is nil.
var ErrStaticFilesNoFS = errors.New("static files: file system must not be nil")

// ErrStaticFilesNoIndexHTML is returned when SPAFallback is enabled
// but the file system does not contain the index file at the root.
var ErrStaticFilesNoIndexHTML = errors.New("static files: index file is required when SPA fallback is enabled")

const defaultContentType = "application/octet-stream"

// StaticFilesConfig configures the static file handler.
type StaticFilesConfig struct {
	// FS is the file system to serve files from. Required.
	// Works with os.DirFS, embed.FS, and any fs.FS implementation.
	FS fs.FS

	// Index is the file served for a directory. Defaults to "index.html".
	// Directories without it are answered with 404; contents are never
	// listed.
	Index string

	// SPAFallback serves the root index file for any path that does
	// not match an existing file. Requires the index file at the root of FS.
	SPAFallback bool
}

// StaticFilesHandler returns a mux.Handler that serves static files from
// the provided file system with 200 OK and a Content-Type derived from the
// file extension. It is not middleware: it serves files directly without
// calling a next handler, and is commonly installed as the router's
// NotFoundHandler.
func StaticFilesHandler(cfg StaticFilesConfig) (mux.Handler, error) {
	if cfg.FS == nil {
		return nil, ErrStaticFilesNoFS
	}

	index := cfg.Index
	if index == "" {
		index = "index.html"
	}

	if cfg.SPAFallback {
		if _, err := fs.Stat(cfg.FS, index); err != nil {
			return nil, ErrStaticFilesNoIndexHTML
		}
	}

	sf := &staticFiles{fs: cfg.FS, index: index, spaFallback: cfg.SPAFallback}

	return mux.HandlerFunc(sf.serveConn), nil
}

type staticFiles struct {
	fs          fs.FS
	index       string
	spaFallback bool
}

func (s *staticFiles) serveConn(_ context.Context, rw *bufio.ReadWriter, req *httpmsg.Request) error {
	name, data, err := s.open(fsName(mux.RequestPath(req.Target)))
	if errors.Is(err, fs.ErrNotExist) && s.spaFallback {
		name, data, err = s.open(s.index)
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return mux.WriteResponse(rw, httpmsg.NotFound())
	case err != nil:
		resp := httpmsg.NewResponse(500, "Internal Server Error")
		resp.Set("Content-Type", "text/plain; charset=utf-8")
		resp.Body = []byte("Internal Server Error\n")
		return multierr.Append(err, mux.WriteResponse(rw, resp))
	}

	return mux.WriteResponse(rw, httpmsg.OK(data, contentType(name)))
}

// open reads name, resolving directories to their index file.
func (s *staticFiles) open(name string) (string, []byte, error) {
	if !fs.ValidPath(name) {
		return "", nil, fs.ErrNotExist
	}

	info, err := fs.Stat(s.fs, name)
	if err != nil {
		return "", nil, err
	}

	if info.IsDir() {
		name = path.Join(name, s.index)
	}

	data, err := fs.ReadFile(s.fs, name)
	if err != nil {
		return "", nil, err
	}

	return name, data, nil
}

// fsName converts a request path to an fs.FS name. Cleaning against the
// root removes any ".." elements.
func fsName(p string) string {
	name := strings.TrimPrefix(path.Clean("/"+p), "/")
	if name == "" {
		return "."
	}
	return name
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return defaultContentType
}
