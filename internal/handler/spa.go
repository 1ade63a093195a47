// Package handler contains the HTTP handlers for the portfolio API.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, JSON body)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers hold no business rules. Each one depends on a small interface
// declared next to it, so tests can swap in fakes.
package handler

import (
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/sakif/portfolio-api/internal/apperror"
)

// SPAHandler serves the built single-page app.
//
// ROUTING:
// Client-side routes (/about, /projects/x) have no file on disk, so any path
// that is not a real file gets index.html and the SPA router takes over.
// Unknown /api/ paths are the exception: they get a JSON 404 so a typo in a
// fetch() call is not answered with HTML.
type SPAHandler struct {
	root   http.FileSystem
	logger *slog.Logger
}

// NewSPAHandler serves files from dir. http.Dir refuses paths that escape it.
func NewSPAHandler(dir string, logger *slog.Logger) *SPAHandler {
	return &SPAHandler{root: http.Dir(dir), logger: logger}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, h.logger, apperror.Missing("Not found"))
		return
	}

	if h.serveFile(w, r, path.Clean("/"+r.URL.Path)) {
		return
	}
	if h.serveFile(w, r, "/index.html") {
		return
	}
	http.Error(w, "Page not found", http.StatusNotFound)
}

// serveFile writes name if it exists and is a regular file.
func (h *SPAHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) bool {
	f, err := h.root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		return false
	}
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), f)
	return true
}
