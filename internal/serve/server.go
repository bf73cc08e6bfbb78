// SPDX-License-Identifier: MPL-2.0

// Package serve exposes the local registry over HTTP so sites under
// development can load published foundations without the hosted
// service. The server is read-only and mirrors the hosted content
// layout: an index at the root and artifact files under
// /{name}@{version}/{path}.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"uniweb-cli/internal/registry"
)

// DefaultPort is the port used when the caller does not pick one.
const DefaultPort = 4350

// Server serves the local package store over HTTP on localhost.
// It is not started until Start() is called.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	addr       string
	store      *registry.LocalStore
	logger     *log.Logger
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server over the given store, bound to localhost on the
// given port. Port 0 picks a free port.
func New(store *registry.LocalStore, port int, opts ...Option) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to bind local serve port: %w", err)
	}

	s := &Server{
		listener: listener,
		addr:     listener.Addr().String(),
		store:    store,
		logger:   log.New(os.Stderr),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)

	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start begins accepting connections. This is non-blocking.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve loop ended", "error", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Address returns the bound address, e.g. "127.0.0.1:4350".
func (s *Server) Address() string {
	return s.addr
}

// URL returns the full server URL.
func (s *Server) URL() string {
	return "http://" + s.addr
}

// handle is the single entry point: CORS first, then method filtering,
// then routing on the path shape.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	// Sites load foundations cross-origin from their dev server.
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "*")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet:
	default:
		s.logger.Warn("method not allowed", "method", r.Method, "path", r.URL.Path)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path == "/" {
		s.handleIndex(w, r)
		return
	}
	s.handleArtifact(w, r)
}

// handleIndex returns the registry index as JSON.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	idx, err := s.store.LoadIndex()
	if err != nil {
		s.logger.Error("failed to load index", "error", err)
		http.Error(w, "failed to load registry index", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(idx); err != nil {
		s.logger.Error("failed to encode index", "error", err)
		return
	}
	s.logger.Info("served index", "packages", len(idx))
}

// handleArtifact serves one file out of a published artifact tree. The
// request path is /{name}@{version}/{filepath}.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	name, version, filePath, err := parseArtifactPath(r.URL.Path)
	if err != nil {
		s.logger.Warn("malformed request", "path", r.URL.Path, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Reject escapes before touching the filesystem.
	if !isSafeRelPath(filePath) {
		s.logger.Warn("rejected path traversal", "path", r.URL.Path)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	full := filepath.Join(s.store.PackageDir(name, version), filepath.FromSlash(filePath))
	data, err := os.ReadFile(full)
	if err != nil {
		status := http.StatusNotFound
		msg := "not found"
		if !os.IsNotExist(err) {
			status = http.StatusInternalServerError
			msg = "failed to read file"
			s.logger.Error("failed to read artifact file", "path", full, "error", err)
		} else {
			s.logger.Warn("file not found", "package", name+"@"+version, "file", filePath)
		}
		http.Error(w, msg, status)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
		return
	}
	s.logger.Info("served file", "package", name+"@"+version, "file", filePath, "bytes", len(data))
}

// parseArtifactPath splits /{name}@{version}/{filepath} into its parts.
// A scoped name ("@scope/pkg") spans the first two path segments, so
// the coordinate is cut from the path before looking for the version
// separator. File names are free to contain "@" themselves.
func parseArtifactPath(urlPath string) (name, version, filePath string, err error) {
	trimmed := strings.TrimPrefix(urlPath, "/")

	segments := 1
	if strings.HasPrefix(trimmed, "@") {
		segments = 2
	}

	coordEnd := 0
	for i := 0; i < segments; i++ {
		slash := strings.Index(trimmed[coordEnd:], "/")
		if slash < 0 {
			return "", "", "", fmt.Errorf("missing file path after {name}@{version}")
		}
		coordEnd += slash
		if i < segments-1 {
			coordEnd++
		}
	}

	coord := trimmed[:coordEnd]
	filePath = trimmed[coordEnd+1:]
	if filePath == "" {
		return "", "", "", fmt.Errorf("missing file path after {name}@{version}")
	}

	// For scoped names the leading "@" is part of the name, never the
	// version separator.
	at := strings.LastIndex(coord, "@")
	if at <= 0 {
		return "", "", "", fmt.Errorf("expected path of the form /{name}@{version}/{file}")
	}

	name = coord[:at]
	version = coord[at+1:]
	if version == "" {
		return "", "", "", fmt.Errorf("missing version after @")
	}
	return name, version, filePath, nil
}

// isSafeRelPath reports whether the slash-separated path stays inside
// its root once cleaned.
func isSafeRelPath(p string) bool {
	if strings.HasPrefix(p, "/") {
		return false
	}
	clean := filepath.Clean(filepath.FromSlash(p))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(clean)
}
