package serve

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"uniweb-cli/internal/registry"
)

// newServedStore publishes one foundation version into a fresh local
// store and returns a running server over it.
func newServedStore(t *testing.T) (*Server, *registry.LocalStore) {
	t.Helper()

	artifact := t.TempDir()
	files := map[string]string{
		"schema.json":        `{"name": "acme-widgets", "version": "1.0.0"}`,
		"foundation.js":      "export default {}",
		"assets/logo@2x.png": "png-bytes",
	}
	for name, content := range files {
		path := filepath.Join(artifact, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	store := registry.NewLocalStore(t.TempDir())
	err := store.Publish(context.Background(), registry.PublishRequest{
		Name:        "acme-widgets",
		Version:     "1.0.0",
		ArtifactDir: artifact,
		Meta:        registry.Record{PublishedAt: time.Now().UTC(), PublishedBy: "local"},
	})
	if err != nil {
		t.Fatal(err)
	}

	srv, err := New(store, 0)
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Errorf("stopping server: %v", err)
		}
	})
	return srv, store
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServeIndex(t *testing.T) {
	srv, _ := newServedStore(t)

	resp := get(t, srv.URL()+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var idx registry.Index
	if err := json.NewDecoder(resp.Body).Decode(&idx); err != nil {
		t.Fatal(err)
	}
	if !idx.Has("acme-widgets", "1.0.0") {
		t.Errorf("index should list the published version, got %+v", idx)
	}
}

func TestServeArtifactFile(t *testing.T) {
	srv, _ := newServedStore(t)

	resp := get(t, srv.URL()+"/acme-widgets@1.0.0/schema.json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET schema = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want mapped from extension", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"name": "acme-widgets", "version": "1.0.0"}` {
		t.Errorf("body = %q", body)
	}
}

func TestServeNestedFileWithAtSign(t *testing.T) {
	srv, _ := newServedStore(t)

	// A file name containing "@" must not confuse coordinate parsing.
	resp := get(t, srv.URL()+"/acme-widgets@1.0.0/assets/logo@2x.png")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET nested file = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestServeUnknownExtensionFallsBack(t *testing.T) {
	srv, _ := newServedStore(t)

	resp := get(t, srv.URL()+"/acme-widgets@1.0.0/foundation.js")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET js = %d", resp.StatusCode)
	}
	// .js maps via the mime table; just assert something was set.
	if resp.Header.Get("Content-Type") == "" {
		t.Error("Content-Type should never be empty")
	}
}

func TestServeCORSHeaders(t *testing.T) {
	srv, _ := newServedStore(t)

	resp := get(t, srv.URL()+"/")
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Allow-Origin = %q", origin)
	}

	req, err := http.NewRequest(http.MethodOptions, srv.URL()+"/acme-widgets@1.0.0/schema.json", nil)
	if err != nil {
		t.Fatal(err)
	}
	preflight, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer preflight.Body.Close()
	if preflight.StatusCode != http.StatusNoContent {
		t.Errorf("OPTIONS = %d, want 204", preflight.StatusCode)
	}
	if origin := preflight.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("preflight Allow-Origin = %q", origin)
	}
}

func TestServeTraversalForbidden(t *testing.T) {
	srv, _ := newServedStore(t)

	// End to end, clients and mux normalize "..": whatever survives must
	// never return content.
	resp := get(t, srv.URL()+"/acme-widgets@1.0.0/../../../etc/passwd")
	if resp.StatusCode == http.StatusOK {
		t.Error("traversal must never return content")
	}

	// Drive the handler with the raw path to pin the pre-read rejection.
	req := httptest.NewRequest(http.MethodGet, "http://local/acme-widgets@1.0.0/../../../etc/passwd", nil)
	rec := httptest.NewRecorder()
	srv.handle(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("raw traversal = %d, want 403", rec.Code)
	}
}

func TestServeMalformedPaths(t *testing.T) {
	srv, _ := newServedStore(t)

	tests := []struct {
		name string
		path string
	}{
		{name: "no version separator", path: "/acme-widgets/schema.json"},
		{name: "no file path", path: "/acme-widgets@1.0.0"},
		{name: "empty version", path: "/acme-widgets@/schema.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, srv.URL()+tt.path)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("GET %s = %d, want 400", tt.path, resp.StatusCode)
			}
		})
	}
}

func TestServeUnknownFile(t *testing.T) {
	srv, _ := newServedStore(t)

	resp := get(t, srv.URL()+"/acme-widgets@1.0.0/missing.js")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET missing file = %d, want 404", resp.StatusCode)
	}

	resp = get(t, srv.URL()+"/acme-widgets@9.9.9/schema.json")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET unknown version = %d, want 404", resp.StatusCode)
	}
}

func TestServeMethodNotAllowed(t *testing.T) {
	srv, _ := newServedStore(t)

	resp, err := http.Post(srv.URL()+"/", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST / = %d, want 405", resp.StatusCode)
	}
}

func TestServeEmptyStore(t *testing.T) {
	store := registry.NewLocalStore(t.TempDir())
	srv, err := New(store, 0)
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	t.Cleanup(func() { srv.Stop() })

	resp := get(t, srv.URL()+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / on empty store = %d", resp.StatusCode)
	}
	var idx registry.Index
	if err := json.NewDecoder(resp.Body).Decode(&idx); err != nil {
		t.Fatal(err)
	}
	if len(idx) != 0 {
		t.Errorf("empty store index = %+v", idx)
	}
}

func TestParseArtifactPath(t *testing.T) {
	tests := []struct {
		path        string
		wantName    string
		wantVersion string
		wantFile    string
		wantErr     bool
	}{
		{path: "/acme-widgets@1.0.0/schema.json", wantName: "acme-widgets", wantVersion: "1.0.0", wantFile: "schema.json"},
		{path: "/@acme/widgets@2.0.0/dist/index.js", wantName: "@acme/widgets", wantVersion: "2.0.0", wantFile: "dist/index.js"},
		{path: "/acme-widgets@1.0.0/assets/logo@2x.png", wantName: "acme-widgets", wantVersion: "1.0.0", wantFile: "assets/logo@2x.png"},
		{path: "/acme-widgets/schema.json", wantErr: true},
		{path: "/@acme/widgets@2.0.0", wantErr: true},
		{path: "/acme-widgets@1.0.0", wantErr: true},
		{path: "/acme-widgets@/schema.json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			name, version, file, err := parseArtifactPath(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parsed %q without error", tt.path)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if name != tt.wantName || version != tt.wantVersion || file != tt.wantFile {
				t.Errorf("parsed (%q, %q, %q)", name, version, file)
			}
		})
	}
}

func TestIsSafeRelPath(t *testing.T) {
	safe := []string{"schema.json", "dist/index.js", "a/b/c.css"}
	unsafe := []string{"../secrets", "../../etc/passwd", "a/../../b", "/etc/passwd"}

	for _, p := range safe {
		if !isSafeRelPath(p) {
			t.Errorf("isSafeRelPath(%q) = false, want true", p)
		}
	}
	for _, p := range unsafe {
		if isSafeRelPath(p) {
			t.Errorf("isSafeRelPath(%q) = true, want false", p)
		}
	}
}
