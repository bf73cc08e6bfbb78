// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// defaultBaseURL is the hosted registry service.
	defaultBaseURL = "https://registry.uniweb.app"

	// defaultTimeout bounds every remote call. A hung registry surfaces as
	// a distinguishable transport failure instead of a stuck CLI.
	defaultTimeout = 30 * time.Second

	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	// Prevents unbounded memory consumption from malformed responses.
	maxJSONResponseBytes = 10 << 20
)

type (
	// Client talks to the remote registry service. It implements the Store
	// contract and additionally carries the invite and site operations,
	// which share the same base URL, bearer token, and error mapping.
	Client struct {
		httpClient *http.Client
		baseURL    string
		token      string
		userAgent  string
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)

	// apiError is the JSON error body the registry returns alongside
	// non-2xx statuses.
	apiError struct {
		Message string `json:"message"`
	}
)

// WithHTTPClient sets a custom HTTP client, useful for tests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(r *Client) {
		r.httpClient = c
	}
}

// WithBaseURL overrides the registry base URL (--registry flag or test
// servers).
func WithBaseURL(base string) ClientOption {
	return func(r *Client) {
		if base != "" {
			r.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) ClientOption {
	return func(r *Client) {
		r.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(r *Client) {
		r.userAgent = ua
	}
}

// NewClient creates a registry client with sensible defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		userAgent:  "uniweb-cli/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured registry base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Exists reports whether the pair is published on the remote registry.
// Network and parse failures are returned as errors, never as "false".
func (c *Client) Exists(ctx context.Context, name, version string) (bool, error) {
	path := fmt.Sprintf("/api/foundations/%s/versions/%s", url.PathEscape(name), url.PathEscape(version))
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, c.statusError(resp, fmt.Sprintf("check %s@%s", name, version))
	}
}

// Versions lists the published versions of a foundation. An unknown
// foundation yields an empty slice.
func (c *Client) Versions(ctx context.Context, name string) ([]string, error) {
	path := fmt.Sprintf("/api/foundations/%s/versions", url.PathEscape(name))
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, fmt.Sprintf("list versions of %s", name))
	}

	var body struct {
		Versions map[string]Record `json:"versions"`
	}
	if err := decodeJSON(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("listing versions of %s: %w", name, err)
	}

	versions := make([]string, 0, len(body.Versions))
	for v := range body.Versions {
		versions = append(versions, v)
	}
	return versions, nil
}

// Publish uploads the bundled artifact and version metadata. The server
// enforces immutability: a 409 maps to ErrConflict so the caller can
// suggest a version bump, and a 401 maps to ErrUnauthorized so the
// caller can trigger a re-login.
func (c *Client) Publish(ctx context.Context, req PublishRequest) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	meta, err := mw.CreateFormField("metadata")
	if err != nil {
		return fmt.Errorf("failed to build publish request: %w", err)
	}
	if err := json.NewEncoder(meta).Encode(req.Meta); err != nil {
		return fmt.Errorf("failed to encode publish metadata: %w", err)
	}

	bundle, err := mw.CreateFormFile("bundle", SanitizeName(req.Name)+".zip")
	if err != nil {
		return fmt.Errorf("failed to build publish request: %w", err)
	}
	if err := zipDir(req.ArtifactDir, bundle); err != nil {
		return fmt.Errorf("failed to bundle artifact: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finalize publish request: %w", err)
	}

	path := fmt.Sprintf("/api/foundations/%s/versions/%s", url.PathEscape(req.Name), url.PathEscape(req.Version))
	resp, err := c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return c.statusError(resp, fmt.Sprintf("publish %s@%s", req.Name, req.Version))
	}
	return nil
}

// do executes an HTTP request against the registry with common headers.
// Mutating requests carry a client-generated request id so the operator
// can quote it when reporting a failed publish or handoff.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	reqURL := c.baseURL + path

	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if method != http.MethodGet && method != http.MethodHead {
		req.Header.Set("X-Request-Id", uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: reqURL, Err: err}
	}
	return resp, nil
}

// postJSON issues a POST with a JSON body and returns the response.
func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json")
}

// statusError maps a non-2xx response onto the error taxonomy. The
// server's message, when present, is carried along for context.
func (c *Client) statusError(resp *http.Response, op string) error {
	var serverMsg string
	var body apiError
	if err := decodeJSON(resp.Body, &body); err == nil && body.Message != "" {
		serverMsg = ": " + body.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s%s: %w", op, serverMsg, ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("%s%s: %w", op, serverMsg, ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s%s: %w", op, serverMsg, ErrConflict)
	default:
		return fmt.Errorf("%s: unexpected status %d%s", op, resp.StatusCode, serverMsg)
	}
}

// decodeJSON decodes a bounded JSON response body.
func decodeJSON(body io.Reader, v any) error {
	return json.NewDecoder(io.LimitReader(body, maxJSONResponseBytes)).Decode(v)
}

// zipDir writes the directory tree as a ZIP archive to w, using forward
// slashes for entry names.
func zipDir(dir string, w io.Writer) error {
	zw := zip.NewWriter(w)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if relPath == "." {
			return nil
		}
		entryName := filepath.ToSlash(relPath)

		if d.IsDir() {
			_, err := zw.Create(entryName + "/")
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return fmt.Errorf("failed to create archive header: %w", err)
		}
		header.Name = entryName
		header.Method = zip.Deflate

		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create archive entry: %w", err)
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(fw, f)
		return err
	})
	if err != nil {
		return err
	}
	return zw.Close()
}
