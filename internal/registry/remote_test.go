package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRemoteExists(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    bool
		wantErr error
	}{
		{name: "published", status: http.StatusOK, want: true},
		{name: "not published", status: http.StatusNotFound, want: false},
		{name: "bad token", status: http.StatusUnauthorized, wantErr: ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/foundations/acme-widgets/versions/1.0.0" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewClient(WithBaseURL(srv.URL), WithToken("tok"))
			got, err := client.Exists(context.Background(), "acme-widgets", "1.0.0")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Exists = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Exists: %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRemoteExistsNetworkFailureIsError(t *testing.T) {
	// A dead server must yield an error, never "does not exist".
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Exists(context.Background(), "acme-widgets", "1.0.0")
	if err == nil {
		t.Fatal("Exists against dead server should error")
	}

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error should be a TransportError, got %T: %v", err, err)
	}
	if te.URL == "" {
		t.Error("TransportError should carry the attempted URL")
	}
}

func TestRemotePublish(t *testing.T) {
	artifact := makeArtifact(t)

	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "created", status: http.StatusCreated},
		{name: "duplicate version", status: http.StatusConflict, wantErr: ErrConflict},
		{name: "expired token", status: http.StatusUnauthorized, wantErr: ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				if r.Method != http.MethodPost {
					t.Errorf("publish method = %s, want POST", r.Method)
				}
				if err := r.ParseMultipartForm(32 << 20); err != nil {
					t.Errorf("publish body is not multipart: %v", err)
				}
				if r.Header.Get("X-Request-Id") == "" {
					t.Error("mutating call should carry a request id")
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewClient(WithBaseURL(srv.URL), WithToken("tok-123"))
			err := client.Publish(context.Background(), PublishRequest{
				Name:        "acme-widgets",
				Version:     "1.0.0",
				ArtifactDir: artifact,
				Meta:        Record{PublishedBy: "jane@example.com", EditAccess: EditAccessOpen},
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Publish = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if gotAuth != "Bearer tok-123" {
				t.Errorf("Authorization = %q, want bearer token", gotAuth)
			}
		})
	}
}

func TestRemoteVersions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/foundations/acme-widgets/versions":
			json.NewEncoder(w).Encode(map[string]any{
				"versions": map[string]Record{
					"1.0.0": {PublishedBy: "jane@example.com"},
					"1.1.0": {PublishedBy: "jane@example.com"},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))

	versions, err := client.Versions(context.Background(), "acme-widgets")
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 {
		t.Errorf("Versions = %v, want 2 entries", versions)
	}

	// Unknown foundation yields an empty slice, not an error.
	versions, err = client.Versions(context.Background(), "unknown")
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 0 {
		t.Errorf("Versions for unknown = %v, want empty", versions)
	}
}

func TestRemoteInviteLifecycle(t *testing.T) {
	created := Invite{
		ID:             "inv-1",
		Email:          "jane@example.com",
		FoundationName: "acme-widgets",
		MajorVersion:   1,
		MaxUses:        1,
		ExpiresAt:      time.Now().Add(30 * 24 * time.Hour),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/foundations/acme-widgets/invites" && r.Method == http.MethodPost:
			var req CreateInviteRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Email != "jane@example.com" || req.MajorVersion != 1 {
				t.Errorf("unexpected create payload %+v", req)
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(created)
		case r.URL.Path == "/api/foundations/acme-widgets/invites" && r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"invites": []Invite{created}})
		case r.URL.Path == "/api/foundations/acme-widgets/invites/inv-1/revoke":
			json.NewEncoder(w).Encode(map[string]string{"email": created.Email})
		case r.URL.Path == "/api/foundations/acme-widgets/invites/inv-1/resend":
			json.NewEncoder(w).Encode(map[string]string{"email": created.Email})
		case r.URL.Path == "/api/foundations/acme-widgets/invites/inv-missing/revoke":
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client := NewClient(WithBaseURL(srv.URL), WithToken("tok"))

	inv, err := client.CreateInvite(ctx, "acme-widgets", CreateInviteRequest{
		Email: "jane@example.com", MajorVersion: 1, MaxUses: 1, ExpiresInDays: 30,
	})
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}
	if inv.ID != "inv-1" {
		t.Errorf("CreateInvite id = %q", inv.ID)
	}

	invites, err := client.ListInvites(ctx, "acme-widgets")
	if err != nil {
		t.Fatalf("ListInvites: %v", err)
	}
	if len(invites) != 1 {
		t.Errorf("ListInvites = %d entries, want 1", len(invites))
	}

	email, err := client.RevokeInvite(ctx, "acme-widgets", "inv-1")
	if err != nil {
		t.Fatalf("RevokeInvite: %v", err)
	}
	if email != "jane@example.com" {
		t.Errorf("RevokeInvite email = %q", email)
	}

	if _, err := client.RevokeInvite(ctx, "acme-widgets", "inv-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("revoking unknown invite = %v, want ErrNotFound", err)
	}

	email, err = client.ResendInvite(ctx, "acme-widgets", "inv-1")
	if err != nil {
		t.Fatalf("ResendInvite: %v", err)
	}
	if email != "jane@example.com" {
		t.Errorf("ResendInvite email = %q", email)
	}
}

func TestRemoteSites(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sites":
			var req struct {
				SiteID     string `json:"siteId"`
				Foundation struct {
					Name string `json:"name"`
				} `json:"foundation"`
			}
			json.NewDecoder(r.Body).Decode(&req)

			switch {
			case req.SiteID == "taken":
				w.WriteHeader(http.StatusConflict)
			case req.Foundation.Name == "never-published":
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"message": "foundation has no published version"})
			default:
				w.WriteHeader(http.StatusCreated)
				site := Site{ID: req.SiteID, Licensed: true}
				site.Foundation.Name = req.Foundation.Name
				json.NewEncoder(w).Encode(site)
			}
		case "/api/sites/acme-site-abc123/transfer":
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client := NewClient(WithBaseURL(srv.URL), WithToken("tok"))

	site, err := client.CreateSite(ctx, "acme-site-abc123", "acme-widgets")
	if err != nil {
		t.Fatalf("CreateSite: %v", err)
	}
	if site.ID != "acme-site-abc123" || !site.Licensed {
		t.Errorf("CreateSite = %+v", site)
	}

	if _, err := client.CreateSite(ctx, "taken", "acme-widgets"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate site id = %v, want ErrConflict", err)
	}
	if _, err := client.CreateSite(ctx, "new-site", "never-published"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unpublished foundation = %v, want ErrNotFound", err)
	}

	if err := client.TransferSiteOwnership(ctx, "acme-site-abc123", "bob@example.com"); err != nil {
		t.Errorf("TransferSiteOwnership: %v", err)
	}
}
