package site

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"uniweb-cli/internal/registry"
)

// fakeAPI simulates the site endpoints: sites can only be created for
// published foundations, and transfers can be forced to fail.
type fakeAPI struct {
	published    map[string]bool
	sites        map[string]string // siteID -> foundation
	owners       map[string]string // siteID -> email
	createErr    error
	transferErr  error
	transferized int
}

func newFakeAPI(published ...string) *fakeAPI {
	f := &fakeAPI{
		published: map[string]bool{},
		sites:     map[string]string{},
		owners:    map[string]string{},
	}
	for _, name := range published {
		f.published[name] = true
	}
	return f
}

func (f *fakeAPI) CreateSite(_ context.Context, siteID, foundationName string) (*registry.Site, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if !f.published[foundationName] {
		return nil, fmt.Errorf("foundation %s: %w", foundationName, registry.ErrNotFound)
	}
	if _, ok := f.sites[siteID]; ok {
		return nil, fmt.Errorf("site %s: %w", siteID, registry.ErrConflict)
	}
	f.sites[siteID] = foundationName
	s := &registry.Site{ID: siteID}
	s.Foundation.Name = foundationName
	return s, nil
}

func (f *fakeAPI) TransferSiteOwnership(_ context.Context, siteID, email string) error {
	f.transferized++
	if f.transferErr != nil {
		return f.transferErr
	}
	if _, ok := f.sites[siteID]; !ok {
		return registry.ErrNotFound
	}
	f.owners[siteID] = email
	return nil
}

func TestHandoff(t *testing.T) {
	api := newFakeAPI("acme-widgets")

	result, err := Handoff(context.Background(), api, Options{
		FoundationName: "acme-widgets",
		Email:          "client@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(result.SiteID, "acme-widgets-") {
		t.Errorf("SiteID = %q, want foundation-name prefix", result.SiteID)
	}
	if api.owners[result.SiteID] != "client@example.com" {
		t.Errorf("owner = %q", api.owners[result.SiteID])
	}
	if result.Resumed {
		t.Error("fresh handoff should not be marked resumed")
	}
}

func TestHandoffUnpublishedFoundation(t *testing.T) {
	api := newFakeAPI() // nothing published

	_, err := Handoff(context.Background(), api, Options{
		FoundationName: "acme-widgets",
		Email:          "client@example.com",
	})
	if err == nil {
		t.Fatal("expected failure for unpublished foundation")
	}
	if !strings.Contains(err.Error(), "not published") {
		t.Errorf("error should say the foundation is unpublished: %v", err)
	}
	if len(api.sites) != 0 {
		t.Error("no site must exist after a failed handoff")
	}
	if api.transferized != 0 {
		t.Error("transfer must not run when creation fails")
	}
}

func TestHandoffTransferFailureNamesTheOrphanedSite(t *testing.T) {
	api := newFakeAPI("acme-widgets")
	api.transferErr = fmt.Errorf("smtp relay unavailable")

	_, err := Handoff(context.Background(), api, Options{
		FoundationName: "acme-widgets",
		Email:          "client@example.com",
		SiteID:         "acme-widgets-site1",
	})
	if err == nil {
		t.Fatal("expected failure when the transfer phase fails")
	}
	// The message must make the partial state explicit: the site exists
	// but ownership was never transferred, and re-running resumes.
	msg := err.Error()
	if !strings.Contains(msg, "acme-widgets-site1") {
		t.Errorf("error should name the orphaned site: %v", err)
	}
	if !strings.Contains(msg, "already exists") {
		t.Errorf("error should state the site already exists: %v", err)
	}
	if _, ok := api.sites["acme-widgets-site1"]; !ok {
		t.Error("the created site should remain after a transfer failure")
	}
}

func TestHandoffResumesWithExplicitSiteID(t *testing.T) {
	api := newFakeAPI("acme-widgets")
	ctx := context.Background()

	// First attempt creates the site but fails the transfer.
	api.transferErr = fmt.Errorf("smtp relay unavailable")
	if _, err := Handoff(ctx, api, Options{
		FoundationName: "acme-widgets",
		Email:          "client@example.com",
		SiteID:         "acme-widgets-site1",
	}); err == nil {
		t.Fatal("first attempt should fail")
	}

	// Re-running with the same explicit site ID skips creation.
	api.transferErr = nil
	result, err := Handoff(ctx, api, Options{
		FoundationName: "acme-widgets",
		Email:          "client@example.com",
		SiteID:         "acme-widgets-site1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Resumed {
		t.Error("second attempt should be marked resumed")
	}
	if api.owners["acme-widgets-site1"] != "client@example.com" {
		t.Errorf("owner = %q after resume", api.owners["acme-widgets-site1"])
	}
}

func TestHandoffGeneratedIDConflictIsTerminal(t *testing.T) {
	// Without an explicit site ID a conflict must not silently resume
	// into someone else's site.
	api := newFakeAPI("acme-widgets")
	api.createErr = fmt.Errorf("site exists: %w", registry.ErrConflict)

	_, err := Handoff(context.Background(), api, Options{
		FoundationName: "acme-widgets",
		Email:          "client@example.com",
	})
	if err == nil {
		t.Fatal("conflict on a generated ID must be terminal")
	}
	if api.transferized != 0 {
		t.Error("transfer must not run after a terminal creation conflict")
	}
}

func TestHandoffValidatesInput(t *testing.T) {
	api := newFakeAPI("acme-widgets")

	if _, err := Handoff(context.Background(), api, Options{Email: "client@example.com"}); err == nil {
		t.Error("missing foundation name should fail")
	}
	if _, err := Handoff(context.Background(), api, Options{FoundationName: "acme-widgets"}); err == nil {
		t.Error("missing email should fail")
	}
}

func TestGenerateSiteID(t *testing.T) {
	a := GenerateSiteID("acme-widgets")
	b := GenerateSiteID("acme-widgets")
	if a == b {
		t.Errorf("generated IDs should differ: %q vs %q", a, b)
	}
	for _, id := range []string{a, b} {
		if !strings.HasPrefix(id, "acme-widgets-") {
			t.Errorf("ID %q should carry the foundation prefix", id)
		}
		suffix := strings.TrimPrefix(id, "acme-widgets-")
		if len(suffix) != 6 {
			t.Errorf("suffix %q should be 6 characters", suffix)
		}
	}
}
