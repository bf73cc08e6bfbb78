// SPDX-License-Identifier: MPL-2.0

// Package site hands a foundation off to a client as a licensed site.
// A handoff is two remote calls: create the site bound to the
// foundation, then transfer ownership to the client email. The two
// phases are not atomic, so a phase-two failure reports exactly what
// state was left behind and how to resume.
package site

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"uniweb-cli/internal/issue"
	"uniweb-cli/internal/registry"
)

// API is the slice of the registry client the handoff depends on.
type API interface {
	CreateSite(ctx context.Context, siteID, foundationName string) (*registry.Site, error)
	TransferSiteOwnership(ctx context.Context, siteID, email string) error
}

// Options configures one handoff.
type Options struct {
	// FoundationName is the published foundation the site is bound to.
	FoundationName string
	// Email is the client who receives ownership.
	Email string
	// SiteID is the identifier for the new site. Empty means generate
	// one from the foundation name. An explicit ID also makes the
	// handoff resumable: if the site already exists, creation is skipped
	// and the transfer proceeds.
	SiteID string
}

// Result describes a completed handoff.
type Result struct {
	SiteID         string
	FoundationName string
	Email          string
	// Resumed is true when the site already existed and only the
	// ownership transfer ran.
	Resumed bool
}

// Handoff runs the two-phase site handoff.
func Handoff(ctx context.Context, client API, opts Options) (*Result, error) {
	if opts.FoundationName == "" {
		return nil, fmt.Errorf("foundation name is required")
	}
	if opts.Email == "" {
		return nil, fmt.Errorf("client email is required")
	}

	explicitID := opts.SiteID != ""
	siteID := opts.SiteID
	if siteID == "" {
		siteID = GenerateSiteID(opts.FoundationName)
	}

	result := &Result{
		SiteID:         siteID,
		FoundationName: opts.FoundationName,
		Email:          opts.Email,
	}

	_, err := client.CreateSite(ctx, siteID, opts.FoundationName)
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrNotFound):
		return nil, issue.NewErrorContext().
			WithOperation("create site").
			WithResource(opts.FoundationName).
			WithSuggestion("Publish the foundation first: uniweb publish").
			Wrap(fmt.Errorf("foundation is not published: %w", err)).
			BuildError()
	case errors.Is(err, registry.ErrConflict) && explicitID:
		// The site exists from an earlier attempt; resume at the
		// ownership transfer.
		result.Resumed = true
	default:
		return nil, issue.NewErrorContext().
			WithOperation("create site").
			WithResource(siteID).
			Wrap(err).
			BuildError()
	}

	if err := client.TransferSiteOwnership(ctx, siteID, opts.Email); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("transfer site ownership").
			WithResource(siteID).
			WithSuggestion(fmt.Sprintf("The site %s already exists; do not create it again", siteID)).
			WithSuggestion(fmt.Sprintf("Resume the transfer with: uniweb handoff %s --foundation %s --site %s",
				opts.Email, opts.FoundationName, siteID)).
			Wrap(err).
			BuildError()
	}

	return result, nil
}

// GenerateSiteID derives a default site identifier from the foundation
// name plus a short random suffix to keep repeated handoffs distinct.
func GenerateSiteID(foundationName string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%s", foundationName, suffix)
}
