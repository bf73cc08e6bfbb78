// SPDX-License-Identifier: MPL-2.0

// Package invite manages the time-bound, multi-use access grants that
// let a specific email consume a foundation's major version. Invites
// are remote-only; the manager wraps the registry client and derives
// display status from the persisted counters, never storing it.
package invite

import (
	"context"
	"fmt"
	"time"

	"uniweb-cli/internal/issue"
	"uniweb-cli/internal/registry"
	"uniweb-cli/pkg/semver"
)

// Defaults applied when the caller does not specify them.
const (
	DefaultMaxUses       = 1
	DefaultExpiresInDays = 30
)

// Status is the derived display state of an invite.
type Status string

const (
	// StatusActive means the invite can still be redeemed.
	StatusActive Status = "active"
	// StatusRevoked means the owner explicitly revoked the invite.
	// Terminal.
	StatusRevoked Status = "revoked"
	// StatusExpired means the expiry passed without revocation.
	StatusExpired Status = "expired"
	// StatusExhausted means every use was redeemed.
	StatusExhausted Status = "exhausted"
)

// StatusOf computes the display status from the persisted fields.
// Keeping this a pure function over UsedCount, MaxUses, ExpiresAt, and
// Revoked avoids storage/derivation drift. Explicit revocation wins
// over natural expiry or exhaustion.
func StatusOf(inv registry.Invite, now time.Time) Status {
	switch {
	case inv.Revoked:
		return StatusRevoked
	case inv.MaxUses > 0 && inv.UsedCount >= inv.MaxUses:
		return StatusExhausted
	case !inv.ExpiresAt.IsZero() && !now.Before(inv.ExpiresAt):
		return StatusExpired
	default:
		return StatusActive
	}
}

// Annotated pairs an invite with its derived status for display.
type Annotated struct {
	registry.Invite
	Status Status
}

// API is the slice of the registry client the manager depends on.
type API interface {
	CreateInvite(ctx context.Context, foundation string, req registry.CreateInviteRequest) (*registry.Invite, error)
	ListInvites(ctx context.Context, foundation string) ([]registry.Invite, error)
	RevokeInvite(ctx context.Context, foundation, inviteID string) (string, error)
	ResendInvite(ctx context.Context, foundation, inviteID string) (string, error)
	Versions(ctx context.Context, name string) ([]string, error)
}

// Manager runs the invite operations for one foundation.
type Manager struct {
	Client API
}

// CreateOptions configures a new invite. MajorVersion 0 means "infer
// from the currently published versions".
type CreateOptions struct {
	Email         string
	MajorVersion  int
	MaxUses       int
	ExpiresInDays int
}

// Create creates an invite, inferring the major version from the
// highest published version when not explicit. A foundation with no
// published version and no explicit major is a terminal failure.
func (m *Manager) Create(ctx context.Context, foundationName string, opts CreateOptions) (*Annotated, error) {
	if opts.Email == "" {
		return nil, fmt.Errorf("invite email is required")
	}
	if opts.MaxUses <= 0 {
		opts.MaxUses = DefaultMaxUses
	}
	if opts.ExpiresInDays <= 0 {
		opts.ExpiresInDays = DefaultExpiresInDays
	}

	if opts.MajorVersion <= 0 {
		major, err := m.inferMajorVersion(ctx, foundationName)
		if err != nil {
			return nil, err
		}
		opts.MajorVersion = major
	}

	inv, err := m.Client.CreateInvite(ctx, foundationName, registry.CreateInviteRequest{
		Email:         opts.Email,
		MajorVersion:  opts.MajorVersion,
		MaxUses:       opts.MaxUses,
		ExpiresInDays: opts.ExpiresInDays,
	})
	if err != nil {
		return nil, err
	}

	return &Annotated{Invite: *inv, Status: StatusOf(*inv, time.Now())}, nil
}

// List returns every invite for the foundation annotated with its
// derived status. An empty result is not an error.
func (m *Manager) List(ctx context.Context, foundationName string) ([]Annotated, error) {
	invites, err := m.Client.ListInvites(ctx, foundationName)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	annotated := make([]Annotated, 0, len(invites))
	for _, inv := range invites {
		annotated = append(annotated, Annotated{Invite: inv, Status: StatusOf(inv, now)})
	}
	return annotated, nil
}

// Revoke explicitly revokes an invite and returns the grantee email for
// confirmation messaging. Revoking an already-revoked or already-expired
// invite still succeeds.
func (m *Manager) Revoke(ctx context.Context, foundationName, inviteID string) (string, error) {
	return m.Client.RevokeInvite(ctx, foundationName, inviteID)
}

// Resend re-delivers an existing grant and returns the grantee email.
// Delivery is external; use count and expiry are untouched.
func (m *Manager) Resend(ctx context.Context, foundationName, inviteID string) (string, error) {
	return m.Client.ResendInvite(ctx, foundationName, inviteID)
}

// inferMajorVersion derives the default major version from the highest
// published version of the foundation.
func (m *Manager) inferMajorVersion(ctx context.Context, foundationName string) (int, error) {
	versions, err := m.Client.Versions(ctx, foundationName)
	if err != nil {
		return 0, err
	}

	highest, err := semver.Highest(versions)
	if err != nil {
		return 0, issue.NewErrorContext().
			WithOperation("infer invite major version").
			WithResource(foundationName).
			WithSuggestion("Publish the foundation first: uniweb publish").
			WithSuggestion("Or pass the major version explicitly: uniweb invite <email> --major <N>").
			Wrap(fmt.Errorf("foundation has no published version to infer from")).
			BuildError()
	}
	return semver.Major(highest)
}
