// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Invite is the wire representation of an access grant scoping a
// foundation's major version to an email address. Only the fields below
// are persisted server-side; display status (active, revoked, expired,
// exhausted) is derived at read time from UsedCount, MaxUses, ExpiresAt,
// and Revoked.
type Invite struct {
	ID             string    `json:"inviteId"`
	Email          string    `json:"email"`
	FoundationName string    `json:"foundationName"`
	MajorVersion   int       `json:"majorVersion"`
	MaxUses        int       `json:"maxUses"`
	UsedCount      int       `json:"usedCount"`
	ExpiresAt      time.Time `json:"expiresAt"`
	Revoked        bool      `json:"revoked"`
}

// CreateInviteRequest carries the parameters for a new invite.
type CreateInviteRequest struct {
	Email         string `json:"email"`
	MajorVersion  int    `json:"majorVersion"`
	MaxUses       int    `json:"maxUses"`
	ExpiresInDays int    `json:"expiresInDays"`
}

// CreateInvite creates a new invite for the foundation.
func (c *Client) CreateInvite(ctx context.Context, foundation string, req CreateInviteRequest) (*Invite, error) {
	path := fmt.Sprintf("/api/foundations/%s/invites", url.PathEscape(foundation))
	resp, err := c.postJSON(ctx, path, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, fmt.Sprintf("create invite for %s", req.Email))
	}

	var inv Invite
	if err := decodeJSON(resp.Body, &inv); err != nil {
		return nil, fmt.Errorf("creating invite: decoding response: %w", err)
	}
	return &inv, nil
}

// ListInvites returns every invite for the foundation regardless of
// status. An empty result is not an error.
func (c *Client) ListInvites(ctx context.Context, foundation string) ([]Invite, error) {
	path := fmt.Sprintf("/api/foundations/%s/invites", url.PathEscape(foundation))
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, fmt.Sprintf("list invites for %s", foundation))
	}

	var body struct {
		Invites []Invite `json:"invites"`
	}
	if err := decodeJSON(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("listing invites: decoding response: %w", err)
	}
	return body.Invites, nil
}

// RevokeInvite explicitly revokes an invite and returns the grantee
// email for confirmation messaging. Revoking an already-revoked invite
// succeeds; explicit revocation is never blocked by prior natural
// expiry.
func (c *Client) RevokeInvite(ctx context.Context, foundation, inviteID string) (string, error) {
	path := fmt.Sprintf("/api/foundations/%s/invites/%s/revoke", url.PathEscape(foundation), url.PathEscape(inviteID))
	resp, err := c.postJSON(ctx, path, struct{}{})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp, fmt.Sprintf("revoke invite %s", inviteID))
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(resp.Body, &body); err != nil {
		return "", fmt.Errorf("revoking invite: decoding response: %w", err)
	}
	return body.Email, nil
}

// ResendInvite re-delivers an existing grant without resetting its use
// count or expiry, and returns the grantee email.
func (c *Client) ResendInvite(ctx context.Context, foundation, inviteID string) (string, error) {
	path := fmt.Sprintf("/api/foundations/%s/invites/%s/resend", url.PathEscape(foundation), url.PathEscape(inviteID))
	resp, err := c.postJSON(ctx, path, struct{}{})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp, fmt.Sprintf("resend invite %s", inviteID))
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(resp.Body, &body); err != nil {
		return "", fmt.Errorf("resending invite: decoding response: %w", err)
	}
	return body.Email, nil
}
