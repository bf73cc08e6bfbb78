// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Site is the wire representation of a deployable instance bound to one
// published foundation.
type Site struct {
	ID         string `json:"siteId"`
	Foundation struct {
		Name string `json:"name"`
	} `json:"foundation"`
	Owner    string `json:"owner"`
	Licensed bool   `json:"license"`
}

// CreateSite creates a site record bound to an already-published
// foundation. Returns ErrConflict when the site id is taken and
// ErrNotFound when the foundation has no published version.
func (c *Client) CreateSite(ctx context.Context, siteID, foundationName string) (*Site, error) {
	payload := struct {
		SiteID     string `json:"siteId"`
		Foundation struct {
			Name string `json:"name"`
		} `json:"foundation"`
	}{SiteID: siteID}
	payload.Foundation.Name = foundationName

	resp, err := c.postJSON(ctx, "/api/sites", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, fmt.Sprintf("create site %s", siteID))
	}

	var site Site
	if err := decodeJSON(resp.Body, &site); err != nil {
		return nil, fmt.Errorf("creating site: decoding response: %w", err)
	}
	return &site, nil
}

// TransferSiteOwnership transfers the site to the target email.
func (c *Client) TransferSiteOwnership(ctx context.Context, siteID, email string) error {
	path := fmt.Sprintf("/api/sites/%s/transfer", url.PathEscape(siteID))
	payload := struct {
		Email string `json:"email"`
	}{Email: email}

	resp, err := c.postJSON(ctx, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp, fmt.Sprintf("transfer ownership of site %s", siteID))
	}
	return nil
}
