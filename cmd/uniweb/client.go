// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"uniweb-cli/internal/credentials"
	"uniweb-cli/internal/issue"
	"uniweb-cli/internal/registry"
)

// session is an authenticated remote registry client plus the identity
// behind it.
type session struct {
	Client *registry.Client
	Email  string
}

// newSession loads the stored credentials and builds a remote client.
// When the credentials are missing or expired and the terminal is
// interactive, it falls into the login prompt instead of failing.
// baseURL overrides the configured registry URL when non-empty.
func newSession(baseURL string) (*session, error) {
	creds, err := credentials.Load()
	if err != nil {
		if !errors.Is(err, credentials.ErrNotLoggedIn) && !errors.Is(err, credentials.ErrExpired) {
			return nil, err
		}
		if !isInteractive() {
			authPath, pathErr := credentials.AuthPath()
			if pathErr != nil {
				authPath = "credential store"
			}
			return nil, issue.NewErrorContext().
				WithOperation("authenticate").
				WithResource(authPath).
				WithSuggestion("Run: uniweb login").
				Wrap(err).
				BuildError()
		}
		if errors.Is(err, credentials.ErrExpired) {
			fmt.Fprintln(os.Stderr, WarningStyle.Render("Your session has expired. Please log in again."))
		} else {
			fmt.Fprintln(os.Stderr, SubtitleStyle.Render("You are not logged in."))
		}
		creds, err = runLogin("", "")
		if err != nil {
			return nil, err
		}
	}

	if baseURL == "" {
		baseURL = cfg.RegistryURL
	}
	return &session{
		Client: registry.NewClient(
			registry.WithBaseURL(baseURL),
			registry.WithToken(creds.Token),
			registry.WithUserAgent("uniweb-cli/"+Version),
		),
		Email: creds.Email,
	}, nil
}

// runLogin collects credentials (prompting for anything not supplied)
// and persists them.
func runLogin(email, token string) (*credentials.Credentials, error) {
	if email == "" || token == "" {
		if !isInteractive() {
			return nil, fmt.Errorf("login requires --email and --token when not running in a terminal")
		}
		var err error
		email, token, err = promptLogin()
		if err != nil {
			return nil, err
		}
	}

	creds := &credentials.Credentials{
		Token:     token,
		Email:     email,
		ExpiresAt: time.Now().Add(credentials.DefaultTTL),
	}
	if err := credentials.Save(creds); err != nil {
		return nil, err
	}
	return creds, nil
}
