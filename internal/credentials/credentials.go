// SPDX-License-Identifier: MPL-2.0

// Package credentials persists the registry bearer token and account
// email to a user-global location. The credential is user-global rather
// than workspace-scoped so publishing and inviting act on behalf of a
// person, not a project. It is loaded once at process start and passed
// explicitly to every remote call site.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// authDirName is the user-global directory holding the credential file.
	authDirName = ".uniweb"
	// authFileName is the credential file name.
	authFileName = "auth.json"

	// DefaultTTL is how long a freshly saved credential stays valid.
	DefaultTTL = 30 * 24 * time.Hour
)

var (
	// ErrNotLoggedIn is returned when no credential file exists.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrExpired is returned when the stored credential is past its expiry.
	ErrExpired = errors.New("credentials expired")
)

// authPathOverride lets tests redirect the credential file away from the
// real home directory.
var authPathOverride string

// SetAuthPathOverride overrides the credential file path. Pass "" to restore
// the default. Intended for tests.
func SetAuthPathOverride(path string) {
	authPathOverride = path
}

// Credentials is the process-wide authentication context for remote
// registry operations.
type Credentials struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the credential has a token and is not expired at
// the given instant.
func (c *Credentials) Valid(now time.Time) bool {
	return c != nil && c.Token != "" && now.Before(c.ExpiresAt)
}

// AuthPath returns the path of the credential file (~/.uniweb/auth.json).
func AuthPath() (string, error) {
	if authPathOverride != "" {
		return authPathOverride, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, authDirName, authFileName), nil
}

// Load reads the stored credential. Returns ErrNotLoggedIn when no
// credential file exists and ErrExpired when the credential is past its
// expiry (the expired credential is still returned alongside the error so
// callers can mention the account in their guidance).
func Load() (*Credentials, error) {
	path, err := AuthPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse credential file %s: %w", path, err)
	}

	if !c.Valid(time.Now()) {
		return &c, ErrExpired
	}

	return &c, nil
}

// Save persists the credential, creating the parent directory if needed.
// The file is written with 0600 since it holds a bearer token.
func Save(c *Credentials) error {
	path, err := AuthPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}

	return nil
}

// Delete removes the stored credential. Deleting an absent credential is
// not an error.
func Delete() error {
	path, err := AuthPath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}
