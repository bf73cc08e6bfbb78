// SPDX-License-Identifier: MPL-2.0

// Package registry implements the foundation package stores: a
// filesystem-backed local store for single-machine development and an
// HTTP client for the hosted registry service. Both satisfy the Store
// contract, so the publish, invite, and handoff flows depend only on
// the interface and are selected by a runtime flag.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Edit access policies a published package may declare.
const (
	EditAccessOpen       = "open"
	EditAccessRestricted = "restricted"
)

var (
	// ErrConflict is returned when a (name, version) pair is already
	// published. Published packages are immutable; the only way forward is
	// a new version.
	ErrConflict = errors.New("package version already published")

	// ErrUnauthorized is returned when the registry rejects the bearer
	// token (missing, invalid, or expired).
	ErrUnauthorized = errors.New("registry rejected credentials")

	// ErrNotFound is returned for unknown foundations, invites, or sites.
	ErrNotFound = errors.New("not found")
)

// TransportError wraps a network-level failure and records the target
// URL so the operator can check the service is actually running.
type TransportError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("registry unreachable at %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Record is the metadata stored for one published package version.
// Published records are append-only and never mutated.
type Record struct {
	PublishedAt time.Time `json:"publishedAt"`
	PublishedBy string    `json:"publishedBy"`
	EditAccess  string    `json:"editAccess,omitempty"`
}

// PackageVersions holds every published version record for one package
// name.
type PackageVersions struct {
	Versions map[string]Record `json:"versions"`
}

// Index maps package names to their published version records. It is
// owned exclusively by the store that created it: read and appended to,
// never otherwise mutated.
type Index map[string]PackageVersions

// VersionsOf returns the version strings published for a name.
func (idx Index) VersionsOf(name string) []string {
	pkg, ok := idx[name]
	if !ok {
		return nil
	}
	versions := make([]string, 0, len(pkg.Versions))
	for v := range pkg.Versions {
		versions = append(versions, v)
	}
	return versions
}

// Has reports whether the index holds a record for the exact pair.
func (idx Index) Has(name, version string) bool {
	pkg, ok := idx[name]
	if !ok {
		return false
	}
	_, ok = pkg.Versions[version]
	return ok
}

// Add appends a version record, creating the package entry if needed.
func (idx Index) Add(name, version string, rec Record) {
	pkg, ok := idx[name]
	if !ok {
		pkg = PackageVersions{Versions: map[string]Record{}}
	}
	if pkg.Versions == nil {
		pkg.Versions = map[string]Record{}
	}
	pkg.Versions[version] = rec
	idx[name] = pkg
}

// PublishRequest carries everything a store needs to publish one
// package version.
type PublishRequest struct {
	// Name is the package name, possibly scoped (e.g. "@acme/widgets").
	Name string
	// Version is the exact semver string being published.
	Version string
	// ArtifactDir is the built dist/ directory copied verbatim into the
	// store.
	ArtifactDir string
	// Meta is the version record persisted alongside the artifact.
	Meta Record
}

// Store is the package store contract shared by the local and remote
// backends.
type Store interface {
	// Exists reports whether the exact (name, version) pair is published.
	// A network or parse failure is an error, never "false".
	Exists(ctx context.Context, name, version string) (bool, error)

	// Publish copies the artifact into the store and records the version.
	// Returns ErrConflict when the pair is already published.
	Publish(ctx context.Context, req PublishRequest) error

	// Versions lists the published version strings for a name. An unknown
	// name yields an empty slice, not an error.
	Versions(ctx context.Context, name string) ([]string, error)
}

// SanitizeName rewrites the scope separator of a package name into a
// filesystem-safe flat token: "@acme/widgets" becomes "@acme__widgets".
// The mapping is deterministic and collision-free because "__" never
// appears in valid package names. It is applied at the naming level
// only; nothing reverses it in code.
func SanitizeName(name string) string {
	return strings.ReplaceAll(name, "/", "__")
}
