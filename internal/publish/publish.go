// SPDX-License-Identifier: MPL-2.0

// Package publish turns "I am standing in (or near) a foundation
// project" into a deduplicated registry entry. It resolves the target
// foundation, ensures a build artifact exists, reads the publish
// coordinate from the schema, and delegates to whichever package store
// the caller selected.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"uniweb-cli/internal/foundation"
	"uniweb-cli/internal/issue"
	"uniweb-cli/internal/registry"
	"uniweb-cli/pkg/semver"
)

// Options configures one publish run.
type Options struct {
	// StartDir is where foundation resolution begins (usually the current
	// directory).
	StartDir string
	// Chooser disambiguates between multiple foundation candidates; nil
	// means non-interactive and multiple candidates fail hard.
	Chooser foundation.Chooser
	// PublishedBy is the identity recorded on the version: the credential
	// email for remote publishes, "local" for local ones.
	PublishedBy string
	// EditAccess is the optional edit access policy ("open"/"restricted"),
	// propagated opaquely to the store.
	EditAccess string
	// DryRun stops before any mutating call and reports the intended
	// action instead.
	DryRun bool
}

// Result describes a completed (or dry-run) publish.
type Result struct {
	Foundation *foundation.Foundation
	Name       string
	Version    string
	DryRun     bool
}

// Coordinate returns the published name@version pair.
func (r *Result) Coordinate() string {
	return r.Name + "@" + r.Version
}

// Orchestrator wires the publish flow to a package store and a build
// collaborator.
type Orchestrator struct {
	Store   registry.Store
	Builder foundation.Builder
}

// Run executes the publish flow. Failures are terminal and carry
// corrective guidance; nothing is retried.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	f, err := foundation.Resolve(opts.StartDir, opts.Chooser)
	if err != nil {
		return nil, err
	}

	if err := o.ensureArtifact(ctx, f); err != nil {
		return nil, err
	}

	schema, err := foundation.ReadSchema(f)
	if err != nil {
		return nil, err
	}

	exists, err := o.Store.Exists(ctx, schema.Name, schema.Version)
	if err != nil {
		return nil, existsError(schema.Name, err)
	}
	if exists {
		return nil, o.conflictError(schema)
	}

	result := &Result{
		Foundation: f,
		Name:       schema.Name,
		Version:    schema.Version,
		DryRun:     opts.DryRun,
	}
	if opts.DryRun {
		return result, nil
	}

	req := registry.PublishRequest{
		Name:        schema.Name,
		Version:     schema.Version,
		ArtifactDir: f.DistDir(),
		Meta: registry.Record{
			PublishedAt: time.Now().UTC(),
			PublishedBy: opts.PublishedBy,
			EditAccess:  opts.EditAccess,
		},
	}
	if err := o.Store.Publish(ctx, req); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("publish foundation").
			WithResource(result.Coordinate()).
			Wrap(err).
			BuildError()
	}

	return result, nil
}

// existsError wraps a failed published-versions check. The reachability
// hint is reserved for transport failures; an auth rejection or a parse
// failure must not be misread as a network problem.
func existsError(name string, err error) error {
	ctx := issue.NewErrorContext().
		WithOperation("check published versions").
		WithResource(name).
		Wrap(err)

	var te *registry.TransportError
	if errors.As(err, &te) {
		ctx.WithSuggestion("Check that the registry service is reachable")
	}
	return ctx.BuildError()
}

// ensureArtifact triggers the external build when the artifact is
// missing and fails hard if it is still absent afterwards. The build is
// never retried.
func (o *Orchestrator) ensureArtifact(ctx context.Context, f *foundation.Foundation) error {
	if f.HasArtifact() {
		return nil
	}

	if o.Builder == nil {
		return issue.NewErrorContext().
			WithOperation("locate build artifact").
			WithResource(f.SchemaPath()).
			WithSuggestion("Build the foundation before publishing").
			Wrap(fmt.Errorf("no build artifact and no builder configured")).
			BuildError()
	}

	if err := o.Builder.Build(ctx, f); err != nil {
		return issue.WrapWithOperation(err, "build foundation")
	}

	if !f.HasArtifact() {
		return issue.NewErrorContext().
			WithOperation("locate build artifact").
			WithResource(f.SchemaPath()).
			WithSuggestion("Check the build output; it must produce dist/schema.json").
			Wrap(fmt.Errorf("build completed but produced no schema")).
			BuildError()
	}
	return nil
}

// conflictError builds the duplicate-publish failure, suggesting the
// next patch version when the current one parses.
func (o *Orchestrator) conflictError(schema *foundation.Schema) error {
	ctx := issue.NewErrorContext().
		WithOperation("publish foundation").
		WithResource(schema.Name + "@" + schema.Version).
		Wrap(fmt.Errorf("%s@%s: %w", schema.Name, schema.Version, registry.ErrConflict))

	if next, err := semver.NextPatch(schema.Version); err == nil {
		ctx.WithSuggestion(fmt.Sprintf("Bump the version to %s and publish again", next))
	} else {
		ctx.WithSuggestion("Bump the version and publish again")
	}
	return ctx.BuildError()
}
