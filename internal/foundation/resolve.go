// SPDX-License-Identifier: MPL-2.0

package foundation

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"uniweb-cli/internal/issue"
)

// maxScanDepth bounds the workspace walk so a marker at the filesystem
// root cannot trigger a full-disk scan.
const maxScanDepth = 4

// skippedDirs are never descended into while scanning for foundations.
var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	DistDirName:    true,
	".unicloud":    true,
}

// Chooser picks one foundation directory from multiple candidates.
// The cmd layer supplies an interactive implementation; non-interactive
// contexts supply nil and get a hard failure listing the candidates.
type Chooser func(candidates []*Foundation) (*Foundation, error)

// Resolve determines the foundation to operate on:
//
//  1. If startDir itself is a foundation, it is used.
//  2. Otherwise the enclosing workspace is scanned for
//     foundation-classified packages. Exactly one candidate is used
//     silently; multiple candidates require a choice; zero is a
//     terminal, explanatory failure.
func Resolve(startDir string, choose Chooser) (*Foundation, error) {
	if f, ok := Classify(startDir); ok {
		return f, nil
	}

	root, _, err := FindWorkspaceRoot(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to locate workspace root: %w", err)
	}

	candidates, err := scanForFoundations(root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace %s: %w", root, err)
	}

	switch len(candidates) {
	case 0:
		return nil, issue.NewErrorContext().
			WithOperation("resolve foundation").
			WithResource(root).
			WithSuggestion("Run this command from inside a foundation directory").
			WithSuggestion(`Mark the project as a foundation: set "uniweb": {"type": "foundation"} in its package.json`).
			Wrap(fmt.Errorf("no foundation found in workspace")).
			BuildError()
	case 1:
		return candidates[0], nil
	}

	if choose != nil {
		return choose(candidates)
	}

	// Non-interactive: fail hard, listing every candidate and the exact
	// command to disambiguate.
	var lines []string
	for _, c := range candidates {
		lines = append(lines, fmt.Sprintf("cd %s && uniweb publish", c.Dir))
	}
	ctx := issue.NewErrorContext().
		WithOperation("resolve foundation").
		WithResource(root).
		Wrap(fmt.Errorf("%d foundations found, cannot choose automatically", len(candidates)))
	for _, line := range lines {
		ctx.WithSuggestion(line)
	}
	return nil, ctx.BuildError()
}

// scanForFoundations walks the workspace collecting foundation
// directories, sorted by path for deterministic candidate listings.
func scanForFoundations(root string) ([]*Foundation, error) {
	var found []*Foundation

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if skippedDirs[d.Name()] || (d.Name() != "." && strings.HasPrefix(d.Name(), ".") && path != root) {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(root, path)
		if err == nil && rel != "." && strings.Count(rel, string(os.PathSeparator)) >= maxScanDepth {
			return filepath.SkipDir
		}

		if f, ok := Classify(path); ok {
			found = append(found, f)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Dir < found[j].Dir })
	return found, nil
}
