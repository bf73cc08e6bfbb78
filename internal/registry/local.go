// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// registryDirName is the on-disk registry location under the workspace
	// root.
	registryDirName = ".unicloud/registry"
	// indexFileName is the registry index file.
	indexFileName = "index.json"
	// packagesDirName holds the published artifact trees.
	packagesDirName = "packages"
)

// LocalStore is a filesystem-backed package store rooted at
// <workspace>/.unicloud/registry. Artifacts land under
// packages/<sanitized-name>/<version>/ and the index survives process
// restarts.
//
// Publishing stages the artifact copy in a temporary sibling directory
// and renames it into place before the index write, so a serve-triggered
// read or an interrupted process never observes a half-written artifact.
// The index itself is replaced via write-to-temp-then-rename. There is
// no cross-process lock on the index: two concurrent CLI publishes of
// the same package can still race on the read-modify-write.
type LocalStore struct {
	root string
}

// NewLocalStore creates a local store under the given workspace root.
// Nothing is created on disk until the first publish.
func NewLocalStore(workspaceRoot string) *LocalStore {
	return &LocalStore{root: filepath.Join(workspaceRoot, filepath.FromSlash(registryDirName))}
}

// Root returns the registry root directory.
func (s *LocalStore) Root() string {
	return s.root
}

// IndexPath returns the path of the registry index file.
func (s *LocalStore) IndexPath() string {
	return filepath.Join(s.root, indexFileName)
}

// PackageDir returns the on-disk directory for one published version.
func (s *LocalStore) PackageDir(name, version string) string {
	return filepath.Join(s.root, packagesDirName, SanitizeName(name), version)
}

// LoadIndex reads the registry index. A missing index file yields an
// empty index, not an error.
func (s *LocalStore) LoadIndex() (Index, error) {
	data, err := os.ReadFile(s.IndexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return Index{}, nil
		}
		return nil, fmt.Errorf("failed to read registry index: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse registry index %s: %w", s.IndexPath(), err)
	}
	return idx, nil
}

// saveIndex persists the index with a copy-on-write replace: the new
// content is written to a temporary file and renamed over the old index.
func (s *LocalStore) saveIndex(idx Index) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry index: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, indexFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary index file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write registry index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary index file: %w", err)
	}

	if err := os.Rename(tmpPath, s.IndexPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace registry index: %w", err)
	}
	return nil
}

// Exists reports whether the index has a record for the exact pair.
func (s *LocalStore) Exists(_ context.Context, name, version string) (bool, error) {
	idx, err := s.LoadIndex()
	if err != nil {
		return false, err
	}
	return idx.Has(name, version), nil
}

// Versions lists the published versions for a name.
func (s *LocalStore) Versions(_ context.Context, name string) ([]string, error) {
	idx, err := s.LoadIndex()
	if err != nil {
		return nil, err
	}
	return idx.VersionsOf(name), nil
}

// Publish copies the artifact directory into its per-name/per-version
// slot and appends a record to the index. The copy is staged in a
// temporary sibling directory and atomically renamed into place; only
// then is the index updated, keeping the index authoritative even if
// the process dies mid-copy.
func (s *LocalStore) Publish(_ context.Context, req PublishRequest) error {
	idx, err := s.LoadIndex()
	if err != nil {
		return err
	}
	if idx.Has(req.Name, req.Version) {
		return fmt.Errorf("%s@%s: %w", req.Name, req.Version, ErrConflict)
	}

	dest := s.PackageDir(req.Name, req.Version)
	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create package directory: %w", err)
	}

	// The index has no record for this pair, so an artifact already at
	// dest is a leftover from a publish that died between the rename and
	// the index write. The index is authoritative; replace the leftover
	// so the retry succeeds.
	if _, err := os.Stat(dest); err == nil {
		if err := os.RemoveAll(dest); err != nil {
			return fmt.Errorf("failed to clear leftover artifact: %w", err)
		}
	}

	stage, err := os.MkdirTemp(parent, "."+req.Version+"-stage-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	if err := copyDir(req.ArtifactDir, stage); err != nil {
		os.RemoveAll(stage)
		return fmt.Errorf("failed to copy artifact: %w", err)
	}

	if err := os.Rename(stage, dest); err != nil {
		os.RemoveAll(stage)
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}

	idx.Add(req.Name, req.Version, req.Meta)
	if err := s.saveIndex(idx); err != nil {
		return err
	}
	return nil
}

// copyDir copies a directory tree verbatim, preserving file modes.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		target := filepath.Join(dst, relPath)

		if d.IsDir() {
			if relPath == "." {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

// copyFile copies a single file with the given permissions.
func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
