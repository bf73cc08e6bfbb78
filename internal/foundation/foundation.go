// SPDX-License-Identifier: MPL-2.0

// Package foundation resolves which foundation project a command acts
// on and reads its build schema. A foundation is a directory whose
// package.json declares the foundation type; the enclosing workspace is
// found by walking up from the current directory to the nearest
// workspace marker.
package foundation

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	// DistDirName is the build output directory produced by the external
	// build pipeline.
	DistDirName = "dist"
	// SchemaFileName is the machine-readable schema emitted into dist/.
	SchemaFileName = "schema.json"

	packageFileName = "package.json"
)

// Foundation is a resolved foundation project directory.
type Foundation struct {
	// Dir is the absolute path of the foundation directory.
	Dir string
	// PackageName is the name field of the directory's package.json,
	// used for listing candidates. The authoritative published name comes
	// from the build schema.
	PackageName string
}

// DistDir returns the build output directory of the foundation.
func (f *Foundation) DistDir() string {
	return filepath.Join(f.Dir, DistDirName)
}

// SchemaPath returns the path of the build schema file.
func (f *Foundation) SchemaPath() string {
	return filepath.Join(f.DistDir(), SchemaFileName)
}

// HasArtifact reports whether a build artifact (dist/ with a schema
// file) is present.
func (f *Foundation) HasArtifact() bool {
	info, err := os.Stat(f.SchemaPath())
	return err == nil && !info.IsDir()
}

// packageManifest is the subset of package.json the CLI inspects.
type packageManifest struct {
	Name   string `json:"name"`
	Uniweb struct {
		Type string `json:"type"`
	} `json:"uniweb"`
}

// readManifest reads a directory's package.json. Returns nil without an
// error when the file does not exist.
func readManifest(dir string) (*packageManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, packageFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var m packageManifest
	if err := json.Unmarshal(data, &m); err != nil {
		// A malformed package.json means the directory is not classifiable
		// as a foundation; it is not this tool's job to lint it.
		return nil, nil
	}
	return &m, nil
}

// Classify checks whether the directory is a foundation and returns it
// if so.
func Classify(dir string) (*Foundation, bool) {
	m, err := readManifest(dir)
	if err != nil || m == nil {
		return nil, false
	}
	if m.Uniweb.Type != "foundation" {
		return nil, false
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, false
	}
	return &Foundation{Dir: abs, PackageName: m.Name}, true
}
