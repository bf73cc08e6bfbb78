// SPDX-License-Identifier: MPL-2.0

package foundation

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// workspaceMarkers are the files whose presence marks a directory as a
// workspace root. A package.json only counts when it declares a
// workspaces field.
var workspaceMarkers = []string{"pnpm-workspace.yaml", "uniweb.workspace.json"}

// FindWorkspaceRoot walks up from startDir looking for the nearest
// workspace marker. When no marker is found, startDir itself is
// returned with found=false so single-project setups still get a local
// registry root.
func FindWorkspaceRoot(startDir string) (root string, found bool, err error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, err
	}
	start := dir

	for {
		if isWorkspaceRoot(dir) {
			return dir, true, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return start, false, nil
		}
		dir = parent
	}
}

// isWorkspaceRoot checks the directory for a workspace marker.
func isWorkspaceRoot(dir string) bool {
	for _, marker := range workspaceMarkers {
		if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && !info.IsDir() {
			return true
		}
	}

	// package.json with a workspaces field also marks a root.
	data, err := os.ReadFile(filepath.Join(dir, packageFileName))
	if err != nil {
		return false
	}
	var m struct {
		Workspaces json.RawMessage `json:"workspaces"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return false
	}
	return len(m.Workspaces) > 0
}
