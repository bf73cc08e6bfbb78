// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"uniweb-cli/internal/foundation"
)

// resolveFoundationName determines which foundation a command acts on.
// An explicit flag wins; otherwise the foundation is resolved from the
// current directory. The published name lives in the built schema, so
// it is preferred over the manifest name when an artifact exists.
func resolveFoundationName(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	var chooser foundation.Chooser
	if isInteractive() {
		chooser = chooseFoundation
	}
	f, err := foundation.Resolve(cwd, chooser)
	if err != nil {
		return "", err
	}

	if f.HasArtifact() {
		schema, err := foundation.ReadSchema(f)
		if err == nil {
			return schema.Name, nil
		}
	}
	return f.PackageName, nil
}
