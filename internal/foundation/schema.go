// SPDX-License-Identifier: MPL-2.0

package foundation

import (
	"encoding/json"
	"fmt"
	"os"

	"uniweb-cli/internal/issue"
)

// Schema is the machine-readable description the build pipeline emits
// into dist/schema.json. Name and version are the publish coordinate;
// both are required.
type Schema struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ReadSchema reads and validates the foundation's build schema. A
// missing name or version is a terminal configuration error naming the
// exact missing field.
func ReadSchema(f *Foundation) (*Schema, error) {
	path := f.SchemaPath()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("read build schema").
			WithResource(path).
			WithSuggestion("Build the foundation first so dist/schema.json exists").
			Wrap(err).
			BuildError()
	}

	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("read build schema").
			WithResource(path).
			WithSuggestion("Rebuild the foundation; the schema file is not valid JSON").
			Wrap(err).
			BuildError()
	}

	required := []struct {
		field string
		value string
	}{
		{"name", s.Name},
		{"version", s.Version},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, issue.NewErrorContext().
				WithOperation("read build schema").
				WithResource(path).
				WithSuggestion(fmt.Sprintf("Add the %q field to the foundation configuration and rebuild", r.field)).
				Wrap(fmt.Errorf("schema is missing required field %q", r.field)).
				BuildError()
		}
	}

	return &s, nil
}
