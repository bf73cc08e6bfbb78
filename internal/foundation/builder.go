// SPDX-License-Identifier: MPL-2.0

package foundation

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Builder produces a foundation's dist/ artifact. The real build
// pipeline is an external collaborator; this interface is all the
// publish flow depends on.
type Builder interface {
	Build(ctx context.Context, f *Foundation) error
}

// ExecBuilder runs the foundation's build through an external command
// (by default the package script the build pipeline installs).
type ExecBuilder struct {
	// Command is the build invocation, e.g. ["npm", "run", "build"].
	Command []string
}

// DefaultBuilder returns the standard external build invocation.
func DefaultBuilder() *ExecBuilder {
	return &ExecBuilder{Command: []string{"npm", "run", "build"}}
}

// Build runs the build command in the foundation directory, streaming
// its output to the terminal. The command's failure is surfaced as-is;
// the build is never retried.
func (b *ExecBuilder) Build(ctx context.Context, f *Foundation) error {
	if len(b.Command) == 0 {
		return fmt.Errorf("no build command configured")
	}

	cmd := exec.CommandContext(ctx, b.Command[0], b.Command[1:]...)
	cmd.Dir = f.Dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build command %q failed: %w", b.Command[0], err)
	}
	return nil
}
