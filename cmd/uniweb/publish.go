// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"uniweb-cli/internal/foundation"
	"uniweb-cli/internal/publish"
	"uniweb-cli/internal/registry"
)

var (
	publishLocal      bool
	publishRegistry   string
	publishEditAccess string
	publishDryRun     bool

	publishCmd = &cobra.Command{
		Use:   "publish",
		Short: "Publish the current foundation",
		Long: `Publish the foundation in (or below) the current directory.

The foundation is built if no artifact exists yet, then its dist/ tree
is published under the name and version from dist/schema.json. Versions
are immutable: publishing an existing version fails and suggests the
next patch version instead.

By default the foundation goes to the hosted registry; --local targets
the workspace registry under .unicloud/registry for offline work.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runPublish(cmd.Context())
			if err != nil {
				return fail(err)
			}

			target := "hosted registry"
			if publishLocal {
				target = "local registry"
			}
			if result.DryRun {
				fmt.Println(SubtitleStyle.Render("dry run:") + " would publish " +
					CmdStyle.Render(result.Coordinate()) + " to the " + target)
				return nil
			}
			fmt.Println(SuccessStyle.Render("✓") + " Published " +
				CmdStyle.Render(result.Coordinate()) + " to the " + target)
			return nil
		},
	}
)

func init() {
	publishCmd.Flags().BoolVar(&publishLocal, "local", false, "publish to the workspace registry instead of the hosted one")
	publishCmd.Flags().StringVar(&publishRegistry, "registry", "", "registry base URL (defaults to the configured one)")
	publishCmd.Flags().StringVar(&publishEditAccess, "edit-access", "", "edit access policy for the published version (open|restricted)")
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "report what would be published without publishing")
}

func runPublish(ctx context.Context) (*publish.Result, error) {
	if publishEditAccess != "" &&
		publishEditAccess != registry.EditAccessOpen &&
		publishEditAccess != registry.EditAccessRestricted {
		return nil, fmt.Errorf("invalid --edit-access %q: must be %q or %q",
			publishEditAccess, registry.EditAccessOpen, registry.EditAccessRestricted)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	opts := publish.Options{
		StartDir:    cwd,
		EditAccess:  publishEditAccess,
		DryRun:      publishDryRun,
		PublishedBy: "local",
	}
	if isInteractive() {
		opts.Chooser = chooseFoundation
	}

	var store registry.Store
	if publishLocal {
		root, _, err := foundation.FindWorkspaceRoot(cwd)
		if err != nil {
			return nil, err
		}
		store = registry.NewLocalStore(root)
	} else {
		sess, err := newSession(publishRegistry)
		if err != nil {
			return nil, err
		}
		store = sess.Client
		opts.PublishedBy = sess.Email
	}

	orch := &publish.Orchestrator{Store: store, Builder: foundation.DefaultBuilder()}
	return orch.Run(ctx, opts)
}
