// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"uniweb-cli/internal/config"
	"uniweb-cli/internal/issue"
	"uniweb-cli/internal/registry"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output.
	verbose bool

	// cfg is the loaded user-global configuration, available to every
	// subcommand after initRootConfig runs.
	cfg = config.DefaultConfig()

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "uniweb",
		Short: "Publish, license, and hand off uniweb foundations",
		Long: TitleStyle.Render("uniweb") + SubtitleStyle.Render(" - foundation registry and licensing") + `

uniweb manages the lifecycle of foundations: versioned, immutable
packages of components and content schemas. Publish them to a local
workspace registry or the hosted registry, grant clients time-bound
invites to a major version, and hand finished sites off to their owners.

` + SubtitleStyle.Render("Examples:") + `
  uniweb publish                 Publish the foundation in this directory
  uniweb publish --local         Publish into the workspace registry
  uniweb invite dev@acme.com     Invite a client to the latest major version
  uniweb handoff owner@acme.com  Create a licensed site and transfer it
  uniweb serve                   Serve the local registry over HTTP`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(inviteCmd)
	rootCmd.AddCommand(handoffCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	// fang overrides rootCmd.Version, so the version goes through
	// fang.WithVersion.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig loads the optional user-global configuration.
func initRootConfig() {
	loaded, err := config.Load()
	if err != nil {
		// A broken config file never blocks the command; defaults apply.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		return
	}
	cfg = loaded
}

// formatErrorForDisplay formats an error for user display. If the error
// is an ActionableError, it uses the Format method; in verbose mode the
// full error chain is shown.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// fail prints the error and converts it into an exit-code-1 ExitError
// for fang to unwind.
func fail(err error) error {
	err = withAuthGuidance(err)
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	return &ExitError{Code: 1, Err: err}
}

const loginSuggestion = "Run: uniweb login"

// withAuthGuidance adds re-login guidance when the registry rejected
// the stored token. Local expiry is caught before the request goes out,
// but a token revoked server-side only shows up as a 401 on the call
// itself.
func withAuthGuidance(err error) error {
	if err == nil || !errors.Is(err, registry.ErrUnauthorized) {
		return err
	}

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		if !slices.Contains(ae.Suggestions, loginSuggestion) {
			ae.Suggestions = append(ae.Suggestions, loginSuggestion)
		}
		return err
	}
	return issue.NewErrorContext().
		WithOperation("authenticate with the registry").
		WithSuggestion(loginSuggestion).
		Wrap(err).
		BuildError()
}
