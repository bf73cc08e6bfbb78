// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"uniweb-cli/internal/foundation"
	"uniweb-cli/internal/registry"
	"uniweb-cli/internal/serve"
)

var (
	servePort int

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the local registry over HTTP",
		Long: `Serve the workspace registry to sites under development.

GET /                          the registry index as JSON
GET /{name}@{version}/{file}   a file from a published artifact

The server is read-only, binds to localhost, and allows cross-origin
GET requests so browser-based dev servers can load foundations.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runServe(); err != nil {
				return fail(err)
			}
			return nil
		},
	}
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (defaults to the configured one)")
}

func runServe() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	root, _, err := foundation.FindWorkspaceRoot(cwd)
	if err != nil {
		return err
	}
	store := registry.NewLocalStore(root)

	port := servePort
	if port == 0 {
		port = cfg.ServePort
	}

	srv, err := serve.New(store, port)
	if err != nil {
		return err
	}
	srv.Start()
	fmt.Println(TitleStyle.Render("uniweb serve") + SubtitleStyle.Render(" listening on ") + CmdStyle.Render(srv.URL()))
	fmt.Println(SubtitleStyle.Render("serving " + store.Root() + " (Ctrl+C to stop)"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println(SubtitleStyle.Render("shutting down"))
	return srv.Stop()
}
