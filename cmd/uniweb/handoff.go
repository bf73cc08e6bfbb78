// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"uniweb-cli/internal/site"
)

var (
	handoffFoundation string
	handoffSiteID     string
	handoffYes        bool

	handoffCmd = &cobra.Command{
		Use:   "handoff <email>",
		Short: "Hand a finished site off to its owner",
		Long: `Create a licensed site bound to the published foundation and
transfer its ownership to the client email.

The handoff runs in two phases: site creation, then ownership transfer.
If the transfer fails the site still exists; re-run with --site <id> to
resume at the transfer instead of creating a second site.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runHandoff(cmd, args[0]); err != nil {
				return fail(err)
			}
			return nil
		},
	}
)

func init() {
	handoffCmd.Flags().StringVar(&handoffFoundation, "foundation", "", "foundation name (defaults to the one in this directory)")
	handoffCmd.Flags().StringVar(&handoffSiteID, "site", "", "site id (defaults to a generated one; reuse to resume a failed handoff)")
	handoffCmd.Flags().BoolVar(&handoffYes, "yes", false, "skip the confirmation prompt")
}

func runHandoff(cmd *cobra.Command, email string) error {
	foundationName, err := resolveFoundationName(handoffFoundation)
	if err != nil {
		return err
	}

	if !handoffYes && isInteractive() {
		confirmed, err := confirmHandoff(foundationName, email)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println(SubtitleStyle.Render("handoff canceled"))
			return nil
		}
	}

	sess, err := newSession("")
	if err != nil {
		return err
	}

	result, err := site.Handoff(cmd.Context(), sess.Client, site.Options{
		FoundationName: foundationName,
		Email:          email,
		SiteID:         handoffSiteID,
	})
	if err != nil {
		return err
	}

	if result.Resumed {
		fmt.Println(SubtitleStyle.Render("site " + result.SiteID + " already existed; resumed at the transfer"))
	}
	fmt.Printf("%s Site %s handed off to %s\n",
		SuccessStyle.Render("✓"),
		CmdStyle.Render(result.SiteID),
		CmdStyle.Render(result.Email))
	return nil
}
