// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"uniweb-cli/internal/credentials"
)

var (
	loginEmail string
	loginToken string

	loginCmd = &cobra.Command{
		Use:           "login",
		Short:         "Store registry credentials",
		Long:          "Store the registry access token and account email for remote operations.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := runLogin(loginEmail, loginToken)
			if err != nil {
				return fail(err)
			}
			fmt.Println(SuccessStyle.Render("✓") + " Logged in as " + CmdStyle.Render(creds.Email))
			return nil
		},
	}

	logoutCmd = &cobra.Command{
		Use:           "logout",
		Short:         "Remove stored registry credentials",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credentials.Delete(); err != nil {
				return fail(err)
			}
			fmt.Println(SuccessStyle.Render("✓") + " Logged out")
			return nil
		},
	}

	whoamiCmd = &cobra.Command{
		Use:           "whoami",
		Short:         "Show the logged-in account",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := credentials.Load()
			switch {
			case err == nil:
				fmt.Println(CmdStyle.Render(creds.Email))
				remaining := time.Until(creds.ExpiresAt).Round(time.Hour)
				fmt.Println(SubtitleStyle.Render(fmt.Sprintf("session expires in %s", remaining)))
				return nil
			case errors.Is(err, credentials.ErrExpired):
				fmt.Println(WarningStyle.Render(fmt.Sprintf("%s (session expired, run: uniweb login)", creds.Email)))
				return nil
			case errors.Is(err, credentials.ErrNotLoggedIn):
				fmt.Println(SubtitleStyle.Render("not logged in"))
				return nil
			default:
				return fail(err)
			}
		},
	}
)

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginToken, "token", "", "registry access token")
}
