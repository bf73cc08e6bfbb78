// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"uniweb-cli/internal/invite"
)

var (
	inviteFoundation string
	inviteMajor      int
	inviteUses       int
	inviteExpires    int
	inviteList       bool
	inviteRevokeID   string
	inviteResendID   string

	inviteCmd = &cobra.Command{
		Use:   "invite [email]",
		Short: "Manage client invites for a foundation",
		Long: `Create, list, revoke, or resend invites.

An invite grants one client email time-bound access to a major version
of a foundation. The major version defaults to the highest published
version; use --major to pin another one. Status (active, expired,
exhausted, revoked) is derived from the invite's counters, never
stored.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runInvite(cmd, args); err != nil {
				return fail(err)
			}
			return nil
		},
	}
)

func init() {
	inviteCmd.Flags().StringVar(&inviteFoundation, "foundation", "", "foundation name (defaults to the one in this directory)")
	inviteCmd.Flags().IntVar(&inviteMajor, "major", 0, "major version to grant access to (defaults to the highest published)")
	inviteCmd.Flags().IntVar(&inviteUses, "uses", 0, fmt.Sprintf("maximum redemptions (default %d)", invite.DefaultMaxUses))
	inviteCmd.Flags().IntVar(&inviteExpires, "expires", 0, fmt.Sprintf("days until expiry (default %d)", invite.DefaultExpiresInDays))
	inviteCmd.Flags().BoolVar(&inviteList, "list", false, "list invites instead of creating one")
	inviteCmd.Flags().StringVar(&inviteRevokeID, "revoke", "", "revoke the invite with this id")
	inviteCmd.Flags().StringVar(&inviteResendID, "resend", "", "resend the invite with this id")
}

func runInvite(cmd *cobra.Command, args []string) error {
	sess, err := newSession("")
	if err != nil {
		return err
	}
	mgr := &invite.Manager{Client: sess.Client}

	foundationName, err := resolveFoundationName(inviteFoundation)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	switch {
	case inviteList:
		invites, err := mgr.List(ctx, foundationName)
		if err != nil {
			return err
		}
		if len(invites) == 0 {
			fmt.Println(SubtitleStyle.Render("no invites for " + foundationName))
			return nil
		}
		for _, inv := range invites {
			fmt.Printf("%s  %s  v%d  %d/%d uses  expires %s  %s\n",
				inv.ID,
				inv.Email,
				inv.MajorVersion,
				inv.UsedCount, inv.MaxUses,
				inv.ExpiresAt.Format(time.DateOnly),
				renderStatus(inv.Status))
		}
		return nil

	case inviteRevokeID != "":
		email, err := mgr.Revoke(ctx, foundationName, inviteRevokeID)
		if err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("✓") + " Revoked invite for " + CmdStyle.Render(email))
		return nil

	case inviteResendID != "":
		email, err := mgr.Resend(ctx, foundationName, inviteResendID)
		if err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("✓") + " Resent invite to " + CmdStyle.Render(email))
		return nil

	default:
		if len(args) == 0 {
			return fmt.Errorf("an email is required to create an invite (or use --list, --revoke, --resend)")
		}
		inv, err := mgr.Create(ctx, foundationName, invite.CreateOptions{
			Email:         args[0],
			MajorVersion:  inviteMajor,
			MaxUses:       inviteUses,
			ExpiresInDays: inviteExpires,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s Invited %s to %s v%d (%d use(s), expires %s)\n",
			SuccessStyle.Render("✓"),
			CmdStyle.Render(inv.Email),
			CmdStyle.Render(foundationName),
			inv.MajorVersion,
			inv.MaxUses,
			inv.ExpiresAt.Format(time.DateOnly))
		return nil
	}
}

// renderStatus colors a derived invite status for terminal display.
func renderStatus(s invite.Status) string {
	switch s {
	case invite.StatusActive:
		return SuccessStyle.Render(string(s))
	case invite.StatusRevoked:
		return ErrorStyle.Render(string(s))
	default:
		return WarningStyle.Render(string(s))
	}
}
