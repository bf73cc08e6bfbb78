// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"uniweb-cli/internal/foundation"
)

// isInteractive reports whether prompts can be shown: both stdin and
// stdout must be terminals.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// chooseFoundation prompts to pick one foundation from multiple
// candidates. Used as the resolver's chooser in interactive sessions.
func chooseFoundation(candidates []*foundation.Foundation) (*foundation.Foundation, error) {
	byDir := make(map[string]*foundation.Foundation, len(candidates))
	options := make([]huh.Option[string], 0, len(candidates))
	for _, c := range candidates {
		label := fmt.Sprintf("%s (%s)", c.PackageName, c.Dir)
		byDir[label] = c
		options = append(options, huh.NewOption(label, label))
	}

	var picked string
	sel := huh.NewSelect[string]().
		Title("Multiple foundations found. Which one?").
		Options(options...).
		Value(&picked)

	if err := huh.NewForm(huh.NewGroup(sel)).Run(); err != nil {
		return nil, fmt.Errorf("foundation selection canceled: %w", err)
	}
	return byDir[picked], nil
}

// promptLogin asks for the email and access token.
func promptLogin() (email, token string, err error) {
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Email").
			Placeholder("you@example.com").
			Value(&email),
		huh.NewInput().
			Title("Access token").
			EchoMode(huh.EchoModePassword).
			Value(&token),
	))
	if err := form.Run(); err != nil {
		return "", "", fmt.Errorf("login canceled: %w", err)
	}
	if email == "" || token == "" {
		return "", "", fmt.Errorf("both email and access token are required")
	}
	return email, token, nil
}

// confirmHandoff double-checks the ownership transfer, since it cannot
// be undone from the CLI.
func confirmHandoff(foundationName, email string) (bool, error) {
	var confirmed bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Hand off a %s site to %s?", foundationName, email)).
			Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("handoff canceled: %w", err)
	}
	return confirmed, nil
}
