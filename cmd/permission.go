package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/audioquery/internal/ui"
	"github.com/urfave/cli/v3"
)

// PermissionPending lists the requests the running server holds for an operator.
func (r *Runner) PermissionPending(ctx context.Context, cmd *cli.Command) error {
	pending, err := r.client.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending requests: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(pending, true)
	}

	if len(pending) == 0 {
		r.writePlain("No pending permission requests\n")
		return nil
	}

	r.writePlainHeader("Pending permission requests")
	for _, p := range pending {
		r.writePlain("  %d  %s\n", p.Code, p.Permission)
	}
	return nil
}

// PermissionResolve grants, or with --deny denies, the request held under --code.
func (r *Runner) PermissionResolve(ctx context.Context, cmd *cli.Command) error {
	code := cmd.Int("code")
	granted := !cmd.Bool("deny")

	handled, err := r.client.Resolve(ctx, code, granted)
	if err != nil {
		return fmt.Errorf("failed to resolve request %d: %w", code, err)
	}

	verb := "Granted"
	if !granted {
		verb = "Denied"
	}
	r.writePlain("✓ %s request %d\n", verb, code)
	if !handled {
		r.writePlain("%s\n", ui.Styles().Warn("No call was waiting on this request"))
	}
	return nil
}

// PermissionWatch opens the interactive operator console.
func (r *Runner) PermissionWatch(ctx context.Context, cmd *cli.Command) error {
	if _, err := tea.NewProgram(ui.NewPermissionModel(ctx, r.client), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("failed to run permission console: %w", err)
	}
	return nil
}
