package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/audioquery/internal/scanner"
	"github.com/desertthunder/audioquery/internal/shared"
	"github.com/desertthunder/audioquery/internal/tasks"
	"github.com/desertthunder/audioquery/internal/ui"
	"github.com/urfave/cli/v3"
)

// Scan indexes the audio files under the configured (or given) roots.
func (r *Runner) Scan(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	opts := scanner.OptionsFrom(r.config.Scanner)
	if roots := cmd.StringSlice("root"); len(roots) > 0 {
		opts.Roots = opts.Roots[:0]
		for _, root := range roots {
			opts.Roots = append(opts.Roots, shared.ExpandPath(root))
		}
	}
	opts.Prune = cmd.Bool("prune")
	if len(opts.Roots) == 0 {
		return fmt.Errorf("%w: no scan roots configured", shared.ErrMissingArgument)
	}

	sc := scanner.New(store, opts, r.logger)

	var (
		result  *scanner.Result
		scanErr error
	)
	if cmd.Bool("tui") {
		model := ui.NewScanModel(ctx, sc.Scan)
		if _, err := tea.NewProgram(model).Run(); err != nil {
			return fmt.Errorf("failed to run progress view: %w", err)
		}
		result, scanErr = model.Result()
	} else {
		result, scanErr = r.scanPlain(ctx, sc)
	}
	if scanErr != nil {
		return scanErr
	}

	r.writePlain("%s\n", ui.Styles().OK(ui.Summary(result)))
	for _, f := range result.Failed {
		r.writePlain("  %s\n", ui.Styles().Warn(f.Error()))
	}
	return nil
}

// scanPlain runs sc, printing each progress message on its own line.
func (r *Runner) scanPlain(ctx context.Context, sc *scanner.Scanner) (*scanner.Result, error) {
	prog := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.writePlain("%s\n", u.Message)
		}
	}()

	result, err := sc.Scan(ctx, prog)
	close(prog)
	<-done
	return result, err
}
