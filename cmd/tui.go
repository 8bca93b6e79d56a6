package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/scribe/internal/formatter"
	"github.com/desertthunder/scribe/internal/shared"
	"github.com/desertthunder/scribe/internal/ui"
	"github.com/desertthunder/scribe/internal/upload"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	provider, err := r.sessionProvider()
	if err != nil {
		return err
	}
	backend, err := r.transcriptionBackend()
	if err != nil {
		return err
	}

	deps := ui.Deps{
		Provider:     provider,
		Orchestrator: upload.NewOrchestrator(backend, r.logger),
		Viewer:       r.newViewer(nil),
		Checkout:     backend,
		PortalURL:    r.config.Billing.PortalURL,
		ExportFormat: format,
		OpenURL:      r.openURL,
		Logger:       r.logger,
	}
	if history, err := r.historyStore(); err != nil {
		r.logger.Warn("history unavailable", "error", err)
	} else {
		deps.History = history
	}

	model := ui.NewModel(ctx, deps, ui.ParsePage(cmd.String("page")))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
