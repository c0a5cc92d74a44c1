package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/desertthunder/beatbuddy/internal/ui"
	"github.com/urfave/cli/v3"
)

// Chat launches the interactive terminal chat for a user.
func (r *Runner) Chat(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	userID, err := r.lookupUser(ctx, store, cmd.String("user"))
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, logFile, err := shared.NewFileLogger("./tmp/beatbuddy-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(fileLogger)

	orchestrator, err := r.orchestrator(store)
	if err != nil {
		return err
	}
	exporter, err := r.exportEngine(store)
	if err != nil {
		return err
	}

	deps := ui.Dependencies{
		Conversations: store.Conversations,
		Messages:      store.Messages,
		Playlists:     store.Playlists,
		Chat:          orchestrator,
	}
	if exporter != nil {
		deps.Exporter = exporter
	}

	model := ui.NewModel(ctx, userID, deps)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return model.Err()
}
