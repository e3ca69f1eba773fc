package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunebox/internal/bot"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/desertthunder/tunebox/internal/ui"
)

// Console launches the terminal chat console for one local user.
func (r *Runner) Console(ctx context.Context, cmd *cli.Command) error {
	user := models.UserID(cmd.String("user"))
	if !user.Valid() {
		return fmt.Errorf("%w: user id %q", shared.ErrInvalidArgument, user)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	drain := r.startCovers(ctx)
	defer drain()

	files := ui.NewLocalFiles()
	conv := bot.NewConversation(bot.ConversationOpts{
		Backend:         r.library,
		Files:           files,
		DefaultPlaylist: r.config.Storage.DefaultPlaylist,
		WebAppURL:       r.config.Bot.WebAppURL,
		Logger:          r.logger,
	})

	model := ui.NewModel(ctx, conv, files, user, 0)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running console: %w", err)
	}

	return nil
}
