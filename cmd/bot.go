package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunebox/internal/bot"
	"github.com/desertthunder/tunebox/internal/repositories"
	"github.com/desertthunder/tunebox/internal/services"
	"github.com/desertthunder/tunebox/internal/shared"
)

// Bot long-polls Telegram and runs the conversation against the local library, or a remote server with --remote.
func (r *Runner) Bot(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Bot
	if cfg.Token == "" {
		return fmt.Errorf("%w: set %s", shared.ErrMissingCredentials, shared.EnvBotToken)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegram := services.NewTelegramService("", cfg.Token, cfg.Timeout())

	var backend bot.Backend = r.library
	if cmd.Bool("remote") {
		url := cmd.String("server-url")
		if url == "" {
			url = cfg.ServerURL
		}
		api := services.NewAPIService(url, cfg.Timeout())
		r.logger.Info("using remote server", "url", api.BaseURL())
		backend = api
	} else {
		drain := r.startCovers(context.WithoutCancel(ctx))
		defer drain()
	}

	sessions, closeSessions, err := r.sessionStore()
	if err != nil {
		return err
	}
	defer closeSessions()

	conv := bot.NewConversation(bot.ConversationOpts{
		Backend:         backend,
		Files:           telegram,
		Sessions:        sessions,
		DefaultPlaylist: r.config.Storage.DefaultPlaylist,
		WebAppURL:       cfg.WebAppURL,
		Logger:          r.logger,
	})

	pollTimeout := time.Duration(cfg.PollTimeoutSeconds) * time.Second
	if pollTimeout >= cfg.Timeout() {
		pollTimeout = max(cfg.Timeout()-5*time.Second, 0)
	}
	return bot.NewDispatcher(telegram, conv, pollTimeout, r.logger).Run(ctx)
}

// sessionStore opens the configured session store and returns its close function.
func (r *Runner) sessionStore() (bot.SessionStore, func(), error) {
	switch r.config.Bot.SessionStore {
	case "", "memory":
		return bot.NewMemoryStore(), func() {}, nil
	case "sqlite":
		db, err := shared.OpenSessionDatabase(r.config.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session database: %w", err)
		}
		r.logger.Info("persisting sessions", "path", r.config.Database.Path)
		return repositories.NewSessionRepository(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown bot.session_store %q", shared.ErrInvalidConfig, r.config.Bot.SessionStore)
	}
}
