package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunebox/internal/server"
)

// Serve runs the HTTP server until SIGINT/SIGTERM, then drains pending cover downloads.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		cfg.Port = port
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cover jobs outlive the signal so queued tracks still get art (or a placeholder) on shutdown.
	drain := r.startCovers(context.WithoutCancel(ctx))

	srv := server.New(cfg, r.library, r.config.Bot.Token, r.logger)
	r.logger.Info("starting server", "addr", srv.Addr(), "data_dir", r.config.Storage.DataDir, "workers", r.covers.Workers())

	err := srv.Run(ctx)
	drain()
	return err
}
