package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunebox/internal/repositories"
	"github.com/desertthunder/tunebox/internal/services"
	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/desertthunder/tunebox/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	library    *tasks.Library
	covers     *tasks.CoverPool
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Covers     *tasks.CoverPool
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// The playlist library is built from the storage and covers sections of the config. Cover workers
// start only in commands that ingest tracks.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		covers:     opts.Covers,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.buildLibrary()
	return r
}

// buildLibrary wires the playlist store, cover pool and ingestor for the current logger.
func (r *Runner) buildLibrary() {
	storage := r.config.Storage
	store := repositories.NewPlaylistStore(storage.DataDir, storage.DefaultPlaylist, nil, r.logger)

	if r.covers == nil {
		covers := r.config.Covers
		itunes := services.NewITunesService(covers.SearchURL, covers.Timeout())
		r.covers = tasks.NewCoverPool(itunes, tasks.CoverPoolOpts{
			Workers:     covers.Workers,
			RateLimit:   covers.RateLimit,
			Timeout:     covers.Timeout(),
			Placeholder: covers.Placeholder,
		}, r.logger)
	}
	r.library = tasks.NewLibrary(store, tasks.NewIngestor(store, r.covers, r.logger), r.logger)
}

// SetLogger replaces the logger and rebuilds the components that captured the old one.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.covers = nil
	r.buildLibrary()
}

// startCovers launches the cover workers and returns the function that drains them.
func (r *Runner) startCovers(ctx context.Context) func() {
	r.covers.Start(ctx)
	return func() {
		if n := r.covers.Pending(); n > 0 {
			r.logger.Info("waiting for cover downloads", "pending", n)
		}
		r.covers.Stop()
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
