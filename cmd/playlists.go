package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunebox/internal/formatter"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

func userArg(cmd *cli.Command) (models.UserID, error) {
	user := models.UserID(strings.TrimSpace(cmd.String("user")))
	if !user.Valid() {
		return "", fmt.Errorf("%w: user id %q", shared.ErrInvalidArgument, user)
	}
	return user, nil
}

func nameArg(cmd *cli.Command) (string, error) {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return "", fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}
	return name, nil
}

// PlaylistsList prints a user's playlists with their resolved tracks.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	user, err := userArg(cmd)
	if err != nil {
		return err
	}

	views, err := r.library.Playlists(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"playlists": views}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Playlists for user %s", user))
	for _, p := range views {
		r.writePlain("%s (%d tracks)\n", p.Name, len(p.Tracks))
		for _, t := range p.Tracks {
			r.writePlain("  • %s - %s\n", t.Artist, t.Title)
		}
	}
	return nil
}

// PlaylistsCreate adds an empty playlist. Creating an existing name changes nothing.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	user, err := userArg(cmd)
	if err != nil {
		return err
	}
	name, err := nameArg(cmd)
	if err != nil {
		return err
	}

	playlists, err := r.library.Create(ctx, user, models.NewPlaylist(name))
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	r.logger.Info("playlist created", "user", user, "playlist", name)
	r.writePlain("✓ Playlist %q ready\n", name)
	r.writePlain("Playlists: %s\n", strings.Join(models.Names(playlists), ", "))
	return nil
}

// PlaylistsDelete removes every playlist with the given name.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	user, err := userArg(cmd)
	if err != nil {
		return err
	}
	name, err := nameArg(cmd)
	if err != nil {
		return err
	}

	playlists, err := r.library.Delete(ctx, user, name)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	r.logger.Info("playlist deleted", "user", user, "playlist", name)
	r.writePlain("✓ Playlist %q deleted\n", name)
	r.writePlain("Playlists: %s\n", strings.Join(models.Names(playlists), ", "))
	return nil
}

// PlaylistsExport writes one playlist to disk in the requested format.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	user, err := userArg(cmd)
	if err != nil {
		return err
	}
	name, err := nameArg(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	views, err := r.library.Playlists(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}
	var playlist *models.PlaylistView
	for i := range views {
		if views[i].Name == name {
			playlist = &views[i]
			break
		}
	}
	if playlist == nil {
		return fmt.Errorf("%w: playlist %q", shared.ErrNotFound, name)
	}

	output := cmd.String("output")
	switch format {
	case formatter.FormatCSV:
		result, err := formatter.WriteCSVExport(*playlist, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %q to %s and %s\n", name, result.TracksFile, result.MetadataFile)
	case formatter.FormatMarkdown:
		result, err := formatter.WriteMarkdownExport(*playlist, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %q to %s (%d files)\n", name, result.Directory, len(result.Files))
	default:
		path, err := formatter.WriteTextExport(*playlist, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %q to %s\n", name, path)
	}

	r.logger.Info("playlist exported", "user", user, "playlist", name, "format", format)
	return nil
}
