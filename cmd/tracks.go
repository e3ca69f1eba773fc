package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunebox/internal/models"
)

// TracksAdd ingests a local audio file and waits for its cover art.
func (r *Runner) TracksAdd(ctx context.Context, cmd *cli.Command) error {
	user, err := userArg(cmd)
	if err != nil {
		return err
	}

	path := cmd.String("file")
	audio, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	fileID := cmd.String("file-id")
	if fileID == "" {
		fileID = fileIDFromPath(path)
	}

	playlist := strings.TrimSpace(cmd.String("playlist"))
	upload := models.TrackUpload{
		UserID:   user,
		FileID:   fileID,
		Title:    cmd.String("title"),
		Artist:   cmd.String("artist"),
		Playlist: playlist,
		FileName: filepath.Base(path),
		Audio:    audio,
	}

	drain := r.startCovers(ctx)
	err = r.library.AddTrack(ctx, upload)
	drain()
	if err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}

	if playlist == "" {
		playlist = r.config.Storage.DefaultPlaylist
	}
	r.writePlain("✓ Track %s added to %q\n", models.TrackID(fileID), playlist)
	return nil
}

// fileIDFromPath derives a source file id from the file name, replacing characters ids cannot hold.
func fileIDFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if len(id) > 128 {
		id = id[:128]
	}
	return id
}
