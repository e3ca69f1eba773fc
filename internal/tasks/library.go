package tasks

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/repositories"
	"github.com/desertthunder/tunebox/internal/shared"
)

// Library combines the playlist store and the ingestor behind one set of playlist operations.
type Library struct {
	store    *repositories.PlaylistStore
	ingestor *Ingestor
	logger   *log.Logger
}

// NewLibrary creates a Library.
func NewLibrary(store *repositories.PlaylistStore, ingestor *Ingestor, logger *log.Logger) *Library {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Library{store: store, ingestor: ingestor, logger: logger}
}

// Store returns the underlying playlist store.
func (l *Library) Store() *repositories.PlaylistStore { return l.store }

// Playlists returns the materialized playlists of a user.
func (l *Library) Playlists(ctx context.Context, user models.UserID) ([]models.PlaylistView, error) {
	return l.store.Listing(ctx, user)
}

// CreatePlaylist creates an empty playlist.
func (l *Library) CreatePlaylist(ctx context.Context, user models.UserID, name string) error {
	_, err := l.store.Create(ctx, user, name)
	return err
}

// Create creates a playlist with optional initial tracks and returns the stored playlists.
func (l *Library) Create(ctx context.Context, user models.UserID, playlist models.Playlist) ([]models.Playlist, error) {
	return l.store.Create(ctx, user, playlist.Name, playlist.Tracks...)
}

// DeletePlaylist deletes every playlist with the given name.
func (l *Library) DeletePlaylist(ctx context.Context, user models.UserID, name string) error {
	_, err := l.store.Delete(ctx, user, name)
	return err
}

// Delete deletes every playlist with the given name and returns the remaining playlists.
func (l *Library) Delete(ctx context.Context, user models.UserID, name string) ([]models.Playlist, error) {
	return l.store.Delete(ctx, user, name)
}

// AddTrack ingests an upload.
func (l *Library) AddTrack(ctx context.Context, upload models.TrackUpload) error {
	_, err := l.ingestor.Ingest(ctx, upload)
	return err
}
