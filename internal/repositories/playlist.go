package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

const playlistsFile = "playlists.json"

// PlaylistStore is the file-backed store of a user's playlists.
//
// Every collection holds at least one playlist: an absent or empty file is initialized with
// the default playlist, and malformed JSON reads as the default without being overwritten.
type PlaylistStore struct {
	root        string
	defaultName string
	tracks      *TrackRepository
	logger      *log.Logger
	locks       sync.Map
}

// NewPlaylistStore creates a PlaylistStore rooted at the data directory.
func NewPlaylistStore(root, defaultName string, tracks *TrackRepository, logger *log.Logger) *PlaylistStore {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if tracks == nil {
		tracks = NewTrackRepository(root, logger)
	}
	return &PlaylistStore{
		root:        root,
		defaultName: defaultName,
		tracks:      tracks,
		logger:      shared.WithLogger(logger, "component", "playlists"),
	}
}

// DefaultName is the name of the playlist materialized for new collections.
func (s *PlaylistStore) DefaultName() string { return s.defaultName }

// Tracks returns the Track Record repository the store resolves listings against.
func (s *PlaylistStore) Tracks() *TrackRepository { return s.tracks }

// Path returns the playlists file of a user.
func (s *PlaylistStore) Path(user models.UserID) string {
	return filepath.Join(s.root, user.Dir(), playlistsFile)
}

// Exists reports whether the user's playlists file has been created.
func (s *PlaylistStore) Exists(user models.UserID) bool {
	_, err := os.Stat(s.Path(user))
	return err == nil
}

// Load returns the user's playlists, initializing storage with the default playlist when needed.
func (s *PlaylistStore) Load(ctx context.Context, user models.UserID) ([]models.Playlist, error) {
	if err := s.check(ctx, user); err != nil {
		return nil, err
	}
	mu := s.lock(user)
	mu.Lock()
	defer mu.Unlock()
	return s.loadLocked(user)
}

// Save overwrites the user's playlists.
func (s *PlaylistStore) Save(ctx context.Context, user models.UserID, playlists []models.Playlist) error {
	if err := s.check(ctx, user); err != nil {
		return err
	}
	mu := s.lock(user)
	mu.Lock()
	defer mu.Unlock()
	return s.saveLocked(user, playlists)
}

// Create appends an empty (or pre-filled) playlist named name unless one already exists.
//
// Names are unique per user, so creating an existing name succeeds without changes.
func (s *PlaylistStore) Create(ctx context.Context, user models.UserID, name string, tracks ...models.TrackRef) ([]models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	if err := s.check(ctx, user); err != nil {
		return nil, err
	}

	mu := s.lock(user)
	mu.Lock()
	defer mu.Unlock()

	playlists, err := s.loadLocked(user)
	if err != nil {
		return nil, err
	}
	if indexOf(playlists, name) >= 0 {
		s.logger.Debug("playlist already exists", "user", user, "playlist", name)
		return playlists, nil
	}

	playlists = append(playlists, models.NewPlaylist(name, dedupe(tracks)...))
	if err := s.saveLocked(user, playlists); err != nil {
		return nil, err
	}
	s.logger.Info("created playlist", "user", user, "playlist", name)
	return playlists, nil
}

// Delete removes every playlist named name. Deleting an absent name is a successful no-op.
//
// Returns [shared.ErrNotFound] when the user has no playlists file at all.
func (s *PlaylistStore) Delete(ctx context.Context, user models.UserID, name string) ([]models.Playlist, error) {
	if err := s.check(ctx, user); err != nil {
		return nil, err
	}

	mu := s.lock(user)
	mu.Lock()
	defer mu.Unlock()

	if !s.Exists(user) {
		return nil, fmt.Errorf("%w: playlists file for %s", shared.ErrNotFound, user)
	}

	playlists, err := s.loadLocked(user)
	if err != nil {
		return nil, err
	}

	kept := make([]models.Playlist, 0, len(playlists))
	for _, p := range playlists {
		if p.Name != name {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(playlists) {
		return playlists, nil
	}
	if len(kept) == 0 {
		kept = s.defaults()
	}

	if err := s.saveLocked(user, kept); err != nil {
		return nil, err
	}
	s.logger.Info("deleted playlist", "user", user, "playlist", name, "remaining", len(kept))
	return kept, nil
}

// AttachTrack appends ref to the named playlist unless already present, creating the playlist if needed.
func (s *PlaylistStore) AttachTrack(ctx context.Context, user models.UserID, name string, ref models.TrackRef) error {
	if err := s.check(ctx, user); err != nil {
		return err
	}
	if name = strings.TrimSpace(name); name == "" {
		name = s.defaultName
	}

	mu := s.lock(user)
	mu.Lock()
	defer mu.Unlock()

	playlists, err := s.loadLocked(user)
	if err != nil {
		return err
	}

	if i := indexOf(playlists, name); i >= 0 {
		if playlists[i].Contains(ref.ID) {
			return nil
		}
		playlists[i].Tracks = append(playlists[i].Tracks, ref)
	} else {
		playlists = append(playlists, models.NewPlaylist(name, ref))
		s.logger.Info("created playlist for track", "user", user, "playlist", name)
	}

	return s.saveLocked(user, playlists)
}

// Listing loads the user's playlists and resolves each reference against the Track Records.
//
// References whose record directory is missing are dropped from the view.
func (s *PlaylistStore) Listing(ctx context.Context, user models.UserID) ([]models.PlaylistView, error) {
	playlists, err := s.Load(ctx, user)
	if err != nil {
		return nil, err
	}

	records, err := s.tracks.Records(ctx, user)
	if err != nil {
		return nil, err
	}

	views := make([]models.PlaylistView, len(playlists))
	for i, p := range playlists {
		tracks := make([]models.TrackView, 0, len(p.Tracks))
		for _, ref := range p.Tracks {
			if view, ok := records[ref.ID]; ok {
				tracks = append(tracks, view)
			}
		}
		views[i] = models.PlaylistView{Name: p.Name, Tracks: tracks}
	}
	return views, nil
}

func (s *PlaylistStore) loadLocked(user models.UserID) ([]models.Playlist, error) {
	path := s.Path(user)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		playlists := s.defaults()
		if err := s.saveLocked(user, playlists); err != nil {
			return nil, err
		}
		s.logger.Info("initialized playlists", "user", user)
		return playlists, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", shared.ErrPersistence, path, err)
	}

	var playlists []models.Playlist
	if err := json.Unmarshal(data, &playlists); err != nil {
		s.logger.Error("malformed playlists file, serving default", "user", user, "path", path, "error", err)
		return s.defaults(), nil
	}

	if len(playlists) == 0 {
		playlists = s.defaults()
		if err := s.saveLocked(user, playlists); err != nil {
			return nil, err
		}
		return playlists, nil
	}

	for i := range playlists {
		if playlists[i].Tracks == nil {
			playlists[i].Tracks = []models.TrackRef{}
		}
	}
	return playlists, nil
}

func (s *PlaylistStore) saveLocked(user models.UserID, playlists []models.Playlist) error {
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	if err := writeJSONAtomic(s.Path(user), playlists); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return nil
}

func (s *PlaylistStore) defaults() []models.Playlist {
	return []models.Playlist{models.NewPlaylist(s.defaultName)}
}

func (s *PlaylistStore) check(ctx context.Context, user models.UserID) error {
	if err := ensureNotCanceled(ctx); err != nil {
		return err
	}
	if !user.Valid() {
		return fmt.Errorf("%w: invalid user_id %q", shared.ErrInvalidInput, user)
	}
	return nil
}

func (s *PlaylistStore) lock(user models.UserID) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(user, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func indexOf(playlists []models.Playlist, name string) int {
	for i, p := range playlists {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func dedupe(refs []models.TrackRef) []models.TrackRef {
	seen := make(map[string]bool, len(refs))
	out := make([]models.TrackRef, 0, len(refs))
	for _, ref := range refs {
		if ref.ID == "" || seen[ref.ID] {
			continue
		}
		seen[ref.ID] = true
		out = append(out, ref)
	}
	return out
}
