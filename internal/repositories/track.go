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

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

const (
	metaFile  = "data.txt"
	audioFile = "song.mp3"
	coverFile = "cover.jpeg"
)

// TrackRepository stores Track Records as directories under each user's collection.
//
// Records are never deleted: a playlist deletion only drops references.
type TrackRepository struct {
	root   string
	logger *log.Logger
}

// NewTrackRepository creates a TrackRepository rooted at the data directory.
func NewTrackRepository(root string, logger *log.Logger) *TrackRepository {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TrackRepository{root: root, logger: shared.WithLogger(logger, "component", "tracks")}
}

// UserDir returns the directory owning a user's playlists file and Track Records.
func (r *TrackRepository) UserDir(user models.UserID) string {
	return filepath.Join(r.root, user.Dir())
}

// Dir returns the Track Record directory for a source file id.
func (r *TrackRepository) Dir(user models.UserID, fileID string) string {
	return filepath.Join(r.UserDir(user), models.TrackID(fileID))
}

// AudioPath returns the path of the record's audio file.
func (r *TrackRepository) AudioPath(user models.UserID, fileID string) string {
	return filepath.Join(r.Dir(user, fileID), audioFile)
}

// CoverPath returns the path of the record's cover image.
func (r *TrackRepository) CoverPath(user models.UserID, fileID string) string {
	return filepath.Join(r.Dir(user, fileID), coverFile)
}

// Save writes the metadata and then the audio of a Track Record, overwriting any previous version.
func (r *TrackRepository) Save(ctx context.Context, user models.UserID, fileID string, meta models.TrackMeta, audio []byte) error {
	if err := ensureNotCanceled(ctx); err != nil {
		return err
	}
	if !user.Valid() || !models.ValidID(fileID) {
		return fmt.Errorf("%w: invalid user_id or file_id", shared.ErrInvalidInput)
	}

	meta = meta.WithDefaults()
	if err := writeJSONAtomic(filepath.Join(r.Dir(user, fileID), metaFile), meta); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	if err := WriteFileAtomic(r.AudioPath(user, fileID), audio, 0644); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}

	r.logger.Debug("saved track record", "user", user, "track", models.TrackID(fileID), "bytes", len(audio))
	return nil
}

// Meta reads a Track Record's metadata.
func (r *TrackRepository) Meta(ctx context.Context, user models.UserID, fileID string) (models.TrackMeta, error) {
	if err := ensureNotCanceled(ctx); err != nil {
		return models.TrackMeta{}, err
	}
	return readMeta(filepath.Join(r.Dir(user, fileID), metaFile))
}

// Records resolves every Track Record of a user into a view keyed by reference id.
//
// Directories with missing or unreadable metadata are skipped.
func (r *TrackRepository) Records(ctx context.Context, user models.UserID) (map[string]models.TrackView, error) {
	if err := ensureNotCanceled(ctx); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.UserDir(user))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]models.TrackView{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list %s: %v", shared.ErrPersistence, r.UserDir(user), err)
	}

	records := make(map[string]models.TrackView, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), models.TrackPrefix) {
			continue
		}
		dir := filepath.Join(r.UserDir(user), entry.Name())
		meta, err := readMeta(filepath.Join(dir, metaFile))
		if err != nil {
			r.logger.Warn("skipping unreadable track record", "user", user, "track", entry.Name(), "error", err)
			continue
		}
		meta = meta.WithDefaults()
		records[entry.Name()] = models.TrackView{
			ID:       entry.Name(),
			Title:    strings.ToLower(meta.Title),
			Artist:   meta.Artist,
			File:     filepath.ToSlash(filepath.Join(dir, audioFile)),
			Cover:    filepath.ToSlash(filepath.Join(dir, coverFile)),
			Duration: meta.Duration,
		}
	}
	return records, nil
}

func readMeta(path string) (models.TrackMeta, error) {
	var meta models.TrackMeta
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("decode %s: %w", path, err)
	}
	return meta, nil
}
