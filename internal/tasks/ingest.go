package tasks

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/go-mp3"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/repositories"
	"github.com/desertthunder/tunebox/internal/shared"
)

// Ingestor stores uploaded audio as Track Records and attaches them to playlists.
type Ingestor struct {
	store  *repositories.PlaylistStore
	tracks *repositories.TrackRepository
	covers *CoverPool
	logger *log.Logger
}

// NewIngestor creates an Ingestor. A nil covers pool leaves records without cover art.
func NewIngestor(store *repositories.PlaylistStore, covers *CoverPool, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Ingestor{
		store:  store,
		tracks: store.Tracks(),
		covers: covers,
		logger: shared.WithLogger(logger, "component", "ingest"),
	}
}

// Ingest persists an upload and attaches it to the target playlist (the default playlist when blank).
//
// Metadata and audio are written before any playlist mutation, so a persistence failure leaves the
// playlists untouched. The cover job is queued and never awaited.
func (i *Ingestor) Ingest(ctx context.Context, upload models.TrackUpload) (models.TrackRef, error) {
	if !upload.UserID.Valid() {
		return models.TrackRef{}, fmt.Errorf("%w: invalid user_id %q", shared.ErrInvalidInput, upload.UserID)
	}
	if !models.ValidID(upload.FileID) {
		return models.TrackRef{}, fmt.Errorf("%w: invalid file_id %q", shared.ErrInvalidInput, upload.FileID)
	}

	meta := models.TrackMeta{
		Title:    strings.TrimSpace(upload.Title),
		Artist:   strings.TrimSpace(upload.Artist),
		Duration: ProbeDuration(upload.Audio),
	}.WithDefaults()

	if err := i.tracks.Save(ctx, upload.UserID, upload.FileID, meta, upload.Audio); err != nil {
		return models.TrackRef{}, err
	}

	ref := models.TrackRef{ID: models.TrackID(upload.FileID), Title: meta.Title, Artist: meta.Artist}
	if i.covers != nil {
		i.covers.Submit(CoverJob{
			User:    upload.UserID,
			TrackID: ref.ID,
			Artist:  meta.Artist,
			Title:   meta.Title,
			Dest:    i.tracks.CoverPath(upload.UserID, upload.FileID),
		})
	}

	playlist := strings.TrimSpace(upload.Playlist)
	if playlist == "" {
		playlist = i.store.DefaultName()
	}
	if err := i.store.AttachTrack(ctx, upload.UserID, playlist, ref); err != nil {
		return models.TrackRef{}, err
	}

	i.logger.Info("ingested track", "user", upload.UserID, "track", ref.ID, "playlist", playlist,
		"title", meta.Title, "artist", meta.Artist, "duration", meta.Duration)
	return ref, nil
}

// ProbeDuration returns the length of MP3 audio in whole seconds, or 0 when it cannot be decoded.
func ProbeDuration(audio []byte) (seconds int) {
	if len(audio) == 0 {
		return 0
	}
	defer func() {
		if recover() != nil {
			seconds = 0
		}
	}()

	dec, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil || dec.SampleRate() <= 0 {
		return 0
	}
	length := dec.Length()
	if length <= 0 {
		return 0
	}
	// decoded samples are 16-bit stereo
	return int(length / int64(4*dec.SampleRate()))
}
