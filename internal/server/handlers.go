package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/desertthunder/tunebox/internal/tasks"
)

// multipartMemory is how much of an upload is kept in memory before spilling to temp files.
const multipartMemory = 32 << 20

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		WriteError(w, r, methodNotAllowed(r.Method))
		return false
	}
	return true
}

// AuthHandler resolves web app init data to a user id.
type AuthHandler struct {
	verifyToken string
	logger      *log.Logger
}

// NewAuthHandler creates an AuthHandler. A non-empty verifyToken enables signature checks.
func NewAuthHandler(verifyToken string, logger *log.Logger) *AuthHandler {
	return &AuthHandler{verifyToken: verifyToken, logger: logger}
}

func (h *AuthHandler) Routes() []string { return []string{"/auth"} }

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		InitData string `json:"tgWebAppData"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if req.InitData == "" {
		WriteError(w, r, fmt.Errorf("%w: Missing tgWebAppData", shared.ErrInvalidInput))
		return
	}

	if h.verifyToken != "" {
		if err := VerifyInitData(req.InitData, h.verifyToken); err != nil {
			h.logger.Warn("rejected init data", "error", err, "request_id", RequestIDFrom(r.Context()))
			WriteError(w, r, err)
			return
		}
	}

	user, err := ParseInitData(req.InitData)
	if err != nil {
		h.logger.Warn("failed to extract user id", "error", err, "request_id", RequestIDFrom(r.Context()))
		WriteError(w, r, err)
		return
	}

	h.logger.Info("authenticated", "user", user)
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userIDValue(user)})
}

// userIDValue renders numeric ids as JSON numbers, matching what the chat client sent.
func userIDValue(user models.UserID) any {
	s := user.String()
	if s != "" && strings.Trim(s, "0123456789") == "" && len(s) < 19 {
		return json.Number(s)
	}
	return s
}

// PlaylistHandler serves playlist listing and mutations.
type PlaylistHandler struct {
	library *tasks.Library
	logger  *log.Logger
}

// NewPlaylistHandler creates a PlaylistHandler.
func NewPlaylistHandler(library *tasks.Library, logger *log.Logger) *PlaylistHandler {
	return &PlaylistHandler{library: library, logger: logger}
}

func (h *PlaylistHandler) Routes() []string {
	return []string{"/playlists", "/create_playlist", "/delete_playlist"}
}

func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var err error
	switch r.URL.Path {
	case "/playlists":
		err = h.list(w, r)
	case "/create_playlist":
		err = h.create(w, r)
	case "/delete_playlist":
		err = h.delete(w, r)
	default:
		err = fmt.Errorf("%w: %s", shared.ErrNotFound, r.URL.Path)
	}
	if err != nil {
		h.logError(r, err)
		WriteError(w, r, err)
	}
}

func (h *PlaylistHandler) list(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		UserID models.UserID `json:"user_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.UserID == "" {
		return fmt.Errorf("%w: Missing user_id", shared.ErrInvalidInput)
	}

	playlists, err := h.library.Playlists(r.Context(), req.UserID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
	return nil
}

func (h *PlaylistHandler) create(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		UserID   models.UserID    `json:"user_id"`
		Playlist *models.Playlist `json:"playlist"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.UserID == "" || req.Playlist == nil || strings.TrimSpace(req.Playlist.Name) == "" {
		return fmt.Errorf("%w: Missing user_id or playlist data", shared.ErrInvalidInput)
	}

	playlists, err := h.library.Create(r.Context(), req.UserID, *req.Playlist)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "playlists": playlists})
	return nil
}

func (h *PlaylistHandler) delete(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		UserID       models.UserID `json:"user_id"`
		PlaylistName string        `json:"playlist_name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.UserID == "" || req.PlaylistName == "" {
		return fmt.Errorf("%w: Missing user_id or playlist_name", shared.ErrInvalidInput)
	}

	playlists, err := h.library.Delete(r.Context(), req.UserID, req.PlaylistName)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "playlists": playlists})
	return nil
}

func (h *PlaylistHandler) logError(r *http.Request, err error) {
	if StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("playlist request failed", "path", r.URL.Path, "error", err, "request_id", RequestIDFrom(r.Context()))
		return
	}
	h.logger.Debug("playlist request rejected", "path", r.URL.Path, "error", err)
}

// TrackHandler accepts multipart audio uploads.
type TrackHandler struct {
	library  *tasks.Library
	maxBytes int64
	logger   *log.Logger
}

// NewTrackHandler creates a TrackHandler accepting bodies up to maxBytes.
func NewTrackHandler(library *tasks.Library, maxBytes int64, logger *log.Logger) *TrackHandler {
	return &TrackHandler{library: library, maxBytes: maxBytes, logger: logger}
}

func (h *TrackHandler) Routes() []string { return []string{"/add_track"} }

// trackData is the JSON carried in the track_data form field.
type trackData struct {
	UserID       models.UserID `json:"user_id"`
	FileID       string        `json:"file_id"`
	Title        string        `json:"title"`
	Artist       string        `json:"artist"`
	PlaylistName string        `json:"playlist_name"`
}

func (h *TrackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	upload, err := h.parse(w, r)
	if err == nil {
		err = h.library.AddTrack(r.Context(), upload)
	}
	if err != nil {
		if StatusFor(err) >= http.StatusInternalServerError {
			h.logger.Error("failed to add track", "error", err, "request_id", RequestIDFrom(r.Context()))
		} else {
			h.logger.Debug("rejected upload", "error", err)
		}
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *TrackHandler) parse(w http.ResponseWriter, r *http.Request) (models.TrackUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.TrackUpload{}, &statusError{
				status: http.StatusRequestEntityTooLarge,
				msg:    fmt.Sprintf("upload exceeds %d bytes", h.maxBytes),
			}
		}
		return models.TrackUpload{}, fmt.Errorf("%w: invalid multipart form: %v", shared.ErrInvalidInput, err)
	}
	defer r.MultipartForm.RemoveAll()

	raw := r.FormValue("track_data")
	if strings.TrimSpace(raw) == "" {
		return models.TrackUpload{}, fmt.Errorf("%w: Missing track_data", shared.ErrInvalidInput)
	}
	var data trackData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return models.TrackUpload{}, fmt.Errorf("%w: invalid track_data: %v", shared.ErrInvalidInput, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return models.TrackUpload{}, fmt.Errorf("%w: Missing file", shared.ErrInvalidInput)
	}
	defer file.Close()

	if data.UserID == "" || data.FileID == "" {
		return models.TrackUpload{}, fmt.Errorf("%w: Invalid track_data: missing user_id or file_id", shared.ErrInvalidInput)
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		return models.TrackUpload{}, fmt.Errorf("%w: failed to read upload: %v", shared.ErrPersistence, err)
	}

	return models.TrackUpload{
		UserID:   data.UserID,
		FileID:   data.FileID,
		Title:    data.Title,
		Artist:   data.Artist,
		Playlist: data.PlaylistName,
		FileName: header.Filename,
		Audio:    audio,
	}, nil
}

// NewStaticHandler serves index.html at "/" and files under "/static/" from dir.
//
// Directory listings are never served.
func NewStaticHandler(dir string) http.Handler {
	files := http.StripPrefix("/static", http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
		case strings.HasPrefix(r.URL.Path, "/static/") && !strings.HasSuffix(r.URL.Path, "/"):
			files.ServeHTTP(w, r)
		default:
			WriteError(w, r, fmt.Errorf("%w: %s", shared.ErrNotFound, r.URL.Path))
		}
	})
}
