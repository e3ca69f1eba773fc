// API service for the tunebox HTTP server
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

const defaultAPIBaseURL = "http://127.0.0.1:5002"

// APIError is the JSON error body returned by the server.
type APIError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// PlaylistsResponse is returned by the playlist routes.
type PlaylistsResponse struct {
	Status    string                `json:"status,omitempty"`
	Playlists []models.PlaylistView `json:"playlists"`
}

// TrackData is the `track_data` form field of an /add_track upload.
type TrackData struct {
	UserID       models.UserID `json:"user_id"`
	FileID       string        `json:"file_id"`
	Title        string        `json:"title,omitempty"`
	Artist       string        `json:"artist,omitempty"`
	PlaylistName string        `json:"playlist_name,omitempty"`
}

// APIService is a client of the tunebox HTTP server.
//
// It exposes the same playlist operations as the in-process library so the bot can run against
// a remote server.
type APIService struct {
	baseURL string
	client  *resty.Client
}

// NewAPIService creates a new API service instance for the tunebox server.
func NewAPIService(baseURL string, timeout time.Duration) *APIService {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	return &APIService{baseURL: baseURL, client: newClient(baseURL, timeout)}
}

// BaseURL returns the server address requests are sent to.
func (a *APIService) BaseURL() string { return a.baseURL }

// Playlists fetches the materialized playlists of a user.
func (a *APIService) Playlists(ctx context.Context, user models.UserID) ([]models.PlaylistView, error) {
	var out PlaylistsResponse
	if err := a.post(ctx, "/playlists", map[string]any{"user_id": user}, &out); err != nil {
		return nil, err
	}
	return out.Playlists, nil
}

// CreatePlaylist creates an empty playlist.
func (a *APIService) CreatePlaylist(ctx context.Context, user models.UserID, name string) error {
	body := map[string]any{
		"user_id":  user,
		"playlist": map[string]any{"name": name, "tracks": []models.TrackRef{}},
	}
	return a.post(ctx, "/create_playlist", body, nil)
}

// DeletePlaylist deletes every playlist of a user with the given name.
func (a *APIService) DeletePlaylist(ctx context.Context, user models.UserID, name string) error {
	return a.post(ctx, "/delete_playlist", map[string]any{"user_id": user, "playlist_name": name}, nil)
}

// AddTrack uploads audio bytes with their metadata as a multipart form.
func (a *APIService) AddTrack(ctx context.Context, upload models.TrackUpload) error {
	data, err := json.Marshal(TrackData{
		UserID:       upload.UserID,
		FileID:       upload.FileID,
		Title:        upload.Title,
		Artist:       upload.Artist,
		PlaylistName: upload.Playlist,
	})
	if err != nil {
		return fmt.Errorf("failed to encode track data: %w", err)
	}

	name := upload.FileName
	if name == "" {
		name = "song.mp3"
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{"track_data": string(data)}).
		SetFileReader("file", name, bytes.NewReader(upload.Audio)).
		Post("/add_track")
	return a.check(resp, err, nil)
}

// Auth exchanges a signed web app payload for the user id it carries.
func (a *APIService) Auth(ctx context.Context, initData string) (models.UserID, error) {
	var out struct {
		UserID models.UserID `json:"user_id"`
	}
	if err := a.post(ctx, "/auth", map[string]string{"tgWebAppData": initData}, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

func (a *APIService) post(ctx context.Context, path string, body, out any) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	return a.check(resp, err, out)
}

// check maps transport failures and error statuses onto the shared sentinel errors.
func (a *APIService) check(resp *resty.Response, err error, out any) error {
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}

	if resp.IsError() {
		var apiErr APIError
		_ = json.Unmarshal(resp.Body(), &apiErr)
		msg := apiErr.Error
		if msg == "" {
			msg = resp.Status()
		}

		switch resp.StatusCode() {
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", shared.ErrInvalidInput, msg)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", shared.ErrNotFound, msg)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", shared.ErrUnauthorized, msg)
		default:
			return fmt.Errorf("%w: %s %s", shared.ErrUpstream, resp.Request.URL, msg)
		}
	}

	if out == nil {
		return nil
	}
	return decode(resp, out)
}
