package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultTitle  = "Untitled"
	DefaultArtist = "Unknown Artist"

	// TrackPrefix prefixes both track reference ids and Track Record directory names.
	TrackPrefix = "track_"
	userPrefix  = "user_"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidID reports whether s may be used as a user id or source file id.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

// UserID identifies a User Collection. JSON input may be a number or a string.
type UserID string

// UnmarshalJSON accepts both `123` and `"123"`.
func (u *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = UserID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user id must be a number or string: %w", err)
	}
	*u = UserID(n.String())
	return nil
}

// Valid reports whether the id is non-empty and filesystem safe.
func (u UserID) Valid() bool { return ValidID(string(u)) }

// Dir is the user's directory name under the data root.
func (u UserID) Dir() string { return userPrefix + string(u) }

func (u UserID) String() string { return string(u) }

// TrackID builds the reference id for a source file id.
func TrackID(fileID string) string { return TrackPrefix + fileID }

// TrackRef is a Track Reference stored inside a [Playlist].
type TrackRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Playlist is a named, ordered collection of track references.
type Playlist struct {
	Name   string     `json:"name"`
	Tracks []TrackRef `json:"tracks"`
}

// NewPlaylist returns an empty playlist with a non-nil track slice so it encodes as [].
func NewPlaylist(name string, tracks ...TrackRef) Playlist {
	if tracks == nil {
		tracks = []TrackRef{}
	}
	return Playlist{Name: name, Tracks: tracks}
}

// Contains reports whether a reference with id is already present.
func (p Playlist) Contains(id string) bool {
	for _, t := range p.Tracks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Names returns playlist names in order.
func Names(playlists []Playlist) []string {
	names := make([]string, len(playlists))
	for i, p := range playlists {
		names[i] = p.Name
	}
	return names
}

// TrackMeta is the JSON stored in a Track Record's data.txt.
type TrackMeta struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Duration int    `json:"duration,omitempty"`
}

// WithDefaults fills empty title/artist with the defaults.
func (m TrackMeta) WithDefaults() TrackMeta {
	if strings.TrimSpace(m.Title) == "" {
		m.Title = DefaultTitle
	}
	if strings.TrimSpace(m.Artist) == "" {
		m.Artist = DefaultArtist
	}
	return m
}

// TrackView is a resolved Track Record as served in playlist listings.
type TrackView struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	File     string `json:"file"`
	Cover    string `json:"cover"`
	Duration int    `json:"duration,omitempty"`
}

// PlaylistView is a playlist with its references materialized.
type PlaylistView struct {
	Name   string      `json:"name"`
	Tracks []TrackView `json:"tracks"`
}

// TrackUpload is an audio blob plus metadata headed for a playlist.
type TrackUpload struct {
	UserID   UserID
	FileID   string
	Title    string
	Artist   string
	Playlist string
	FileName string
	Audio    []byte
}

// ConversationState is the pending-input state of a chat session.
type ConversationState int

const (
	StateIdle ConversationState = iota
	StateAwaitingPlaylistName
	StateAwaitingDeleteConfirmation
)

func (s ConversationState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPlaylistName:
		return "awaiting_playlist_name"
	case StateAwaitingDeleteConfirmation:
		return "awaiting_delete_confirmation"
	default:
		return "unknown"
	}
}

// Session is the per-user conversation state.
type Session struct {
	UserID          UserID            `json:"user_id"`
	ChatID          int64             `json:"chat_id"`
	State           ConversationState `json:"state"`
	CurrentPlaylist string            `json:"current_playlist"`
	Playlists       []string          `json:"playlists"`
	MenuMessageID   int               `json:"menu_message_id"`
}

// NewSession returns an idle session for user.
func NewSession(user UserID) *Session {
	return &Session{UserID: user, State: StateIdle}
}

// Clone returns a deep copy so stores never share the playlists slice with callers.
func (s *Session) Clone() *Session {
	c := *s
	c.Playlists = append([]string(nil), s.Playlists...)
	return &c
}
