package bot

import (
	"context"

	"github.com/desertthunder/tunebox/internal/models"
)

// Backend is the set of playlist operations the conversation needs.
type Backend interface {
	Playlists(ctx context.Context, user models.UserID) ([]models.PlaylistView, error)
	CreatePlaylist(ctx context.Context, user models.UserID, name string) error
	DeletePlaylist(ctx context.Context, user models.UserID, name string) error
	AddTrack(ctx context.Context, upload models.TrackUpload) error
}

// FileFetcher downloads a chat attachment by file id.
type FileFetcher interface {
	Fetch(ctx context.Context, fileID string) ([]byte, error)
}

// EventKind classifies an inbound [Event].
type EventKind int

const (
	EventCommand EventKind = iota
	EventText
	EventCallback
	EventAudio
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventCallback:
		return "callback"
	case EventAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Audio describes an audio attachment.
type Audio struct {
	FileID    string
	Title     string
	Performer string
	FileName  string
}

// Event is one inbound chat interaction.
type Event struct {
	Kind      EventKind
	UserID    models.UserID
	ChatID    int64
	MessageID int    // message the event came from; for callbacks, the message carrying the buttons
	Text      string // command or free text
	Data      string // callback data
	Audio     *Audio
}

// ReplyMode says how a [Reply] reaches the chat.
type ReplyMode int

const (
	ReplyNone ReplyMode = iota // only a callback notice, if any
	ReplySend                  // send a new message
	ReplyEdit                  // edit the message the callback came from
)

// Reply is the conversation's response to an [Event].
type Reply struct {
	Mode     ReplyMode
	Text     string
	Keyboard Keyboard
	// Notice is shown as a callback answer.
	Notice string
	// DeleteMessageID is a stale menu message to remove before sending.
	DeleteMessageID int
	// Menu marks a sent message as the session's new menu message.
	Menu bool
}
