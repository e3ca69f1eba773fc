package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

const (
	textChoosePlaylist = "🎵 Choose a playlist to add tracks to:"
	textLoadFailed     = "❌ Could not load your playlists. Try /start again later."
	textNamePrompt     = "Enter a name for the new playlist:"
	textNameEmpty      = "The name cannot be empty. Try again:"
	textNotFound       = "❌ Playlist not found"
	textStale          = "This button is no longer active."
	textUseButtons     = "Please answer with the Yes or No buttons."
)

// ConversationOpts configures a [Conversation].
type ConversationOpts struct {
	Backend         Backend
	Files           FileFetcher
	Sessions        SessionStore
	DefaultPlaylist string
	WebAppURL       string
	Logger          *log.Logger
}

// Conversation is the per-user chat state machine.
type Conversation struct {
	backend     Backend
	files       FileFetcher
	sessions    SessionStore
	defaultName string
	webAppURL   string
	logger      *log.Logger
}

// NewConversation creates a Conversation. Sessions default to a [MemoryStore].
func NewConversation(opts ConversationOpts) *Conversation {
	if opts.Sessions == nil {
		opts.Sessions = NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Conversation{
		backend:     opts.Backend,
		files:       opts.Files,
		sessions:    opts.Sessions,
		defaultName: opts.DefaultPlaylist,
		webAppURL:   opts.WebAppURL,
		logger:      shared.WithLogger(opts.Logger, "component", "conversation"),
	}
}

// Session returns a copy of the user's current session.
func (c *Conversation) Session(ctx context.Context, user models.UserID) (*models.Session, error) {
	return c.sessions.Get(ctx, user)
}

// Handle applies an event to the user's session and returns the reply to render.
//
// The returned error is reserved for session storage failures; backend failures are rendered
// as visible error replies.
func (c *Conversation) Handle(ctx context.Context, ev Event) (Reply, error) {
	session, err := c.sessions.Get(ctx, ev.UserID)
	if err != nil {
		return Reply{}, err
	}
	if ev.ChatID != 0 {
		session.ChatID = ev.ChatID
	}

	before := session.State
	var reply Reply
	switch ev.Kind {
	case EventCommand:
		reply = c.command(ctx, session, ev)
	case EventText:
		reply = c.text(ctx, session, ev)
	case EventCallback:
		reply = c.callback(ctx, session, ev)
	case EventAudio:
		reply = c.audio(ctx, session, ev)
	default:
		return Reply{}, fmt.Errorf("%w: unknown event kind %d", shared.ErrInvalidInput, ev.Kind)
	}

	if err := c.sessions.Save(ctx, session); err != nil {
		return Reply{}, err
	}
	c.logger.Debug("handled event", "user", ev.UserID, "kind", ev.Kind, "from", before, "to", session.State)
	return reply, nil
}

// RememberMenu records the id of a sent menu message so it can be removed later.
func (c *Conversation) RememberMenu(ctx context.Context, user models.UserID, chatID int64, messageID int) error {
	session, err := c.sessions.Get(ctx, user)
	if err != nil {
		return err
	}
	session.ChatID = chatID
	session.MenuMessageID = messageID
	return c.sessions.Save(ctx, session)
}

func (c *Conversation) command(ctx context.Context, s *models.Session, ev Event) Reply {
	cmd, _, _ := strings.Cut(strings.TrimSpace(ev.Text), " ")
	cmd, _, _ = strings.Cut(cmd, "@")

	switch cmd {
	case "/start":
		s.State = models.StateIdle
		s.Playlists = nil
		if err := c.refresh(ctx, s); err != nil {
			c.logger.Error("failed to fetch playlists", "user", s.UserID, "error", err)
			return Reply{Mode: ReplySend, Text: textLoadFailed}
		}
		s.CurrentPlaylist = c.pickDefault(s.Playlists)
		return c.playlistMenu(ReplySend, textChoosePlaylist, s)
	default:
		return c.text(ctx, s, Event{Kind: EventText, Text: ev.Text, UserID: ev.UserID})
	}
}

func (c *Conversation) text(ctx context.Context, s *models.Session, ev Event) Reply {
	switch s.State {
	case models.StateAwaitingPlaylistName:
		return c.createPlaylist(ctx, s, strings.TrimSpace(ev.Text))
	case models.StateAwaitingDeleteConfirmation:
		return Reply{Mode: ReplySend, Text: textUseButtons, Keyboard: confirmKeyboard()}
	default:
		hint := "Send /start to manage playlists."
		if s.CurrentPlaylist != "" {
			hint = fmt.Sprintf("Send an audio file to add it to %q, or /start to manage playlists.", s.CurrentPlaylist)
		}
		return Reply{Mode: ReplySend, Text: hint}
	}
}

func (c *Conversation) createPlaylist(ctx context.Context, s *models.Session, name string) Reply {
	if name == "" {
		return Reply{Mode: ReplySend, Text: textNameEmpty}
	}

	if err := c.backend.CreatePlaylist(ctx, s.UserID, name); err != nil {
		c.logger.Error("failed to create playlist", "user", s.UserID, "playlist", name, "error", err)
		return Reply{Mode: ReplySend, Text: fmt.Sprintf("❌ Could not create the playlist: %v", err)}
	}

	if err := c.refresh(ctx, s); err != nil {
		c.logger.Warn("failed to refresh playlists after create", "user", s.UserID, "error", err)
		if !contains(s.Playlists, name) {
			s.Playlists = append(s.Playlists, name)
		}
	}
	s.CurrentPlaylist = name
	s.State = models.StateIdle

	reply := c.playlistMenu(ReplySend, fmt.Sprintf("✅ Playlist %q created! Choose a playlist:", name), s)
	reply.DeleteMessageID = s.MenuMessageID
	s.MenuMessageID = 0
	return reply
}

func (c *Conversation) callback(ctx context.Context, s *models.Session, ev Event) Reply {
	stale := Reply{Mode: ReplyNone, Notice: textStale}

	switch s.State {
	case models.StateAwaitingDeleteConfirmation:
		switch ev.Data {
		case CallbackConfirmDelete:
			s.MenuMessageID = ev.MessageID
			return c.deletePlaylist(ctx, s)
		case CallbackCancelDelete:
			s.State = models.StateIdle
			s.MenuMessageID = ev.MessageID
			return c.selectedMenu(fmt.Sprintf("Kept %q.", s.CurrentPlaylist))
		}
		return stale
	case models.StateAwaitingPlaylistName:
		return stale
	}

	if i, ok := parseSelect(ev.Data); ok {
		s.MenuMessageID = ev.MessageID
		if len(s.Playlists) == 0 {
			if err := c.refresh(ctx, s); err != nil {
				return Reply{Mode: ReplyEdit, Text: textLoadFailed}
			}
		}
		if i >= len(s.Playlists) {
			return Reply{Mode: ReplyEdit, Text: textNotFound}
		}
		s.CurrentPlaylist = s.Playlists[i]
		return c.selectedMenu(fmt.Sprintf("✅ Selected %q. Send an audio file to add it!", s.CurrentPlaylist))
	}

	switch ev.Data {
	case CallbackBackToSelect:
		s.MenuMessageID = ev.MessageID
		if len(s.Playlists) == 0 {
			if err := c.refresh(ctx, s); err != nil {
				return Reply{Mode: ReplyEdit, Text: textLoadFailed}
			}
		}
		return c.playlistMenu(ReplyEdit, textChoosePlaylist, s)
	case CallbackCreatePlaylist:
		s.MenuMessageID = ev.MessageID
		s.State = models.StateAwaitingPlaylistName
		return Reply{Mode: ReplyEdit, Text: textNamePrompt}
	case CallbackDeletePlaylist:
		if s.CurrentPlaylist == "" {
			return Reply{Mode: ReplyNone, Notice: "Select a playlist first."}
		}
		s.MenuMessageID = ev.MessageID
		s.State = models.StateAwaitingDeleteConfirmation
		return Reply{
			Mode:     ReplyEdit,
			Text:     fmt.Sprintf("Delete %q? Its tracks stay on the server but this cannot be undone.", s.CurrentPlaylist),
			Keyboard: confirmKeyboard(),
		}
	}
	return stale
}

func (c *Conversation) deletePlaylist(ctx context.Context, s *models.Session) Reply {
	name := s.CurrentPlaylist
	s.State = models.StateIdle

	if err := c.backend.DeletePlaylist(ctx, s.UserID, name); err != nil {
		c.logger.Error("failed to delete playlist", "user", s.UserID, "playlist", name, "error", err)
		return c.playlistMenu(ReplyEdit, fmt.Sprintf("❌ Could not delete %q: %v", name, err), s)
	}

	if err := c.refresh(ctx, s); err != nil {
		c.logger.Warn("failed to refresh playlists after delete", "user", s.UserID, "error", err)
		s.Playlists = remove(s.Playlists, name)
	}
	s.CurrentPlaylist = c.defaultName
	if len(s.Playlists) > 0 {
		s.CurrentPlaylist = s.Playlists[0]
	}
	return c.playlistMenu(ReplyEdit, fmt.Sprintf("🗑 Deleted %q. Choose a playlist:", name), s)
}

func (c *Conversation) audio(ctx context.Context, s *models.Session, ev Event) Reply {
	if ev.Audio == nil || ev.Audio.FileID == "" {
		return Reply{Mode: ReplySend, Text: "❌ The message has no audio file."}
	}

	playlist := s.CurrentPlaylist
	if playlist == "" {
		playlist = c.defaultName
	}

	failure := func(msg string, err error) Reply {
		c.logger.Error(msg, "user", s.UserID, "file", ev.Audio.FileID, "error", err)
		reply := Reply{Mode: ReplySend, Text: fmt.Sprintf("❌ %s: %v", msg, err)}
		if s.State == models.StateIdle && len(s.Playlists) > 0 {
			reply.Keyboard = playlistKeyboard(s.Playlists)
		}
		return reply
	}

	if c.files == nil {
		return failure("Could not download the audio file", shared.ErrServiceUnavailable)
	}
	data, err := c.files.Fetch(ctx, ev.Audio.FileID)
	if err != nil {
		return failure("Could not download the audio file", err)
	}

	title := ev.Audio.Title
	if strings.TrimSpace(title) == "" {
		title = models.DefaultTitle
	}
	upload := models.TrackUpload{
		UserID:   s.UserID,
		FileID:   ev.Audio.FileID,
		Title:    title,
		Artist:   ev.Audio.Performer,
		Playlist: playlist,
		FileName: ev.Audio.FileName,
		Audio:    data,
	}
	if err := c.backend.AddTrack(ctx, upload); err != nil {
		return failure("Could not add the track", err)
	}

	c.logger.Info("track added", "user", s.UserID, "playlist", playlist, "title", title)
	return Reply{Mode: ReplySend, Text: fmt.Sprintf("✅ Track %q added to %q!", title, playlist)}
}

// refresh replaces the session's playlist snapshot with the backend's current names.
func (c *Conversation) refresh(ctx context.Context, s *models.Session) error {
	views, err := c.backend.Playlists(ctx, s.UserID)
	if err != nil {
		return err
	}
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.Name
	}
	s.Playlists = names
	return nil
}

func (c *Conversation) pickDefault(names []string) string {
	if contains(names, c.defaultName) || len(names) == 0 {
		return c.defaultName
	}
	return names[0]
}

func (c *Conversation) playlistMenu(mode ReplyMode, header string, s *models.Session) Reply {
	text := header
	if s.CurrentPlaylist != "" {
		text = fmt.Sprintf("%s\nCurrent: %q", header, s.CurrentPlaylist)
	}
	return Reply{Mode: mode, Text: text, Keyboard: playlistKeyboard(s.Playlists), Menu: mode == ReplySend}
}

func (c *Conversation) selectedMenu(text string) Reply {
	return Reply{Mode: ReplyEdit, Text: text, Keyboard: selectedKeyboard(c.webAppURL)}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func remove(names []string, name string) []string {
	out := names[:0:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
