// Package bot implements the chat side of tunebox: the per-user conversation state machine and the
// Telegram long-polling dispatcher that feeds it.
//
// # Conversation
//
// [Conversation.Handle] turns an [Event] (start command, free text, button callback or audio) into a
// [Reply]. Session state lives in a [SessionStore] injected at construction: [MemoryStore] keeps it
// in process, [repositories.SessionRepository] keeps it in SQLite across restarts.
//
// States:
//   - idle: menus are active, audio goes to the current playlist
//   - awaiting_playlist_name: the next text message names a new playlist
//   - awaiting_delete_confirmation: only the Yes/No buttons are active
//
// Handlers for the same user are not serialized; concurrent events race on the session and the
// playlists file, and the last write wins.
//
// # Backends
//
// The conversation reaches playlists through a [Backend]: [tasks.Library] in-process, or
// [services.APIService] when the HTTP server runs elsewhere.
package bot
