// Package repositories implements persistence for user collections and chat sessions.
//
// Key Implementations:
//   - [PlaylistStore] : per-user playlists.json with load-or-initialize, create, delete and track linking
//   - [TrackRepository] : per-track directories holding data.txt, song.mp3 and cover.jpeg
//   - [SessionRepository] : SQLite-backed conversation sessions for bots that must survive restarts
//
// On-disk layout under the data root:
//
//	user_<id>/playlists.json
//	user_<id>/track_<file_id>/{data.txt, song.mp3, cover.jpeg}
//
// Files are replaced atomically (temp file + rename) so readers never observe a partial write.
// Concurrent writers for the same user are serialized inside one process; across processes the last writer wins.
package repositories
