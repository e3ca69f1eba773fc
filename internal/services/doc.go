// Package services implements the outbound HTTP clients used by tunebox, all built on resty.
//
// # Cover Search
//
// [ITunesService] queries the iTunes Search API for a song by "<artist> <title>" and upgrades the
// first result's 100x100 artwork URL to 600x600. It also downloads the artwork bytes.
//
// # Chat API
//
// [TelegramService] wraps the subset of the Telegram Bot API the bot needs: long-polling updates,
// sending, editing and deleting messages, answering callback queries and downloading files.
//
// # Playlist API
//
// [APIService] is a client of the tunebox HTTP server, used when the bot runs in a separate
// process from the server.
//
// # Error Handling
//
// Transport failures and non-2xx responses are wrapped with [shared.ErrUpstream]. The playlist API
// client maps 400 and 404 back to [shared.ErrInvalidInput] and [shared.ErrNotFound].
package services
