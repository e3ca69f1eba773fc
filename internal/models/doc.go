// Package models defines the domain entities of the playlist service.
//
// Persisted shapes:
//   - [Playlist] : named, ordered list of [TrackRef] stored in a user's playlists.json
//   - [TrackRef] : reference to a Track Record with denormalized title/artist
//   - [TrackMeta] : contents of a Track Record's data.txt
//
// Views and inputs:
//   - [PlaylistView] / [TrackView] : playlists with references resolved against Track Records
//   - [TrackUpload] : an audio blob plus metadata headed for ingest
//
// [UserID] and file ids are restricted to a filesystem-safe charset because both become directory names.
package models
