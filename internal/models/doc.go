// Package models defines the entities shared by the BeatBuddy store, services and HTTP layer.
//
// Persistent entities (written by internal/repositories):
//   - [User] : account with password hash, optional [SpotifyToken] and preferred genres
//   - [Conversation] : one chat session owned by a user
//   - [Message] : append-only chat history, ordered by timestamp
//   - [PlaylistEntry] : a song attached to a conversation's playlist
//
// Transient values:
//   - [Record] : a normalized Last.fm lookup; missing fields hold [Unknown]
//   - [Suggestion] : a candidate song from the suggestion engine
//   - [ChartTrack] : a charting song with artwork
//   - [ExportResult] : outcome of a Spotify export
//
// Persistent entities implement [Model].
package models
