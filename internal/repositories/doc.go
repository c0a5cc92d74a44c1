// Package repositories implements SQLite persistence for BeatBuddy (the playlist store).
//
// Each repository wraps a shared *sql.DB and takes a context on every call:
//   - [UserRepository] : accounts, Spotify tokens, preferred genres
//   - [SessionRepository] : cookie sessions and pending OAuth state
//   - [ConversationRepository] : conversations with cascading delete
//   - [MessageRepository] : append-only history; [MessageRepository.AppendTurn] writes a user/bot pair atomically
//   - [PlaylistRepository] : playlist entries with case-insensitive duplicate checks
//
// [Store] bundles them for callers that need more than one.
//
// Lookups of missing rows wrap [shared.ErrNotFound].
package repositories
