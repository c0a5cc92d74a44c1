// Package tasks holds the multi-step operations that sit between the HTTP/chat layer and
// the remote services.
//
// # Suggestions
//
// [SuggestionEngine] builds candidate song lists without duplicates:
//
//  1. [SuggestionEngine.BuildGenrePlaylist] : random walk over a genre's top artists and
//     their related tracks, bounded by AttemptsPerSong * n picks
//  2. [SuggestionEngine.BuildFromPreferences] : the same walk seeded by the user's favourite genre
//  3. [SuggestionEngine.BuildOnCurrentPlaylist] : one song per playlist entry, seeded by the entry's first tag
//  4. [SuggestionEngine.SuggestForConversation] : related tracks of the playlist, first n unseen
//
// Uniqueness is checked on [shared.NormalizeTrackKey], so casing and spacing differences
// count as the same song. An exhausted budget returns the partial list with
// [shared.InsufficientCandidatesError].
//
// # Export
//
// [ExportEngine] loads a user's Spotify token, refreshes it when expired (persisting the
// new pair under a per-user lock), and copies a conversation's playlist into a new private
// Spotify playlist.
//
// # Progress Reporting
//
// Export accepts an optional channel of [ProgressUpdate]. Updates use select with default
// so a slow or absent reader never blocks the export.
//
// # Showcase
//
// [Showcase.ChartTracks] pages the global chart and keeps one track per artist with artwork.
package tasks
