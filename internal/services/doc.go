// Package services wraps the remote APIs used by BeatBuddy.
//
// # Metadata
//
// [LastFMService] implements [MetadataProvider] on top of the Last.fm web service.
// Requests go through a resty client with bounded retries and a token-bucket limiter.
// Response bodies are read with gjson and flattened into [models.Record] by
// [NormalizeTrack], [NormalizeAlbum] and [NormalizeArtist]. Missing fields become
// [models.Unknown]; missing artwork becomes [models.NoImage].
//
// Last.fm reports most failures as HTTP 200 with an "error" field. Both that form and
// transport failures surface as [shared.ProviderError].
//
// # Chat Model
//
// [ChatModel] is a provider-neutral function-calling interface. [OpenAIService] adapts it
// to the OpenAI chat completions API; the chat package only sees [ChatMessage],
// [ToolDefinition] and [Completion].
//
// # Spotify
//
// [SpotifyService] holds the OAuth2 configuration (authorize URL, code exchange).
// [SpotifyService.Client] builds a per-user [SpotifyClient] whose token source refreshes
// an expired access token and reports the new token through a callback so it can be persisted.
//
// Export uses three endpoints:
//   - GET /me
//   - POST /users/{id}/playlists
//   - GET /search, then POST /playlists/{id}/tracks in batches of 100
package services
