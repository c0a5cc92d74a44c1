// Package server exposes the BeatBuddy JSON API over gin.
//
// # Sessions
//
// Login and signup create a server-side session row and set the [SessionCookie]. Routes
// behind the session middleware read the user id from the gin context; conversation
// routes additionally check ownership (missing is 404, someone else's is 403).
//
// # Routes
//
//   - POST /signup, /login, /logout; GET /user; PUT /user/genres
//   - /conversations CRUD, messages, and the chat turn at POST /api/messageGPT
//   - /conversations/:id/playlist CRUD, ?format= downloads, and /suggestions
//   - GET /auth/spotify (+ /callback), GET /spotify/status, POST /exportPlaylist
//   - GET /api/lastfm/tracks for login page artwork; GET /health
//
// Unmatched GETs fall through to the configured public directory.
//
// # Errors
//
// Domain errors map to statuses in one place (statusFor): validation is 400, missing
// sessions 401, ownership 403, missing rows 404, duplicates 409 and everything upstream
// or unexpected is a 500 with a short generic message.
//
// # Terminal OAuth
//
// [CallbackHandler] completes a Spotify authorization on a temporary listener for the CLI.
package server
