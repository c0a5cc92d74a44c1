// Package ui implements the terminal chat client using bubbletea's Elm architecture.
//
// The TUI moves between four views:
//  1. [ConversationListView] : Browse, create and delete conversations
//  2. [ChatView] : Talk to BeatBuddy; a spinner runs while a turn is in flight
//  3. [PlaylistView] : Review the conversation's playlist and remove songs
//  4. [ExportView] : Follow a Spotify export through its progress updates
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving results via the Msg union type.
// Chat turns run through the same orchestrator as the HTTP API, so playlists changed here show up in the web client.
// Export progress flows through a channel from the ExportEngine, providing non-blocking status reporting.
//
// Keyboard navigation uses vim-style bindings in lists (j/k, enter, esc, n, d, x, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
