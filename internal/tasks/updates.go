package tasks

import (
	"fmt"

	"github.com/desertthunder/beatbuddy/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ConnectSpotify Phase = iota
	LoadPlaylist
	CreatePlaylist
	SearchTracks
	AddTracks
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case ConnectSpotify:
		return "connect_spotify"
	case LoadPlaylist:
		return "load_playlist"
	case CreatePlaylist:
		return "create_playlist"
	case SearchTracks:
		return "search_tracks"
	case AddTracks:
		return "add_tracks"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func connectUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   ConnectSpotify,
		Step:    1,
		Total:   1,
		Message: "Connecting to Spotify...",
	}
}

func loadPlaylistUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded playlist (%d songs)", count),
	}
}

func createPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q on Spotify...", name),
	}
}

func searchTracksUpdate(step, total int, entry *models.PlaylistEntry) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, entry.Artist, entry.Title),
		Data:    entry,
	}
}

func unmatchedTrackUpdate(step, total int, entry *models.PlaylistEntry) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ not found: %s - %s", step, total, entry.Artist, entry.Title),
		Data:    entry,
	}
}

func addTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d tracks...", count),
	}
}

func exportCompletedUpdate(result *models.ExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ %s (%d/%d tracks)", result.Name, result.Added, result.TotalTracks),
		Data:    result,
	}
}
