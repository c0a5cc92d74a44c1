package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/beatbuddy/internal/formatter"
	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/tasks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) conversationPlaylist(ctx context.Context, cmd *cli.Command) (*models.Conversation, []models.PlaylistEntry, error) {
	convID, err := conversationArg(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := r.openStore()
	if err != nil {
		return nil, nil, err
	}
	conv, err := store.Conversations.Get(ctx, convID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := store.Playlists.List(ctx, convID)
	if err != nil {
		return nil, nil, err
	}
	return conv, entries, nil
}

func playlistTitle(conv *models.Conversation) string {
	if conv.Title != "" {
		return conv.Title
	}
	return fmt.Sprintf("Conversation %d", conv.ID)
}

// PlaylistShow prints a conversation's playlist in insertion order.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	conv, entries, err := r.conversationPlaylist(ctx, cmd)
	if err != nil {
		return err
	}

	return r.emit(entries, func() error {
		data, err := formatter.ExportToText(playlistTitle(conv), entries)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	})
}

// PlaylistExport writes a conversation's playlist as csv, md or txt.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	conv, entries, err := r.conversationPlaylist(ctx, cmd)
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(format, playlistTitle(conv), entries, cmd.String("output"), conv.ID)
	if err != nil {
		return err
	}
	r.logger.Infof("playlist exported to %v with %v songs", path, len(entries))
	return r.writePlain("✓ Playlist exported to %s (%d songs)\n", path, len(entries))
}

// SpotifyExport creates a private Spotify playlist from a conversation's songs, streaming progress.
func (r *Runner) SpotifyExport(ctx context.Context, cmd *cli.Command) error {
	convID, err := conversationArg(cmd)
	if err != nil {
		return err
	}
	store, err := r.openStore()
	if err != nil {
		return err
	}
	userID, err := r.lookupUser(ctx, store, cmd.String("user"))
	if err != nil {
		return err
	}
	if _, err := store.Conversations.GetOwned(ctx, convID, userID); err != nil {
		return err
	}
	if err := r.config.ValidateSpotify(); err != nil {
		return err
	}
	engine, err := r.exportEngine(store)
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if r.jsonOutput {
				continue
			}
			switch update.Phase {
			case tasks.SearchTracks:
				r.writePlain("   %s\n", update.Message)
			case tasks.ExportPlaylist:
				r.writePlain("\n%s\n", update.Message)
			default:
				r.writePlain("→ %s\n", update.Message)
			}
		}
	}()

	result, err := engine.ExportPlaylist(ctx, userID, convID, progressCh)
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	return r.emit(result, func() error {
		r.writePlain("\n")
		r.writePlainHeader("Playlist exported to Spotify")
		r.writePlain("Name: %s\n", result.Name)
		r.writePlain("Added: %d/%d tracks\n", result.Added, result.TotalTracks)
		r.writePlain("URL: %s\n", result.URL)
		if len(result.Unmatched) > 0 {
			r.writePlain("\nNot found on Spotify (%d):\n", len(result.Unmatched))
			for _, song := range result.Unmatched {
				r.writePlain("  • %s\n", song)
			}
		}
		return nil
	})
}
