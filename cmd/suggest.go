package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/urfave/cli/v3"
)

func conversationArg(cmd *cli.Command) (int64, error) {
	raw := cmd.StringArg("conversation")
	if raw == "" {
		return 0, fmt.Errorf("%w: conversation id", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: conversation id %q", shared.ErrInvalidArgument, raw)
	}
	return id, nil
}

func (r *Runner) writeSuggestions(songs []models.Suggestion) error {
	return r.emit(songs, func() error {
		if len(songs) == 0 {
			return r.writePlain("No suggestions\n")
		}
		for i, s := range songs {
			r.writePlain("%d. %s by %s\n", i+1, s.Title, s.Artist)
		}
		return nil
	})
}

// SuggestGenre builds a genre playlist. A short list is still printed with a warning.
func (r *Runner) SuggestGenre(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "genre")
	if err != nil {
		return err
	}
	store, err := r.openStore()
	if err != nil {
		return err
	}
	metadata, err := r.metadataProvider()
	if err != nil {
		return err
	}

	songs, err := r.suggestionEngine(store, metadata).BuildGenrePlaylist(ctx, args[0], cmd.Int("limit"))
	var insufficient *shared.InsufficientCandidatesError
	switch {
	case errors.As(err, &insufficient):
		r.logger.Warn("returning a partial list", "genre", insufficient.Genre, "wanted", insufficient.Wanted, "found", insufficient.Found)
	case err != nil:
		return err
	}
	return r.writeSuggestions(songs)
}

// SuggestPlaylist suggests songs related to a conversation's playlist.
func (r *Runner) SuggestPlaylist(ctx context.Context, cmd *cli.Command) error {
	convID, err := conversationArg(cmd)
	if err != nil {
		return err
	}
	store, err := r.openStore()
	if err != nil {
		return err
	}
	if _, err := store.Conversations.Get(ctx, convID); err != nil {
		return err
	}
	metadata, err := r.metadataProvider()
	if err != nil {
		return err
	}

	songs, err := r.suggestionEngine(store, metadata).SuggestForConversation(ctx, convID, cmd.Int("limit"))
	if err != nil {
		return err
	}
	return r.writeSuggestions(songs)
}
