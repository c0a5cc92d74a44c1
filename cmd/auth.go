package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/bcrypt"
)

// UserCreate registers an account with a bcrypt password hash, as signup does.
func (r *Runner) UserCreate(ctx context.Context, cmd *cli.Command) error {
	username := strings.TrimSpace(cmd.StringArg("username"))
	password := cmd.String("password")
	if username == "" {
		return fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}
	if password == "" {
		return fmt.Errorf("%w: --password", shared.ErrMissingArgument)
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return fmt.Errorf("%w: password must be at most 72 bytes", shared.ErrInvalidArgument)
	}
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: string(hash)}
	if err := store.Users.Create(ctx, user); err != nil {
		return err
	}
	r.logger.Info("user created", "id", user.ID, "username", user.Username)

	return r.emit(user, func() error {
		return r.writePlain("✓ Created user %s (id %d)\n", user.Username, user.ID)
	})
}

// UserGenres prints a user's preferred genres, replacing them first when --set is given.
func (r *Runner) UserGenres(ctx context.Context, cmd *cli.Command) error {
	username := strings.TrimSpace(cmd.StringArg("username"))
	store, err := r.openStore()
	if err != nil {
		return err
	}
	userID, err := r.lookupUser(ctx, store, username)
	if err != nil {
		return err
	}

	if genres := cmd.StringSlice("set"); len(genres) > 0 {
		if err := store.Users.SetGenres(ctx, userID, genres); err != nil {
			return err
		}
	}

	genres, err := store.Users.Genres(ctx, userID)
	if err != nil {
		return err
	}

	return r.emit(genres, func() error {
		if len(genres) == 0 {
			return r.writePlain("%s has no preferred genres\n", username)
		}
		r.writePlain("Preferred genres for %s:\n", username)
		for i, g := range genres {
			r.writePlain("%d. %s\n", i+1, g)
		}
		return nil
	})
}
