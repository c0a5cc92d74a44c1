package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/server"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// SpotifyConnect runs the authorization code flow for a user from the terminal.
//
// A temporary listener serves the redirect URI's path, the browser opens the consent page
// and the exchanged token pair is stored on the user's account.
func (r *Runner) SpotifyConnect(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.ValidateSpotify(); err != nil {
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
	spotify, err := r.spotifyService()
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(ctx, spotify, r.config.Credentials.Spotify.RedirectURI)
	if err != nil {
		return err
	}

	stored := models.SpotifyToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if err := store.Users.UpdateSpotifyToken(ctx, userID, stored); err != nil {
		return fmt.Errorf("failed to store spotify token: %w", err)
	}

	r.writePlainln("✓ Spotify connected")
	r.writePlain("You can now use: beatbuddy spotify export <conversation> --user %s\n", cmd.String("user"))
	return nil
}

// doOAuth serves the callback at redirectURI until one result arrives or two minutes pass.
func (r *Runner) doOAuth(ctx context.Context, auth server.SpotifyAuth, redirectURI string) (*oauth2.Token, error) {
	redirect, err := url.Parse(redirectURI)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, redirectURI)
	}
	addr := redirect.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(redirect.Hostname(), "80")
	}

	state := shared.GenerateID()
	handler := server.NewCallbackHandler(auth, state, redirect.Path)
	mux := http.NewServeMux()
	mux.Handle(handler.Path(), handler)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback listener at %v", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down callback listener", "error", err)
		}
	}()

	authURL := auth.AuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}
	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback listener error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := result.Error(); err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}
	return result.Token, nil
}
