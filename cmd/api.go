package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/beatbuddy/internal/server"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/desertthunder/beatbuddy/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until the process is interrupted.
//
// Migrations run first so a fresh database is usable. Spotify routes answer 503 when
// the Spotify credentials are not configured.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if port := cmd.Int("port"); port > 0 {
		r.config.Server.Port = port
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	store, err := r.openStore()
	if err != nil {
		return err
	}
	if n, err := store.Sessions.PurgeExpired(ctx); err != nil {
		r.logger.Warn("failed to purge expired sessions", "error", err)
	} else if n > 0 {
		r.logger.Info("purged expired sessions", "count", n)
	}

	orchestrator, err := r.orchestrator(store)
	if err != nil {
		return err
	}
	metadata, err := r.metadataProvider()
	if err != nil {
		return err
	}

	deps := server.Dependencies{
		Store:       store,
		Chat:        orchestrator,
		Suggestions: r.suggestionEngine(store, metadata),
		Charts:      tasks.NewShowcase(metadata, r.logger),
		Metadata:    metadata,
		Logger:      r.logger,
	}
	spotify, err := r.spotifyService()
	if err != nil {
		return err
	}
	if spotify != nil {
		deps.Spotify = spotify
		exporter, err := r.exportEngine(store)
		if err != nil {
			return err
		}
		deps.Exporter = exporter
	} else {
		r.logger.Warn("spotify is not configured; export routes are disabled")
	}

	cfg := r.config.Server
	srv := server.New(deps, server.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		PublicDir:      cfg.PublicDir,
		DashboardURL:   cfg.DashboardURL,
		SessionTTL:     cfg.SessionTTL(),
		SecureCookies:  cfg.SecureCookies,
	})

	if cmd.Bool("open") {
		url := shared.LocalURL(cfg.Host, cfg.Port, "/")
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlain("Open %s in your browser\n", url)
		}
	}

	r.logger.Info("starting BeatBuddy", "addr", cfg.Addr(), "db", r.config.Database.Path)
	return srv.Run(ctx, cfg.Addr())
}
