// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func limitFlag(value int) *cli.IntFlag {
	return &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"n"},
		Usage:   "Maximum number of results",
		Value:   value,
	}
}

func userFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Username of the account to act as",
		Required: true,
	}
}

// setupCommand creates the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml (if missing), initialize the database and run migrations",
		Action: r.Setup,
	}
}

// migrateCommand manages schema migrations.
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Apply pending database migrations",
		Action: r.Migrate,
		Commands: []*cli.Command{
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.Rollback,
			},
			{
				Name:   "status",
				Usage:  "List migrations and whether they are applied",
				Action: r.MigrationStatus,
			},
		},
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the BeatBuddy HTTP API and web client",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the web client in the default browser",
			},
		},
		Action: r.Serve,
	}
}

// chatCommand launches the terminal chat.
func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "chat",
		Aliases: []string{"tui"},
		Usage:   "Chat with BeatBuddy in the terminal",
		Flags:   []cli.Flag{userFlag()},
		Action:  r.Chat,
	}
}

// userCommand manages accounts.
func userCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage BeatBuddy accounts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an account",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "username"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "password",
						Usage:    "Account password",
						Required: true,
					},
				},
				Action: r.UserCreate,
			},
			{
				Name:  "genres",
				Usage: "Show or replace a user's preferred genres (favourite first)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "username"},
				},
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "set",
						Usage: "Genre to store; repeat for several",
					},
				},
				Action: r.UserGenres,
			},
		},
	}
}

// lastfmCommand exposes the metadata lookups the chat functions use.
func lastfmCommand(r *Runner) *cli.Command {
	artistTitle := []cli.Argument{&cli.StringArg{Name: "artist"}, &cli.StringArg{Name: "title"}}

	return &cli.Command{
		Name:    "lastfm",
		Aliases: []string{"fm"},
		Usage:   "Query Last.fm metadata",
		Commands: []*cli.Command{
			{
				Name:      "track",
				Usage:     "Track details",
				Arguments: artistTitle,
				Action:    r.LastFMTrack,
			},
			{
				Name:      "similar",
				Usage:     "Tracks similar to a track",
				Arguments: artistTitle,
				Flags:     []cli.Flag{limitFlag(5)},
				Action:    r.LastFMSimilar,
			},
			{
				Name:      "album",
				Usage:     "Album details",
				Arguments: []cli.Argument{&cli.StringArg{Name: "artist"}, &cli.StringArg{Name: "album"}},
				Action:    r.LastFMAlbum,
			},
			{
				Name:      "search",
				Usage:     "Search tracks (or albums with --albums) by name",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags: []cli.Flag{
					limitFlag(5),
					&cli.BoolFlag{Name: "albums", Usage: "Search albums instead of tracks"},
				},
				Action: r.LastFMSearch,
			},
			{
				Name:      "tag-tracks",
				Usage:     "Top tracks for a tag",
				Arguments: []cli.Argument{&cli.StringArg{Name: "tag"}},
				Flags:     []cli.Flag{limitFlag(5)},
				Action:    r.LastFMTagTracks,
			},
			{
				Name:      "tag-artists",
				Usage:     "Top artists for a tag",
				Arguments: []cli.Argument{&cli.StringArg{Name: "tag"}},
				Flags:     []cli.Flag{limitFlag(5)},
				Action:    r.LastFMTagArtists,
			},
			{
				Name:   "chart-artists",
				Usage:  "Global artist chart",
				Flags:  []cli.Flag{limitFlag(5)},
				Action: r.LastFMChartArtists,
			},
			{
				Name:   "chart-tags",
				Usage:  "Global tag chart",
				Flags:  []cli.Flag{limitFlag(5)},
				Action: r.LastFMChartTags,
			},
			{
				Name:   "chart-tracks",
				Usage:  "Charting tracks with artwork, one per artist",
				Flags:  []cli.Flag{limitFlag(10)},
				Action: r.LastFMChartTracks,
			},
		},
	}
}

// suggestCommand builds song suggestions.
func suggestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "suggest",
		Usage: "Build song suggestions",
		Commands: []*cli.Command{
			{
				Name:      "genre",
				Usage:     "Suggest unique songs for a genre",
				Arguments: []cli.Argument{&cli.StringArg{Name: "genre"}},
				Flags:     []cli.Flag{limitFlag(10)},
				Action:    r.SuggestGenre,
			},
			{
				Name:      "playlist",
				Usage:     "Suggest songs related to a conversation's playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "conversation"}},
				Flags:     []cli.Flag{limitFlag(5)},
				Action:    r.SuggestPlaylist,
			},
		},
	}
}

// playlistCommand reads and exports conversation playlists.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Inspect conversation playlists",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print a conversation's playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "conversation"}},
				Action:    r.PlaylistShow,
			},
			{
				Name:      "export",
				Usage:     "Write a conversation's playlist to a file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "conversation"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: csv, md or txt",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: playlist_<id>.<format>)",
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

// spotifyCommand connects accounts and exports playlists.
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account and export operations",
		Commands: []*cli.Command{
			{
				Name:   "connect",
				Usage:  "Authorize BeatBuddy to create playlists on a Spotify account",
				Flags:  []cli.Flag{userFlag()},
				Action: r.SpotifyConnect,
			},
			{
				Name:  "export",
				Usage: "Create a private Spotify playlist from a conversation's playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "conversation"},
				},
				Flags:  []cli.Flag{userFlag()},
				Action: r.SpotifyExport,
			},
		},
	}
}
