package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/services"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/desertthunder/beatbuddy/internal/tasks"
	"github.com/urfave/cli/v3"
)

func requireArgs(cmd *cli.Command, names ...string) ([]string, error) {
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = strings.TrimSpace(cmd.StringArg(name))
		if values[i] == "" {
			return nil, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
		}
	}
	return values, nil
}

// withMetadata runs fn against the configured metadata provider.
func (r *Runner) withMetadata(fn func(services.MetadataProvider) error) error {
	metadata, err := r.metadataProvider()
	if err != nil {
		return err
	}
	return fn(metadata)
}

func (r *Runner) writeRecord(rec models.Record) {
	r.writePlain("%s - %s\n", rec.Artist, rec.Title)
	if rec.Type == models.RecordTrack && rec.Album != models.Unknown {
		r.writePlain("   Album: %s\n", rec.Album)
	}
	if rec.ReleaseDate != models.Unknown {
		r.writePlain("   Released: %s\n", rec.ReleaseDate)
	}
	if len(rec.TopTags) > 0 {
		r.writePlain("   Tags: %s\n", strings.Join(rec.TopTags, ", "))
	}
	if rec.ImageURL != models.NoImage {
		r.writePlain("   Artwork: %s\n", rec.ImageURL)
	}
}

func (r *Runner) writeRecords(records []models.Record, err error) error {
	if err != nil {
		return err
	}
	return r.emit(records, func() error {
		if len(records) == 0 {
			return r.writePlain("No results\n")
		}
		for i, rec := range records {
			r.writePlain("%d. ", i+1)
			r.writeRecord(rec)
		}
		return nil
	})
}

// LastFMTrack prints one track's details.
func (r *Runner) LastFMTrack(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "artist", "title")
	if err != nil {
		return err
	}
	return r.withMetadata(func(m services.MetadataProvider) error {
		rec, err := m.TrackInfo(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return r.emit(rec, func() error {
			r.writeRecord(rec)
			return nil
		})
	})
}

// LastFMSimilar prints tracks similar to one track.
func (r *Runner) LastFMSimilar(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "artist", "title")
	if err != nil {
		return err
	}
	return r.withMetadata(func(m services.MetadataProvider) error {
		return r.writeRecords(m.RelatedTracks(ctx, args[0], args[1], cmd.Int("limit")))
	})
}

// LastFMAlbum prints one album's details.
func (r *Runner) LastFMAlbum(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "artist", "album")
	if err != nil {
		return err
	}
	return r.withMetadata(func(m services.MetadataProvider) error {
		rec, err := m.AlbumInfo(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return r.emit(rec, func() error {
			r.writeRecord(rec)
			return nil
		})
	})
}

// LastFMSearch searches tracks, or albums with --albums.
func (r *Runner) LastFMSearch(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "query")
	if err != nil {
		return err
	}
	return r.withMetadata(func(m services.MetadataProvider) error {
		if cmd.Bool("albums") {
			return r.writeRecords(m.SearchAlbum(ctx, args[0], cmd.Int("limit")))
		}
		return r.writeRecords(m.SearchTrack(ctx, args[0], cmd.Int("limit")))
	})
}

// LastFMTagTracks prints the top tracks of a tag.
func (r *Runner) LastFMTagTracks(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "tag")
	if err != nil {
		return err
	}
	return r.withMetadata(func(m services.MetadataProvider) error {
		return r.writeRecords(m.TagTopTracks(ctx, args[0], cmd.Int("limit")))
	})
}

// LastFMTagArtists prints the top artists of a tag.
func (r *Runner) LastFMTagArtists(ctx context.Context, cmd *cli.Command) error {
	args, err := requireArgs(cmd, "tag")
	if err != nil {
		return err
	}
	return r.withMetadata(func(m services.MetadataProvider) error {
		return r.writeRecords(m.TagTopArtists(ctx, args[0], cmd.Int("limit")))
	})
}

// LastFMChartArtists prints the global artist chart.
func (r *Runner) LastFMChartArtists(ctx context.Context, cmd *cli.Command) error {
	return r.withMetadata(func(m services.MetadataProvider) error {
		return r.writeRecords(m.ChartTopArtists(ctx, cmd.Int("limit")))
	})
}

// LastFMChartTags prints the global tag chart.
func (r *Runner) LastFMChartTags(ctx context.Context, cmd *cli.Command) error {
	return r.withMetadata(func(m services.MetadataProvider) error {
		tags, err := m.ChartTopTags(ctx, cmd.Int("limit"))
		if err != nil {
			return err
		}
		return r.emit(tags, func() error {
			for i, tag := range tags {
				r.writePlain("%d. %s\n", i+1, tag)
			}
			return nil
		})
	})
}

// LastFMChartTracks prints the login-page showcase: one charting track per artist, with artwork.
func (r *Runner) LastFMChartTracks(ctx context.Context, cmd *cli.Command) error {
	return r.withMetadata(func(m services.MetadataProvider) error {
		tracks, err := tasks.NewShowcase(m, r.logger).ChartTracks(ctx, cmd.Int("limit"))
		if err != nil {
			return err
		}
		return r.emit(tracks, func() error {
			for i, t := range tracks {
				r.writePlain("%d. %s - %s\n   %s\n", i+1, t.ArtistName, t.TrackName, t.ImageURL)
			}
			return nil
		})
	})
}
