package tasks

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/services"
	"github.com/desertthunder/beatbuddy/internal/shared"
)

const (
	showcasePageSize = 50
	showcaseMaxPages = 5
)

// Showcase assembles charting tracks with artwork for the login page.
type Showcase struct {
	metadata services.MetadataProvider
	maxPages int
	logger   *log.Logger
}

// NewShowcase creates a showcase backed by metadata.
func NewShowcase(metadata services.MetadataProvider, logger *log.Logger) *Showcase {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Showcase{
		metadata: metadata,
		maxPages: showcaseMaxPages,
		logger:   shared.WithLogger(logger, "component", "showcase"),
	}
}

// ChartTracks returns up to limit charting tracks, one per artist, each with its
// extralarge artwork or [models.NoImage].
//
// The chart is paged 50 tracks at a time and paging stops after a fixed number of pages,
// so fewer than limit tracks may be returned.
func (s *Showcase) ChartTracks(ctx context.Context, limit int) ([]models.ChartTrack, error) {
	tracks := []models.ChartTrack{}
	if limit <= 0 {
		return tracks, nil
	}

	artists := map[string]struct{}{}
	for page := 1; len(tracks) < limit && page <= s.maxPages; page++ {
		chart, err := s.metadata.ChartTopTracksPage(ctx, showcasePageSize, page)
		if err != nil {
			return nil, err
		}
		if len(chart) == 0 {
			break
		}

		for _, rec := range chart {
			if len(tracks) >= limit {
				break
			}

			key := strings.ToLower(rec.Artist)
			if _, ok := artists[key]; ok {
				continue
			}
			artists[key] = struct{}{}

			image, err := s.metadata.TrackArtwork(ctx, rec.Artist, rec.Title)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				s.logger.Warn("artwork lookup failed", "title", rec.Title, "artist", rec.Artist, "error", err)
				image = models.NoImage
			}
			if image == "" {
				image = models.NoImage
			}

			tracks = append(tracks, models.ChartTrack{TrackName: rec.Title, ArtistName: rec.Artist, ImageURL: image})
		}
	}

	return tracks, nil
}
