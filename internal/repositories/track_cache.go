package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
)

// TrackCacheAdapter implements tasks.TrackCache for one service using TrackMatchRepository.
type TrackCacheAdapter struct {
	repo    *TrackMatchRepository
	service string
}

// NewTrackCacheAdapter creates a new TrackCacheAdapter for service with the given repository
func NewTrackCacheAdapter(repo *TrackMatchRepository, service string) *TrackCacheAdapter {
	return &TrackCacheAdapter{repo: repo, service: service}
}

// LookupTrack returns the cached URI for a song. A miss is not an error.
func (a *TrackCacheAdapter) LookupTrack(ctx context.Context, title, artist string) (string, bool, error) {
	m, err := a.repo.Get(ctx, a.service, title, artist)
	if errors.Is(err, shared.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return m.URI, true, nil
}

// CacheTrack stores the URI a song resolved to.
func (a *TrackCacheAdapter) CacheTrack(ctx context.Context, title, artist, uri string) error {
	m := &models.TrackMatch{Service: a.service, Title: title, Artist: artist, URI: uri}
	if err := a.repo.Put(ctx, m); err != nil {
		return fmt.Errorf("failed to cache track: %w", err)
	}
	return nil
}
