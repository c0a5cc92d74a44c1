package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/beatbuddy/internal/formatter"
	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/gin-gonic/gin"
)

const (
	defaultSuggestions = 5
	defaultChartTracks = 10
	maxQueryLimit      = 50
)

type playlistRequest struct {
	SongTitle string `json:"songTitle"`
	Artist    string `json:"artist"`
	Album     string `json:"album"`
	ImageURL  string `json:"imageUrl"`
}

// queryLimit parses ?limit=, clamping to [0, maxQueryLimit]. A missing value uses def.
func queryLimit(c *gin.Context, def int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", shared.ErrInvalidInput)
	}
	return min(n, maxQueryLimit), nil
}

func (s *Server) listPlaylist(c *gin.Context) {
	id, ok := s.conversationID(c)
	if !ok {
		return
	}
	entries, err := s.deps.Store.Playlists.List(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// addToPlaylist stores a song. Missing album details are looked up when a metadata provider is set.
func (s *Server) addToPlaylist(c *gin.Context) {
	id, ok := s.conversationID(c)
	if !ok {
		return
	}

	var req playlistRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SongTitle) == "" || strings.TrimSpace(req.Artist) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "songTitle and artist are required"})
		return
	}

	ctx := c.Request.Context()
	exists, err := s.deps.Store.Playlists.Exists(ctx, id, req.SongTitle, req.Artist)
	if err != nil {
		s.fail(c, err)
		return
	}
	if exists {
		s.fail(c, shared.ErrDuplicateEntry)
		return
	}

	entry := &models.PlaylistEntry{
		ConversationID: id,
		Title:          req.SongTitle,
		Artist:         req.Artist,
		Album:          req.Album,
		ImageURL:       req.ImageURL,
	}
	if entry.Album == "" && s.deps.Metadata != nil {
		if info, err := s.deps.Metadata.TrackInfo(ctx, req.Artist, req.SongTitle); err == nil {
			entry.Album = info.Album
			entry.ImageURL = info.ImageURL
		} else {
			s.logger.Debug("track lookup failed, storing without details", "title", req.SongTitle, "error", err)
		}
	}
	if entry.Album == "" {
		entry.Album = models.Unknown
	}
	if entry.ImageURL == "" {
		entry.ImageURL = models.NoImage
	}

	if err := s.deps.Store.Playlists.Add(ctx, entry); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) deleteFromPlaylist(c *gin.Context) {
	id, ok := s.conversationID(c)
	if !ok {
		return
	}
	songID, err := strconv.ParseInt(c.Param("songId"), 10, 64)
	if err != nil {
		s.fail(c, fmt.Errorf("%w: song id", shared.ErrInvalidInput))
		return
	}

	if err := s.deps.Store.Playlists.Delete(c.Request.Context(), id, songID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Song deleted from playlist."})
}

// exportPlaylistFile downloads the playlist as csv, md or txt.
func (s *Server) exportPlaylistFile(c *gin.Context) {
	id, ok := s.conversationID(c)
	if !ok {
		return
	}
	format, err := formatter.ParseFormat(c.DefaultQuery("format", "csv"))
	if err != nil {
		s.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	conv, err := s.deps.Store.Conversations.Get(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	entries, err := s.deps.Store.Playlists.List(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}

	title := conv.Title
	if title == "" {
		title = fmt.Sprintf("Conversation %d", id)
	}
	data, err := formatter.Render(format, title, entries)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, formatter.FileName(format, id)))
	c.Data(http.StatusOK, format.ContentType(), data)
}

func (s *Server) suggestions(c *gin.Context) {
	id, ok := s.conversationID(c)
	if !ok {
		return
	}
	limit, err := queryLimit(c, defaultSuggestions)
	if err != nil {
		s.fail(c, err)
		return
	}
	if s.deps.Suggestions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Suggestions are not configured"})
		return
	}

	songs, err := s.deps.Suggestions.SuggestForConversation(c.Request.Context(), id, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, songs)
}

// chartTracks serves the login page imagery: unique-artist charting tracks with artwork.
func (s *Server) chartTracks(c *gin.Context) {
	limit, err := queryLimit(c, defaultChartTracks)
	if err != nil {
		s.fail(c, err)
		return
	}
	if s.deps.Charts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Last.fm is not configured"})
		return
	}

	tracks, err := s.deps.Charts.ChartTracks(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("chart lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch data from Last.fm"})
		return
	}
	c.JSON(http.StatusOK, tracks)
}
