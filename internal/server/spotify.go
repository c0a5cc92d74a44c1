package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/gin-gonic/gin"
)

type exportRequest struct {
	ConversationID int64 `json:"conversationId"`
}

// spotifyConnect records a one-time state on the session and redirects to Spotify.
func (s *Server) spotifyConnect(c *gin.Context) {
	if s.deps.Spotify == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Spotify is not configured"})
		return
	}

	state := shared.GenerateID()
	if err := s.deps.Store.Sessions.SetOAuthState(c.Request.Context(), sessionToken(c), state); err != nil {
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, s.deps.Spotify.AuthURL(state))
}

// spotifyCallback consumes the state, stores the token pair and returns to the dashboard.
func (s *Server) spotifyCallback(c *gin.Context) {
	if s.deps.Spotify == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Spotify is not configured"})
		return
	}

	ctx := c.Request.Context()
	if err := s.deps.Store.Sessions.ConsumeOAuthState(ctx, sessionToken(c), c.Query("state")); err != nil {
		s.logger.Warn("spotify callback rejected", "error", err)
		c.Redirect(http.StatusFound, s.dashboardURL("error"))
		return
	}

	code := c.Query("code")
	if code == "" {
		s.logger.Warn("spotify authorization denied", "error", c.Query("error"))
		c.Redirect(http.StatusFound, s.dashboardURL("error"))
		return
	}

	token, err := s.deps.Spotify.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("spotify token exchange failed", "error", err)
		c.Redirect(http.StatusFound, s.dashboardURL("error"))
		return
	}

	stored := models.SpotifyToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if err := s.deps.Store.Users.UpdateSpotifyToken(ctx, userID(c), stored); err != nil {
		s.logger.Error("failed to store spotify token", "error", err)
		c.Redirect(http.StatusFound, s.dashboardURL("error"))
		return
	}

	s.logger.Info("spotify connected", "user", userID(c))
	c.Redirect(http.StatusFound, s.dashboardURL("success"))
}

func (s *Server) dashboardURL(result string) string {
	u, err := url.Parse(s.opts.DashboardURL)
	if err != nil {
		return "/dashboard?spotify=" + url.QueryEscape(result)
	}
	q := u.Query()
	q.Set("spotify", result)
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Server) spotifyStatus(c *gin.Context) {
	_, err := s.deps.Store.Users.SpotifyToken(c.Request.Context(), userID(c))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"isConnected": true})
	case errors.Is(err, shared.ErrSpotifyNotConnected):
		c.JSON(http.StatusOK, gin.H{"isConnected": false})
	default:
		s.fail(c, err)
	}
}

// exportPlaylist creates a Spotify playlist from the conversation's songs.
func (s *Server) exportPlaylist(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ConversationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing conversationId."})
		return
	}
	if s.deps.Exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Spotify is not configured"})
		return
	}

	ctx := c.Request.Context()
	if _, err := s.deps.Store.Conversations.GetOwned(ctx, req.ConversationID, userID(c)); err != nil {
		s.fail(c, err)
		return
	}

	result, err := s.deps.Exporter.ExportPlaylist(ctx, userID(c), req.ConversationID, nil)
	if err != nil {
		status, msg := statusFor(err)
		if status >= 500 {
			s.logger.Error("spotify export failed", "conversation", req.ConversationID, "error", err)
			msg = "Failed to export playlist to Spotify"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Playlist exported to Spotify successfully",
		"result":  result,
	})
}
