package server

import (
	"errors"
	"net/http"

	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to an HTTP status and a short client-facing message.
// Anything unrecognised is a 500 with a generic message.
func statusFor(err error) (int, string) {
	var (
		providerErr   *shared.ProviderError
		unimplemented *shared.UnimplementedFunctionError
	)

	switch {
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, shared.ErrEmptyPlaylist):
		return http.StatusBadRequest, "Playlist is empty"
	case errors.Is(err, shared.ErrNoTracksFound):
		return http.StatusBadRequest, "No tracks found on Spotify to add to the playlist"
	case errors.Is(err, shared.ErrSpotifyNotConnected):
		return http.StatusBadRequest, "Spotify account not connected"
	case errors.Is(err, shared.ErrInvalidState):
		return http.StatusBadRequest, "Invalid OAuth state"
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrRefreshFailed):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "Unauthorized"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, shared.ErrUsernameTaken):
		return http.StatusConflict, "Username already exists"
	case errors.Is(err, shared.ErrDuplicateEntry):
		return http.StatusConflict, "Song is already in the playlist"
	case errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout, "Upstream service timed out"
	case errors.As(err, &unimplemented):
		return http.StatusInternalServerError, "Server error"
	case errors.As(err, &providerErr):
		return http.StatusInternalServerError, "Upstream service error"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

// fail writes err as {"error": message}, logging server-side failures.
func (s *Server) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
