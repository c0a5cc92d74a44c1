package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey       = "userID"
	sessionTokenKey = "sessionToken"
)

// requestLogger logs one line per request on the server's logger.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			s.logger.Error("request", kv...)
		case status >= 400:
			s.logger.Warn("request", kv...)
		default:
			s.logger.Debug("request", kv...)
		}
	}
}

// requireSession resolves the session cookie and stores the user id on the context.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		session, err := s.deps.Store.Sessions.Get(c.Request.Context(), token)
		if errors.Is(err, shared.ErrUnauthorized) {
			s.clearSessionCookie(c)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if err != nil {
			s.logger.Error("session lookup failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		c.Set(userIDKey, session.UserID)
		c.Set(sessionTokenKey, session.Token)
		c.Next()
	}
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

func sessionToken(c *gin.Context) string {
	return c.GetString(sessionTokenKey)
}

func (s *Server) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(s.opts.SessionTTL.Seconds()), "/", "", s.opts.SecureCookies, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", s.opts.SecureCookies, true)
}
