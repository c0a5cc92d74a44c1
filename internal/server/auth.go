package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type credentialsRequest struct {
	Username string   `json:"username" form:"username" binding:"required"`
	Password string   `json:"password" form:"password" binding:"required"`
	Genres   []string `json:"genres" form:"genres"`
}

type genresRequest struct {
	Genres []string `json:"genres"`
}

type userResponse struct {
	ID               int64    `json:"id"`
	Username         string   `json:"username"`
	Genres           []string `json:"genres"`
	SpotifyConnected bool     `json:"spotifyConnected"`
}

func toUserResponse(u *models.User) userResponse {
	genres := u.Genres
	if genres == nil {
		genres = []string{}
	}
	return userResponse{
		ID:               u.ID,
		Username:         u.Username,
		Genres:           genres,
		SpotifyConnected: u.Spotify != nil && u.Spotify.AccessToken != "",
	}
}

// signup creates an account and starts a session.
func (s *Server) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username and password are required"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Password must be at most 72 bytes"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hash),
		Genres:       req.Genres,
	}
	ctx := c.Request.Context()
	if err := s.deps.Store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Username already exists"})
			return
		}
		s.fail(c, err)
		return
	}

	if err := s.startSession(c, user.ID); err != nil {
		s.fail(c, err)
		return
	}

	s.logger.Info("user signed up", "user", user.ID)
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": toUserResponse(user)})
}

// login checks credentials and starts a session. Failures are a plain-text 401.
func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.String(http.StatusBadRequest, "Username and password are required")
		return
	}

	ctx := c.Request.Context()
	user, err := s.deps.Store.Users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, shared.ErrNotFound) {
		c.String(http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		s.logger.Error("login lookup failed", "error", err)
		c.String(http.StatusInternalServerError, "Server error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("failed login attempt", "username", req.Username, "ip", c.ClientIP())
		c.String(http.StatusUnauthorized, "Invalid username or password")
		return
	}

	if err := s.startSession(c, user.ID); err != nil {
		s.logger.Error("failed to start session", "error", err)
		c.String(http.StatusInternalServerError, "Server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": toUserResponse(user)})
}

func (s *Server) startSession(c *gin.Context, userID int64) error {
	session, err := s.deps.Store.Sessions.Create(c.Request.Context(), userID, s.opts.SessionTTL)
	if err != nil {
		return err
	}
	s.setSessionCookie(c, session.Token)
	return nil
}

// logout ends the session if there is one.
func (s *Server) logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		if err := s.deps.Store.Sessions.Delete(c.Request.Context(), token); err != nil {
			s.fail(c, err)
			return
		}
	}
	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) currentUser(c *gin.Context) {
	user, err := s.deps.Store.Users.Get(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *Server) updateGenres(c *gin.Context) {
	var req genresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "genres must be a list of strings"})
		return
	}

	ctx := c.Request.Context()
	if err := s.deps.Store.Users.SetGenres(ctx, userID(c), req.Genres); err != nil {
		s.fail(c, err)
		return
	}
	genres, err := s.deps.Store.Users.Genres(ctx, userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": genres})
}
