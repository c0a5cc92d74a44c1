package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) routes() {
	r := s.engine
	r.Use(gin.Recovery(), s.requestLogger())

	if len(s.opts.AllowedOrigins) > 0 {
		conf := cors.DefaultConfig()
		conf.AllowOrigins = s.opts.AllowedOrigins
		conf.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
		conf.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		conf.ExposeHeaders = []string{"Content-Length", "Content-Disposition"}
		conf.AllowCredentials = true
		r.Use(cors.New(conf))
	}

	r.GET("/health", s.health)

	r.POST("/signup", s.signup)
	r.POST("/login", s.login)
	r.POST("/logout", s.logout)
	r.GET("/api/lastfm/tracks", s.chartTracks)

	authed := r.Group("", s.requireSession())
	{
		authed.GET("/user", s.currentUser)
		authed.PUT("/user/genres", s.updateGenres)

		authed.POST("/conversations", s.createConversation)
		authed.GET("/conversations", s.listConversations)
		authed.DELETE("/conversations", s.deleteAllConversations)
		authed.PATCH("/conversations/:id", s.renameConversation)
		authed.DELETE("/conversations/:id", s.deleteConversation)

		authed.GET("/conversations/:id/messages", s.listMessages)
		authed.POST("/conversations/:id/messages", s.postMessage)
		authed.POST("/api/messageGPT", s.messageGPT)

		authed.GET("/conversations/:id/playlist", s.listPlaylist)
		authed.POST("/conversations/:id/playlist", s.addToPlaylist)
		authed.DELETE("/conversations/:id/playlist/:songId", s.deleteFromPlaylist)
		authed.GET("/conversations/:id/playlist/export", s.exportPlaylistFile)
		authed.GET("/conversations/:id/suggestions", s.suggestions)

		authed.GET("/auth/spotify", s.spotifyConnect)
		authed.GET("/auth/spotify/callback", s.spotifyCallback)
		authed.GET("/spotify/status", s.spotifyStatus)
		authed.POST("/exportPlaylist", s.exportPlaylist)
	}

	if s.opts.PublicDir != "" {
		r.NoRoute(s.static)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// static serves files from the public directory for unmatched GETs, falling back to index.html.
func (s *Server) static(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	root, err := filepath.Abs(s.opts.PublicDir)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	path := filepath.Join(root, filepath.FromSlash(filepath.Clean("/"+c.Request.URL.Path)))
	if !strings.HasPrefix(path, root) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		c.File(path)
		return
	}

	index := filepath.Join(root, "index.html")
	if _, err := os.Stat(index); err == nil {
		c.File(index)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}
