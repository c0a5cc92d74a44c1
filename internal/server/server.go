// package server exposes the BeatBuddy HTTP API with gin
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/repositories"
	"github.com/desertthunder/beatbuddy/internal/services"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/desertthunder/beatbuddy/internal/tasks"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

// SessionCookie is the name of the cookie that carries the session token.
const SessionCookie = "beatbuddy_session"

// ChatService answers one user turn in a conversation.
type ChatService interface {
	HandleUserMessage(ctx context.Context, conversationID, userID int64, text string) (string, error)
}

// SuggestionService suggests songs related to a conversation's playlist.
type SuggestionService interface {
	SuggestForConversation(ctx context.Context, conversationID int64, n int) ([]models.Suggestion, error)
}

// ChartService lists charting tracks with artwork.
type ChartService interface {
	ChartTracks(ctx context.Context, limit int) ([]models.ChartTrack, error)
}

// SpotifyAuth runs the authorization code flow.
type SpotifyAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Exporter copies a conversation's playlist to Spotify.
type Exporter interface {
	ExportPlaylist(ctx context.Context, userID, conversationID int64, progress chan<- tasks.ProgressUpdate) (*models.ExportResult, error)
}

// Dependencies are the components the handlers call. Metadata, Spotify and Exporter
// may be nil; the routes that need them then answer 503.
type Dependencies struct {
	Store       *repositories.Store
	Chat        ChatService
	Suggestions SuggestionService
	Charts      ChartService
	Metadata    services.MetadataProvider
	Spotify     SpotifyAuth
	Exporter    Exporter
	Logger      *log.Logger
}

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	PublicDir      string
	DashboardURL   string
	SessionTTL     time.Duration
	SecureCookies  bool
}

// Server holds the gin engine and the handler dependencies.
type Server struct {
	engine *gin.Engine
	deps   Dependencies
	opts   Options
	logger *log.Logger
	now    func() time.Time
}

// New builds a server with every route registered.
func New(deps Dependencies, opts Options) *Server {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.DashboardURL == "" {
		opts.DashboardURL = "/dashboard"
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine: gin.New(),
		deps:   deps,
		opts:   opts,
		logger: shared.WithLogger(deps.Logger, "component", "http"),
		now:    time.Now,
	}
	s.routes()
	return s
}

// Handler returns the server as an [http.Handler].
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
