package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/beatbuddy/internal/chat"
	"github.com/desertthunder/beatbuddy/internal/repositories"
	"github.com/desertthunder/beatbuddy/internal/services"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/desertthunder/beatbuddy/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built on first use so commands that only touch the database do not need
// Last.fm, OpenAI or Spotify credentials.
type Runner struct {
	configPath string
	config     *shared.Config
	logger     *log.Logger
	output     io.Writer
	jsonOutput bool

	db       *sql.DB
	store    *repositories.Store
	metadata services.MetadataProvider
	model    services.ChatModel
	spotify  *services.SpotifyService
	rand     *rand.Rand
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	ConfigPath string
	Config     *shared.Config
	Logger     *log.Logger
	Output     io.Writer
	Store      *repositories.Store
	Metadata   services.MetadataProvider
	ChatModel  services.ChatModel
	Rand       *rand.Rand
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		configPath: opts.ConfigPath,
		config:     opts.Config,
		logger:     opts.Logger,
		output:     opts.Output,
		store:      opts.Store,
		metadata:   opts.Metadata,
		model:      opts.ChatModel,
		rand:       opts.Rand,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, migrateCommand, serveCommand, chatCommand, userCommand,
		lastfmCommand, suggestCommand, playlistCommand, spotifyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before resolves the global flags and loads configuration ahead of every command.
//
// Precedence is defaults, then the TOML file, then .env and the process environment.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	r.jsonOutput = cmd.Bool("json")

	if r.config != nil {
		return ctx, nil
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	config, err := r.loadConfig()
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

func (r *Runner) loadConfig() (*shared.Config, error) {
	if err := shared.LoadEnv(); err != nil {
		r.logger.Warn("failed to load .env", "error", err)
	}

	config := shared.DefaultConfig()
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			loaded, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
			}
			config = loaded
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}
	config.ApplyEnv()
	return config, nil
}

// SetLogger replaces the logger, e.g. while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database handle opened by [Runner.openStore].
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.store = nil
	return err
}

func (r *Runner) openDatabase() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	r.db = db
	return db, nil
}

func (r *Runner) openStore() (*repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}
	db, err := r.openDatabase()
	if err != nil {
		return nil, err
	}
	r.store = repositories.NewStore(db)
	return r.store, nil
}

func (r *Runner) metadataProvider() (services.MetadataProvider, error) {
	if r.metadata != nil {
		return r.metadata, nil
	}
	lastfm := r.config.Credentials.LastFM
	svc, err := services.NewLastFMService(services.LastFMOptions{
		APIKey:            lastfm.APIKey,
		BaseURL:           lastfm.BaseURL,
		Timeout:           r.config.HTTP.Timeout(),
		RetryCount:        r.config.HTTP.RetryCount,
		RequestsPerSecond: r.config.HTTP.RequestsPerSecond,
		Logger:            r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: set credentials.lastfm.api_key or LAST_FM_API_KEY", err)
	}
	r.metadata = svc
	return svc, nil
}

func (r *Runner) chatModel() (services.ChatModel, error) {
	if r.model != nil {
		return r.model, nil
	}
	openai := r.config.Credentials.OpenAI
	svc, err := services.NewOpenAIService(services.OpenAIOptions{
		APIKey:      openai.APIKey,
		BaseURL:     openai.BaseURL,
		Model:       r.config.Chat.Model,
		MaxTokens:   r.config.Chat.MaxTokens,
		Temperature: r.config.Chat.Temperature,
		Timeout:     3 * r.config.HTTP.Timeout(),
		MaxRetries:  r.config.HTTP.RetryCount,
	})
	if err != nil {
		return nil, err
	}
	r.model = svc
	return svc, nil
}

// spotifyService returns nil without error when Spotify is not configured.
func (r *Runner) spotifyService() (*services.SpotifyService, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}
	if err := r.config.ValidateSpotify(); err != nil {
		return nil, nil
	}
	s := r.config.Credentials.Spotify
	svc, err := services.NewSpotifyService(services.SpotifyOptions{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RedirectURI:  s.RedirectURI,
		Timeout:      r.config.HTTP.Timeout(),
	})
	if err != nil {
		return nil, err
	}
	r.spotify = svc
	return svc, nil
}

func (r *Runner) suggestionEngine(store *repositories.Store, metadata services.MetadataProvider) *tasks.SuggestionEngine {
	return tasks.NewSuggestionEngine(metadata, store.Playlists, store.Users, tasks.SuggestionOptions{
		AttemptsPerSong: r.config.Suggestions.AttemptsPerSong,
		Rand:            r.rand,
		Logger:          r.logger,
	})
}

// exportEngine returns nil when Spotify is not configured.
func (r *Runner) exportEngine(store *repositories.Store) (*tasks.ExportEngine, error) {
	spotify, err := r.spotifyService()
	if err != nil || spotify == nil {
		return nil, err
	}
	engine := tasks.NewExportEngine(spotify, store.Users, store.Playlists, r.logger)
	return engine.WithTrackCache(repositories.NewTrackCacheAdapter(store.Tracks, spotify.Name())), nil
}

// orchestrator wires the chat model, every chat function and the store.
func (r *Runner) orchestrator(store *repositories.Store) (*chat.Orchestrator, error) {
	if r.metadata == nil || r.model == nil {
		if err := r.config.ValidateChat(); err != nil {
			return nil, err
		}
	}
	metadata, err := r.metadataProvider()
	if err != nil {
		return nil, err
	}
	model, err := r.chatModel()
	if err != nil {
		return nil, err
	}
	exporter, err := r.exportEngine(store)
	if err != nil {
		return nil, err
	}

	deps := chat.Dependencies{
		Metadata:    metadata,
		Playlists:   store.Playlists,
		Suggestions: r.suggestionEngine(store, metadata),
	}
	if exporter != nil {
		deps.Exporter = exporter
	}

	registry, err := chat.NewCommandRegistry(deps)
	if err != nil {
		return nil, err
	}
	return chat.NewOrchestrator(model, registry, chat.Stores{
		Conversations: store.Conversations,
		Messages:      store.Messages,
		Playlists:     store.Playlists,
		Genres:        store.Users,
	}, chat.OrchestratorOptions{
		PlaylistContext: r.config.Chat.PlaylistContext,
		Logger:          r.logger,
	}), nil
}

// lookupUser resolves a --user flag value to a stored account.
func (r *Runner) lookupUser(ctx context.Context, store *repositories.Store, username string) (int64, error) {
	if username == "" {
		return 0, fmt.Errorf("%w: --user", shared.ErrMissingArgument)
	}
	user, err := store.Users.GetByUsername(ctx, username)
	if errors.Is(err, shared.ErrNotFound) {
		return 0, fmt.Errorf("%w: no user named %q", shared.ErrNotFound, username)
	}
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// emit writes data as JSON when --json is set, otherwise calls plain.
func (r *Runner) emit(data any, plain func() error) error {
	if r.jsonOutput {
		return r.writeJSON(data, true)
	}
	return plain()
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
