package chat

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/repositories"
	"github.com/desertthunder/beatbuddy/internal/tasks"
	th "github.com/desertthunder/beatbuddy/internal/testing"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *repositories.Store
	user     *models.User
	conv     *models.Conversation
	metadata *th.MockMetadata
	exporter *fakeExporter
	registry *Registry
}

type fakeExporter struct {
	result *models.ExportResult
	err    error
	calls  int
}

func (f *fakeExporter) ExportPlaylist(ctx context.Context, userID, conversationID int64, progress chan<- tasks.ProgressUpdate) (*models.ExportResult, error) {
	f.calls++
	return f.result, f.err
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repositories.NewStore(th.SetupTestDB(t))

	user := &models.User{Username: "alice", PasswordHash: "hash"}
	require.NoError(t, store.Users.Create(ctx, user))
	conv := &models.Conversation{UserID: user.ID, Title: "Chat"}
	require.NoError(t, store.Conversations.Create(ctx, conv))

	metadata := &th.MockMetadata{
		Tracks:     map[string]models.Record{},
		Related:    map[string][]models.Record{},
		TagArtists: map[string][]models.Record{},
	}
	exporter := &fakeExporter{}

	engine := tasks.NewSuggestionEngine(metadata, store.Playlists, store.Users, tasks.SuggestionOptions{
		AttemptsPerSong: 5,
		Rand:            rand.New(rand.NewPCG(1, 2)),
	})

	registry, err := NewCommandRegistry(Dependencies{
		Metadata:    metadata,
		Playlists:   store.Playlists,
		Suggestions: engine,
		Exporter:    exporter,
	})
	require.NoError(t, err)

	return &fixture{
		store:    store,
		user:     user,
		conv:     conv,
		metadata: metadata,
		exporter: exporter,
		registry: registry,
	}
}

func (f *fixture) call() Call {
	return Call{ConversationID: f.conv.ID, UserID: f.user.ID}
}

func (f *fixture) orchestrator(model *th.ScriptedChatModel) *Orchestrator {
	return NewOrchestrator(model, f.registry, Stores{
		Conversations: f.store.Conversations,
		Messages:      f.store.Messages,
		Playlists:     f.store.Playlists,
		Genres:        f.store.Users,
	}, OrchestratorOptions{PlaylistContext: 3})
}

func (f *fixture) addEntry(t *testing.T, title, artist string) {
	t.Helper()
	entry := &models.PlaylistEntry{ConversationID: f.conv.ID, Title: title, Artist: artist}
	require.NoError(t, f.store.Playlists.Add(context.Background(), entry))
}
