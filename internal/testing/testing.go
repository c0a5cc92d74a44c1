// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/services"
	"github.com/desertthunder/beatbuddy/internal/shared"
)

// SetupTestDB opens an in-memory database with all migrations applied.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// MockMetadata is a test double for [services.MetadataProvider].
//
// Lookups are keyed by lowercased tag or by [shared.NormalizeTrackKey]. Every call is
// recorded in Calls as "method:arg,arg".
type MockMetadata struct {
	mu sync.Mutex

	Tracks       map[string]models.Record   // TrackInfo, keyed by title|artist
	Related      map[string][]models.Record // RelatedTracks, keyed by title|artist
	TagArtists   map[string][]models.Record
	TagTracks    map[string][]models.Record
	Searches     []models.Record
	Albums       []models.Record
	Chart        []models.Record
	ChartArtists []models.Record
	Tags         []string

	Err   error
	Calls []string
}

func (m *MockMetadata) record(method string, args ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	m.Calls = append(m.Calls, method+":"+strings.Join(parts, ","))
	return m.Err
}

// CallCount returns how many recorded calls start with prefix.
func (m *MockMetadata) CallCount(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func take(records []models.Record, limit int) []models.Record {
	if limit < 0 {
		limit = services.DefaultLimit
	}
	if limit > len(records) {
		limit = len(records)
	}
	return append([]models.Record{}, records[:limit]...)
}

func (m *MockMetadata) TrackInfo(ctx context.Context, artist, title string) (models.Record, error) {
	if err := m.record("TrackInfo", artist, title); err != nil {
		return models.Record{}, err
	}
	rec, ok := m.Tracks[shared.NormalizeTrackKey(title, artist)]
	if !ok {
		return models.Record{}, shared.NewProviderError("mock", 200, "Track not found", nil)
	}
	return rec, nil
}

func (m *MockMetadata) TrackArtwork(ctx context.Context, artist, title string) (string, error) {
	rec, err := m.TrackInfo(ctx, artist, title)
	if err != nil {
		return models.NoImage, err
	}
	return rec.ImageURL, nil
}

func (m *MockMetadata) SearchTrack(ctx context.Context, title string, limit int) ([]models.Record, error) {
	if err := m.record("SearchTrack", title, limit); err != nil {
		return nil, err
	}
	return take(m.Searches, limit), nil
}

func (m *MockMetadata) RelatedTracks(ctx context.Context, artist, title string, limit int) ([]models.Record, error) {
	if err := m.record("RelatedTracks", artist, title, limit); err != nil {
		return nil, err
	}
	return take(m.Related[shared.NormalizeTrackKey(title, artist)], limit), nil
}

func (m *MockMetadata) AlbumInfo(ctx context.Context, artist, album string) (models.Record, error) {
	if err := m.record("AlbumInfo", artist, album); err != nil {
		return models.Record{}, err
	}
	for _, a := range m.Albums {
		if strings.EqualFold(a.Title, album) {
			return a, nil
		}
	}
	return models.NewRecord(models.RecordAlbum), nil
}

func (m *MockMetadata) SearchAlbum(ctx context.Context, album string, limit int) ([]models.Record, error) {
	if err := m.record("SearchAlbum", album, limit); err != nil {
		return nil, err
	}
	return take(m.Albums, limit), nil
}

func (m *MockMetadata) TagTopTracks(ctx context.Context, tag string, limit int) ([]models.Record, error) {
	if err := m.record("TagTopTracks", tag, limit); err != nil {
		return nil, err
	}
	return take(m.TagTracks[strings.ToLower(tag)], limit), nil
}

func (m *MockMetadata) TagTopArtists(ctx context.Context, tag string, limit int) ([]models.Record, error) {
	if err := m.record("TagTopArtists", tag, limit); err != nil {
		return nil, err
	}
	return take(m.TagArtists[strings.ToLower(tag)], limit), nil
}

func (m *MockMetadata) ChartTopArtists(ctx context.Context, limit int) ([]models.Record, error) {
	if err := m.record("ChartTopArtists", limit); err != nil {
		return nil, err
	}
	return take(m.ChartArtists, limit), nil
}

func (m *MockMetadata) ChartTopTags(ctx context.Context, limit int) ([]string, error) {
	if err := m.record("ChartTopTags", limit); err != nil {
		return nil, err
	}
	if limit < 0 {
		limit = services.DefaultLimit
	}
	return append([]string{}, m.Tags[:min(limit, len(m.Tags))]...), nil
}

func (m *MockMetadata) ChartTopTracks(ctx context.Context, limit int) ([]models.Record, error) {
	return m.ChartTopTracksPage(ctx, limit, 1)
}

func (m *MockMetadata) ChartTopTracksPage(ctx context.Context, limit, page int) ([]models.Record, error) {
	if err := m.record("ChartTopTracksPage", limit, page); err != nil {
		return nil, err
	}
	if limit < 0 {
		limit = services.DefaultLimit
	}
	start := (page - 1) * limit
	if start >= len(m.Chart) {
		return []models.Record{}, nil
	}
	return take(m.Chart[start:], limit), nil
}

func (m *MockMetadata) Name() string { return "mock" }

// Track builds a normalized track record.
func Track(title, artist string, tags ...string) models.Record {
	rec := models.NewRecord(models.RecordTrack)
	rec.Title = title
	rec.Artist = artist
	rec.TopTags = append([]string{}, tags...)
	return rec
}

// Artist builds a normalized artist record.
func Artist(name string) models.Record {
	rec := models.NewRecord(models.RecordArtist)
	rec.Title = name
	rec.Artist = name
	return rec
}

// ScriptedChatModel is a [services.ChatModel] that replays Replies in order and records every request.
type ScriptedChatModel struct {
	mu       sync.Mutex
	Replies  []*services.Completion
	Err      error
	Requests []services.CompletionRequest
}

func (m *ScriptedChatModel) Complete(ctx context.Context, req services.CompletionRequest) (*services.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	i := len(m.Requests) - 1
	if i >= len(m.Replies) {
		return nil, errors.New("no scripted reply left")
	}
	return m.Replies[i], nil
}

// Reply is a completion carrying only content.
func Reply(content string) *services.Completion {
	return &services.Completion{Content: content, FinishReason: "stop"}
}

// CallTool is a completion requesting a single function call.
func CallTool(id, name, arguments string) *services.Completion {
	return &services.Completion{
		ToolCalls:    []services.ToolCall{{ID: id, Name: name, Arguments: arguments}},
		FinishReason: "tool_calls",
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

var _ services.MetadataProvider = (*MockMetadata)(nil)
var _ services.ChatModel = (*ScriptedChatModel)(nil)
