package shared

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func TestNormalizeTrackKey(t *testing.T) {
	tc := []struct {
		name   string
		title  string
		artist string
		want   string
	}{
		{
			name:   "basic normalization",
			title:  "Song Title",
			artist: "Artist Name",
			want:   "song title|artist name",
		},
		{
			name:   "extra whitespace",
			title:  "  Song   Title  ",
			artist: "  Artist   Name  ",
			want:   "song title|artist name",
		},
		{
			name:   "mixed case",
			title:  "SoNg TiTlE",
			artist: "ArTiSt NaMe",
			want:   "song title|artist name",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTrackKey(tt.title, tt.artist)
			if got != tt.want {
				t.Errorf("NormalizeTrackKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProviderError(t *testing.T) {
	t.Run("message includes status and upstream message", func(t *testing.T) {
		err := NewProviderError("lastfm", 404, "Track not found", nil)
		want := "lastfm request failed (status 404): Track not found"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
		if err.Retryable {
			t.Error("non-timeout error should not be retryable")
		}
	})

	t.Run("timeouts are retryable and match ErrTimeout", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", NewProviderError("openai", 0, "", context.DeadlineExceeded))
		if !errors.Is(err, ErrTimeout) {
			t.Error("expected errors.Is(err, ErrTimeout)")
		}
		var pe *ProviderError
		if !errors.As(err, &pe) || !pe.Retryable {
			t.Error("expected a retryable ProviderError")
		}
	})
}

func TestTypedErrors(t *testing.T) {
	var err error = &UnimplementedFunctionError{Name: "launchRockets"}
	if err.Error() != `function "launchRockets" is not implemented` {
		t.Errorf("unexpected message %q", err.Error())
	}

	err = fmt.Errorf("build: %w", &InsufficientCandidatesError{Genre: "polka", Wanted: 5, Found: 2})
	var ice *InsufficientCandidatesError
	if !errors.As(err, &ice) {
		t.Fatal("expected InsufficientCandidatesError")
	}
	if ice.Found != 2 || ice.Wanted != 5 {
		t.Errorf("unexpected counts %+v", ice)
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "beatbuddy.log")
	logger, f, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer f.Close()

	logger.Info("hello")
	info, err := f.Stat()
	if err != nil {
		t.Fatalf("stat log file: %v", err)
	}
	if info.Size() == 0 {
		t.Error("expected log output in file")
	}
}
