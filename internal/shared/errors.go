package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrUnauthorized        = fmt.Errorf("unauthorized")
	ErrForbidden           = fmt.Errorf("forbidden")
	ErrUsernameTaken       = fmt.Errorf("username already exists")
	ErrSpotifyNotConnected = fmt.Errorf("spotify account not connected")
	ErrInvalidState        = fmt.Errorf("invalid oauth state")
	ErrRefreshFailed       = fmt.Errorf("token refresh failed")
	ErrTimeout             = fmt.Errorf("operation timed out")

	// Store errors
	ErrNotFound       = fmt.Errorf("not found")
	ErrDuplicateEntry = fmt.Errorf("song is already in the playlist")

	// Export errors
	ErrEmptyPlaylist = fmt.Errorf("playlist is empty")
	ErrNoTracksFound = fmt.Errorf("no tracks found on Spotify to add to the playlist")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ProviderError reports a failed or malformed call to an upstream service
// (Last.fm, the LLM, or Spotify).
type ProviderError struct {
	Provider  string
	Status    int
	Message   string
	Retryable bool
	Err       error
}

// NewProviderError builds a [ProviderError], marking it retryable when err is a timeout.
func NewProviderError(provider string, status int, message string, err error) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Status:    status,
		Message:   message,
		Retryable: IsTimeout(err),
		Err:       err,
	}
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s request failed", e.Provider)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is lets timeouts match [ErrTimeout].
func (e *ProviderError) Is(target error) bool {
	return target == ErrTimeout && e.Retryable
}

// UnimplementedFunctionError is returned when the model asks for a function
// that is not registered.
type UnimplementedFunctionError struct {
	Name string
}

func (e *UnimplementedFunctionError) Error() string {
	return fmt.Sprintf("function %q is not implemented", e.Name)
}

// InsufficientCandidatesError is returned when the suggestion loop runs out of
// attempts before collecting the requested number of unique songs.
type InsufficientCandidatesError struct {
	Genre  string
	Wanted int
	Found  int
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("only found %d of %d unique songs for %q", e.Found, e.Wanted, e.Genre)
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
