// package models defines the data model for the BeatBuddy chat service
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model is implemented by every persisted entity.
type Model interface {
	Validate() error // Validate checks required fields before a write
}

// Sender identifies who authored a [Message].
type Sender string

const (
	SenderUser     Sender = "user"
	SenderBot      Sender = "bot"
	SenderFunction Sender = "function"
)

// User is an account with optional Spotify credentials and genre preferences.
type User struct {
	ID           int64         `json:"id"`
	Username     string        `json:"username"`
	PasswordHash string        `json:"-"`
	Spotify      *SpotifyToken `json:"-"`
	Genres       []string      `json:"genres"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// SpotifyToken is the stored OAuth token pair for the export target.
type SpotifyToken struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	Expiry       time.Time `json:"expiry"`
}

// Expired reports whether the access token is past its expiry at now.
func (t *SpotifyToken) Expired(now time.Time) bool {
	return !t.Expiry.IsZero() && now.After(t.Expiry)
}

// Session is a server-side login session referenced by a cookie token.
type Session struct {
	Token      string
	UserID     int64
	OAuthState string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Conversation groups the messages and playlist of one chat session.
type Conversation struct {
	ID        int64     `json:"conversation_id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	StartedAt time.Time `json:"start_time"`
}

// Message is one append-only entry in a conversation.
type Message struct {
	ID             int64     `json:"message_id"`
	ConversationID int64     `json:"conversation_id"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"timestamp"`
}

// PlaylistEntry is one song attached to a conversation's playlist.
type PlaylistEntry struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Title          string    `json:"song_title"`
	Artist         string    `json:"artist"`
	Album          string    `json:"album"`
	ImageURL       string    `json:"image_url"`
	AddedAt        time.Time `json:"added_at"`
}

// RecordType tags a normalized metadata [Record].
type RecordType string

const (
	RecordTrack  RecordType = "track"
	RecordAlbum  RecordType = "album"
	RecordArtist RecordType = "artist"
	RecordTag    RecordType = "tag"
)

// Unknown is the placeholder for fields missing from a provider payload.
const Unknown = "Unknown"

// NoImage is the placeholder for missing artwork.
const NoImage = "No image available"

// Record is a flat, normalized view of a track, album or artist lookup.
//
// Every string field holds the source value or [Unknown]; TopTags is never nil.
type Record struct {
	Type        RecordType `json:"type"`
	Title       string     `json:"title"`
	Artist      string     `json:"artist"`
	ReleaseDate string     `json:"releaseDate"`
	TopTags     []string   `json:"topTags"`
	Album       string     `json:"album"`
	ImageURL    string     `json:"-"`
}

// NewRecord returns a record of type t with every field set to its placeholder.
func NewRecord(t RecordType) Record {
	return Record{
		Type:        t,
		Title:       Unknown,
		Artist:      Unknown,
		ReleaseDate: Unknown,
		TopTags:     []string{},
		Album:       Unknown,
		ImageURL:    NoImage,
	}
}

// Suggestion is a candidate song produced by the suggestion engine.
type Suggestion struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Genre  string `json:"genre,omitempty"`
}

// ChartTrack is a charting song with artwork, shown on the login page.
type ChartTrack struct {
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
	ImageURL   string `json:"imageURL"`
}

// ExportResult describes a playlist created on Spotify.
type ExportResult struct {
	PlaylistID  string   `json:"playlistId"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Added       int      `json:"added"`
	Unmatched   []string `json:"unmatched"`
	TotalTracks int      `json:"totalTracks"`
}

// TrackMatch records the remote track a song resolved to on a service.
type TrackMatch struct {
	ID        int64     `json:"id"`
	Service   string    `json:"service"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	URI       string    `json:"uri"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("password hash is required")
	}
	return nil
}

func (c *Conversation) Validate() error {
	if c.UserID == 0 {
		return fmt.Errorf("conversation owner is required")
	}
	return nil
}

func (m *Message) Validate() error {
	if m.ConversationID == 0 {
		return fmt.Errorf("conversation id is required")
	}
	switch m.Sender {
	case SenderUser, SenderBot, SenderFunction:
	default:
		return fmt.Errorf("invalid sender %q", m.Sender)
	}
	return nil
}

func (e *PlaylistEntry) Validate() error {
	if e.ConversationID == 0 {
		return fmt.Errorf("conversation id is required")
	}
	if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Artist) == "" {
		return fmt.Errorf("song title and artist are required")
	}
	return nil
}

func (m *TrackMatch) Validate() error {
	if m.Service == "" {
		return fmt.Errorf("service is required")
	}
	if strings.TrimSpace(m.Title) == "" || strings.TrimSpace(m.Artist) == "" {
		return fmt.Errorf("song title and artist are required")
	}
	if m.URI == "" {
		return fmt.Errorf("uri is required")
	}
	return nil
}
