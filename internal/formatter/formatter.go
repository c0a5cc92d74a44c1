// package formatter renders a conversation's playlist in various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
)

// Format is an export file format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ParseFormat accepts a format name or common alias ("markdown", "text").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "", "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (csv, md, txt)", shared.ErrInvalidArgument, s)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render renders entries in format f under the given title.
func Render(f Format, title string, entries []models.PlaylistEntry) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(entries)
	case FormatMarkdown:
		return ExportToMarkdown(title, entries)
	case FormatText:
		return ExportToText(title, entries)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// ExportToCSV converts a playlist to CSV format with columns: Position, Title, Artist, Album, Image
func ExportToCSV(entries []models.PlaylistEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Title", "Artist", "Album", "Image"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, entry := range entries {
		record := []string{
			strconv.Itoa(i + 1),
			entry.Title,
			entry.Artist,
			entry.Album,
			imageOrEmpty(entry.ImageURL),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a playlist to Markdown, using the first entry's artwork as the cover
func ExportToMarkdown(title string, entries []models.PlaylistEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	for _, entry := range entries {
		if cover := imageOrEmpty(entry.ImageURL); cover != "" {
			buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", cover))
			break
		}
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(entries)))

	buf.WriteString("## Tracks\n\n")
	for i, entry := range entries {
		albumPart := ""
		if entry.Album != "" && entry.Album != models.Unknown {
			albumPart = fmt.Sprintf(" (%s)", entry.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n", i+1, entry.Artist, entry.Title, albumPart))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text format
func ExportToText(title string, entries []models.PlaylistEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", title))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(entries)))

	for i, entry := range entries {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, entry.Artist, entry.Title))
	}

	return buf.Bytes(), nil
}

// NumberedList renders entries as "1. Title by Artist" lines, or "" when there are none.
func NumberedList(entries []models.PlaylistEntry) string {
	var sb strings.Builder
	for i, entry := range entries {
		fmt.Fprintf(&sb, "%d. %s by %s\n", i+1, entry.Title, entry.Artist)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FileName returns the default file name for an export of conversation id.
func FileName(f Format, conversationID int64) string {
	return fmt.Sprintf("playlist_%d.%s", conversationID, f)
}

// WriteExport renders entries to path. An empty path uses [FileName].
func WriteExport(f Format, title string, entries []models.PlaylistEntry, path string, conversationID int64) (string, error) {
	if path == "" {
		path = FileName(f, conversationID)
	}

	data, err := Render(f, title, entries)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}
	return path, nil
}

func imageOrEmpty(url string) string {
	if url == models.NoImage {
		return ""
	}
	return url
}
