package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/beatbuddy/internal/models"
)

var (
	_ list.Item = conversationItem{}
	_ list.Item = entryItem{}
)

// conversationItem wraps [models.Conversation] to implement [list.Item].
type conversationItem struct {
	conversation models.Conversation
}

func (i conversationItem) FilterValue() string { return i.Title() }
func (i conversationItem) Title() string {
	if i.conversation.Title != "" {
		return i.conversation.Title
	}
	return fmt.Sprintf("Conversation %d", i.conversation.ID)
}
func (i conversationItem) Description() string {
	return "Started " + i.conversation.StartedAt.Local().Format("Jan 2, 2006 15:04")
}

// entryItem wraps [models.PlaylistEntry] to implement [list.Item].
type entryItem struct {
	entry models.PlaylistEntry
}

func (i entryItem) FilterValue() string { return i.entry.Title + " " + i.entry.Artist }
func (i entryItem) Title() string       { return i.entry.Title }
func (i entryItem) Description() string {
	desc := i.entry.Artist
	if i.entry.Album != "" && i.entry.Album != models.Unknown {
		desc = fmt.Sprintf("%s • %s", desc, i.entry.Album)
	}
	return desc
}

func conversationItems(convs []models.Conversation) []list.Item {
	items := make([]list.Item, len(convs))
	for i, c := range convs {
		items[i] = conversationItem{conversation: c}
	}
	return items
}

func entryItems(entries []models.PlaylistEntry) []list.Item {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = entryItem{entry: e}
	}
	return items
}
