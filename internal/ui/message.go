package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible results delivered to the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
	err  error
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgConversationsLoaded MsgKind = iota
	MsgConversationCreated
	MsgConversationDeleted
	MsgMessagesLoaded
	MsgReplyReceived
	MsgPlaylistLoaded
	MsgEntryRemoved
	MsgProgressUpdate
	MsgExportComplete
)

// conversationsLoadedMsg is the constructor for [MsgConversationsLoaded]
func conversationsLoadedMsg(convs []models.Conversation, err error) Msg {
	return Msg{kind: MsgConversationsLoaded, data: convs, err: err}
}

// conversationCreatedMsg is the constructor for [MsgConversationCreated]
func conversationCreatedMsg(conv *models.Conversation, err error) Msg {
	return Msg{kind: MsgConversationCreated, data: conv, err: err}
}

// conversationDeletedMsg is the constructor for [MsgConversationDeleted]
func conversationDeletedMsg(id int64, err error) Msg {
	return Msg{kind: MsgConversationDeleted, data: id, err: err}
}

// messagesLoadedMsg is the constructor for [MsgMessagesLoaded]
func messagesLoadedMsg(messages []models.Message, err error) Msg {
	return Msg{kind: MsgMessagesLoaded, data: messages, err: err}
}

// replyReceivedMsg is the constructor for [MsgReplyReceived]
func replyReceivedMsg(reply string, err error) Msg {
	return Msg{kind: MsgReplyReceived, data: reply, err: err}
}

// playlistLoadedMsg is the constructor for [MsgPlaylistLoaded]
func playlistLoadedMsg(entries []models.PlaylistEntry, err error) Msg {
	return Msg{kind: MsgPlaylistLoaded, data: entries, err: err}
}

// entryRemovedMsg is the constructor for [MsgEntryRemoved]
func entryRemovedMsg(id int64, err error) Msg {
	return Msg{kind: MsgEntryRemoved, data: id, err: err}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// exportCompleteMsg is the constructor for [MsgExportComplete]
func exportCompleteMsg(result *models.ExportResult, err error) Msg {
	return Msg{kind: MsgExportComplete, data: result, err: err}
}
