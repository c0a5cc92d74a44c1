package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/desertthunder/beatbuddy/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConversationListView ViewState = iota
	ChatView
	PlaylistView
	ExportView
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	inputHeight   = 3
	chromeHeight  = 5
)

// ConversationStore lists, creates and deletes the user's conversations.
type ConversationStore interface {
	ListByUser(ctx context.Context, userID int64) ([]models.Conversation, error)
	Create(ctx context.Context, c *models.Conversation) error
	Delete(ctx context.Context, id int64) error
}

// MessageStore reads a conversation's history.
type MessageStore interface {
	List(ctx context.Context, conversationID int64) ([]models.Message, error)
}

// PlaylistStore reads and edits a conversation's playlist.
type PlaylistStore interface {
	List(ctx context.Context, conversationID int64) ([]models.PlaylistEntry, error)
	Delete(ctx context.Context, conversationID, id int64) error
}

// ChatService runs one chat turn.
type ChatService interface {
	HandleUserMessage(ctx context.Context, conversationID, userID int64, text string) (string, error)
}

// Exporter pushes a playlist to Spotify.
type Exporter interface {
	ExportPlaylist(ctx context.Context, userID, conversationID int64, progress chan<- tasks.ProgressUpdate) (*models.ExportResult, error)
}

// Dependencies are the services the TUI drives. Exporter may be nil when Spotify is not configured.
type Dependencies struct {
	Conversations ConversationStore
	Messages      MessageStore
	Playlists     PlaylistStore
	Chat          ChatService
	Exporter      Exporter
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	userID int64
	deps   Dependencies
	view   ViewState
	width  int
	height int

	conversationList list.Model
	conversation     *models.Conversation

	messages   []models.Message
	transcript viewport.Model
	input      textinput.Model
	spinner    spinner.Model
	waiting    bool
	turnErr    error

	playlistList list.Model

	progressChan chan tasks.ProgressUpdate
	exportDone   chan Msg
	progress     tasks.ProgressUpdate
	result       *models.ExportResult
	exportErr    error

	status string
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model for userID with the provided dependencies.
func NewModel(ctx context.Context, userID int64, deps Dependencies) *Model {
	input := textinput.New()
	input.Placeholder = "Ask BeatBuddy for music..."
	input.CharLimit = 1000
	input.Prompt = "> "

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.bot

	conversations := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	conversations.Title = "Conversations"
	playlist := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	playlist.Title = "Playlist"

	m := &Model{
		ctx:              ctx,
		userID:           userID,
		deps:             deps,
		view:             ConversationListView,
		conversationList: conversations,
		transcript:       viewport.New(0, 0),
		input:            input,
		spinner:          spin,
		playlistList:     playlist,
		help:             help.New(),
		keys:             newKeyMap(),
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

// Err returns the error that ended the session, if any.
func (m *Model) Err() error {
	return m.err
}

// Init initializes the TUI by loading the user's conversations.
func (m *Model) Init() tea.Cmd {
	return m.loadConversations()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ConversationListView:
			return m.handleConversationKeys(msg)
		case ChatView:
			return m.handleChatKeys(msg)
		case PlaylistView:
			return m.handlePlaylistKeys(msg)
		case ExportView:
			return m.handleExportKeys(msg)
		}

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgConversationsLoaded:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		convs, _ := msg.data.([]models.Conversation)
		return m, m.conversationList.SetItems(conversationItems(convs))

	case MsgConversationCreated:
		if msg.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Could not create conversation: %v", msg.err))
			return m, nil
		}
		conv, _ := msg.data.(*models.Conversation)
		return m, tea.Batch(m.openConversation(conv), m.loadConversations())

	case MsgConversationDeleted:
		if msg.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Could not delete conversation: %v", msg.err))
			return m, nil
		}
		m.status = styles.ok.Render("Conversation deleted")
		return m, m.loadConversations()

	case MsgMessagesLoaded:
		if msg.err != nil {
			m.turnErr = msg.err
		}
		m.messages, _ = msg.data.([]models.Message)
		m.refreshTranscript()
		return m, nil

	case MsgReplyReceived:
		m.waiting = false
		if msg.err != nil {
			// Nothing was stored; give the text back so it can be retried.
			if n := len(m.messages); n > 0 && m.messages[n-1].ID == 0 {
				m.input.SetValue(m.messages[n-1].Content)
				m.messages = m.messages[:n-1]
			}
			m.turnErr = msg.err
			m.refreshTranscript()
			return m, nil
		}
		reply, _ := msg.data.(string)
		m.messages = append(m.messages, models.Message{
			ConversationID: m.conversation.ID,
			Sender:         models.SenderBot,
			Content:        reply,
		})
		m.refreshTranscript()
		return m, m.loadMessages()

	case MsgPlaylistLoaded:
		if msg.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Could not load playlist: %v", msg.err))
			return m, nil
		}
		entries, _ := msg.data.([]models.PlaylistEntry)
		m.playlistList.Title = fmt.Sprintf("Playlist for '%s' (%d songs)", conversationItem{*m.conversation}.Title(), len(entries))
		return m, m.playlistList.SetItems(entryItems(entries))

	case MsgEntryRemoved:
		if msg.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Could not remove song: %v", msg.err))
			return m, nil
		}
		m.status = styles.ok.Render("Song removed from playlist")
		return m, m.loadPlaylist()

	case MsgProgressUpdate:
		m.progress, _ = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgExportComplete:
		m.result, _ = msg.data.(*models.ExportResult)
		m.exportErr = msg.err
		m.progressChan = nil
		m.exportDone = nil
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ConversationListView:
		return m.renderConversationList()
	case ChatView:
		return m.renderChat()
	case PlaylistView:
		return m.renderPlaylist()
	case ExportView:
		return m.renderExport()
	default:
		return ""
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.conversationList.SetSize(width-4, height-chromeHeight)
	m.playlistList.SetSize(width-4, height-chromeHeight)
	m.transcript.Width = width - 4
	m.transcript.Height = max(height-inputHeight-chromeHeight, 1)
	m.input.Width = width - 6
	m.refreshTranscript()
}

func (m *Model) handleConversationKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.conversationList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.conversationList, cmd = m.conversationList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.create):
		return m, m.createConversation()
	case key.Matches(msg, m.keys.open):
		if item, ok := m.conversationList.SelectedItem().(conversationItem); ok {
			conv := item.conversation
			return m, m.openConversation(&conv)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if item, ok := m.conversationList.SelectedItem().(conversationItem); ok {
			return m, m.deleteConversation(item.conversation.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.conversationList, cmd = m.conversationList.Update(msg)
	return m, cmd
}

func (m *Model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.forceQ):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.waiting {
			return m, nil
		}
		m.view = ConversationListView
		m.input.Blur()
		return m, m.loadConversations()
	case key.Matches(msg, m.keys.playlist):
		if m.waiting {
			return m, nil
		}
		m.view = PlaylistView
		m.input.Blur()
		m.status = ""
		return m, m.loadPlaylist()
	case key.Matches(msg, m.keys.send):
		return m, m.submit()
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.transcript, cmd = m.transcript.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit records the user's text locally and starts a turn. It is a no-op while a turn runs.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.waiting {
		return nil
	}

	m.input.Reset()
	m.turnErr = nil
	m.waiting = true
	m.messages = append(m.messages, models.Message{
		ConversationID: m.conversation.ID,
		Sender:         models.SenderUser,
		Content:        text,
	})
	m.refreshTranscript()
	return tea.Batch(m.sendMessage(text), m.spinner.Tick)
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.playlist):
		m.view = ChatView
		m.status = ""
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.remove):
		if item, ok := m.playlistList.SelectedItem().(entryItem); ok {
			return m, m.removeEntry(item.entry.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.export):
		if m.deps.Exporter == nil {
			m.status = styles.warn.Render("Spotify export is not configured")
			return m, nil
		}
		if len(m.playlistList.Items()) == 0 {
			m.status = styles.warn.Render("The playlist is empty")
			return m, nil
		}
		m.view = ExportView
		m.result = nil
		m.exportErr = nil
		m.progress = tasks.ProgressUpdate{}
		return m, m.startExport()
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleExportKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.exportDone != nil {
		if key.Matches(msg, m.keys.forceQ) {
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistView
		return m, m.loadPlaylist()
	}
	return m, nil
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ConversationListView:
		m.conversationList, cmd = m.conversationList.Update(msg)
	case ChatView:
		m.input, cmd = m.input.Update(msg)
	case PlaylistView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	}
	return m, cmd
}

func (m *Model) openConversation(conv *models.Conversation) tea.Cmd {
	m.conversation = conv
	m.messages = nil
	m.turnErr = nil
	m.status = ""
	m.view = ChatView
	m.refreshTranscript()
	return tea.Batch(m.loadMessages(), m.input.Focus(), textinput.Blink)
}

func (m *Model) loadConversations() tea.Cmd {
	return func() tea.Msg {
		convs, err := m.deps.Conversations.ListByUser(m.ctx, m.userID)
		return conversationsLoadedMsg(convs, err)
	}
}

func (m *Model) createConversation() tea.Cmd {
	return func() tea.Msg {
		conv := &models.Conversation{UserID: m.userID}
		if err := m.deps.Conversations.Create(m.ctx, conv); err != nil {
			return conversationCreatedMsg(nil, err)
		}
		return conversationCreatedMsg(conv, nil)
	}
}

func (m *Model) deleteConversation(id int64) tea.Cmd {
	return func() tea.Msg {
		return conversationDeletedMsg(id, m.deps.Conversations.Delete(m.ctx, id))
	}
}

func (m *Model) loadMessages() tea.Cmd {
	id := m.conversation.ID
	return func() tea.Msg {
		messages, err := m.deps.Messages.List(m.ctx, id)
		return messagesLoadedMsg(messages, err)
	}
}

func (m *Model) sendMessage(text string) tea.Cmd {
	id := m.conversation.ID
	return func() tea.Msg {
		reply, err := m.deps.Chat.HandleUserMessage(m.ctx, id, m.userID, text)
		return replyReceivedMsg(reply, err)
	}
}

func (m *Model) loadPlaylist() tea.Cmd {
	id := m.conversation.ID
	return func() tea.Msg {
		entries, err := m.deps.Playlists.List(m.ctx, id)
		return playlistLoadedMsg(entries, err)
	}
}

func (m *Model) removeEntry(entryID int64) tea.Cmd {
	id := m.conversation.ID
	return func() tea.Msg {
		return entryRemovedMsg(entryID, m.deps.Playlists.Delete(m.ctx, id, entryID))
	}
}

// startExport runs the export in a goroutine. The result is delivered after the
// progress channel drains so no update is lost.
func (m *Model) startExport() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.exportDone = done

	id := m.conversation.ID
	go func() {
		result, err := m.deps.Exporter.ExportPlaylist(m.ctx, m.userID, id, progress)
		done <- exportCompleteMsg(result, err)
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.exportDone
	return func() tea.Msg {
		if progress == nil {
			return nil
		}
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		return <-done
	}
}

func (m *Model) refreshTranscript() {
	width := max(m.transcript.Width, 20)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for _, msg := range m.messages {
		switch msg.Sender {
		case models.SenderUser:
			b.WriteString(styles.user.Render("You"))
		case models.SenderBot:
			b.WriteString(styles.bot.Render("BeatBuddy"))
		default:
			continue
		}
		b.WriteString("\n")
		b.WriteString(wrap.Render(msg.Content))
		b.WriteString("\n\n")
	}
	if m.turnErr != nil {
		b.WriteString(styles.err.Render(wrap.Render(turnErrorText(m.turnErr))))
		b.WriteString("\n")
	}
	if len(m.messages) == 0 && m.turnErr == nil {
		b.WriteString(styles.help.Render("Say hi, or ask for a playlist to get started."))
	}

	m.transcript.SetContent(b.String())
	m.transcript.GotoBottom()
}

// turnErrorText is the inline message shown when a chat turn fails.
func turnErrorText(err error) string {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return "Message is empty."
	case errors.Is(err, shared.ErrForbidden), errors.Is(err, shared.ErrNotFound):
		return "This conversation is no longer available."
	default:
		return fmt.Sprintf("Failed to generate response: %v", err)
	}
}

func (m *Model) renderConversationList() string {
	helpKeys := []key.Binding{m.keys.open, m.keys.create, m.keys.remove, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n%s", m.conversationList.View(), m.status, helpView)
}

func (m *Model) renderChat() string {
	title := styles.title.Render(conversationItem{*m.conversation}.Title())

	status := " "
	if m.waiting {
		status = m.spinner.View() + " BeatBuddy is thinking..."
	}

	helpKeys := []key.Binding{m.keys.send, m.keys.playlist, m.keys.back, m.keys.forceQ}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", title, m.transcript.View(), status, m.input.View(), helpView)
}

func (m *Model) renderPlaylist() string {
	helpKeys := []key.Binding{m.keys.remove, m.keys.export, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n%s", m.playlistList.View(), m.status, helpView)
}

func (m *Model) renderExport() string {
	if m.exportDone != nil {
		title := styles.title.Render("Exporting to Spotify")
		phase := fmt.Sprintf("%s (%d/%d)", m.progress.Phase, m.progress.Step, m.progress.Total)
		if m.progress.Total == 0 {
			phase = "Starting..."
		}
		return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.exportErr != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(exportErrorText(m.exportErr)), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Playlist exported to Spotify")
	info := fmt.Sprintf("\nName: %s\nAdded: %d/%d tracks\nURL: %s", m.result.Name, m.result.Added, m.result.TotalTracks, m.result.URL)

	var missing string
	if len(m.result.Unmatched) > 0 {
		missing = "\n\n" + styles.warn.Render(fmt.Sprintf("Not found on Spotify (%d):", len(m.result.Unmatched)))
		for _, song := range m.result.Unmatched {
			missing += "\n  • " + song
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, missing, helpView)
}

func exportErrorText(err error) string {
	switch {
	case errors.Is(err, shared.ErrEmptyPlaylist):
		return "Playlist is empty"
	case errors.Is(err, shared.ErrNoTracksFound):
		return "No tracks found on Spotify to add to the playlist"
	case errors.Is(err, shared.ErrSpotifyNotConnected):
		return "Spotify is not connected. Run `beatbuddy spotify connect` first."
	case errors.Is(err, shared.ErrRefreshFailed):
		return "The Spotify session expired. Reconnect your account."
	default:
		return fmt.Sprintf("Failed to export playlist to Spotify: %v", err)
	}
}
