package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tunebox/internal/bot"
	"github.com/desertthunder/tunebox/internal/models"
)

// Focus is the component receiving key presses.
type Focus int

const (
	InputFocus Focus = iota
	MenuFocus
)

// transcriptSize is the number of messages kept on screen.
const transcriptSize = 12

// entry is one message in the transcript.
type entry struct {
	id       int
	fromUser bool
	text     string
	keyboard bot.Keyboard
}

// Model represents the console state.
type Model struct {
	ctx        context.Context
	conv       *bot.Conversation
	files      *LocalFiles
	user       models.UserID
	chatID     int64
	focus      Focus
	transcript []entry
	nextID     int
	menuID     int
	menu       list.Model
	input      textinput.Model
	notice     string
	err        error
	width      int
	help       help.Model
	keys       keyMap
}

// NewModel creates a console for user. Audio files added with /audio are served through files.
func NewModel(ctx context.Context, conv *bot.Conversation, files *LocalFiles, user models.UserID, chatID int64) *Model {
	input := textinput.New()
	input.Placeholder = "Type a message, /start or /audio <path> [title] [artist]"
	input.Prompt = "› "
	input.CharLimit = 512
	input.Focus()

	return &Model{
		ctx:    ctx,
		conv:   conv,
		files:  files,
		user:   user,
		chatID: chatID,
		input:  input,
		menu:   newMenu(nil, 76),
		width:  80,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init starts the conversation with /start.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.submit("/start"))
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 4
		m.menu.SetWidth(msg.Width - 4)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		switch m.focus {
		case MenuFocus:
			return m.handleMenuKeys(msg)
		default:
			return m.handleInputKeys(msg)
		}

	case Msg:
		switch msg.kind {
		case MsgReply:
			data := msg.data.(replyData)
			return m, m.apply(data.event, data.reply, data.err)
		case MsgMenuRemembered:
			if err, _ := msg.data.(error); err != nil {
				m.err = err
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the transcript, the active menu and the input line.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("tunebox console"))
	b.WriteString("\n")

	start := max(0, len(m.transcript)-transcriptSize)
	for _, e := range m.transcript[start:] {
		if e.fromUser {
			b.WriteString(styles.user.Render("you › ") + e.text)
		} else {
			b.WriteString(styles.bot.Render(e.text))
		}
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + styles.warn.Render(m.notice) + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
	}
	if len(m.menu.Items()) > 0 {
		b.WriteString("\n" + styles.menu.Render(m.menu.View()) + "\n")
	}

	b.WriteString("\n" + m.input.View() + "\n\n")
	b.WriteString(styles.help.Render(m.help.ShortHelpView(m.helpKeys())))
	return b.String()
}

func (m *Model) helpKeys() []key.Binding {
	if m.focus == MenuFocus {
		return []key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.back, m.keys.quit}
	}
	return m.keys.ShortHelp()
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		line := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if line == "" {
			return m, nil
		}
		return m, m.submit(line)
	case key.Matches(msg, m.keys.tab):
		m.setFocus(MenuFocus)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleMenuKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.menu.SelectedItem().(buttonItem); ok {
			return m, m.press(item.button)
		}
		return m, nil
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.tab):
		m.setFocus(InputFocus)
		return m, nil
	}

	var cmd tea.Cmd
	m.menu, cmd = m.menu.Update(msg)
	return m, cmd
}

func (m *Model) setFocus(f Focus) {
	if f == MenuFocus && len(m.menu.Items()) == 0 {
		f = InputFocus
	}
	m.focus = f
	if f == InputFocus {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// submit turns a typed line into an event and appends it to the transcript.
func (m *Model) submit(line string) tea.Cmd {
	m.notice, m.err = "", nil
	m.nextID++
	m.transcript = append(m.transcript, entry{id: m.nextID, fromUser: true, text: line})

	ev := bot.Event{UserID: m.user, ChatID: m.chatID, MessageID: m.nextID, Text: line}
	switch {
	case line == "/audio" || strings.HasPrefix(line, "/audio "):
		audio, err := m.audio(strings.TrimSpace(strings.TrimPrefix(line, "/audio")))
		if err != nil {
			m.err = err
			return nil
		}
		ev.Kind = bot.EventAudio
		ev.Audio = audio
	case strings.HasPrefix(line, "/"):
		ev.Kind = bot.EventCommand
	default:
		ev.Kind = bot.EventText
	}
	return m.dispatch(ev)
}

// audio parses `<path> [title] [artist]` and registers the file.
func (m *Model) audio(args string) (*bot.Audio, error) {
	fields := splitArgs(args)
	if len(fields) == 0 {
		return nil, fmt.Errorf("usage: /audio <path> [title] [artist]")
	}
	id, err := m.files.Register(fields[0])
	if err != nil {
		return nil, err
	}

	name := filepath.Base(fields[0])
	audio := &bot.Audio{FileID: id, FileName: name, Title: strings.TrimSuffix(name, filepath.Ext(name))}
	if len(fields) > 1 {
		audio.Title = fields[1]
	}
	if len(fields) > 2 {
		audio.Performer = fields[2]
	}
	return audio, nil
}

func (m *Model) press(b bot.Button) tea.Cmd {
	m.notice, m.err = "", nil
	if b.WebAppURL != "" {
		m.notice = fmt.Sprintf("Open %s in a browser.", b.WebAppURL)
		return nil
	}
	return m.dispatch(bot.Event{
		Kind:      bot.EventCallback,
		UserID:    m.user,
		ChatID:    m.chatID,
		MessageID: m.menuID,
		Data:      b.Data,
	})
}

func (m *Model) dispatch(ev bot.Event) tea.Cmd {
	return func() tea.Msg {
		reply, err := m.conv.Handle(m.ctx, ev)
		return replyMsg(ev, reply, err)
	}
}

// apply renders a conversation reply into the transcript.
func (m *Model) apply(ev bot.Event, reply bot.Reply, err error) tea.Cmd {
	if err != nil {
		m.err = err
		return nil
	}
	if reply.Notice != "" {
		m.notice = reply.Notice
	}
	if reply.DeleteMessageID > 0 {
		m.removeEntry(reply.DeleteMessageID)
	}

	switch reply.Mode {
	case bot.ReplySend:
		m.nextID++
		m.transcript = append(m.transcript, entry{id: m.nextID, text: reply.Text, keyboard: reply.Keyboard})
		if len(reply.Keyboard) > 0 {
			m.setMenu(m.nextID, reply.Keyboard)
		}
		if reply.Menu {
			id := m.nextID
			return func() tea.Msg {
				return menuRememberedMsg(m.conv.RememberMenu(m.ctx, m.user, m.chatID, id))
			}
		}
	case bot.ReplyEdit:
		for i := range m.transcript {
			if m.transcript[i].id == ev.MessageID {
				m.transcript[i].text = reply.Text
				m.transcript[i].keyboard = reply.Keyboard
			}
		}
		m.setMenu(ev.MessageID, reply.Keyboard)
	}
	return nil
}

func (m *Model) setMenu(id int, kb bot.Keyboard) {
	m.menuID = id
	m.menu = newMenu(kb, m.width-4)
	if len(kb) > 0 {
		m.setFocus(MenuFocus)
	} else {
		m.setFocus(InputFocus)
	}
}

func (m *Model) removeEntry(id int) {
	kept := m.transcript[:0]
	for _, e := range m.transcript {
		if e.id != id {
			kept = append(kept, e)
		}
	}
	m.transcript = kept
	if m.menuID == id {
		m.setMenu(0, nil)
	}
}

// splitArgs splits on spaces, keeping double-quoted runs together.
func splitArgs(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case r == ' ' && !quoted:
			if started {
				out = append(out, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		out = append(out, cur.String())
	}
	return out
}
