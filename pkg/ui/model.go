// Package ui is the terminal front end: a bubbletea model that projects the
// two channel event streams into the display and feeds chat input back into
// the agent channel.
package ui

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vmdeck/vmdeck/pkg/agent"
	"github.com/vmdeck/vmdeck/pkg/video"
)

// chatToggleKey opens the chat panel. While the panel is open the input has
// focus, so the rune types into the textarea instead of toggling.
const chatToggleKey = "c"

type videoEventMsg video.Event
type agentEventMsg agent.Event

// Model is the bubbletea model for the whole client.
type Model struct {
	videoCh *video.Channel
	agentCh *agent.Channel

	viewport viewport.Model
	textarea textarea.Model
	renderer *glamour.TermRenderer

	width    int
	height   int
	chatOpen bool

	banner     video.Banner
	status     agent.Status
	motion     string
	snapshot   *agent.StateData
	generation uint64
	exhausted  bool
	err        error
}

// New builds the model over already-constructed channels. Call the channels'
// Start before running the program.
func New(videoCh *video.Channel, agentCh *agent.Channel) Model {
	ta := textarea.New()
	ta.Placeholder = "Message the agent..."
	ta.Prompt = "┃ "
	ta.CharLimit = 2000
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	vp := viewport.New(80, 10)

	// Standard style avoids terminal queries that leak into input.
	r, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(76),
	)

	return Model{
		videoCh:  videoCh,
		agentCh:  agentCh,
		viewport: vp,
		textarea: ta,
		renderer: r,
		status:   agentCh.Status(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		waitVideo(m.videoCh.Events()),
		waitAgent(m.agentCh.Events()),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textarea.SetWidth(msg.Width - 2)
		m.viewport.Width = msg.Width
		m.viewport.Height = chatViewportHeight(msg.Height)
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(max(20, msg.Width-4)),
		)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case videoEventMsg:
		ev := video.Event(msg)
		switch ev.Kind {
		case video.EventFrame:
			m.generation = ev.Generation
		case video.EventBanner:
			m.banner = ev.Banner
		}
		cmds = append(cmds, waitVideo(m.videoCh.Events()))

	case agentEventMsg:
		ev := agent.Event(msg)
		switch ev.Kind {
		case agent.EventStatus:
			m.status = ev.Status
		case agent.EventMessage:
			m.viewport.SetContent(m.renderTranscript())
			m.viewport.GotoBottom()
		case agent.EventAvatar:
			m.motion = ev.Motion
		case agent.EventSnapshot:
			m.snapshot = ev.Snapshot
		case agent.EventConn:
			m.exhausted = ev.Exhausted
		}
		cmds = append(cmds, waitAgent(m.agentCh.Events()))
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		// Closes the chat panel only when it is open.
		if m.chatOpen {
			m.chatOpen = false
			m.textarea.Blur()
		}
		return m, nil

	case "enter":
		if !m.chatOpen {
			return m, nil
		}
		text := m.textarea.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		if err := m.agentCh.SendChat(text); err != nil {
			slog.Warn("chat send failed", "error", err)
			m.err = err
			return m, nil
		}
		m.err = nil
		m.textarea.Reset()
		return m, nil

	case "shift+enter", "alt+enter":
		if m.chatOpen {
			m.textarea.InsertString("\n")
		}
		return m, nil

	case chatToggleKey:
		// The toggle only acts while the input is not focused; otherwise the
		// rune belongs to the text being typed.
		if !m.chatOpen {
			m.chatOpen = true
			return m, m.textarea.Focus()
		}
	}

	if m.chatOpen {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd
	}
	return m, nil
}

func waitVideo(ch <-chan video.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return videoEventMsg(ev)
	}
}

func waitAgent(ch <-chan agent.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return agentEventMsg(ev)
	}
}

// chatViewportHeight is the transcript height for a given terminal height.
func chatViewportHeight(total int) int {
	h := total / 3
	if h < 3 {
		h = 3
	}
	return h
}
