package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vmdeck/vmdeck/pkg/agent"
	"github.com/vmdeck/vmdeck/pkg/frame"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("11")).
			Padding(0, 1)

	disconnectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("1")).
				Bold(true).
				Padding(0, 1)

	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	senderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	systemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	statusStyles = map[agent.StatusKind]lipgloss.Style{
		agent.StatusIdle:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		agent.StatusThinking: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		agent.StatusSpeaking: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		agent.StatusError:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

// View projects the current state into the terminal. It reads state only, so
// projecting the same state twice renders the same output.
func (m Model) View() string {
	if m.width == 0 {
		return "starting..."
	}

	parts := []string{titleStyle.Render("vmdeck"), m.bannerLine()}

	cols, rows := rasterSize(m.width, m.videoRows())
	if rows > 0 {
		parts = append(parts, frame.RenderHalfBlocks(m.videoCh.Canvas().Snapshot(), cols, rows))
	}

	parts = append(parts, m.statusLine())

	if m.chatOpen {
		parts = append(parts, m.viewport.View(), m.textarea.View())
	} else {
		parts = append(parts, hintStyle.Render(fmt.Sprintf("press %q to chat · ctrl+c to quit", chatToggleKey)))
	}

	if m.err != nil {
		parts = append(parts, errorStyle.Render("Error: "+m.err.Error()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) bannerLine() string {
	if m.exhausted {
		return disconnectedStyle.Render("Disconnected")
	}
	if m.banner.Text == "" {
		return ""
	}
	if m.banner.Persistent {
		return disconnectedStyle.Render(m.banner.Text)
	}
	return bannerStyle.Render(m.banner.Text)
}

// statusLine shows the agent status indicator plus the snapshot extras:
// current task, avatar motion, and backend connectivity.
func (m Model) statusLine() string {
	style, ok := statusStyles[m.status.Kind]
	if !ok {
		style = systemStyle
	}
	line := style.Render("● " + m.status.Label)

	if m.motion != "" {
		line += systemStyle.Render("  avatar: " + m.motion)
	}
	if m.snapshot != nil {
		if m.snapshot.CurrentTask != "" {
			line += systemStyle.Render("  task: " + m.snapshot.CurrentTask)
		}
		line += systemStyle.Render(fmt.Sprintf("  vm:%s ai:%s",
			onOff(m.snapshot.VMConnected), onOff(m.snapshot.OmniConnected)))
	}
	return line
}

func (m Model) renderTranscript() string {
	var sb strings.Builder
	for _, msg := range m.agentCh.Transcript().Messages() {
		switch msg.Origin {
		case agent.OriginUser:
			sb.WriteString(userStyle.Render("You: "))
			sb.WriteString(msg.Text)
		case agent.OriginAgent:
			sb.WriteString(senderStyle.Render("Agent: "))
			sb.WriteString(m.renderMarkdown(msg.Text))
		default:
			sb.WriteString(systemStyle.Render("· " + msg.Text))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// videoRows is the cell height available to the VM display.
func (m Model) videoRows() int {
	used := 3 // title + banner + status
	if m.chatOpen {
		used += m.viewport.Height + m.textarea.Height()
	} else {
		used++ // hint line
	}
	rows := m.height - used
	if rows < 0 {
		rows = 0
	}
	return rows
}

// rasterSize fits a 16:9 surface into the available cell box. A half-block
// cell holds two vertically stacked pixels, and terminal cells are roughly
// twice as tall as wide, so the pixel grid is cols x rows*2.
func rasterSize(availCols, availRows int) (int, int) {
	if availCols < 2 || availRows < 1 {
		return 0, 0
	}
	cols := availCols
	rows := cols * 9 / 32
	if rows > availRows {
		rows = availRows
		cols = rows * 32 / 9
		if cols > availCols {
			cols = availCols
		}
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

func onOff(b bool) string {
	if b {
		return "up"
	}
	return "down"
}
