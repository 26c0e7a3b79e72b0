package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vmdeck/vmdeck/pkg/agent"
	"github.com/vmdeck/vmdeck/pkg/channel"
	"github.com/vmdeck/vmdeck/pkg/frame"
	"github.com/vmdeck/vmdeck/pkg/video"
)

// testModel builds a model over undialed channels: input handling and
// projection need no live sockets.
func testModel() Model {
	videoConn := channel.New("video", "ws://test", channel.WithBinary())
	agentConn := channel.New("agent", "ws://test")
	m := New(
		video.New(videoConn, frame.NewCanvas(frame.CanvasWidth, frame.CanvasHeight)),
		agent.New(agentConn),
	)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestChatToggleAndEscape(t *testing.T) {
	m := testModel()
	if m.chatOpen {
		t.Fatal("chat should start closed")
	}

	updated, _ := m.Update(keyMsg("c"))
	m = updated.(Model)
	if !m.chatOpen {
		t.Fatal("toggle key should open chat")
	}

	updated, _ = m.Update(keyMsg("esc"))
	m = updated.(Model)
	if m.chatOpen {
		t.Fatal("escape should close chat")
	}

	// Escape while closed is a no-op, not a quit.
	updated, cmd := m.Update(keyMsg("esc"))
	m = updated.(Model)
	if m.chatOpen || cmd != nil {
		t.Error("escape while closed should do nothing")
	}
}

func TestToggleKeyTypesWhileChatOpen(t *testing.T) {
	m := testModel()

	updated, _ := m.Update(keyMsg("c"))
	m = updated.(Model)

	// With the input focused, the toggle rune is just text.
	updated, _ = m.Update(keyMsg("c"))
	m = updated.(Model)

	if !m.chatOpen {
		t.Error("chat closed by typing its toggle key")
	}
	if m.textarea.Value() != "c" {
		t.Errorf("textarea value = %q, want %q", m.textarea.Value(), "c")
	}
}

func TestEmptySubmitIsNoOp(t *testing.T) {
	m := testModel()
	updated, _ := m.Update(keyMsg("c"))
	m = updated.(Model)

	updated, _ = m.Update(keyMsg("enter"))
	m = updated.(Model)

	if m.err != nil {
		t.Errorf("empty submit produced error: %v", m.err)
	}
	if got := m.agentCh.Transcript().Len(); got != 0 {
		t.Errorf("empty submit appended %d transcript entries", got)
	}
}

func TestWhitespaceSubmitIsNoOp(t *testing.T) {
	m := testModel()
	updated, _ := m.Update(keyMsg("c"))
	m = updated.(Model)

	for _, r := range "   " {
		updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(Model)
	}
	updated, _ = m.Update(keyMsg("enter"))
	m = updated.(Model)

	if got := m.agentCh.Transcript().Len(); got != 0 {
		t.Errorf("whitespace submit appended %d transcript entries", got)
	}
}

func TestProjectionIsIdempotent(t *testing.T) {
	m := testModel()

	first := m.View()
	second := m.View()
	if first != second {
		t.Error("same state projected differently on repeated renders")
	}

	// Repeated identical status events must not accumulate visible output.
	ev := agentEventMsg(agent.Event{Kind: agent.EventStatus, Status: m.status})
	updated, _ := m.Update(ev)
	m = updated.(Model)
	updated, _ = m.Update(ev)
	m = updated.(Model)
	if got := m.View(); got != first {
		t.Error("replayed status event changed the projection")
	}
}

func TestBannerProjection(t *testing.T) {
	m := testModel()

	updated, _ := m.Update(videoEventMsg(video.Event{
		Kind:   video.EventBanner,
		Banner: video.Banner{Text: "Connecting…"},
	}))
	m = updated.(Model)
	if got := m.bannerLine(); got == "" {
		t.Error("connecting banner not projected")
	}

	updated, _ = m.Update(videoEventMsg(video.Event{
		Kind:   video.EventBanner,
		Banner: video.Banner{Text: "Disconnected", Persistent: true},
	}))
	m = updated.(Model)
	if got := m.bannerLine(); got == "" {
		t.Error("disconnected banner not projected")
	}

	updated, _ = m.Update(videoEventMsg(video.Event{Kind: video.EventBanner}))
	m = updated.(Model)
	if got := m.bannerLine(); got != "" {
		t.Errorf("cleared banner still projected: %q", got)
	}
}

func TestRasterSize(t *testing.T) {
	cases := []struct {
		availCols, availRows int
		wantCols, wantRows   int
	}{
		{0, 0, 0, 0},
		{1, 10, 0, 0},
		{64, 100, 64, 18},  // width-bound: 64*9/32
		{200, 10, 35, 10},  // height-bound: 10*32/9
		{100, 1, 3, 1},     // degenerate but non-zero
	}
	for _, c := range cases {
		gotCols, gotRows := rasterSize(c.availCols, c.availRows)
		if gotCols != c.wantCols || gotRows != c.wantRows {
			t.Errorf("rasterSize(%d,%d) = (%d,%d), want (%d,%d)",
				c.availCols, c.availRows, gotCols, gotRows, c.wantCols, c.wantRows)
		}
	}
}
