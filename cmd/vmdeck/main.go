// vmdeck is a terminal client for an agent-operated VM server: it renders the
// VM display streamed over one websocket and a chat/status panel for the AI
// agent driving it over a second one.
//
// Usage:
//
//	vmdeck [-config vmdeck.yaml]
//
// Keys:
//
//	c      - open the chat panel
//	esc    - close the chat panel
//	enter  - send the typed message
//	ctrl+c - quit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vmdeck/vmdeck/pkg/agent"
	"github.com/vmdeck/vmdeck/pkg/channel"
	"github.com/vmdeck/vmdeck/pkg/config"
	"github.com/vmdeck/vmdeck/pkg/frame"
	"github.com/vmdeck/vmdeck/pkg/ui"
	"github.com/vmdeck/vmdeck/pkg/video"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a file.
	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	defer f.Close()

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})
	slog.SetDefault(slog.New(handler))
	slog.Info("vmdeck starting", "server", cfg.ServerURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy := channel.Policy{
		BaseDelay:   cfg.ReconnectBase(),
		CapDelay:    cfg.ReconnectCap(),
		MaxAttempts: cfg.MaxReconnects,
	}

	canvas := frame.NewCanvas(frame.CanvasWidth, frame.CanvasHeight)
	videoCh := video.New(
		channel.New("video", cfg.VideoURL(), channel.WithBinary(), channel.WithPolicy(policy)),
		canvas,
	)
	agentCh := agent.New(
		channel.New("agent", cfg.AgentURL(), channel.WithPolicy(policy)),
	)

	videoCh.Start(ctx)
	agentCh.Start(ctx)

	p := tea.NewProgram(ui.New(videoCh, agentCh), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	slog.Info("vmdeck stopped")
}

func logLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
