// Package agent binds a reconnecting websocket channel to the agent's JSON
// protocol: it keeps the agent status, the append-only chat transcript, and
// the latest full state snapshot, and republishes them as typed UI events.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/vmdeck/vmdeck/pkg/channel"
)

// EventKind discriminates agent UI events.
type EventKind int

const (
	// EventConn mirrors the underlying connection state.
	EventConn EventKind = iota
	// EventStatus reports an agent status change.
	EventStatus
	// EventMessage reports a new transcript entry.
	EventMessage
	// EventAvatar reports a new avatar motion label.
	EventAvatar
	// EventSnapshot carries the latest full state snapshot.
	EventSnapshot
)

// Event is one item on the agent channel's UI event stream.
type Event struct {
	Kind      EventKind
	ConnState channel.State
	Attempts  int
	Exhausted bool
	Status    Status
	Message   Message
	Motion    string
	Snapshot  *StateData
}

// Channel is the agent-side protocol binding over a channel.Conn.
type Channel struct {
	conn       *channel.Conn
	transcript *Transcript
	events     chan Event

	mu       sync.Mutex
	status   Status
	motion   string
	snapshot *StateData
	wasOpen  bool
}

// New creates an agent channel over conn. The conn must be configured for
// text messages.
func New(conn *channel.Conn) *Channel {
	return &Channel{
		conn:       conn,
		transcript: NewTranscript(),
		events:     make(chan Event, 256),
		status:     statusIdle,
	}
}

// Transcript returns the chat transcript.
func (c *Channel) Transcript() *Transcript { return c.transcript }

// Status returns the current agent status.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Motion returns the current avatar motion label, empty when unknown.
func (c *Channel) Motion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.motion
}

// Snapshot returns the last full state snapshot, nil before the first one.
func (c *Channel) Snapshot() *StateData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Events returns the UI event stream.
func (c *Channel) Events() <-chan Event { return c.events }

// Start dials the connection and begins dispatching in a goroutine.
func (c *Channel) Start(ctx context.Context) {
	c.conn.Dial(ctx)
	go c.run(ctx)
}

// SendChat submits a user chat message. Whitespace-only input is a no-op.
// On success exactly one User transcript entry is appended and exactly one
// chat message goes out.
func (c *Channel) SendChat(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	payload, err := json.Marshal(Envelope{Type: TypeChat, Text: text})
	if err != nil {
		return err
	}
	if err := c.conn.Send(payload); err != nil {
		return err
	}

	msg := c.transcript.Append(OriginUser, text)
	c.emit(Event{Kind: EventMessage, Message: msg})
	return nil
}

func (c *Channel) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.conn.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case channel.KindState:
				c.handleConnState(ev)
			case channel.KindMessage:
				c.handleMessage(ev.Data)
			}
		}
	}
}

func (c *Channel) handleConnState(ev channel.Event) {
	switch ev.State {
	case channel.StateOpen:
		// Request a full snapshot on every open; the request is idempotent,
		// so replays after reconnect are harmless.
		if err := c.conn.Send(stateRequest); err != nil {
			slog.Warn("agent state request failed", "error", err)
		}
		c.mu.Lock()
		reopened := c.wasOpen
		c.wasOpen = true
		c.mu.Unlock()
		if reopened {
			msg := c.transcript.Append(OriginSystem, "Reconnected to agent")
			c.emit(Event{Kind: EventMessage, Message: msg})
		}

	case channel.StateReconnecting, channel.StateClosed:
		// Any disconnect invalidates the last-seen snapshot: force Error,
		// never merge. Repeated close events are idempotent here.
		changed := c.setStatus(statusDisconnected)
		c.mu.Lock()
		hadSession := c.wasOpen
		c.mu.Unlock()
		if changed && hadSession {
			msg := c.transcript.Append(OriginSystem, "Agent connection lost")
			c.emit(Event{Kind: EventMessage, Message: msg})
		}
	}

	c.emit(Event{
		Kind:      EventConn,
		ConnState: ev.State,
		Attempts:  ev.Attempts,
		Exhausted: c.conn.Exhausted(),
	})
}

// handleMessage parses and dispatches one inbound payload. Malformed JSON and
// unknown types are logged and ignored; nothing here may panic the channel.
func (c *Channel) handleMessage(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("agent message malformed", "error", err, "len", len(data))
		return
	}

	switch env.Type {
	case TypeResponse:
		msg := c.transcript.Append(OriginAgent, env.Text)
		c.emit(Event{Kind: EventMessage, Message: msg})

	case TypeState:
		if env.Data == nil {
			slog.Warn("agent state message without data")
			return
		}
		c.applySnapshot(env.Data)

	case TypeTool:
		// Tool execution and its effects live server-side; the client only
		// records that a result passed through.
		slog.Info("agent tool result", "payload", string(data))

	default:
		slog.Debug("agent message ignored", "type", string(env.Type))
	}
}

func (c *Channel) applySnapshot(data *StateData) {
	c.mu.Lock()
	c.snapshot = data
	next := data.project(c.status)
	changed := next != c.status
	c.status = next

	motionChanged := false
	if data.Avatar != nil && data.Avatar.CurrentMotion != "" && data.Avatar.CurrentMotion != c.motion {
		c.motion = data.Avatar.CurrentMotion
		motionChanged = true
	}
	motion := c.motion
	c.mu.Unlock()

	if changed {
		c.emit(Event{Kind: EventStatus, Status: next})
	}
	if motionChanged {
		c.emit(Event{Kind: EventAvatar, Motion: motion})
	}
	c.emit(Event{Kind: EventSnapshot, Snapshot: data})
}

func (c *Channel) setStatus(s Status) bool {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: EventStatus, Status: s})
	}
	return changed
}

func (c *Channel) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		slog.Warn("agent event buffer full, dropping", "kind", ev.Kind)
	}
}
