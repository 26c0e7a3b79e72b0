// Package channel implements a reconnecting websocket connection with an
// explicit state machine and exponential backoff. Each Conn owns exactly one
// live transport at a time and publishes typed events on a single Go channel,
// so consumers observe state changes and messages in one ordered stream
// instead of nested callbacks.
package channel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State is the connection lifecycle state of a Conn.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Policy controls reconnection backoff. The delay before the k-th reconnect
// attempt (0-based) is min(BaseDelay << k, CapDelay); no jitter.
type Policy struct {
	BaseDelay   time.Duration
	CapDelay    time.Duration
	MaxAttempts int
}

// DefaultPolicy returns the standard client policy.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:   time.Second,
		CapDelay:    30 * time.Second,
		MaxAttempts: 10,
	}
}

// Delay returns the backoff delay for the given 0-based attempt index.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if d <= 0 || d > p.CapDelay {
		return p.CapDelay
	}
	return d
}

// EventKind discriminates Conn events.
type EventKind int

const (
	// KindState reports a state transition (with the attempt counter and,
	// on failure transitions, the triggering error).
	KindState EventKind = iota
	// KindMessage carries one inbound message payload.
	KindMessage
)

// Event is a single item on the Conn's event stream.
type Event struct {
	Kind     EventKind
	State    State
	Attempts int
	Err      error
	Data     []byte
}

// Transport is the minimal websocket surface Conn needs. *websocket.Conn
// satisfies it; tests inject fakes.
type Transport interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc establishes a Transport for a URL.
type DialFunc func(ctx context.Context, url string) (Transport, error)

func wsDial(ctx context.Context, url string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ErrNotOpen is returned by Send when the connection is not open.
var ErrNotOpen = errors.New("channel: connection not open")

// Conn is a reconnecting websocket connection. A Conn is created once per
// logical channel and lives for the whole client session; after the retry
// budget is exhausted it stays Closed and a new Conn (in practice, a process
// restart) is required.
type Conn struct {
	name   string
	url    string
	binary bool
	policy Policy
	dial   DialFunc

	events chan Event

	mu       sync.Mutex
	state    State
	attempts int
	lastErr  error
	tr       Transport
	stopCh   chan struct{}
	running  bool

	writeMu sync.Mutex
}

// Option configures a Conn.
type Option func(*Conn)

// WithBinary makes the Conn forward only binary inbound messages
// (the video feed); the default forwards only text messages.
func WithBinary() Option {
	return func(c *Conn) { c.binary = true }
}

// WithPolicy overrides the default reconnect policy.
func WithPolicy(p Policy) Option {
	return func(c *Conn) { c.policy = p }
}

// WithDialer overrides the websocket dialer; used by tests.
func WithDialer(d DialFunc) Option {
	return func(c *Conn) { c.dial = d }
}

// New creates a Conn for url. The name appears in log lines.
func New(name, url string, opts ...Option) *Conn {
	c := &Conn{
		name:   name,
		url:    url,
		policy: DefaultPolicy(),
		dial:   wsDial,
		events: make(chan Event, 256),
		state:  StateIdle,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the ordered stream of connection events. Within one Conn,
// messages are delivered in arrival order.
func (c *Conn) Events() <-chan Event { return c.events }

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the reconnect attempt counter. It resets to zero only on a
// successful open.
func (c *Conn) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Exhausted reports whether the retry budget has been spent.
func (c *Conn) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateClosed && c.attempts >= c.policy.MaxAttempts
}

// Dial starts the managed connect/read/reconnect loop in a goroutine. Calling
// Dial while a loop is live tears the previous transport and loop down first,
// so at most one transport ever delivers messages.
func (c *Conn) Dial(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		close(c.stopCh)
		if c.tr != nil {
			c.tr.Close()
			c.tr = nil
		}
		c.stopCh = make(chan struct{})
	}
	c.running = true
	stop := c.stopCh
	c.mu.Unlock()

	go c.run(ctx, stop)
}

// Close stops the loop and closes the live transport, if any.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
	c.stopCh = make(chan struct{})
	if c.tr != nil {
		c.tr.Close()
		c.tr = nil
	}
}

// Send writes a text message on the live transport.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	tr := c.tr
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || tr == nil {
		return ErrNotOpen
	}

	// gorilla/websocket allows one concurrent writer.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return tr.WriteMessage(websocket.TextMessage, data)
}

// run is the connection loop: dial, read until close, back off, repeat.
// The backoff wait happens inside this loop, which guarantees at most one
// pending reconnect timer per Conn.
func (c *Conn) run(ctx context.Context, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		c.transition(StateConnecting, nil)

		tr, err := c.dial(ctx, c.url)
		if err != nil {
			slog.Warn("channel dial failed", "channel", c.name, "error", err)
			if !c.backoff(ctx, stop, err) {
				return
			}
			continue
		}

		c.mu.Lock()
		if !c.running || stop != c.stopCh {
			c.mu.Unlock()
			tr.Close()
			return
		}
		c.tr = tr
		c.attempts = 0 // reset strictly on successful open
		c.mu.Unlock()

		c.transition(StateOpen, nil)
		slog.Info("channel connected", "channel", c.name, "url", c.url)

		err = c.readLoop(tr)

		c.mu.Lock()
		if c.tr == tr {
			c.tr = nil
		}
		c.mu.Unlock()
		tr.Close()

		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		slog.Warn("channel disconnected", "channel", c.name, "error", err)
		if !c.backoff(ctx, stop, err) {
			return
		}
	}
}

// readLoop forwards inbound messages until the transport fails. Read errors
// are returned to the caller; only the loop exiting (the close) drives the
// state machine, so an error can never schedule a second reconnect.
func (c *Conn) readLoop(tr Transport) error {
	for {
		msgType, data, err := tr.ReadMessage()
		if err != nil {
			return err
		}
		if c.binary {
			if msgType != websocket.BinaryMessage {
				continue
			}
		} else if msgType != websocket.TextMessage {
			continue
		}
		c.emit(Event{Kind: KindMessage, Data: data})
	}
}

// backoff schedules the next reconnect. It increments the attempt counter
// immediately, before the delay elapses, so repeated closes during one outage
// compound the backoff. Returns false when the budget is exhausted or the
// loop was stopped.
func (c *Conn) backoff(ctx context.Context, stop chan struct{}, cause error) bool {
	c.mu.Lock()
	if c.attempts >= c.policy.MaxAttempts {
		c.mu.Unlock()
		c.transition(StateClosed, cause)
		slog.Error("channel retries exhausted", "channel", c.name, "attempts", c.policy.MaxAttempts)
		return false
	}
	delay := c.policy.Delay(c.attempts)
	c.attempts++
	c.lastErr = cause
	c.mu.Unlock()

	c.transition(StateReconnecting, cause)
	slog.Info("channel reconnecting", "channel", c.name, "attempt", c.Attempts(), "delay", delay)

	select {
	case <-time.After(delay):
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func (c *Conn) transition(s State, err error) {
	c.mu.Lock()
	c.state = s
	if err != nil {
		c.lastErr = err
	}
	attempts := c.attempts
	c.mu.Unlock()

	c.emit(Event{Kind: KindState, State: s, Attempts: attempts, Err: err})
}

// emit never blocks the read loop; if the consumer lags the event is dropped.
func (c *Conn) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		slog.Warn("channel event buffer full, dropping", "channel", c.name, "kind", ev.Kind)
	}
}
