// Package video binds the binary frame channel to the decoder and the display
// canvas, and derives the connection banner shown above the VM display.
package video

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vmdeck/vmdeck/pkg/channel"
	"github.com/vmdeck/vmdeck/pkg/frame"
)

// bannerDismiss is how long the "Connected" banner stays up.
const bannerDismiss = 2 * time.Second

// Banner is the connection banner state. A zero Banner means no banner.
type Banner struct {
	Text       string
	Persistent bool
}

// EventKind discriminates video UI events.
type EventKind int

const (
	// EventFrame reports that a new frame was painted to the canvas.
	EventFrame EventKind = iota
	// EventBanner reports a banner change (possibly to an empty banner).
	EventBanner
)

// Event is one item on the video channel's UI event stream.
type Event struct {
	Kind       EventKind
	Generation uint64
	Banner     Banner
}

// Channel drives the video feed: every inbound payload is decoded in its own
// goroutine and painted to the shared canvas. There is no frame queue; decodes
// that overlap race and the last paint wins, which bounds memory at the cost
// of the occasional stale-but-valid frame under load.
type Channel struct {
	conn    *channel.Conn
	decoder *frame.Decoder
	canvas  *frame.Canvas
	events  chan Event

	mu        sync.Mutex
	banner    Banner
	bannerSeq int
}

// New creates a video channel over conn, painting into canvas. The conn must
// be configured for binary messages.
func New(conn *channel.Conn, canvas *frame.Canvas) *Channel {
	return &Channel{
		conn:    conn,
		decoder: frame.NewDecoder(),
		canvas:  canvas,
		events:  make(chan Event, 256),
	}
}

// Events returns the UI event stream.
func (c *Channel) Events() <-chan Event { return c.events }

// Canvas returns the display canvas.
func (c *Channel) Canvas() *frame.Canvas { return c.canvas }

// Banner returns the current banner.
func (c *Channel) Banner() Banner {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// Start dials the connection and begins dispatching in a goroutine.
func (c *Channel) Start(ctx context.Context) {
	c.conn.Dial(ctx)
	go c.run(ctx)
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
				c.projectBanner(ev)
			case channel.KindMessage:
				go c.decodeAndPaint(ev.Data)
			}
		}
	}
}

// decodeAndPaint is the asynchronous decode task. Decode failures are dropped;
// a corrupt frame must never stall the feed.
func (c *Channel) decodeAndPaint(payload []byte) {
	img, err := c.decoder.Decode(payload)
	if err != nil {
		slog.Debug("dropping undecodable frame", "error", err, "len", len(payload))
		return
	}
	c.canvas.Paint(img)
	c.emit(Event{Kind: EventFrame, Generation: c.canvas.Generation()})
}

func (c *Channel) projectBanner(ev channel.Event) {
	switch ev.State {
	case channel.StateConnecting:
		c.setBanner(Banner{Text: "Connecting…"})
	case channel.StateReconnecting:
		c.setBanner(Banner{Text: "Reconnecting…"})
	case channel.StateOpen:
		seq := c.setBanner(Banner{Text: "Connected"})
		time.AfterFunc(bannerDismiss, func() { c.clearBanner(seq) })
	case channel.StateClosed:
		c.setBanner(Banner{Text: "Disconnected", Persistent: true})
	}
}

// setBanner installs a banner and returns its sequence number, used by the
// auto-dismiss timer to avoid clearing a newer banner.
func (c *Channel) setBanner(b Banner) int {
	c.mu.Lock()
	c.banner = b
	c.bannerSeq++
	seq := c.bannerSeq
	c.mu.Unlock()

	c.emit(Event{Kind: EventBanner, Banner: b})
	return seq
}

func (c *Channel) clearBanner(seq int) {
	c.mu.Lock()
	if c.bannerSeq != seq {
		c.mu.Unlock()
		return
	}
	c.banner = Banner{}
	c.mu.Unlock()

	c.emit(Event{Kind: EventBanner})
}

func (c *Channel) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		slog.Warn("video event buffer full, dropping", "kind", ev.Kind)
	}
}
