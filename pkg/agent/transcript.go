package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Origin identifies who produced a chat message.
type Origin int

const (
	OriginUser Origin = iota
	OriginAgent
	OriginSystem
)

func (o Origin) String() string {
	switch o {
	case OriginUser:
		return "user"
	case OriginAgent:
		return "agent"
	case OriginSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Message is one transcript entry.
type Message struct {
	ID     string
	Origin Origin
	Text   string
	Time   time.Time
}

// Transcript is the append-only ordered chat log. Entries are never edited or
// removed; ordering is arrival order.
type Transcript struct {
	mu   sync.Mutex
	msgs []Message
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds one entry and returns it.
func (t *Transcript) Append(origin Origin, text string) Message {
	msg := Message{
		ID:     uuid.NewString(),
		Origin: origin,
		Text:   text,
		Time:   time.Now(),
	}
	t.mu.Lock()
	t.msgs = append(t.msgs, msg)
	t.mu.Unlock()
	return msg
}

// Messages returns a copy of the entries in order.
func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}
