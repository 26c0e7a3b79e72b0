package agent

// StatusKind is the agent's high-level activity, distinct from the network
// connection state.
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusThinking
	StatusSpeaking
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusIdle:
		return "idle"
	case StatusThinking:
		return "thinking"
	case StatusSpeaking:
		return "speaking"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Status pairs the activity kind with its display label.
type Status struct {
	Kind  StatusKind
	Label string
}

var (
	statusIdle         = Status{StatusIdle, "Idle"}
	statusThinking     = Status{StatusThinking, "Thinking"}
	statusSpeaking     = Status{StatusSpeaking, "Speaking"}
	statusDisconnected = Status{StatusError, "Disconnected"}
)

// project maps a snapshot onto a status by priority: thinking beats speaking
// beats running. When all three flags are unset the previous status is kept;
// a snapshot never implies an error.
func (d *StateData) project(prev Status) Status {
	switch {
	case d.IsThinking:
		return statusThinking
	case d.IsSpeaking:
		return statusSpeaking
	case d.IsRunning:
		return statusIdle
	default:
		return prev
	}
}
