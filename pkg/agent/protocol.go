package agent

import "encoding/json"

// MessageType is the envelope discriminator of the agent protocol. Every
// message is one UTF-8 JSON object with a "type" field.
type MessageType string

const (
	TypeChat     MessageType = "chat"     // outbound user message
	TypeState    MessageType = "state"    // outbound snapshot request / inbound snapshot
	TypeResponse MessageType = "response" // inbound agent reply
	TypeTool     MessageType = "tool"     // inbound tool result, logged only
)

// Envelope is the wire representation of a protocol message.
type Envelope struct {
	Type MessageType `json:"type"`
	Text string      `json:"text,omitempty"`
	Data *StateData  `json:"data,omitempty"`
}

// StateData is the agent's full status snapshot as sent by the server.
type StateData struct {
	IsRunning  bool `json:"isRunning"`
	IsThinking bool `json:"isThinking"`
	IsSpeaking bool `json:"isSpeaking"`

	CurrentTask   string          `json:"currentTask,omitempty"`
	LastResponse  string          `json:"lastResponse,omitempty"`
	FrameCount    int             `json:"frameCount,omitempty"`
	VMConnected   bool            `json:"vmConnected,omitempty"`
	OmniConnected bool            `json:"omniConnected,omitempty"`
	Avatar        *AvatarState    `json:"avatar,omitempty"`
	ToolResults   json.RawMessage `json:"toolResults,omitempty"`
}

// AvatarState is the avatar portion of a snapshot. Only the current motion is
// projected; everything else is carried for diagnostics.
type AvatarState struct {
	Loaded        bool     `json:"loaded,omitempty"`
	CurrentMotion string   `json:"currentMotion,omitempty"`
	Motions       []string `json:"availableMotions,omitempty"`
	Expression    string   `json:"expression,omitempty"`
	IsSpeaking    bool     `json:"isSpeaking,omitempty"`
}

// stateRequest is the snapshot request sent once on every open.
var stateRequest = []byte(`{"type":"state"}`)
