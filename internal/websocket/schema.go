package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionPing     Action = "ping"
)

// RequestPayload is any client message; fields unused by an action stay empty.
type RequestPayload struct {
	Action Action `json:"action"`
	QID    string `json:"q_id,omitempty"`
	Answer string `json:"ans,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventSuccess Event = "success"
	EventPong    Event = "pong"
)

// ResponsePayload is any server message.
type ResponsePayload struct {
	Event  Event  `json:"event"`
	Status string `json:"status,omitempty"`
	QID    string `json:"q_id,omitempty"`
	Error  string `json:"error,omitempty"`
}
