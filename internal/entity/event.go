package entity

import "time"

// Outbound event actions.
const (
	EventInit   = "init"
	EventState  = "state"
	EventChat   = "chat"
	EventError  = "error"
	EventResult = "result"
)

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeDraw Outcome = "draw"
)

// SystemAuthor is the author name of server generated chat lines.
const SystemAuthor = "system"

type ChatEntry struct {
	RoomID     string    `json:"room_id"`
	AuthorID   string    `json:"author_id,omitempty"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	System     bool      `json:"system,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// Event is what the gateway hands to the transport. Payload is one of the payload types below.
type Event struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

type InitPayload struct {
	SelfID string       `json:"self_id"`
	Room   RoomSnapshot `json:"room"`
	Chat   []ChatEntry  `json:"chat"`
}

type StatePayload struct {
	Room RoomSnapshot `json:"room"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type ResultPayload struct {
	Outcome     Outcome           `json:"outcome"`
	WinnerID    string            `json:"winner_id,omitempty"`
	WinningLine []int             `json:"winning_line,omitempty"`
	Board       [BoardSize]Symbol `json:"board"`
}

func NewStateEvent(snapshot RoomSnapshot) Event {
	return Event{Action: EventState, Payload: StatePayload{Room: snapshot}}
}

func NewErrorEvent(message string) Event {
	return Event{Action: EventError, Payload: ErrorPayload{Message: message}}
}

func NewChatEvent(entry ChatEntry) Event {
	return Event{Action: EventChat, Payload: entry}
}
