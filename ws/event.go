package ws

import "encoding/json"

type EventType string

const (
	TaskCreated    EventType = "task:created"
	TaskUpdated    EventType = "task:updated"
	TaskDeleted    EventType = "task:deleted"
	SubtaskAdded   EventType = "subtask:added"
	SubtaskUpdated EventType = "subtask:updated"
	SubtaskDeleted EventType = "subtask:deleted"
	CommentAdded   EventType = "comment:added"
	ReplyAdded     EventType = "reply:added"
	ReactionAdded  EventType = "reaction:added"
	HoursLogged    EventType = "hours:logged"
)

// Event is the broadcast envelope. Payload carries the full authoritative
// entity; the id fields locate it inside the receiver's cache.
type Event struct {
	Type      EventType       `json:"type"`
	ProjectID string          `json:"projectId"`
	TaskID    string          `json:"taskId,omitempty"`
	SubtaskID string          `json:"subtaskId,omitempty"`
	CommentID string          `json:"commentId,omitempty"`
	ReplyID   string          `json:"replyId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Marshal encodes an entity for an event payload. An encoding failure
// yields a nil payload; the event still carries its ids.
func Marshal(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// Broadcaster publishes an authoritative change to every client subscribed
// to the project's room.
type Broadcaster interface {
	Broadcast(projectID string, event Event)
}
