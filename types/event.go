package types

import "time"

// EventType tags a mutation event.
type EventType string

const (
	EventAdded      EventType = "ADD"
	EventDeleted    EventType = "DELETE"
	EventClearedAll EventType = "DELETE_ALL"
)

// Summary is the part of an entry that is safe to broadcast.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Size        int       `json:"size"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

/*
Event is a single cache mutation as seen by subscribers.

  - ADD carries the Summary of the inserted entry
  - DELETE carries only the id
  - DELETE_ALL carries nothing
*/
type Event struct {
	Type    EventType `json:"type"`
	ID      string    `json:"id,omitempty"`
	Summary *Summary  `json:"summary,omitempty"`
}

func AddedEvent(s Summary) Event {
	return Event{Type: EventAdded, ID: s.ID, Summary: &s}
}

func DeletedEvent(id string) Event {
	return Event{Type: EventDeleted, ID: id}
}

func ClearedAllEvent() Event {
	return Event{Type: EventClearedAll}
}
