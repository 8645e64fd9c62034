package amqp

import (
	"encoding/json"
	"time"
)

// EventType names a change to the household data.
type EventType string

const (
	EventExpenseCreated  EventType = "expense.created"
	EventExpenseUpdated  EventType = "expense.updated"
	EventExpenseDeleted  EventType = "expense.deleted"
	EventSnapshotCreated EventType = "snapshot.created"
	EventCategoryChanged EventType = "category.changed"
	EventSplitChanged    EventType = "split_settings.changed"
	EventDataImported    EventType = "data.imported"
	EventDataCleared     EventType = "data.cleared"
)

// ChangeEvent is a lightweight notification. Consumers read the current
// state from the API; the event only says what changed.
type ChangeEvent struct {
	Type      EventType `json:"type"`
	ID        int64     `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Year      int       `json:"year,omitempty"`
	Names     []string  `json:"names,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeEvent stamps an event of type t with the current time.
func NewChangeEvent(t EventType) ChangeEvent {
	return ChangeEvent{Type: t, Timestamp: time.Now().UTC()}
}

func (e ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ChangeEventFromJSON(data []byte) (ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ChangeEvent{}, err
	}
	return e, nil
}
