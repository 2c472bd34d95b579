package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventProgressUpdated EventType = "progress_updated"
	EventLevelUp         EventType = "level_up"
)

// Event represents an immutable domain event.
type Event struct {
	Type     EventType      `json:"type"`
	Time     time.Time      `json:"time"`
	State    ProgressState  `json:"state"`
	LevelUp  bool           `json:"level_up,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewProgressUpdated(state ProgressState, levelUp bool) Event {
	return Event{Type: EventProgressUpdated, Time: time.Now().UTC(), State: state, LevelUp: levelUp}
}

func NewLevelUp(state ProgressState) Event {
	return Event{Type: EventLevelUp, Time: time.Now().UTC(), State: state, LevelUp: true}
}
