package core

import "time"

// EventType represents the kind of change observed in the store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a single stored constraint.
type Event struct {
	Type      EventType
	ID        string
	Category  string
	Timestamp time.Time

	// Constraint is the reloaded record for create and modify events.
	// It is the zero value when Err is set or for deletes.
	Constraint Constraint

	// Err carries a load failure for a record that changed on disk.
	Err error
}

func (e Event) String() string {
	return string(e.Type) + " " + e.Category + "/" + e.ID
}
