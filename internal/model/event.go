package model

import "time"

type EventKind string

const (
	EventCreate EventKind = "CREATE"
	EventOther  EventKind = "OTHER"
)

// FileEvent is one filesystem notification. Paths is never empty.
type FileEvent struct {
	Kind      EventKind
	Paths     []string
	Timestamp time.Time
}

func (e FileEvent) IsCreate() bool {
	return e.Kind == EventCreate
}

// WatchEvent is a single element of the watcher stream: either an event or
// an error reported by the watch subsystem.
type WatchEvent struct {
	Event FileEvent
	Err   error
}
