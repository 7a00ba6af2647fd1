package recorder

import "time"

// CycleEvent is one refresh cycle outcome.
type CycleEvent struct {
	ID              string
	Block           string
	Trigger         string // "TICK", "MANUAL", "RESUME"
	Status          string // "OK" or "FAILED"
	Symbols         int
	Quotes          int
	Histories       int
	HistoryFailures int
	Rows            int
	TopCode         string
	StartedAt       time.Time
	Elapsed         time.Duration
	Error           string
}

// AnnotationEvent records a user edit to an annotation.
type AnnotationEvent struct {
	Code   string
	Action string // "SET", "PIN", "DELETE"
	Text   string
	Pinned bool
}

// ControlEvent records a scheduler state change requested by a user.
type ControlEvent struct {
	Action string // "PAUSE", "RESUME", "REFRESH"
	Source string // "telegram", "http"
}

// Recorder persists an audit trail of cycles and user actions.
type Recorder interface {
	RecordCycle(evt *CycleEvent) error
	RecordAnnotation(evt *AnnotationEvent) error
	RecordControl(evt *ControlEvent) error
	RecentCycles(limit int) ([]CycleEvent, error)
	Close() error
}
