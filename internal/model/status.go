package model

import "time"

// SchedulerState is the refresh scheduler's lifecycle state.
type SchedulerState string

const (
	StateIdle       SchedulerState = "IDLE"
	StateRefreshing SchedulerState = "REFRESHING"
	StatePaused     SchedulerState = "PAUSED"
)

// Status is a point-in-time view of the refresh loop.
type Status struct {
	State        SchedulerState `json:"state"`
	Block        string         `json:"block"`
	Interval     time.Duration  `json:"interval"`
	Cycles       int            `json:"cycles"`
	Failures     int            `json:"failures"`
	LastUpdate   time.Time      `json:"last_update"`
	LastElapsed  time.Duration  `json:"last_elapsed"`
	LastError    string         `json:"last_error,omitempty"`
	Rows         int            `json:"rows"`
	CachedSeries int            `json:"cached_series"`
}
