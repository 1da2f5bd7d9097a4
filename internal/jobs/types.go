package jobs

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// Sentinel exit codes for jobs that never produced a real one.
const (
	ExitCodeStopped  = -15 // terminated via stop
	ExitCodeSpawnErr = -1  // child process could not be started
)

// Job is the persisted record for one unit of work. Timestamps other than
// CreatedAt stay nil until the corresponding transition happens. PID is only
// set while the job is running and is cleared on finalize.
type Job struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Command     string     `json:"command"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExitCode    *int       `json:"exit_code,omitempty"`
	PID         int        `json:"pid,omitempty"`
}

// Terminal reports whether no further transitions may occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is legal. Transitions
// are monotonic forward: pending -> running -> {completed, failed, stopped},
// with failed also reachable directly from pending (spawn failure).
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusFailed
	case StatusRunning:
		return next.Terminal()
	}
	return false
}
