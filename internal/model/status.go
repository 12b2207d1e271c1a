package model

// JobState represents the lifecycle state of a download job
type JobState string

const (
	// JobStateQueued means the job is registered and waiting for a worker
	JobStateQueued JobState = "queued"

	// JobStateRunning means a worker picked the job up
	JobStateRunning JobState = "running"

	// JobStateCompleted means the artifact is on disk
	JobStateCompleted JobState = "completed"

	// JobStateFailed means the job ended with an error message
	JobStateFailed JobState = "failed"
)

// String returns the string representation of JobState
func (s JobState) String() string {
	return string(s)
}

// IsActive returns true while the job still accepts progress updates
func (s JobState) IsActive() bool {
	return s == JobStateQueued || s == JobStateRunning
}

// IsFinished returns true if the job reached a terminal state
func (s JobState) IsFinished() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// CanTransition reports whether moving from s to next is allowed.
// Repeating RUNNING is allowed so both start paths stay idempotent.
func (s JobState) CanTransition(next JobState) bool {
	switch s {
	case JobStateQueued:
		return next == JobStateRunning || next == JobStateFailed
	case JobStateRunning:
		return next == JobStateRunning || next == JobStateCompleted || next == JobStateFailed
	default:
		return false
	}
}
