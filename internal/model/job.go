package model

import (
	"sync"
	"time"
)

// Progress bounds in percent
const (
	MinProgress = 0.0
	MaxProgress = 100.0
)

// Job is one submitted download request and its mutable lifecycle state.
// All fields are guarded by mu; the registry holding the job uses its own lock.
type Job struct {
	mu sync.Mutex

	id          string
	state       JobState
	progress    float64
	filename    string
	downloadURL string
	message     string
	createdAt   time.Time
	startedAt   time.Time
	finishedAt  time.Time
}

// Snapshot is an immutable, internally consistent copy of a Job
type Snapshot struct {
	ID          string     `json:"job_id"`
	State       JobState   `json:"state"`
	Progress    float64    `json:"progress"`
	Filename    string     `json:"filename,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
	Message     string     `json:"message,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// NewJob creates a queued job with zero progress
func NewJob(id string) *Job {
	return &Job{
		id:        id,
		state:     JobStateQueued,
		progress:  MinProgress,
		createdAt: time.Now(),
	}
}

// ID returns the job identifier
func (j *Job) ID() string {
	return j.id
}

// State returns the current state
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Snapshot copies the observable fields under the job lock
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Snapshot{
		ID:          j.id,
		State:       j.state,
		Progress:    j.progress,
		Filename:    j.filename,
		DownloadURL: j.downloadURL,
		Message:     j.message,
		CreatedAt:   j.createdAt,
	}
	if !j.startedAt.IsZero() {
		started := j.startedAt
		s.StartedAt = &started
	}
	if !j.finishedAt.IsZero() {
		finished := j.finishedAt
		s.FinishedAt = &finished
	}
	return s
}

// FinishedBefore reports whether the job is terminal and finished before t
func (j *Job) FinishedBefore(t time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.IsFinished() && j.finishedAt.Before(t)
}

// MarkRunning moves a queued job to RUNNING. Calling it again is harmless.
func (j *Job) MarkRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.markRunningLocked()
}

// ReportProgress applies an engine progress event. Events that arrive after
// the job is terminal are dropped, and progress never moves backwards.
func (j *Job) ReportProgress(ev ProgressEvent) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.state.IsActive() {
		return false
	}

	switch ev.Phase {
	case PhaseDownloading:
		j.markRunningLocked()
		if pct, ok := ev.Percent(); ok {
			j.raiseProgressLocked(pct)
		}
	case PhaseFinished:
		j.markRunningLocked()
		j.raiseProgressLocked(MaxProgress)
	default:
		return false
	}
	return true
}

// Complete records the artifact and moves the job to COMPLETED
func (j *Job) Complete(filename, downloadURL string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.state.CanTransition(JobStateCompleted) {
		return false
	}
	j.state = JobStateCompleted
	j.progress = MaxProgress
	j.filename = filename
	j.downloadURL = downloadURL
	j.finishedAt = time.Now()
	return true
}

// Fail records the error message and moves the job to FAILED
func (j *Job) Fail(message string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.state.CanTransition(JobStateFailed) {
		return false
	}
	j.state = JobStateFailed
	j.message = message
	j.finishedAt = time.Now()
	return true
}

func (j *Job) markRunningLocked() bool {
	if !j.state.CanTransition(JobStateRunning) {
		return false
	}
	if j.state == JobStateQueued {
		j.startedAt = time.Now()
	}
	j.state = JobStateRunning
	return true
}

func (j *Job) raiseProgressLocked(pct float64) {
	if pct < MinProgress {
		pct = MinProgress
	}
	if pct > MaxProgress {
		pct = MaxProgress
	}
	if pct > j.progress {
		j.progress = pct
	}
}
