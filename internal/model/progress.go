package model

// ProgressPhase tags a progress event reported by the extraction engine
type ProgressPhase string

const (
	PhaseStarting       ProgressPhase = "starting"
	PhaseDownloading    ProgressPhase = "downloading"
	PhaseFinished       ProgressPhase = "finished"
	PhasePostProcessing ProgressPhase = "post_processing"
	PhaseError          ProgressPhase = "error"
)

// ProgressEvent is the payload of the engine progress hook
type ProgressEvent struct {
	Phase      ProgressPhase
	BytesDone  int64
	BytesTotal int64
}

// Percent returns the completed share in percent, or false when the total
// size is unknown.
func (e ProgressEvent) Percent() (float64, bool) {
	if e.BytesTotal <= 0 {
		return 0, false
	}
	done := e.BytesDone
	if done < 0 {
		done = 0
	}
	return float64(done) / float64(e.BytesTotal) * MaxProgress, true
}

// ProgressFunc receives progress events for a single job
type ProgressFunc func(ProgressEvent)
