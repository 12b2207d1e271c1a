package download

import (
	"context"

	"github.com/ytget/yt-downloader-server/internal/model"
)

// Extractor is the external engine that fetches, trims and transcodes media.
// Extract blocks until the artifact is written or the engine gives up.
type Extractor interface {
	Extract(ctx context.Context, url string, opts model.ExtractOptions) (*model.ExtractResult, error)
	Probe(ctx context.Context, url string) (*model.MediaInfo, error)
}

// Downloader defines the interface of the job manager used by the HTTP layer.
type Downloader interface {
	// Submit validates req, queues a job and returns its id without waiting
	Submit(req model.Request) (string, error)

	// Status returns a snapshot of the job, or false for unknown ids
	Status(id string) (model.Snapshot, bool)

	// List returns snapshots of all retained jobs, oldest first
	List() []model.Snapshot

	// Probe fetches media metadata without downloading
	Probe(ctx context.Context, url string) (*model.MediaInfo, error)

	Stats() Stats
}
