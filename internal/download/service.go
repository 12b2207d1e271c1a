package download

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/yt-downloader-server/internal/model"
	"github.com/ytget/yt-downloader-server/internal/platform"
)

// Defaults for the job manager
const (
	DownloadsRoute  = "/downloads/"
	DefaultJobTTL   = 24 * time.Hour
	JanitorInterval = time.Minute
	ProbeTimeout    = 30 * time.Second
)

// Config configures a Service
type Config struct {
	DownloadDir string
	CookieFile  string
	MaxParallel int
	// JobTTL is how long terminal jobs stay queryable; 0 keeps them forever
	JobTTL time.Duration
	// JobTimeout bounds a single extraction; 0 means no limit
	JobTimeout time.Duration
	// PublicBaseURL is prepended to download references when set
	PublicBaseURL string
}

// Stats summarizes the manager state
type Stats struct {
	Workers PoolStats `json:"workers"`
	Jobs    int       `json:"jobs"`
}

// Result is the outcome of one execution body: either an artifact path or
// the cause of the failure.
type Result struct {
	Path string
	Err  error
}

// Succeeded reports whether the result carries an artifact
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Service owns the job registry and worker pool and runs download jobs
type Service struct {
	registry *Registry
	pool     *Pool
	engine   Extractor
	cfg      Config
}

// NewService creates a job manager and starts its workers
func NewService(engine Extractor, cfg Config) *Service {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultPoolSize
	}
	return &Service{
		registry: NewRegistry(),
		pool:     NewPool(cfg.MaxParallel),
		engine:   engine,
		cfg:      cfg,
	}
}

// Submit validates req, registers a queued job and hands it to the pool.
// Validation errors are returned before any worker slot is used.
func (s *Service) Submit(req model.Request) (string, error) {
	plan, err := NewPlan(req)
	if err != nil {
		return "", err
	}

	job := model.NewJob(generateJobID())
	if err := s.registry.Register(job); err != nil {
		return "", fmt.Errorf("failed to register job: %w", err)
	}

	err = s.pool.Submit(func() {
		s.finish(job, s.run(job, plan))
	})
	if err != nil {
		s.registry.Remove(job.ID())
		log.Printf("ERROR: [JOB %s] could not be queued: %v", job.ID(), err)
		return "", fmt.Errorf("failed to queue job %s: %w", job.ID(), err)
	}

	log.Printf("INFO: [JOB %s] queued %s download for %s", job.ID(), plan.Mode, plan.URL)
	return job.ID(), nil
}

// Status returns a snapshot of the job with the given id
func (s *Service) Status(id string) (model.Snapshot, bool) {
	job, exists := s.registry.Lookup(id)
	if !exists {
		return model.Snapshot{}, false
	}
	return job.Snapshot(), true
}

// List returns snapshots of all retained jobs, oldest first
func (s *Service) List() []model.Snapshot {
	jobs := s.registry.List()
	snapshots := make([]model.Snapshot, 0, len(jobs))
	for _, job := range jobs {
		snapshots = append(snapshots, job.Snapshot())
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})
	return snapshots
}

// Probe fetches media metadata without downloading
func (s *Service) Probe(ctx context.Context, rawURL string) (*model.MediaInfo, error) {
	if err := validateURL(strings.TrimSpace(rawURL)); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()
	return s.engine.Probe(ctx, strings.TrimSpace(rawURL))
}

// Stats returns worker and job counts
func (s *Service) Stats() Stats {
	return Stats{Workers: s.pool.Stats(), Jobs: s.registry.Len()}
}

// StartJanitor evicts terminal jobs older than the configured TTL until ctx
// is done. It returns immediately when retention is unlimited.
func (s *Service) StartJanitor(ctx context.Context) {
	if s.cfg.JobTTL <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(JanitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.evictExpired(now)
			}
		}
	}()
}

// Shutdown stops accepting jobs and waits for running ones
func (s *Service) Shutdown(ctx context.Context) error {
	return s.pool.Shutdown(ctx)
}

// evictExpired removes terminal jobs that finished before now-TTL
func (s *Service) evictExpired(now time.Time) int {
	cutoff := now.Add(-s.cfg.JobTTL)
	evicted := 0
	for _, job := range s.registry.List() {
		if job.FinishedBefore(cutoff) {
			s.registry.Remove(job.ID())
			evicted++
		}
	}
	if evicted > 0 {
		log.Printf("INFO: evicted %d expired jobs", evicted)
	}
	return evicted
}

// run is the execution body of a job. It never panics and never returns
// without a result.
func (s *Service) run(job *model.Job, plan Plan) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Err: fmt.Errorf("extraction panicked: %v", r)}
		}
	}()

	job.MarkRunning()
	log.Printf("INFO: [JOB %s] started", job.ID())

	ctx := context.Background()
	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}

	var duration float64
	if plan.NeedsDuration() {
		duration = s.probeDuration(ctx, job.ID(), plan.URL)
		if start, end, _ := plan.TrimRange(duration); start >= end {
			return Result{Err: &ValidationError{Field: "start_time", Reason: "is past the end of the source"}}
		}
	}

	opts := BuildOptions(plan, s.env(), duration, func(ev model.ProgressEvent) {
		job.ReportProgress(ev)
	})

	res, err := s.engine.Extract(ctx, plan.URL, opts)
	if err != nil {
		return Result{Err: err}
	}

	path, err := resolveArtifactPath(res)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Path: path}
}

// finish applies the terminal transition for result
func (s *Service) finish(job *model.Job, result Result) {
	if !result.Succeeded() {
		message := strings.TrimSpace(result.Err.Error())
		if message == "" {
			message = "download failed"
		}
		job.Fail(message)
		log.Printf("ERROR: [JOB %s] failed: %s", job.ID(), message)
		return
	}

	name := filepath.Base(result.Path)
	if !job.Complete(name, s.downloadURL(name)) {
		log.Printf("WARN: [JOB %s] completion ignored in state %s", job.ID(), job.State())
		return
	}
	log.Printf("INFO: [JOB %s] completed: %s", job.ID(), name)
}

// probeDuration returns the source duration in seconds, or 0 when unknown
func (s *Service) probeDuration(ctx context.Context, jobID, rawURL string) float64 {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	info, err := s.engine.Probe(ctx, rawURL)
	if err != nil || info == nil {
		log.Printf("WARN: [JOB %s] duration unknown, trimming to end of source: %v", jobID, err)
		return 0
	}
	return info.Duration
}

func (s *Service) env() Env {
	return Env{DownloadDir: s.cfg.DownloadDir, CookieFile: s.cfg.CookieFile}
}

func (s *Service) downloadURL(name string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + DownloadsRoute + url.PathEscape(name)
}

// resolveArtifactPath picks the artifact path in priority order: the first
// per-download path, the aggregate path, then the template-derived filename.
// When the chosen file is not on disk, a similarly named sibling is used.
func resolveArtifactPath(res *model.ExtractResult) (string, error) {
	if res == nil {
		return "", errors.New("extraction returned no result")
	}

	var path string
	for _, p := range res.RequestedPaths {
		if p != "" {
			path = p
			break
		}
	}
	if path == "" {
		path = res.Filepath
	}
	if path == "" {
		path = res.PreparedFilename
	}
	if path == "" {
		return "", errors.New("extraction did not report an output file")
	}

	if found, err := platform.FindFileWithFallback(path); err == nil {
		return found, nil
	}
	return path, nil
}

// generateJobID generates a unique job ID using UUID v7 for time ordering
func generateJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
