package download

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ytget/yt-downloader-server/internal/model"
)

// ErrDuplicateJob is returned when a job id is registered twice
var ErrDuplicateJob = errors.New("job already registered")

// Registry maps job ids to jobs. Its lock only guards the map; each job
// guards its own fields.
type Registry struct {
	jobs      map[string]*model.Job
	jobsMutex sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*model.Job),
	}
}

// Register inserts a job; an existing id is never overwritten
func (r *Registry) Register(job *model.Job) error {
	r.jobsMutex.Lock()
	defer r.jobsMutex.Unlock()

	if _, exists := r.jobs[job.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.ID())
	}
	r.jobs[job.ID()] = job
	return nil
}

// Lookup returns the job for id
func (r *Registry) Lookup(id string) (*model.Job, bool) {
	r.jobsMutex.RLock()
	defer r.jobsMutex.RUnlock()
	job, exists := r.jobs[id]
	return job, exists
}

// List returns all registered jobs in no particular order
func (r *Registry) List() []*model.Job {
	r.jobsMutex.RLock()
	defer r.jobsMutex.RUnlock()

	jobs := make([]*model.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// Remove deletes a job. Only the manager's retention sweep calls it.
func (r *Registry) Remove(id string) {
	r.jobsMutex.Lock()
	defer r.jobsMutex.Unlock()
	delete(r.jobs, id)
}

// Len returns the number of registered jobs
func (r *Registry) Len() int {
	r.jobsMutex.RLock()
	defer r.jobsMutex.RUnlock()
	return len(r.jobs)
}
