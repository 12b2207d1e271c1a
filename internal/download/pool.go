package download

import (
	"context"
	"errors"
	"log"
	"runtime/debug"
	"sync"
)

// DefaultPoolSize is the number of workers used when none is configured
const DefaultPoolSize = 3

// ErrPoolClosed is returned by Submit after Shutdown
var ErrPoolClosed = errors.New("worker pool is closed")

// PoolStats is a point-in-time view of the pool
type PoolStats struct {
	Size    int `json:"size"`
	Active  int `json:"active"`
	Pending int `json:"pending"`
}

// Pool runs submitted tasks on a fixed number of workers. Tasks wait in an
// unbounded FIFO queue, so Submit never blocks.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	size    int
	active  int
	closed  bool
	workers sync.WaitGroup
}

// NewPool starts size workers; size <= 0 uses DefaultPoolSize
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}

	p := &Pool{size: size}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < size; i++ {
		p.workers.Add(1)
		go p.worker(i)
	}
	return p
}

// Submit enqueues a task and returns immediately
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	p.queue = append(p.queue, task)
	p.cond.Signal()
	return nil
}

// Stats returns the pool size, running and queued task counts
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{Size: p.size, Active: p.active, Pending: len(p.queue)}
}

// Shutdown stops accepting tasks, lets queued tasks drain and waits for the
// workers or ctx, whichever comes first.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker(workerID int) {
	defer p.workers.Done()

	for {
		task, ok := p.next()
		if !ok {
			return
		}
		p.execute(workerID, task)
	}
}

// next blocks until a task is available or the pool is closed and drained
func (p *Pool) next() (func(), bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 {
		if p.closed {
			return nil, false
		}
		p.cond.Wait()
	}

	task := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	p.active++
	return task, true
}

func (p *Pool) execute(workerID int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: worker %d recovered from panic: %v\n%s", workerID, r, debug.Stack())
		}
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()
	task()
}
