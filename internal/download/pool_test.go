package download

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPoolDefaultSize(t *testing.T) {
	p := NewPool(0)
	defer p.Shutdown(context.Background())

	if got := p.Stats().Size; got != DefaultPoolSize {
		t.Errorf("Expected size %d, got %d", DefaultPoolSize, got)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const size = 3
	p := NewPool(size)

	release := make(chan struct{})
	started := make(chan struct{}, 10)
	var running, peak int32

	for i := 0; i < 5; i++ {
		err := p.Submit(func() {
			n := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			started <- struct{}{}
			<-release
			atomic.AddInt32(&running, -1)
		})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	for i := 0; i < size; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for workers to start")
		}
	}

	stats := p.Stats()
	if stats.Active != size {
		t.Errorf("Expected %d active, got %d", size, stats.Active)
	}
	if stats.Pending != 2 {
		t.Errorf("Expected 2 pending, got %d", stats.Pending)
	}

	close(release)
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if peak > size {
		t.Errorf("Expected at most %d concurrent tasks, saw %d", size, peak)
	}
}

func TestPoolFIFO(t *testing.T) {
	p := NewPool(1)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		if err := p.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("Expected FIFO order, got %v", order)
		}
	}
	if len(order) != 10 {
		t.Errorf("Expected 10 tasks to run, got %d", len(order))
	}
}

func TestPoolRecoversFromPanic(t *testing.T) {
	p := NewPool(1)

	done := make(chan struct{})
	if err := p.Submit(func() { panic("boom") }); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := p.Submit(func() { close(done) }); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Worker did not survive the panic")
	}

	p.Shutdown(context.Background())
	if got := p.Stats().Active; got != 0 {
		t.Errorf("Expected 0 active after panic, got %d", got)
	}
}

func TestPoolSubmitAfterShutdown(t *testing.T) {
	p := NewPool(2)
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	err := p.Submit(func() {})
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}
}

func TestPoolShutdownHonorsContext(t *testing.T) {
	p := NewPool(1)

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	p.Submit(func() {
		close(started)
		<-release
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := p.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
