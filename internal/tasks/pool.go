package tasks

import (
	"sync"

	"github.com/charmbracelet/log"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 64
)

// Pool is a fixed number of workers draining a buffered job queue.
type Pool struct {
	logger *log.Logger
	jobs   chan func()
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines reading from a queue of queueSize jobs.
// Non-positive values fall back to 4 workers and 64 queued jobs.
func NewPool(workers, queueSize int, logger *log.Logger) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	p := &Pool{logger: logger, jobs: make(chan func(), queueSize)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues fn, blocking while the queue is full. It returns false once the pool is closed.
func (p *Pool) Submit(fn func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}
	p.jobs <- fn
	return true
}

// Close stops accepting jobs and waits for queued ones to finish. Calling it twice is harmless.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobs {
		run(p.logger, "pool", job)
	}
}
