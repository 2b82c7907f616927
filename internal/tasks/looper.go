package tasks

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Looper executes posted functions one at a time, in posting order, on a single goroutine.
type Looper struct {
	logger *log.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool
	done    chan struct{}
}

// NewLooper starts a looper goroutine.
func NewLooper(logger *log.Logger) *Looper {
	lp := &Looper{logger: logger, done: make(chan struct{})}
	lp.cond = sync.NewCond(&lp.mu)
	go lp.loop()
	return lp
}

// Post queues fn. It returns false, and drops fn, once the looper is stopped.
//
// Post never blocks, so posted functions may post further work.
func (lp *Looper) Post(fn func()) bool {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if lp.stopped {
		return false
	}
	lp.queue = append(lp.queue, fn)
	lp.cond.Signal()
	return true
}

// Stop refuses further posts, runs what is already queued and waits for the goroutine to exit.
// It must not be called from a posted function.
func (lp *Looper) Stop() {
	lp.mu.Lock()
	lp.stopped = true
	lp.cond.Signal()
	lp.mu.Unlock()

	<-lp.done
}

func (lp *Looper) loop() {
	defer close(lp.done)

	for {
		lp.mu.Lock()
		for len(lp.queue) == 0 && !lp.stopped {
			lp.cond.Wait()
		}
		if len(lp.queue) == 0 {
			lp.mu.Unlock()
			return
		}
		fn := lp.queue[0]
		lp.queue[0] = nil
		lp.queue = lp.queue[1:]
		lp.mu.Unlock()

		run(lp.logger, "looper", fn)
	}
}

// run calls fn and logs a panic instead of letting it kill the goroutine.
func run(logger *log.Logger, where string, fn func()) {
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Error("task panicked", "where", where, "panic", r)
		}
	}()
	fn()
}
