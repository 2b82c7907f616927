package tasks

import "github.com/charmbracelet/log"

// Executor decides where work runs: Background for the off-thread body, Main for completions.
type Executor interface {
	Background(fn func())
	Main(fn func())
}

// Dispatcher runs background work on a [Pool] and main-thread work on a [Looper].
type Dispatcher struct {
	pool   *Pool
	looper *Looper
	logger *log.Logger
}

// NewDispatcher binds pool and looper.
func NewDispatcher(pool *Pool, looper *Looper, logger *log.Logger) *Dispatcher {
	return &Dispatcher{pool: pool, looper: looper, logger: logger}
}

// Background submits fn to the pool. Work submitted after the pool closes is dropped.
func (d *Dispatcher) Background(fn func()) {
	if !d.pool.Submit(fn) && d.logger != nil {
		d.logger.Warn("dropped background task, pool is closed")
	}
}

// Main posts fn to the looper. Work posted after the looper stops is dropped.
func (d *Dispatcher) Main(fn func()) {
	if !d.looper.Post(fn) && d.logger != nil {
		d.logger.Warn("dropped completion, looper is stopped")
	}
}

// Inline runs both kinds of work synchronously on the caller.
type Inline struct{}

func (Inline) Background(fn func()) { fn() }
func (Inline) Main(fn func())       { fn() }
