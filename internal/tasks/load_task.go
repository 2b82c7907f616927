package tasks

import (
	"sync"

	"github.com/desertthunder/audioquery/internal/models"
)

// LoadTask runs a query body off-thread and hands its result to a completion on the main looper.
type LoadTask[T any] struct {
	once sync.Once

	mu   sync.Mutex
	spec *models.QuerySpec
	load func(models.QuerySpec) T
	done func(T)
}

// NewLoadTask creates a task for spec. done may be nil.
func NewLoadTask[T any](spec models.QuerySpec, load func(models.QuerySpec) T, done func(T)) *LoadTask[T] {
	return &LoadTask[T]{spec: &spec, load: load, done: done}
}

// Execute schedules the body on ex's background side and the completion on its main side.
// Only the first call does anything.
func (t *LoadTask[T]) Execute(ex Executor) {
	t.once.Do(func() {
		t.mu.Lock()
		spec, load, done := *t.spec, t.load, t.done
		t.mu.Unlock()

		ex.Background(func() {
			result := load(spec)
			ex.Main(func() {
				if done != nil {
					done(result)
				}
				t.clear()
			})
		})
	})
}

// Spec returns the task's query spec, or false once the task has completed.
func (t *LoadTask[T]) Spec() (models.QuerySpec, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.spec == nil {
		return models.QuerySpec{}, false
	}
	return *t.spec, true
}

func (t *LoadTask[T]) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spec, t.load, t.done = nil, nil, nil
}

// Run executes load in the background and passes its result to done on the main side.
func Run[T any](ex Executor, load func() T, done func(T)) {
	ex.Background(func() {
		result := load()
		ex.Main(func() {
			if done != nil {
				done(result)
			}
		})
	})
}
