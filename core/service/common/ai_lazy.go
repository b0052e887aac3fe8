package common

import (
	"sync"
	"sync/atomic"
)

// Lazy holds a process-lifetime handle that is loaded on first use.
// A successful load is assigned once and then shared read-only; a failed
// load is retried on the next Get.
type Lazy[T any] struct {
	mu     sync.Mutex
	loaded atomic.Bool
	value  T
	load   func() (T, error)
}

// NewLazy wraps a loader.
func NewLazy[T any](load func() (T, error)) *Lazy[T] {
	return &Lazy[T]{load: load}
}

// Get returns the loaded value, loading it if needed.
func (l *Lazy[T]) Get() (T, error) {
	if l.loaded.Load() {
		return l.value, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// double-check after acquiring the lock
	if l.loaded.Load() {
		return l.value, nil
	}

	v, err := l.load()
	if err != nil {
		var zero T
		return zero, err
	}
	l.value = v
	l.loaded.Store(true)
	return v, nil
}

// Loaded reports whether the handle is ready without triggering a load.
func (l *Lazy[T]) Loaded() bool {
	return l.loaded.Load()
}
