// Package visit runs a page visit's fetch-and-decide sequence at most once, however many times the
// client re-fires the request while it initializes.
package visit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInProgress is returned when another request for the same visit has not produced an outcome in time.
var ErrInProgress = errors.New("visit outcome still being computed")

// Func computes the encoded outcome of a visit.
type Func func(ctx context.Context) ([]byte, error)

// Latch remembers the first outcome computed for a key until it expires.
type Latch interface {
	Do(ctx context.Context, key string, fn Func) ([]byte, error)
}

// MemoryLatch is a process-local Latch.
type MemoryLatch struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

type entry struct {
	done    chan struct{}
	value   []byte
	err     error
	expires time.Time
}

// NewMemoryLatch builds a latch whose outcomes live for ttl.
func NewMemoryLatch(ttl time.Duration) *MemoryLatch {
	return &MemoryLatch{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Do runs fn for the first caller of key. Later and concurrent callers wait for and share its result.
// A failed run is forgotten so the next request may try again.
func (l *MemoryLatch) Do(ctx context.Context, key string, fn Func) ([]byte, error) {
	l.mu.Lock()
	l.purgeLocked()
	if e, ok := l.entries[key]; ok {
		l.mu.Unlock()
		select {
		case <-e.done:
			return e.value, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e := &entry{done: make(chan struct{}), expires: l.now().Add(l.ttl)}
	l.entries[key] = e
	l.mu.Unlock()

	e.value, e.err = fn(ctx)
	if e.err != nil {
		l.mu.Lock()
		delete(l.entries, key)
		l.mu.Unlock()
	}
	close(e.done)
	return e.value, e.err
}

func (l *MemoryLatch) purgeLocked() {
	now := l.now()
	for key, e := range l.entries {
		select {
		case <-e.done:
			if now.After(e.expires) {
				delete(l.entries, key)
			}
		default:
		}
	}
}
