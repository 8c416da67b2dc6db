package session

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value        V
	lastActivity time.Time
}

type Options[K comparable, V any] struct {
	// IdleTimeout evicts entries untouched for this long. Zero disables eviction.
	IdleTimeout time.Duration
	// OnEvict runs outside the lock after an entry is removed.
	OnEvict func(key K, value V)
}

// Store keeps per-user state in memory.
type Store[K comparable, V any] struct {
	mu      sync.Mutex
	items   map[K]*entry[V]
	idle    time.Duration
	onEvict func(K, V)
	now     func() time.Time
}

func NewStore[K comparable, V any](opts Options[K, V]) *Store[K, V] {
	return &Store[K, V]{
		items:   make(map[K]*entry[V]),
		idle:    opts.IdleTimeout,
		onEvict: opts.OnEvict,
		now:     time.Now,
	}
}

func (s *Store[K, V]) Put(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = &entry[V]{value: value, lastActivity: s.now()}
}

func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	e.lastActivity = s.now()
	return e.value, true
}

func (s *Store[K, V]) GetOrCreate(key K, create func() V) V {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[key]; ok {
		e.lastActivity = s.now()
		return e.value
	}
	e := &entry[V]{value: create(), lastActivity: s.now()}
	s.items[key] = e
	return e.value
}

func (s *Store[K, V]) Delete(key K) bool {
	s.mu.Lock()
	e, ok := s.items[key]
	delete(s.items, key)
	s.mu.Unlock()

	if ok && s.onEvict != nil {
		s.onEvict(key, e.value)
	}
	return ok
}

func (s *Store[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep evicts idle entries and returns how many were removed.
func (s *Store[K, V]) Sweep() int {
	if s.idle <= 0 {
		return 0
	}

	type evicted struct {
		key   K
		value V
	}
	var out []evicted

	s.mu.Lock()
	cutoff := s.now().Add(-s.idle)
	for k, e := range s.items {
		if e.lastActivity.Before(cutoff) {
			out = append(out, evicted{k, e.value})
			delete(s.items, k)
		}
	}
	s.mu.Unlock()

	if s.onEvict != nil {
		for _, e := range out {
			s.onEvict(e.key, e.value)
		}
	}
	return len(out)
}

// Run sweeps every interval until ctx is done.
func (s *Store[K, V]) Run(ctx context.Context, interval time.Duration) {
	if s.idle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
