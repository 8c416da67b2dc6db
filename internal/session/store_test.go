package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetOrCreate(t *testing.T) {
	s := NewStore(Options[int64, *int]{})
	calls := 0
	create := func() *int { calls++; v := 7; return &v }

	a := s.GetOrCreate(1, create)
	b := s.GetOrCreate(1, create)
	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, s.Len())
}

func TestStoreDeleteCallsOnEvict(t *testing.T) {
	var evicted []string
	s := NewStore(Options[string, int]{OnEvict: func(k string, _ int) { evicted = append(evicted, k) }})
	s.Put("a", 1)

	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	assert.Equal(t, []string{"a"}, evicted)

	_, ok := s.Get("a")
	assert.False(t, ok)
}

func TestStoreSweepEvictsIdle(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var evicted []string
	s := NewStore(Options[string, int]{
		IdleTimeout: time.Minute,
		OnEvict:     func(k string, _ int) { evicted = append(evicted, k) },
	})
	s.now = func() time.Time { return now }

	s.Put("old", 1)
	now = now.Add(50 * time.Second)
	s.Put("fresh", 2)
	now = now.Add(20 * time.Second)

	require.Equal(t, 1, s.Sweep())
	assert.Equal(t, []string{"old"}, evicted)

	v, ok := s.Get("fresh")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestStoreGetRefreshesActivity(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore(Options[string, int]{IdleTimeout: time.Minute})
	s.now = func() time.Time { return now }

	s.Put("a", 1)
	now = now.Add(45 * time.Second)
	_, _ = s.Get("a")
	now = now.Add(45 * time.Second)

	assert.Zero(t, s.Sweep())
}

func TestStoreWithoutIdleTimeoutNeverSweeps(t *testing.T) {
	s := NewStore(Options[string, int]{})
	s.Put("a", 1)
	s.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	assert.Zero(t, s.Sweep())
}
