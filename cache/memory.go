package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

// Memory is a process-local cache. Expired entries are never returned and
// are reclaimed by a background sweep started with NewMemory.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	index   map[string]map[string]struct{}
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// MemoryOption customizes a Memory cache.
type MemoryOption func(*Memory)

// WithMemoryClock overrides the clock used for expiry.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory returns an in-memory cache. A positive sweepEvery starts a
// goroutine that drops expired entries on that interval; Close stops it.
func NewMemory(sweepEvery time.Duration, opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]memEntry),
		index:   make(map[string]map[string]struct{}),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if sweepEvery > 0 {
		go m.sweepLoop(sweepEvery)
	} else {
		close(m.done)
	}
	return m
}

func (m *Memory) sweepLoop(every time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stop:
			return
		}
	}
}

// Sweep removes every expired entry and returns how many were dropped.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if !now.Before(e.expiresAt) {
			m.removeLocked(key, e.snap.IdentityID)
			removed++
		}
	}
	return removed
}

// Close stops the sweep goroutine. It is safe to call more than once.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
	return nil
}

// Len reports the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Get(_ context.Context, key string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !m.now().Before(e.expiresAt) {
		m.removeLocked(key, e.snap.IdentityID)
		return nil, ErrMiss
	}
	snap := e.snap
	return &snap, nil
}

func (m *Memory) Put(_ context.Context, key string, snap *Snapshot, ttl time.Duration) error {
	if ttl <= 0 || snap == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.entries[key]; ok && prev.snap.IdentityID != snap.IdentityID {
		m.removeLocked(key, prev.snap.IdentityID)
	}
	m.entries[key] = memEntry{snap: *snap, expiresAt: m.now().Add(ttl)}

	keys, ok := m.index[snap.IdentityID]
	if !ok {
		keys = make(map[string]struct{})
		m.index[snap.IdentityID] = keys
	}
	keys[key] = struct{}{}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		m.removeLocked(key, e.snap.IdentityID)
	}
	return nil
}

func (m *Memory) InvalidateIdentity(_ context.Context, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.index[identityID] {
		delete(m.entries, key)
	}
	delete(m.index, identityID)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) removeLocked(key, identityID string) {
	delete(m.entries, key)
	if keys, ok := m.index[identityID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(m.index, identityID)
		}
	}
}
