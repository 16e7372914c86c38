package rate

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// Memory is a process-local Limiter.
type Memory struct {
	mu      sync.Mutex
	config  Config
	windows map[string]*window
	now     func() time.Time
	hits    int
}

// MemoryOption customizes a Memory limiter.
type MemoryOption func(*Memory)

// WithClock overrides the clock used to open and close windows.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an in-memory Limiter.
func NewMemory(cfg Config, opts ...MemoryOption) (*Memory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	m := &Memory{
		config:  cfg,
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Allow never fails.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hits++
	if m.hits%1024 == 0 {
		m.pruneLocked(now)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.start.Add(m.config.Window)) {
		w = &window{start: now}
		m.windows[key] = w
	}
	w.count++
	return w.count <= m.config.Max, nil
}

func (m *Memory) pruneLocked(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.start.Add(m.config.Window)) {
			delete(m.windows, key)
		}
	}
}
