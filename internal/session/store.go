package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rcliao/discharge-care/internal/agent"
)

// Store maps session ids to sessions.
type Store interface {
	// GetOrCreate returns the session for id, creating it on first use.
	GetOrCreate(id string) *Session
	Get(id string) (*Session, bool)
	Delete(id string) bool
	// Clear removes every session and reports how many were removed.
	Clear() int
	List() []Summary
	Len() int
	// Evict removes sessions idle for longer than idle.
	Evict(idle time.Duration) int
}

// Factory builds the receptionist for a new session.
type Factory func() *agent.Receptionist

// InMemory is a Store that lives for the life of the process.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	now      func() time.Time
	logger   *log.Logger
}

// NewInMemory creates an empty store.
func NewInMemory(factory Factory, logger *log.Logger) *InMemory {
	if logger == nil {
		logger = log.Default()
	}
	return &InMemory{
		sessions: make(map[string]*Session),
		factory:  factory,
		now:      time.Now,
		logger:   logger,
	}
}

func (m *InMemory) GetOrCreate(id string) *Session {
	now := m.now()
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch(now)
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.touch(now)
		return s
	}
	s = newSession(id, m.factory(), now)
	m.sessions[id] = s
	m.logger.Info("session created", "session", id, "active", len(m.sessions))
	return s
}

func (m *InMemory) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *InMemory) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	m.logger.Info("session deleted", "session", id)
	return true
}

func (m *InMemory) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.sessions)
	m.sessions = make(map[string]*Session)
	m.logger.Info("sessions cleared", "removed", n)
	return n
}

// List returns summaries ordered by creation time, then id.
func (m *InMemory) List() []Summary {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Summary())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *InMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *InMemory) Evict(idle time.Duration) int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.idleSince(now) > idle {
			delete(m.sessions, id)
			n++
		}
	}
	if n > 0 {
		m.logger.Info("idle sessions evicted", "removed", n, "idle", idle, "active", len(m.sessions))
	}
	return n
}

// Run evicts idle sessions every interval until ctx is done.
func (m *InMemory) Run(ctx context.Context, every, idle time.Duration) {
	if every <= 0 || idle <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Evict(idle)
		}
	}
}
