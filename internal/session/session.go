// Package session keeps per-conversation agent state keyed by session id.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rcliao/discharge-care/internal/agent"
	"github.com/rcliao/discharge-care/internal/model"
)

// Session is one conversation. Callers hold Lock for the whole turn so at
// most one turn per session is in flight.
type Session struct {
	ID      string
	Created time.Time

	mu           sync.Mutex
	Active       model.AgentKind
	Receptionist *agent.Receptionist
	Clinical     *agent.Clinical
	Turns        int

	lastSeen atomic.Int64
	infoMu   sync.RWMutex
	info     Summary
}

// Summary is a point-in-time view of a session, readable while a turn runs.
type Summary struct {
	ID       string          `json:"session_id"`
	Agent    model.AgentKind `json:"agent"`
	Patient  string          `json:"patient,omitempty"`
	Stage    model.Stage     `json:"stage"`
	Turns    int             `json:"turns"`
	Created  time.Time       `json:"created_at"`
	LastSeen time.Time       `json:"last_seen"`
}

func newSession(id string, r *agent.Receptionist, now time.Time) *Session {
	s := &Session{ID: id, Created: now, Active: model.AgentReceptionist, Receptionist: r}
	s.lastSeen.Store(now.UnixNano())
	s.refresh()
	return s
}

// Lock starts a turn.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock ends a turn and publishes the updated summary.
func (s *Session) Unlock() {
	s.refresh()
	s.mu.Unlock()
}

// Reset returns the session to a fresh receptionist conversation. Callers
// must hold the lock.
func (s *Session) Reset() {
	s.Active = model.AgentReceptionist
	s.Receptionist.Reset()
	s.Clinical = nil
}

// Patient returns the record known to the session, preferring the clinical
// agent's copy. Callers must hold the lock.
func (s *Session) Patient() *model.PatientRecord {
	if s.Clinical != nil {
		return s.Clinical.Patient()
	}
	return s.Receptionist.Patient()
}

// Summary returns the state published at the end of the last turn.
func (s *Session) Summary() Summary {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()
	sum := s.info
	sum.LastSeen = time.Unix(0, s.lastSeen.Load())
	return sum
}

func (s *Session) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

func (s *Session) refresh() {
	sum := Summary{ID: s.ID, Agent: s.Active, Stage: s.Receptionist.Stage(), Turns: s.Turns, Created: s.Created}
	if p := s.Patient(); p != nil {
		sum.Patient = p.Name
	}
	s.infoMu.Lock()
	s.info = sum
	s.infoMu.Unlock()
}
