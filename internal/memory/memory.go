// Package memory keeps the bounded rolling conversation history of an agent.
package memory

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/discharge-care/internal/model"
)

// DefaultTurns is the window size: five user/assistant exchanges.
const DefaultTurns = 10

// History is a FIFO window of turns. It is not safe for concurrent use; the
// owning session serializes access.
type History struct {
	max     int
	turns   []model.Turn
	entropy *rand.Rand
	now     func() time.Time
}

// New creates a history holding at most maxTurns turns.
func New(maxTurns int) *History {
	if maxTurns <= 0 {
		maxTurns = DefaultTurns
	}
	return &History{
		max:     maxTurns,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
}

// Append records a turn, dropping the oldest turns beyond the window. The
// window never opens on an assistant turn.
func (h *History) Append(role model.Role, text string, sources ...model.Citation) model.Turn {
	at := h.now()
	t := model.Turn{
		ID:      ulid.MustNew(ulid.Timestamp(at), h.entropy).String(),
		Role:    role,
		Text:    text,
		Sources: sources,
		At:      at,
	}
	h.turns = append(h.turns, t)
	if over := len(h.turns) - h.max; over > 0 {
		h.turns = append([]model.Turn(nil), h.turns[over:]...)
		for len(h.turns) > 1 && h.turns[0].Role == model.RoleAssistant {
			h.turns = h.turns[1:]
		}
	}
	return t
}

// Exchange appends a user turn followed by the assistant reply.
func (h *History) Exchange(user, assistant string, sources ...model.Citation) {
	h.Append(model.RoleUser, user)
	h.Append(model.RoleAssistant, assistant, sources...)
}

// Turns returns a copy of the window, oldest first.
func (h *History) Turns() []model.Turn {
	return append([]model.Turn(nil), h.turns...)
}

// LastUserText returns the most recent user message.
func (h *History) LastUserText() (string, bool) {
	for i := len(h.turns) - 1; i >= 0; i-- {
		if h.turns[i].Role == model.RoleUser {
			return h.turns[i].Text, true
		}
	}
	return "", false
}

// UserTexts returns every user message in the window, oldest first.
func (h *History) UserTexts() []string {
	var out []string
	for _, t := range h.turns {
		if t.Role == model.RoleUser {
			out = append(out, t.Text)
		}
	}
	return out
}

// Len is the number of turns held.
func (h *History) Len() int { return len(h.turns) }

// Cap is the window size.
func (h *History) Cap() int { return h.max }

// Reset drops every turn.
func (h *History) Reset() { h.turns = nil }
