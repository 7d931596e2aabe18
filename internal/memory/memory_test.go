package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/discharge-care/internal/model"
)

func TestHistory_BoundedFIFO(t *testing.T) {
	h := New(4)
	for i := 0; i < 7; i++ {
		h.Append(model.RoleUser, fmt.Sprintf("m%d", i))
	}

	turns := h.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, "m3", turns[0].Text, "oldest turns dropped first")
	assert.Equal(t, "m6", turns[3].Text)
	assert.Equal(t, 4, h.Cap())
}

func TestHistory_NeverExceedsWindow(t *testing.T) {
	h := New(DefaultTurns)
	for i := 0; i < 50; i++ {
		h.Exchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		assert.LessOrEqual(t, h.Len(), DefaultTurns)
	}
	assert.Equal(t, []string{"q45", "q46", "q47", "q48", "q49"}, h.UserTexts())
}

func TestHistory_TurnsIsACopy(t *testing.T) {
	h := New(2)
	h.Append(model.RoleUser, "original")
	turns := h.Turns()
	turns[0].Text = "changed"
	assert.Equal(t, "original", h.Turns()[0].Text)
}

func TestHistory_OddWindowStartsWithUser(t *testing.T) {
	h := New(3)
	h.Exchange("q1", "a1")
	h.Exchange("q2", "a2")

	turns := h.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, "q2", turns[0].Text)
	assert.Equal(t, "a2", turns[1].Text)
}

func TestHistory_LastUserText(t *testing.T) {
	h := New(10)
	_, ok := h.LastUserText()
	assert.False(t, ok)

	h.Exchange("Is swelling normal?", "Some swelling can be expected.")
	last, ok := h.LastUserText()
	require.True(t, ok)
	assert.Equal(t, "Is swelling normal?", last)
}

func TestHistory_IDsAndReset(t *testing.T) {
	h := New(10)
	a := h.Append(model.RoleUser, "a")
	b := h.Append(model.RoleUser, "b")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)

	h.Reset()
	assert.Equal(t, 0, h.Len())
}
