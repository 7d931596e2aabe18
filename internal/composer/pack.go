package composer

import (
	"unicode/utf8"

	"github.com/rcliao/discharge-care/internal/model"
)

// minExcerpt is the smallest remainder worth filling with a partial passage.
const minExcerpt = 100

// Packed is the subset of passages that fits a character budget.
type Packed struct {
	Budget   int             `json:"budget"`
	Used     int             `json:"used"`
	Passages []model.Passage `json:"passages"`
	Excerpt  bool            `json:"excerpt,omitempty"`
}

// Pack keeps passages in order while they fit in budget characters. The
// first passage that does not fit is cut to the remaining budget when at
// least minExcerpt characters remain; packing stops there.
func Pack(passages []model.Passage, budget int) Packed {
	out := Packed{Budget: budget}
	for _, p := range passages {
		n := utf8.RuneCountInString(p.Text)
		if out.Used+n <= budget {
			out.Passages = append(out.Passages, p)
			out.Used += n
			continue
		}
		if remaining := budget - out.Used; remaining >= minExcerpt {
			p.Text = string([]rune(p.Text)[:remaining]) + "..."
			out.Passages = append(out.Passages, p)
			out.Used += remaining
			out.Excerpt = true
		}
		break
	}
	return out
}
