package model

import "unicode/utf8"

// Origin is where a retrieved passage came from.
type Origin string

const (
	OriginKnowledgeBase Origin = "knowledge_base"
	OriginWeb           Origin = "web"
	OriginPaper         Origin = "research_paper"
)

// Method tags how a retrieval result was assembled.
type Method string

const (
	MethodKnowledgeBase Method = "knowledge_base"
	MethodWebSearch     Method = "web_search"
	MethodHybrid        Method = "hybrid"
	MethodNone          Method = "none"
)

// Label is the human readable name used in prompts.
func (m Method) Label() string {
	switch m {
	case MethodKnowledgeBase:
		return "Medical Knowledge Base"
	case MethodWebSearch:
		return "Web Search and Research Papers"
	case MethodHybrid:
		return "Knowledge Base and Web Search"
	default:
		return "Limited Resources"
	}
}

// PreviewLen is the number of characters kept in a passage preview.
const PreviewLen = 100

// Passage is a retrieved span of text with provenance. Score is
// higher-is-better regardless of which ranker produced it.
type Passage struct {
	Text     string  `json:"text"`
	Origin   Origin  `json:"origin"`
	Score    float64 `json:"relevance_score"`
	Preview  string  `json:"content_preview"`
	Title    string  `json:"title,omitempty"`
	Link     string  `json:"link,omitempty"`
	Position int     `json:"index"`
}

// Citation converts a passage into the citation attached to a turn.
func (p Passage) Citation() Citation {
	return Citation{Origin: p.Origin, Title: p.Title, Link: p.Link}
}

// Preview returns the first n runes of s followed by "..." when s is longer.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// DistanceScore maps an L2 distance onto (0, 1], larger meaning closer.
func DistanceScore(d float64) float64 {
	if d < 0 {
		d = 0
	}
	return 1 / (1 + d)
}
