// Package search wraps the external web and research-paper search services
// used when the knowledge index cannot answer a question.
package search

import (
	"context"
	"strings"
)

// Result is one external search hit. Web results must carry all three fields.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Valid reports whether title, snippet and link are all present.
func (r Result) Valid() bool {
	return strings.TrimSpace(r.Title) != "" &&
		strings.TrimSpace(r.Snippet) != "" &&
		strings.TrimSpace(r.Link) != ""
}

// WebSearcher queries a general web search engine.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// PaperSearcher queries a research-paper index.
type PaperSearcher interface {
	Papers(ctx context.Context, query string) ([]Result, error)
}
