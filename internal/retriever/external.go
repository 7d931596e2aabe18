package retriever

import (
	"context"
	"strings"

	"github.com/rcliao/discharge-care/internal/model"
)

// paperTextLen caps how much of a paper abstract reaches the prompt.
const paperTextLen = 500

func (r *Retriever) searchWeb(ctx context.Context, query string) []model.Passage {
	if r.web == nil {
		return nil
	}
	q := strings.TrimSpace(r.cfg.Specialty + " " + query)
	results, err := r.web.Search(ctx, q)
	if err != nil {
		r.logger.Error("web search failed", "err", err)
		return nil
	}

	var out []model.Passage
	for _, res := range results {
		if !res.Valid() {
			r.logger.Warn("discarding malformed web result", "title", res.Title, "link", res.Link)
			continue
		}
		snippet := model.Preview(strings.TrimSpace(res.Snippet), r.cfg.SnippetLen)
		out = append(out, model.Passage{
			Text:     "Title: " + strings.TrimSpace(res.Title) + "\nSummary: " + snippet,
			Origin:   model.OriginWeb,
			Score:    model.DistanceScore(float64(len(out))),
			Preview:  model.Preview(snippet, model.PreviewLen),
			Title:    strings.TrimSpace(res.Title),
			Link:     strings.TrimSpace(res.Link),
			Position: -1,
		})
	}
	return out
}

func (r *Retriever) searchPapers(ctx context.Context, query string) []model.Passage {
	if r.papers == nil {
		return nil
	}
	results, err := r.papers.Papers(ctx, query)
	if err != nil {
		r.logger.Warn("research paper search failed", "err", err)
		return nil
	}

	var out []model.Passage
	for _, res := range results {
		if !res.Valid() {
			r.logger.Warn("discarding malformed paper result", "title", res.Title)
			continue
		}
		text := "Research Reference: " + strings.TrimSpace(res.Title) + ". " + model.Preview(strings.TrimSpace(res.Snippet), paperTextLen)
		out = append(out, model.Passage{
			Text:     text,
			Origin:   model.OriginPaper,
			Score:    model.DistanceScore(float64(len(out))),
			Preview:  model.Preview(res.Snippet, model.PreviewLen),
			Title:    strings.TrimSpace(res.Title),
			Link:     strings.TrimSpace(res.Link),
			Position: -1,
		})
	}
	return out
}
