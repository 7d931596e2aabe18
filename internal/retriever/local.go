package retriever

import (
	"context"

	"github.com/rcliao/discharge-care/internal/knowledge"
	"github.com/rcliao/discharge-care/internal/model"
	"github.com/rcliao/discharge-care/internal/rerank"
)

// local runs vector and lexical search over the index, deduplicates by
// position and optionally reranks against the original query.
func (r *Retriever) local(ctx context.Context, query, expanded string) []model.Passage {
	if r.index == nil {
		return nil
	}

	var vector []knowledge.Hit
	if r.embedder != nil {
		vec, err := r.embedder.Embed(ctx, expanded)
		if err != nil {
			r.logger.Warn("embedding failed, skipping vector search", "err", err)
		} else if vector, err = r.index.Search(vec, r.cfg.TopK); err != nil {
			r.logger.Warn("vector search failed", "err", err)
		}
	}

	var lexical []knowledge.Hit
	if r.cfg.LexicalK > 0 {
		var err error
		if lexical, err = r.index.Lexical(ctx, expanded, r.cfg.LexicalK); err != nil {
			r.logger.Warn("lexical search failed", "err", err)
		}
	}

	candidates, fromVector := r.union(vector, lexical)
	if len(candidates) == 0 {
		return nil
	}

	if r.reranker != nil {
		if ranked, ok := r.rerank(ctx, query, candidates); ok {
			return ranked
		}
	}

	if fromVector > 0 {
		return candidates[:fromVector]
	}
	if len(candidates) > r.cfg.TopK {
		candidates = candidates[:r.cfg.TopK]
	}
	return candidates
}

// union merges vector hits (first) with lexical-only hits, resolving text.
// It also reports how many leading passages came from vector search.
func (r *Retriever) union(vector, lexical []knowledge.Hit) ([]model.Passage, int) {
	seen := make(map[int]bool, len(vector)+len(lexical))
	var out []model.Passage
	fromVector := 0
	for i, hits := range [][]knowledge.Hit{vector, lexical} {
		for _, h := range hits {
			if seen[h.Position] {
				continue
			}
			p, err := r.index.Passage(h.Position)
			if err != nil {
				r.logger.Warn("dropping hit with unknown position", "position", h.Position, "err", err)
				continue
			}
			seen[h.Position] = true
			out = append(out, model.Passage{
				Text:     p.Text,
				Origin:   model.OriginKnowledgeBase,
				Score:    h.Score,
				Preview:  model.Preview(p.Text, model.PreviewLen),
				Position: p.Position,
			})
		}
		if i == 0 {
			fromVector = len(out)
		}
	}
	return out, fromVector
}

func (r *Retriever) rerank(ctx context.Context, query string, candidates []model.Passage) ([]model.Passage, bool) {
	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Text
	}
	scored, err := r.reranker.Rerank(ctx, query, docs, r.cfg.RerankTop)
	if err != nil {
		r.logger.Warn("rerank failed, keeping vector order", "err", err)
		return nil, false
	}
	scored = rerank.Top(scored, r.cfg.RerankTop)
	out := make([]model.Passage, 0, len(scored))
	for _, s := range scored {
		if s.Index < 0 || s.Index >= len(candidates) {
			continue
		}
		p := candidates[s.Index]
		p.Score = s.Score
		out = append(out, p)
	}
	return out, true
}
