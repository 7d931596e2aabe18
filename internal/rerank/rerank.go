// Package rerank scores candidate passages against a query with a second,
// more precise model.
package rerank

import (
	"context"
	"fmt"
	"sort"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// Scored is a candidate index with its relevance score, higher is better.
type Scored struct {
	Index int
	Score float64
}

// Reranker orders documents by relevance to query and returns at most topN.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string, topN int) ([]Scored, error)
}

// Cohere reranks with the Cohere rerank endpoint.
type Cohere struct {
	client  *cohereclient.Client
	model   string
	timeout time.Duration
}

// NewCohere creates a reranker. An empty model uses rerank-english-v3.0.
func NewCohere(apiKey, model string, timeout time.Duration) *Cohere {
	if model == "" {
		model = "rerank-english-v3.0"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Cohere{
		client:  cohereclient.NewClient(cohereclient.WithToken(apiKey)),
		model:   model,
		timeout: timeout,
	}
}

func (c *Cohere) Rerank(ctx context.Context, query string, docs []string, topN int) ([]Scored, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	items := make([]*cohere.RerankRequestDocumentsItem, len(docs))
	for i, d := range docs {
		items[i] = &cohere.RerankRequestDocumentsItem{String: d}
	}
	model := c.model
	n := min(topN, len(docs))

	resp, err := c.client.Rerank(ctx, &cohere.RerankRequest{
		Model:     &model,
		Query:     query,
		Documents: items,
		TopN:      &n,
	})
	if err != nil {
		return nil, fmt.Errorf("cohere rerank: %w", err)
	}

	out := make([]Scored, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r == nil || r.Index < 0 || r.Index >= len(docs) {
			continue
		}
		out = append(out, Scored{Index: r.Index, Score: r.RelevanceScore})
	}
	return Top(out, topN), nil
}

// Top sorts scored candidates descending (ties by index) and truncates to n.
func Top(in []Scored, n int) []Scored {
	out := append([]Scored(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Index < out[j].Index
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
