package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// DefaultArxivURL is the public arXiv query endpoint.
const DefaultArxivURL = "http://export.arxiv.org/api/query"

// Arxiv searches arXiv and parses its Atom feed.
type Arxiv struct {
	baseURL    string
	maxResults int
	client     *http.Client
}

// NewArxiv creates a paper searcher. An empty baseURL uses DefaultArxivURL.
func NewArxiv(baseURL string, maxResults int, timeout time.Duration) *Arxiv {
	if baseURL == "" {
		baseURL = DefaultArxivURL
	}
	if maxResults <= 0 {
		maxResults = 2
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Arxiv{
		baseURL:    baseURL,
		maxResults: maxResults,
		client:     &http.Client{Timeout: timeout},
	}
}

func (a *Arxiv) Papers(ctx context.Context, query string) ([]Result, error) {
	q := url.Values{}
	q.Set("search_query", "all:"+query)
	q.Set("start", "0")
	q.Set("max_results", fmt.Sprint(a.maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv error %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv feed: %w", err)
	}

	results := make([]Result, 0, len(feed.Items))
	for _, item := range feed.Items {
		results = append(results, Result{
			Title:   collapse(item.Title),
			Snippet: collapse(item.Description),
			Link:    item.Link,
		})
	}
	return results, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
