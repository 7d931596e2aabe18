package search

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/tools/duckduckgo"
)

const userAgent = "discharge-care/1.0 (+https://github.com/rcliao/discharge-care)"

// Caller is the text-in, text-out shape of a langchaingo tool.
type Caller interface {
	Call(ctx context.Context, input string) (string, error)
}

// DuckDuckGo searches the web through langchaingo's DuckDuckGo tool and parses
// its "Title/Description/URL" blocks into results.
type DuckDuckGo struct {
	tool    Caller
	timeout time.Duration
}

// NewDuckDuckGo creates a web searcher returning up to maxResults results.
func NewDuckDuckGo(maxResults int, timeout time.Duration) (*DuckDuckGo, error) {
	if maxResults <= 0 {
		maxResults = 3
	}
	tool, err := duckduckgo.New(maxResults, userAgent)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo tool: %w", err)
	}
	return NewDuckDuckGoWithTool(tool, timeout), nil
}

// NewDuckDuckGoWithTool wraps an existing tool, mainly for tests.
func NewDuckDuckGoWithTool(tool Caller, timeout time.Duration) *DuckDuckGo {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DuckDuckGo{tool: tool, timeout: timeout}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.tool.Call(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	return ParseToolOutput(out), nil
}

// ParseToolOutput reads blocks of "Title:", "Description:" and "URL:" lines.
// Blocks are separated by blank lines; lines the tool did not label are
// appended to the field above them. Blocks missing a field are kept so the
// caller can decide to drop them.
func ParseToolOutput(out string) []Result {
	var results []Result
	var cur Result
	var last *string
	started := false

	flush := func() {
		if started {
			cur.Title = strings.TrimSpace(cur.Title)
			cur.Snippet = strings.TrimSpace(cur.Snippet)
			cur.Link = strings.TrimSpace(cur.Link)
			results = append(results, cur)
		}
		cur = Result{}
		last = nil
		started = false
	}

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "Title:"):
			if started && cur.Title != "" {
				flush()
			}
			cur.Title = strings.TrimPrefix(line, "Title:")
			last, started = &cur.Title, true
		case strings.HasPrefix(line, "Description:"):
			cur.Snippet = strings.TrimPrefix(line, "Description:")
			last, started = &cur.Snippet, true
		case strings.HasPrefix(line, "URL:"):
			cur.Link = strings.TrimPrefix(line, "URL:")
			last, started = &cur.Link, true
		case last != nil:
			*last += " " + line
		}
	}
	flush()
	return results
}
