// Package chunker splits source documents into passages for the knowledge index.
package chunker

import (
	"strings"
)

const (
	DefaultFixedSize  = 500
	DefaultTargetSize = 400
	DefaultMinSize    = 100
	DefaultMaxSize    = 600
)

// Strategy selects how a document is split.
type Strategy string

const (
	StrategyFixed     Strategy = "fixed"
	StrategyParagraph Strategy = "paragraph"
)

// Options configures chunking behavior.
type Options struct {
	Strategy   Strategy
	FixedSize  int
	TargetSize int
	MinSize    int
	MaxSize    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		Strategy:   StrategyFixed,
		FixedSize:  DefaultFixedSize,
		TargetSize: DefaultTargetSize,
		MinSize:    DefaultMinSize,
		MaxSize:    DefaultMaxSize,
	}
}

// Span is a passage with its line range in the source document.
type Span struct {
	Text      string
	StartLine int
	EndLine   int
}

// Split dispatches to the strategy named in opts.
func Split(text string, opts Options) []Span {
	switch opts.Strategy {
	case StrategyParagraph:
		return Chunk(text, opts)
	default:
		size := opts.FixedSize
		if size <= 0 {
			size = DefaultFixedSize
		}
		return Fixed(text, size)
	}
}

// Fixed cuts text into consecutive windows of size runes. Windows are trimmed
// and blank windows are skipped, so positions stay dense.
func Fixed(text string, size int) []Span {
	if size <= 0 {
		size = DefaultFixedSize
	}
	runes := []rune(text)
	var spans []Span
	line := 1
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		window := string(runes[start:end])
		lines := strings.Count(window, "\n")
		if t := strings.TrimSpace(window); t != "" {
			spans = append(spans, Span{Text: t, StartLine: line, EndLine: line + lines})
		}
		line += lines
	}
	return spans
}

// Chunk splits text on headings and blank lines, merging small blocks up to
// TargetSize. Text no longer than MaxSize is returned as a single span.
func Chunk(text string, opts Options) []Span {
	if opts.TargetSize == 0 {
		d := DefaultOptions()
		opts.TargetSize, opts.MinSize, opts.MaxSize = d.TargetSize, d.MinSize, d.MaxSize
	}

	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}

	if len(text) <= opts.MaxSize {
		return []Span{{Text: text, StartLine: 1, EndLine: strings.Count(text, "\n") + 1}}
	}

	return merge(blocks(text), opts)
}

// blocks splits text on heading lines and paragraph breaks.
func blocks(text string) []Span {
	lines := strings.Split(text, "\n")
	var out []Span
	var current []string
	start := 1

	flush := func(end int) {
		if len(current) == 0 {
			return
		}
		if t := strings.TrimSpace(strings.Join(current, "\n")); t != "" {
			out = append(out, Span{Text: t, StartLine: start, EndLine: end})
		}
		current = nil
		start = end + 1
	}

	prevBlank := false
	for i, line := range lines {
		n := i + 1
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") && len(current) > 0 {
			flush(n - 1)
		}

		if trimmed == "" {
			if len(current) > 0 && !prevBlank {
				flush(n - 1)
			}
			prevBlank = true
			continue
		}
		prevBlank = false
		current = append(current, line)
	}
	flush(len(lines))

	return out
}

// merge combines small blocks and hard-splits oversized ones.
func merge(in []Span, opts Options) []Span {
	var out []Span
	var acc Span

	emit := func() {
		t := strings.TrimSpace(acc.Text)
		if t == "" {
			return
		}
		if len(t) > opts.MaxSize {
			out = append(out, hardSplit(t, acc.StartLine, opts.TargetSize)...)
		} else {
			out = append(out, Span{Text: t, StartLine: acc.StartLine, EndLine: acc.EndLine})
		}
		acc = Span{}
	}

	for _, b := range in {
		if acc.Text == "" {
			acc = b
			continue
		}
		if strings.HasPrefix(b.Text, "#") && len(acc.Text) >= opts.MinSize {
			emit()
			acc = b
			continue
		}
		combined := acc.Text + "\n\n" + b.Text
		if len(combined) <= opts.TargetSize || len(acc.Text) < opts.MinSize {
			acc.Text = combined
			acc.EndLine = b.EndLine
			continue
		}
		emit()
		acc = b
	}
	emit()

	return out
}

// hardSplit breaks text on line boundaries into pieces of about target bytes.
func hardSplit(text string, startLine, target int) []Span {
	lines := strings.Split(text, "\n")
	var out []Span
	var current []string
	curStart := startLine
	curLen := 0

	for i, line := range lines {
		if curLen+len(line) > target && len(current) > 0 {
			if t := strings.TrimSpace(strings.Join(current, "\n")); t != "" {
				out = append(out, Span{Text: t, StartLine: curStart, EndLine: startLine + i - 1})
			}
			current = nil
			curStart = startLine + i
			curLen = 0
		}
		current = append(current, line)
		curLen += len(line) + 1
	}

	if t := strings.TrimSpace(strings.Join(current, "\n")); t != "" {
		out = append(out, Span{Text: t, StartLine: curStart, EndLine: startLine + len(lines) - 1})
	}

	return out
}
