// Package retriever assembles grounding passages for a question: hybrid
// search over the knowledge index, optional reranking, and a fallback to
// external search when local coverage is thin.
package retriever

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/rcliao/discharge-care/internal/embedding"
	"github.com/rcliao/discharge-care/internal/knowledge"
	"github.com/rcliao/discharge-care/internal/model"
	"github.com/rcliao/discharge-care/internal/rerank"
	"github.com/rcliao/discharge-care/internal/search"
)

// NoExternalInfo is the note attached when external search was needed but
// returned nothing usable.
const NoExternalInfo = "no external information available"

// Index is the read side of the knowledge index.
type Index interface {
	Search(vec embedding.Vector, k int) ([]knowledge.Hit, error)
	Lexical(ctx context.Context, query string, k int) ([]knowledge.Hit, error)
	Passage(pos int) (knowledge.Passage, error)
}

// Expander rewrites a query to improve recall. It must be a pure function.
type Expander interface {
	Expand(query string) string
}

// Config tunes retrieval.
type Config struct {
	TopK       int
	LexicalK   int
	RerankTop  int
	MinChars   int
	Specialty  string
	SnippetLen int
}

// DefaultConfig mirrors the deployed settings.
func DefaultConfig() Config {
	return Config{TopK: 3, LexicalK: 3, RerankTop: 3, MinChars: 100, Specialty: "nephrology", SnippetLen: 200}
}

// Result is the outcome of one retrieval.
type Result struct {
	Query    string          `json:"query"`
	Expanded string          `json:"expanded"`
	Passages []model.Passage `json:"passages"`
	Method   model.Method    `json:"method"`
	Note     string          `json:"note,omitempty"`
}

// Retriever is safe for concurrent use when its collaborators are.
type Retriever struct {
	index    Index
	embedder embedding.Embedder
	expander Expander
	reranker rerank.Reranker
	web      search.WebSearcher
	papers   search.PaperSearcher
	cfg      Config
	logger   *log.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

func WithExpander(e Expander) Option            { return func(r *Retriever) { r.expander = e } }
func WithReranker(rr rerank.Reranker) Option    { return func(r *Retriever) { r.reranker = rr } }
func WithWebSearch(w search.WebSearcher) Option { return func(r *Retriever) { r.web = w } }
func WithPapers(p search.PaperSearcher) Option  { return func(r *Retriever) { r.papers = p } }
func WithLogger(l *log.Logger) Option           { return func(r *Retriever) { r.logger = l } }
func WithConfig(c Config) Option                { return func(r *Retriever) { r.cfg = c } }

// New creates a retriever. index or embedder may be nil, in which case local
// retrieval yields nothing and every query goes to external search.
func New(index Index, embedder embedding.Embedder, opts ...Option) *Retriever {
	r := &Retriever{index: index, embedder: embedder, cfg: DefaultConfig(), logger: log.Default()}
	for _, o := range opts {
		o(r)
	}
	d := DefaultConfig()
	if r.cfg.TopK <= 0 {
		r.cfg.TopK = d.TopK
	}
	if r.cfg.RerankTop <= 0 {
		r.cfg.RerankTop = d.RerankTop
	}
	if r.cfg.SnippetLen <= 0 {
		r.cfg.SnippetLen = d.SnippetLen
	}
	return r
}

// Retrieve never fails: collaborator errors are logged and degrade the result.
func (r *Retriever) Retrieve(ctx context.Context, query string) Result {
	query = strings.TrimSpace(query)
	res := Result{Query: query, Expanded: query, Method: model.MethodNone}
	if query == "" {
		return res
	}
	if r.expander != nil {
		res.Expanded = r.expander.Expand(query)
	}

	local := r.local(ctx, query, res.Expanded)
	if sufficient(local, r.cfg.MinChars) {
		res.Passages = local
		res.Method = model.MethodKnowledgeBase
		r.logger.Info("retrieval complete", "method", res.Method, "passages", len(local))
		return res
	}

	r.logger.Info("local knowledge insufficient, searching externally", "passages", len(local), "min_chars", r.cfg.MinChars)
	external := append(r.searchWeb(ctx, query), r.searchPapers(ctx, query)...)

	res.Passages = append(local, external...)
	switch {
	case len(external) > 0 && len(local) > 0:
		res.Method = model.MethodHybrid
	case len(external) > 0:
		res.Method = model.MethodWebSearch
	case len(local) > 0:
		res.Method = model.MethodKnowledgeBase
	}
	if len(external) == 0 {
		res.Note = NoExternalInfo
	}
	r.logger.Info("retrieval complete", "method", res.Method, "passages", len(res.Passages), "external", len(external))
	return res
}

func sufficient(passages []model.Passage, minChars int) bool {
	if len(passages) == 0 {
		return false
	}
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return utf8.RuneCountInString(strings.Join(texts, " ")) >= minChars
}
