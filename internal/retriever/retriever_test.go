package retriever

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/discharge-care/internal/chunker"
	"github.com/rcliao/discharge-care/internal/embedding"
	"github.com/rcliao/discharge-care/internal/knowledge"
	"github.com/rcliao/discharge-care/internal/lexicon"
	"github.com/rcliao/discharge-care/internal/model"
	"github.com/rcliao/discharge-care/internal/rerank"
	"github.com/rcliao/discharge-care/internal/search"
)

var quiet = log.New(io.Discard)

type fakeIndex struct {
	passages   []string
	vector     []knowledge.Hit
	lexical    []knowledge.Hit
	vectorErr  error
	lexicalErr error
}

func (f *fakeIndex) Search(embedding.Vector, int) ([]knowledge.Hit, error) {
	return f.vector, f.vectorErr
}

func (f *fakeIndex) Lexical(context.Context, string, int) ([]knowledge.Hit, error) {
	return f.lexical, f.lexicalErr
}

func (f *fakeIndex) Passage(pos int) (knowledge.Passage, error) {
	if pos < 0 || pos >= len(f.passages) {
		return knowledge.Passage{}, knowledge.ErrPositionOutOfBounds
	}
	return knowledge.Passage{Position: pos, Text: f.passages[pos]}, nil
}

type fakeEmbedder struct {
	inputs []string
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (embedding.Vector, error) {
	f.inputs = append(f.inputs, text)
	return embedding.Vector{1}, f.err
}

func (f *fakeEmbedder) Dims() int { return 1 }

type fakeWeb struct {
	queries []string
	results []search.Result
	err     error
}

func (f *fakeWeb) Search(_ context.Context, q string) ([]search.Result, error) {
	f.queries = append(f.queries, q)
	return f.results, f.err
}

type fakePapers struct {
	results []search.Result
	err     error
}

func (f *fakePapers) Papers(context.Context, string) ([]search.Result, error) {
	return f.results, f.err
}

type fakeReranker struct {
	scores []float64
	err    error
	docs   []string
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, docs []string, topN int) ([]rerank.Scored, error) {
	f.docs = docs
	if f.err != nil {
		return nil, f.err
	}
	var out []rerank.Scored
	for i := range docs {
		out = append(out, rerank.Scored{Index: i, Score: f.scores[i]})
	}
	return rerank.Top(out, topN), nil
}

var long = []string{
	strings.Repeat("Limit sodium intake to reduce swelling. ", 4),
	strings.Repeat("Check blood pressure every morning. ", 4),
	strings.Repeat("Avoid potassium rich foods. ", 4),
	strings.Repeat("Take lisinopril with water. ", 4),
}

func TestRetrieve_SufficientKnowledgeBase(t *testing.T) {
	idx := &fakeIndex{passages: long, vector: []knowledge.Hit{{Position: 0, Score: 0.9}, {Position: 1, Score: 0.5}}}
	web := &fakeWeb{}
	r := New(idx, &fakeEmbedder{}, WithWebSearch(web), WithLogger(quiet))

	res := r.Retrieve(context.Background(), "Why are my ankles swollen?")
	assert.Equal(t, model.MethodKnowledgeBase, res.Method)
	require.Len(t, res.Passages, 2)
	assert.Equal(t, model.OriginKnowledgeBase, res.Passages[0].Origin)
	assert.Equal(t, 0.9, res.Passages[0].Score)
	assert.True(t, strings.HasSuffix(res.Passages[0].Preview, "..."))
	assert.Empty(t, web.queries, "web search is not used when local knowledge suffices")
	assert.Empty(t, res.Note)
}

func TestRetrieve_KeepsVectorResultsWithoutReranker(t *testing.T) {
	idx := &fakeIndex{
		passages: long,
		vector:   []knowledge.Hit{{Position: 2}, {Position: 0}},
		lexical:  []knowledge.Hit{{Position: 0}, {Position: 3}},
	}
	res := New(idx, &fakeEmbedder{}, WithLogger(quiet)).Retrieve(context.Background(), "potassium")
	require.Len(t, res.Passages, 2)
	assert.Equal(t, 2, res.Passages[0].Position)
	assert.Equal(t, 0, res.Passages[1].Position)
}

func TestRetrieve_LexicalStandsInWhenEmbeddingFails(t *testing.T) {
	idx := &fakeIndex{passages: long, lexical: []knowledge.Hit{{Position: 3, Score: 0.4}}}
	emb := &fakeEmbedder{err: errors.New("embedding service down")}

	res := New(idx, emb, WithLogger(quiet)).Retrieve(context.Background(), "lisinopril")
	require.Len(t, res.Passages, 1)
	assert.Equal(t, 3, res.Passages[0].Position)
	assert.Equal(t, model.MethodKnowledgeBase, res.Method)
}

func TestRetrieve_RerankKeepsTopThreeDescending(t *testing.T) {
	idx := &fakeIndex{
		passages: long,
		vector:   []knowledge.Hit{{Position: 0}, {Position: 1}},
		lexical:  []knowledge.Hit{{Position: 1}, {Position: 2}, {Position: 3}},
	}
	rr := &fakeReranker{scores: []float64{0.1, 0.7, 0.9, 0.5}}

	res := New(idx, &fakeEmbedder{}, WithReranker(rr), WithLogger(quiet)).Retrieve(context.Background(), "diet")
	require.Len(t, rr.docs, 4, "union is deduplicated before reranking")
	require.Len(t, res.Passages, 3)
	assert.Equal(t, []int{2, 1, 3}, []int{res.Passages[0].Position, res.Passages[1].Position, res.Passages[2].Position})
	assert.Equal(t, 0.9, res.Passages[0].Score)
}

func TestRetrieve_RerankFailureFallsBack(t *testing.T) {
	idx := &fakeIndex{passages: long, vector: []knowledge.Hit{{Position: 1}}, lexical: []knowledge.Hit{{Position: 2}}}
	rr := &fakeReranker{err: errors.New("quota")}

	res := New(idx, &fakeEmbedder{}, WithReranker(rr), WithLogger(quiet)).Retrieve(context.Background(), "bp")
	require.Len(t, res.Passages, 1)
	assert.Equal(t, 1, res.Passages[0].Position)
}

func TestRetrieve_InsufficientFallsBackToWeb(t *testing.T) {
	idx := &fakeIndex{passages: []string{"Short note."}, vector: []knowledge.Hit{{Position: 0}}}
	web := &fakeWeb{results: []search.Result{
		{Title: "Edema and CKD", Snippet: strings.Repeat("s", 300), Link: "https://example.org/edema"},
		{Title: "", Snippet: "no title", Link: "https://example.org/x"},
		{Title: "No link", Snippet: "text"},
	}}
	papers := &fakePapers{results: []search.Result{{Title: "CKD study", Snippet: "abstract", Link: "http://arxiv.org/abs/1"}}}

	res := New(idx, &fakeEmbedder{}, WithWebSearch(web), WithPapers(papers), WithLogger(quiet)).
		Retrieve(context.Background(), "leg swelling")

	assert.Equal(t, []string{"nephrology leg swelling"}, web.queries)
	assert.Equal(t, model.MethodHybrid, res.Method)
	require.Len(t, res.Passages, 3)
	webPassage := res.Passages[1]
	assert.Equal(t, model.OriginWeb, webPassage.Origin)
	assert.Equal(t, "Edema and CKD", webPassage.Title)
	assert.Equal(t, "https://example.org/edema", webPassage.Link)
	assert.Contains(t, webPassage.Text, strings.Repeat("s", 200)+"...")
	assert.NotContains(t, webPassage.Text, strings.Repeat("s", 201))
	assert.Equal(t, model.OriginPaper, res.Passages[2].Origin)
}

func TestRetrieve_WebOnly(t *testing.T) {
	web := &fakeWeb{results: []search.Result{{Title: "T", Snippet: "S", Link: "L"}}}
	res := New(nil, nil, WithWebSearch(web), WithLogger(quiet)).Retrieve(context.Background(), "q")
	assert.Equal(t, model.MethodWebSearch, res.Method)
	assert.Len(t, res.Passages, 1)
}

func TestRetrieve_ExternalFailureDegrades(t *testing.T) {
	web := &fakeWeb{err: errors.New("timeout")}
	papers := &fakePapers{err: errors.New("timeout")}

	res := New(&fakeIndex{}, &fakeEmbedder{}, WithWebSearch(web), WithPapers(papers), WithLogger(quiet)).
		Retrieve(context.Background(), "strange symptom")
	assert.Equal(t, model.MethodNone, res.Method)
	assert.Empty(t, res.Passages)
	assert.Equal(t, NoExternalInfo, res.Note)
}

func TestRetrieve_PaperFailureKeepsWeb(t *testing.T) {
	web := &fakeWeb{results: []search.Result{{Title: "T", Snippet: "S", Link: "L"}}}
	papers := &fakePapers{err: errors.New("arxiv down")}

	res := New(nil, nil, WithWebSearch(web), WithPapers(papers), WithLogger(quiet)).Retrieve(context.Background(), "q")
	assert.Equal(t, model.MethodWebSearch, res.Method)
	assert.Empty(t, res.Note)
}

func TestRetrieve_InsufficientWithoutExternal(t *testing.T) {
	idx := &fakeIndex{passages: []string{"Short note."}, vector: []knowledge.Hit{{Position: 0}}}
	res := New(idx, &fakeEmbedder{}, WithLogger(quiet)).Retrieve(context.Background(), "q")
	assert.Equal(t, model.MethodKnowledgeBase, res.Method)
	assert.Equal(t, NoExternalInfo, res.Note)
	assert.Len(t, res.Passages, 1)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	web := &fakeWeb{}
	res := New(nil, nil, WithWebSearch(web), WithLogger(quiet)).Retrieve(context.Background(), "   ")
	assert.Equal(t, model.MethodNone, res.Method)
	assert.Empty(t, web.queries)
}

func TestRetrieve_ExpandsQueryForSearchOnly(t *testing.T) {
	idx := &fakeIndex{passages: long, vector: []knowledge.Hit{{Position: 0}, {Position: 1}}}
	emb := &fakeEmbedder{}
	res := New(idx, emb, WithExpander(lexicon.Default()), WithLogger(quiet)).Retrieve(context.Background(), "my kidney hurts")

	assert.Equal(t, "my kidney hurts", res.Query)
	assert.Equal(t, "my kidney hurts renal", res.Expanded)
	assert.Equal(t, []string{"my kidney hurts renal"}, emb.inputs)
}

func TestRetrieve_DeterministicOverRealIndex(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "knowledge.db")
	e := embedding.NewHashEmbedder(512)
	doc := strings.Join([]string{
		"Chronic kidney disease stage 3 means the kidneys filter at a reduced rate and blood pressure control matters.",
		"Swelling of the ankles and legs, called edema, can signal fluid retention. Limit sodium and weigh yourself daily.",
		"Potassium levels can rise when kidney function declines. Avoid bananas, oranges and potatoes.",
		"Lisinopril lowers blood pressure. Report dizziness, a dry cough or swelling of the lips to your provider.",
	}, "\n\n")
	_, err := knowledge.Build(ctx, knowledge.BuildParams{
		Path: path, Text: doc, Embedder: e,
		Chunking: chunker.Options{Strategy: chunker.StrategyParagraph, TargetSize: 100, MinSize: 20, MaxSize: 150},
	})
	require.NoError(t, err)
	idx, err := knowledge.Open(ctx, path)
	require.NoError(t, err)
	defer idx.Close()

	r := New(idx, e, WithExpander(lexicon.Default()), WithLogger(quiet))
	first := r.Retrieve(ctx, "What can I do about ankle swelling?")
	second := r.Retrieve(ctx, "What can I do about ankle swelling?")

	assert.Equal(t, model.MethodKnowledgeBase, first.Method)
	require.Len(t, first.Passages, 3)
	assert.Equal(t, first.Passages, second.Passages)
}
