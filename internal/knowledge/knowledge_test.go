package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rcliao/discharge-care/internal/chunker"
	"github.com/rcliao/discharge-care/internal/embedding"
)

const corpus = `Chronic kidney disease stage 3 means the kidneys filter at a reduced rate. Patients should monitor blood pressure daily and keep it below 130/80.

Swelling of the ankles and legs (edema) can signal fluid retention. Limit sodium to 2 grams per day and weigh yourself each morning.

Potassium levels can rise when kidney function declines. Avoid high potassium foods such as bananas, oranges and potatoes unless your care team says otherwise.

Lisinopril lowers blood pressure and protects the kidneys. Report dizziness, a dry cough or swelling of the lips to your provider.`

func newTestIndex(t *testing.T) (*Index, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knowledge.db")
	_, err := Build(context.Background(), BuildParams{
		Path:     path,
		Source:   "nephro.txt",
		Text:     corpus,
		Chunking: chunker.Options{Strategy: chunker.StrategyParagraph, TargetSize: 200, MinSize: 50, MaxSize: 300},
		Embedder: embedding.NewHashEmbedder(512),
		Model:    "hash",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	idx, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx, path
}

func TestBuildAndOpen(t *testing.T) {
	idx, _ := newTestIndex(t)
	if idx.Len() != 4 {
		t.Fatalf("expected 4 passages, got %d", idx.Len())
	}
	if idx.Dims() != 512 {
		t.Errorf("expected 512 dims, got %d", idx.Dims())
	}
	m := idx.Manifest()
	if m.BuildID == "" || m.Source != "nephro.txt" || m.Passages != 4 {
		t.Errorf("unexpected manifest %+v", m)
	}
	p, err := idx.Passage(1)
	if err != nil {
		t.Fatalf("passage: %v", err)
	}
	if !strings.HasPrefix(p.Text, "Swelling") {
		t.Errorf("expected passage 1 to be the edema paragraph, got %q", p.Text)
	}
	if _, err := idx.Passage(99); !errors.Is(err, ErrPositionOutOfBounds) {
		t.Errorf("expected ErrPositionOutOfBounds, got %v", err)
	}
}

func TestSearch_NearestFirstAndDeterministic(t *testing.T) {
	idx, _ := newTestIndex(t)
	e := embedding.NewHashEmbedder(512)
	q, _ := e.Embed(context.Background(), "ankle swelling fluid retention sodium")

	first, err := idx.Search(q, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(first))
	}
	if first[0].Position != 1 {
		t.Errorf("expected edema passage first, got position %d", first[0].Position)
	}
	for i := 1; i < len(first); i++ {
		if first[i].Distance < first[i-1].Distance {
			t.Errorf("hits not ordered by distance: %v", first)
		}
	}

	second, _ := idx.Search(q, 3)
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("search not deterministic at %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	idx, _ := newTestIndex(t)
	if _, err := idx.Search(make(embedding.Vector, 3), 3); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestLexical(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(t)

	hits, err := idx.Lexical(ctx, "What about potassium?", 3)
	if err != nil {
		t.Fatalf("lexical: %v", err)
	}
	if len(hits) == 0 || hits[0].Position != 2 {
		t.Fatalf("expected potassium passage first, got %v", hits)
	}
	if hits[0].Score <= 0 {
		t.Errorf("expected positive score, got %f", hits[0].Score)
	}

	none, err := idx.Lexical(ctx, "the and of", 3)
	if err != nil {
		t.Fatalf("stopword query: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no hits for stopwords, got %v", none)
	}

	quoted, err := idx.Lexical(ctx, `"lisinopril" AND (`, 3)
	if err != nil {
		t.Fatalf("query syntax should be neutralized: %v", err)
	}
	if len(quoted) != 1 || quoted[0].Position != 3 {
		t.Errorf("expected lisinopril passage, got %v", quoted)
	}
}

func TestBuild_ReplacesExistingFile(t *testing.T) {
	ctx := context.Background()
	_, path := newTestIndex(t)

	_, err := Build(ctx, BuildParams{
		Path:     path,
		Text:     "A single short passage about dialysis.",
		Embedder: embedding.NewHashEmbedder(512),
	})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	idx, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open rebuilt: %v", err)
	}
	defer idx.Close()
	if idx.Len() != 1 {
		t.Errorf("expected rebuilt index with 1 passage, got %d", idx.Len())
	}
	if _, err := os.Stat(path + ".building"); !os.IsNotExist(err) {
		t.Error("expected temporary build file to be removed")
	}
}

func TestBuild_EmptyCorpus(t *testing.T) {
	_, err := Build(context.Background(), BuildParams{
		Path:     filepath.Join(t.TempDir(), "empty.db"),
		Text:     "   ",
		Embedder: embedding.NewHashEmbedder(16),
	})
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Error("expected error for missing index file")
	}
}

func TestStats(t *testing.T) {
	idx, _ := newTestIndex(t)
	st, err := idx.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Passages != 4 || st.LexicalRows != 4 || st.SizeBytes == 0 || st.AvgChars == 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestStorageConfig_Enabled(t *testing.T) {
	if (StorageConfig{}).Enabled() {
		t.Error("empty storage config should be disabled")
	}
	if _, err := NewArtifactStore(StorageConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Error("expected error without bucket")
	}
}
