package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/discharge-care/internal/embedding"
	"github.com/rcliao/discharge-care/internal/model"
)

// Index is an immutable, in-memory view of a built index file. Vector search
// is an exact flat L2 scan; lexical search is delegated to the FTS5 table in
// the underlying read-only database. Safe for concurrent use.
type Index struct {
	path     string
	db       *sql.DB
	manifest Manifest
	passages []Passage
	vectors  []embedding.Vector
}

// Open loads the index file at path.
func Open(ctx context.Context, path string) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("index file: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	idx := &Index{path: path, db: db}
	if err := idx.load(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (x *Index) load(ctx context.Context) error {
	var builtAt string
	err := x.db.QueryRowContext(ctx,
		`SELECT build_id, source, model, dims, strategy, chunk_size, passages, built_at FROM manifest LIMIT 1`).
		Scan(&x.manifest.BuildID, &x.manifest.Source, &x.manifest.Model, &x.manifest.Dims,
			&x.manifest.Strategy, &x.manifest.ChunkSize, &x.manifest.Passages, &builtAt)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	x.manifest.BuiltAt, _ = time.Parse(time.RFC3339, builtAt)

	rows, err := x.db.QueryContext(ctx,
		`SELECT position, text, COALESCE(start_line, 0), COALESCE(end_line, 0), vector FROM passages ORDER BY position`)
	if err != nil {
		return fmt.Errorf("read passages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Passage
		var blob []byte
		if err := rows.Scan(&p.Position, &p.Text, &p.StartLine, &p.EndLine, &blob); err != nil {
			return fmt.Errorf("scan passage: %w", err)
		}
		if p.Position != len(x.passages) {
			return fmt.Errorf("passage positions are not dense at %d", p.Position)
		}
		v, err := decodeVector(blob)
		if err != nil {
			return fmt.Errorf("passage %d: %w", p.Position, err)
		}
		if len(v) != x.manifest.Dims {
			return fmt.Errorf("passage %d: %w", p.Position, ErrDimensionMismatch)
		}
		x.passages = append(x.passages, p)
		x.vectors = append(x.vectors, v)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(x.passages) == 0 {
		return ErrEmptyCorpus
	}
	return nil
}

// Close releases the underlying database handle.
func (x *Index) Close() error { return x.db.Close() }

// Manifest returns the build manifest.
func (x *Index) Manifest() Manifest { return x.manifest }

// Len is the number of passages.
func (x *Index) Len() int { return len(x.passages) }

// Dims is the vector dimension the index was built with.
func (x *Index) Dims() int { return x.manifest.Dims }

// Passage returns the passage stored at pos.
func (x *Index) Passage(pos int) (Passage, error) {
	if pos < 0 || pos >= len(x.passages) {
		return Passage{}, ErrPositionOutOfBounds
	}
	return x.passages[pos], nil
}

// Search returns the k nearest passages to vec by L2 distance, closest first.
// Equal distances are ordered by position so results are deterministic.
func (x *Index) Search(vec embedding.Vector, k int) ([]Hit, error) {
	if len(vec) != x.manifest.Dims {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]Hit, len(x.vectors))
	for i, v := range x.vectors {
		d := embedding.L2Distance(vec, v)
		hits[i] = Hit{Position: i, Distance: d, Score: model.DistanceScore(d)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Lexical returns up to k passages matching any query term, ranked by bm25.
func (x *Index) Lexical(ctx context.Context, query string, k int) ([]Hit, error) {
	expr := matchExpr(query)
	if expr == "" || k <= 0 {
		return nil, nil
	}

	rows, err := x.db.QueryContext(ctx,
		`SELECT rowid, bm25(passages_fts) AS bm FROM passages_fts
		 WHERE passages_fts MATCH ?
		 ORDER BY bm, rowid LIMIT ?`, expr, k)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var rank float64
		if err := rows.Scan(&h.Position, &rank); err != nil {
			return nil, err
		}
		// bm25() is negative, more negative meaning a better match.
		s := -rank
		h.Score = s / (1 + s)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true, "but": true,
	"by": true, "can": true, "do": true, "does": true, "for": true, "from": true, "have": true,
	"how": true, "i": true, "if": true, "in": true, "is": true, "it": true, "me": true, "my": true,
	"of": true, "on": true, "or": true, "should": true, "so": true, "that": true, "the": true,
	"this": true, "to": true, "was": true, "what": true, "when": true, "why": true, "with": true,
	"you": true, "your": true,
}

// matchExpr turns free text into an FTS5 query of OR-joined quoted terms.
func matchExpr(query string) string {
	seen := map[string]bool{}
	var terms []string
	for _, tok := range embedding.Tokenize(query) {
		if len(tok) < 2 || stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		terms = append(terms, `"`+strings.ReplaceAll(tok, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " OR ")
}

// Stats summarizes an index file.
type Stats struct {
	Path        string   `json:"path"`
	SizeBytes   int64    `json:"size_bytes"`
	Manifest    Manifest `json:"manifest"`
	Passages    int      `json:"passages"`
	LexicalRows int      `json:"lexical_rows"`
	AvgChars    int      `json:"avg_chars"`
}

// Stats returns file and content statistics.
func (x *Index) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Path: x.path, Manifest: x.manifest, Passages: len(x.passages)}
	if info, err := os.Stat(x.path); err == nil {
		st.SizeBytes = info.Size()
	}
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages_fts`).Scan(&st.LexicalRows); err != nil {
		return st, fmt.Errorf("count lexical rows: %w", err)
	}
	total := 0
	for _, p := range x.passages {
		total += len(p.Text)
	}
	if len(x.passages) > 0 {
		st.AvgChars = total / len(x.passages)
	}
	return st, nil
}
