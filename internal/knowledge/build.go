package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/discharge-care/internal/chunker"
	"github.com/rcliao/discharge-care/internal/embedding"
)

// BuildParams holds parameters for an offline index build.
type BuildParams struct {
	Path     string
	Source   string // label recorded in the manifest, usually the document path
	Text     string
	Chunking chunker.Options
	Embedder embedding.Embedder
	Model    string
	Logger   *log.Logger
}

// Build regenerates the index file at p.Path from p.Text. The file is written
// beside the destination and renamed into place, so readers never observe a
// partial build.
func Build(ctx context.Context, p BuildParams) (*Manifest, error) {
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}

	spans := chunker.Split(p.Text, p.Chunking)
	if len(spans) == 0 {
		return nil, ErrEmptyCorpus
	}

	texts := make([]string, len(spans))
	for i, s := range spans {
		texts[i] = s.Text
	}
	logger.Info("embedding passages", "passages", len(texts), "dims", p.Embedder.Dims())
	vecs, err := embedding.EmbedAll(ctx, p.Embedder, texts)
	if err != nil {
		return nil, fmt.Errorf("embed passages: %w", err)
	}
	for i, v := range vecs {
		if len(v) != p.Embedder.Dims() {
			return nil, fmt.Errorf("passage %d: got %d dims, want %d: %w", i, len(v), p.Embedder.Dims(), ErrDimensionMismatch)
		}
	}

	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	tmp := p.Path + ".building"
	os.Remove(tmp)

	db, err := sql.Open("sqlite", tmp)
	if err != nil {
		return nil, fmt.Errorf("open build db: %w", err)
	}

	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	strategy := p.Chunking.Strategy
	if strategy == "" {
		strategy = chunker.StrategyFixed
	}
	size := p.Chunking.FixedSize
	if strategy == chunker.StrategyParagraph {
		size = p.Chunking.TargetSize
	}
	m := &Manifest{
		BuildID:   ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String(),
		Source:    p.Source,
		Model:     p.Model,
		Dims:      p.Embedder.Dims(),
		Strategy:  string(strategy),
		ChunkSize: size,
		Passages:  len(spans),
		BuiltAt:   time.Now().UTC().Truncate(time.Second),
	}

	if err := write(ctx, db, m, spans, vecs); err != nil {
		db.Close()
		os.Remove(tmp)
		return nil, err
	}
	if err := db.Close(); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("close build db: %w", err)
	}
	if err := os.Rename(tmp, p.Path); err != nil {
		return nil, fmt.Errorf("install index: %w", err)
	}

	logger.Info("index built", "path", p.Path, "build_id", m.BuildID, "passages", m.Passages)
	return m, nil
}

func write(ctx context.Context, db *sql.DB, m *Manifest, spans []chunker.Span, vecs []embedding.Vector) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO manifest (build_id, source, model, dims, strategy, chunk_size, passages, built_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.BuildID, m.Source, m.Model, m.Dims, m.Strategy, m.ChunkSize, m.Passages, m.BuiltAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert manifest: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO passages (position, text, start_line, end_line, vector) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, s := range spans {
		if _, err := stmt.ExecContext(ctx, i, s.Text, s.StartLine, s.EndLine, encodeVector(vecs[i])); err != nil {
			return fmt.Errorf("insert passage %d: %w", i, err)
		}
	}

	return tx.Commit()
}
