// Package knowledge builds and serves the passage index used for grounding:
// a SQLite file holding passage text, embedding vectors and an FTS5 lexical
// index, loaded read-only into memory at serving time.
package knowledge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rcliao/discharge-care/internal/embedding"
)

var (
	ErrEmptyCorpus         = errors.New("knowledge: source produced no passages")
	ErrDimensionMismatch   = errors.New("knowledge: query vector dimension does not match index")
	ErrPositionOutOfBounds = errors.New("knowledge: passage position out of range")
)

// Manifest describes one build of the index.
type Manifest struct {
	BuildID   string    `json:"build_id"`
	Source    string    `json:"source"`
	Model     string    `json:"model"`
	Dims      int       `json:"dims"`
	Strategy  string    `json:"strategy"`
	ChunkSize int       `json:"chunk_size"`
	Passages  int       `json:"passages"`
	BuiltAt   time.Time `json:"built_at"`
}

// Passage is a stored chunk keyed by its position in build order.
type Passage struct {
	Position  int    `json:"position"`
	Text      string `json:"text"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

// Hit is a search result. Distance is set for vector hits; Score is
// higher-is-better for both vector and lexical hits.
type Hit struct {
	Position int     `json:"position"`
	Distance float64 `json:"distance,omitempty"`
	Score    float64 `json:"score"`
}

const schema = `
CREATE TABLE manifest (
	build_id   TEXT NOT NULL,
	source     TEXT NOT NULL,
	model      TEXT NOT NULL,
	dims       INTEGER NOT NULL,
	strategy   TEXT NOT NULL,
	chunk_size INTEGER NOT NULL,
	passages   INTEGER NOT NULL,
	built_at   TEXT NOT NULL
);

CREATE TABLE passages (
	position   INTEGER PRIMARY KEY,
	text       TEXT NOT NULL,
	start_line INTEGER,
	end_line   INTEGER,
	vector     BLOB NOT NULL
);

CREATE VIRTUAL TABLE passages_fts USING fts5(
	text,
	content=passages,
	content_rowid=position
);

CREATE TRIGGER passages_ai AFTER INSERT ON passages BEGIN
	INSERT INTO passages_fts(rowid, text) VALUES (new.position, new.text);
END;
`

func encodeVector(v embedding.Vector) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) (embedding.Vector, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob of %d bytes is not float32 aligned", len(b))
	}
	v := make(embedding.Vector, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
