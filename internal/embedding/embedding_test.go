package embedding

import (
	"context"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector
		expected float64
		delta    float64
	}{
		{"identical", Vector{1, 0, 0}, Vector{1, 0, 0}, 1.0, 0.001},
		{"orthogonal", Vector{1, 0, 0}, Vector{0, 1, 0}, 0.0, 0.001},
		{"opposite", Vector{1, 0, 0}, Vector{-1, 0, 0}, -1.0, 0.001},
		{"similar", Vector{1, 1, 0}, Vector{1, 0, 0}, 0.707, 0.01},
		{"empty", Vector{}, Vector{}, 0.0, 0.001},
		{"different lengths", Vector{1, 0}, Vector{1, 0, 0}, 0.0, 0.001},
		{"zero vector", Vector{0, 0, 0}, Vector{1, 0, 0}, 0.0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > tt.delta {
				t.Errorf("CosineSimilarity(%v, %v) = %f, want %f (±%f)", tt.a, tt.b, got, tt.expected, tt.delta)
			}
		})
	}
}

func TestL2Distance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector
		expected float64
	}{
		{"identical", Vector{1, 2, 3}, Vector{1, 2, 3}, 0},
		{"unit", Vector{0, 0}, Vector{3, 4}, 5},
		{"different lengths", Vector{1}, Vector{1, 0}, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := L2Distance(tt.a, tt.b); got != tt.expected {
				t.Errorf("L2Distance = %f, want %f", got, tt.expected)
			}
		})
	}
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(64)
	a, _ := e.Embed(ctx, "Swelling in the ankles")
	b, _ := e.Embed(ctx, "swelling in the ANKLES!")
	if len(a) != 64 || e.Dims() != 64 {
		t.Fatalf("expected 64 dims, got %d", len(a))
	}
	if L2Distance(a, b) != 0 {
		t.Error("expected identical vectors for case and punctuation variants")
	}
}

func TestHashEmbedder_RelatedTextIsCloser(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(256)
	q, _ := e.Embed(ctx, "leg swelling and fluid retention")
	near, _ := e.Embed(ctx, "Swelling of the legs is often caused by fluid retention in kidney disease.")
	far, _ := e.Embed(ctx, "Potassium rich foods include bananas and oranges.")
	if L2Distance(q, near) >= L2Distance(q, far) {
		t.Errorf("expected related passage to be closer: near=%f far=%f", L2Distance(q, near), L2Distance(q, far))
	}
}

func TestEmbedAll_UsesBatch(t *testing.T) {
	vecs, err := EmbedAll(context.Background(), NewHashEmbedder(8), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("embed all: %v", err)
	}
	if len(vecs) != 3 {
		t.Errorf("expected 3 vectors, got %d", len(vecs))
	}
}

func TestNew_Providers(t *testing.T) {
	e, err := New(Config{})
	if err != nil {
		t.Fatalf("default provider: %v", err)
	}
	if _, ok := e.(*HashEmbedder); !ok {
		t.Errorf("expected hash embedder by default, got %T", e)
	}
	if _, err := New(Config{Provider: "openai"}); err == nil {
		t.Error("expected error for openai without credentials")
	}
	if _, err := New(Config{Provider: "word2vec"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
