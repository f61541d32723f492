package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// DefaultDim is the vector dimension mock embedders produce, matching the
// common small sentence-embedding models.
const DefaultDim = 384

// Embedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type Embedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	tokenMode bool
	callCount int
}

// NewEmbedder creates a mock embedder whose default behavior hashes the
// whole text into a deterministic unit vector. Distinct texts land far
// apart; identical texts coincide.
func NewEmbedder() *Embedder {
	return &Embedder{}
}

// NewTokenEmbedder creates a mock embedder that averages per-token hash
// vectors, so texts sharing words land near each other. Use it when a test
// needs plausible semantic overlap ("shout" close to "megaphone shout
// announcement") without a real model.
func NewTokenEmbedder() *Embedder {
	return &Embedder{tokenMode: true}
}

// EmbedText generates a deterministic embedding for the text.
func (m *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.callCount++

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}

	return m.embed(text), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount++

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = m.embed(text)
	}
	return vecs, nil
}

// CallCount returns the number of times any method was called.
func (m *Embedder) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *Embedder) Reset() {
	m.callCount = 0
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

func (m *Embedder) embed(text string) []float32 {
	if m.tokenMode {
		return tokenVector(text, DefaultDim)
	}
	return hashVector(text, DefaultDim)
}

// hashVector creates a deterministic unit vector from the whole text.
func hashVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		// Simple pseudo-random generation based on seed and index
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%2000)/1000.0 - 1.0
	}

	return normalize(vector)
}

// tokenVector sums hash vectors of the lowercased tokens, then normalizes.
// Texts with overlapping tokens get correlated embeddings.
func tokenVector(text string, dim int) []float32 {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return normalize(hashVector("", dim))
	}

	vector := make([]float32, dim)
	for _, token := range tokens {
		tv := hashVector(token, dim)
		for i, v := range tv {
			vector[i] += v
		}
	}

	return normalize(vector)
}

func normalize(vector []float32) []float32 {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return vector
	}
	norm := float32(1.0 / math.Sqrt(sumSquares))
	for i := range vector {
		vector[i] *= norm
	}
	return vector
}
