package core

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored rows.
// It is generated by content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Entry is one item of an embedding index: a logical identifier (several
// entries may share one), the exact text that was embedded, and the
// embedding vector. Vectors are unit-normalized by convention; the codec
// and store do not enforce it.
type Entry struct {
	Id         ID
	Identifier string
	Content    string
	Vector     []float32
}

// EmbeddingBatch is an ordered collection of entries sharing one vector
// dimension. It is the unit the codec encodes and the store inserts.
type EmbeddingBatch []*Entry

// Dim returns the vector dimension of the batch, or 0 if the batch is empty.
func (b EmbeddingBatch) Dim() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0].Vector)
}

// SearchQuery holds the parameters of a nearest-neighbor search.
type SearchQuery struct {
	Text           string
	MatchThreshold float32 // minimum similarity, default DefaultMatchThreshold
	Limit          int     // maximum results, default DefaultLimit
}

// Default search parameters.
const (
	DefaultMatchThreshold float32 = 0.8
	DefaultLimit                  = 10
)

// Normalize fills in defaults for unset query parameters.
func (q *SearchQuery) Normalize() {
	if q.MatchThreshold == 0 {
		q.MatchThreshold = DefaultMatchThreshold
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
}

// SearchResult is one ranked match. Distance is the negated inner product
// of the query and stored vectors; for unit vectors it orders the same way
// as cosine distance, smaller is closer. Result lists contain at most one
// result per identifier.
type SearchResult struct {
	Identifier string
	Content    string
	Distance   float32
}
