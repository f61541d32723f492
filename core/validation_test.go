package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntry() *Entry {
	return &Entry{
		Identifier: "📣",
		Content:    "megaphone shout announcement",
		Vector:     []float32{0.6, 0.8},
	}
}

func TestValidateEntry(t *testing.T) {
	t.Run("valid entry", func(t *testing.T) {
		assert.NoError(t, ValidateEntry(validEntry()))
	})

	t.Run("nil entry", func(t *testing.T) {
		err := ValidateEntry(nil)
		assert.ErrorIs(t, err, ErrInvalidEntry)
	})

	t.Run("empty identifier", func(t *testing.T) {
		entry := validEntry()
		entry.Identifier = ""
		err := ValidateEntry(entry)
		assert.ErrorIs(t, err, ErrEmptyIdentifier)
	})

	t.Run("empty content", func(t *testing.T) {
		entry := validEntry()
		entry.Content = ""
		err := ValidateEntry(entry)
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("NaN value", func(t *testing.T) {
		entry := validEntry()
		entry.Vector[1] = float32(math.NaN())
		err := ValidateEntry(entry)
		assert.ErrorIs(t, err, ErrNonFiniteValue)
	})

	t.Run("Inf value", func(t *testing.T) {
		entry := validEntry()
		entry.Vector[0] = float32(math.Inf(-1))
		err := ValidateEntry(entry)
		assert.ErrorIs(t, err, ErrNonFiniteValue)
	})

	t.Run("entry without vector is valid", func(t *testing.T) {
		entry := validEntry()
		entry.Vector = nil
		assert.NoError(t, ValidateEntry(entry))
	})
}

func TestValidateBatch(t *testing.T) {
	t.Run("empty batch", func(t *testing.T) {
		err := ValidateBatch(nil)
		assert.ErrorIs(t, err, ErrEmptyBatch)
	})

	t.Run("uniform dimensions", func(t *testing.T) {
		batch := EmbeddingBatch{
			{Identifier: "a", Content: "a", Vector: []float32{1, 0, 0}},
			{Identifier: "b", Content: "b", Vector: []float32{0, 1, 0}},
		}
		require.NoError(t, ValidateBatch(batch))
	})

	t.Run("mismatched dimensions", func(t *testing.T) {
		batch := EmbeddingBatch{
			{Identifier: "a", Content: "a", Vector: []float32{1, 0, 0}},
			{Identifier: "b", Content: "b", Vector: []float32{0, 1}},
		}
		err := ValidateBatch(batch)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("invalid entry surfaces", func(t *testing.T) {
		batch := EmbeddingBatch{
			{Identifier: "", Content: "a", Vector: []float32{1}},
		}
		err := ValidateBatch(batch)
		assert.ErrorIs(t, err, ErrEmptyIdentifier)
	})
}
