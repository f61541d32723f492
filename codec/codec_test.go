package codec

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/semsearch/core"
)

// randomUnitBatch builds count vectors of the given dimension with a fixed
// seed, normalized to unit length.
func randomUnitBatch(t *testing.T, count, dim int) core.EmbeddingBatch {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	batch := make(core.EmbeddingBatch, count)
	for i := range batch {
		vec := make([]float32, dim)
		var norm float64
		for j := range vec {
			vec[j] = float32(rng.NormFloat64())
			norm += float64(vec[j]) * float64(vec[j])
		}
		norm = math.Sqrt(norm)
		for j := range vec {
			vec[j] = float32(float64(vec[j]) / norm)
		}
		batch[i] = &core.Entry{
			Identifier: "id",
			Content:    "content",
			Vector:     vec,
		}
	}
	return batch
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	batch := randomUnitBatch(t, 20, 384)

	blob, err := Encode(batch)
	require.NoError(t, err)

	decoded, err := Decode(blob, nil)
	require.NoError(t, err)
	require.Len(t, decoded, len(batch))

	for i := range batch {
		sim := cosine(batch[i].Vector, decoded[i].Vector)
		assert.Greater(t, sim, 0.98, "vector %d degraded too far", i)
	}
}

func TestEncodeRoundTripNonUnitVectors(t *testing.T) {
	// Per-vector scaling must hold up for magnitudes well away from 1.
	batch := randomUnitBatch(t, 4, 64)
	for i, scale := range []float32{0.001, 0.5, 7, 300} {
		for j := range batch[i].Vector {
			batch[i].Vector[j] *= scale
		}
	}

	blob, err := Encode(batch)
	require.NoError(t, err)

	decoded, err := Decode(blob, nil)
	require.NoError(t, err)

	for i := range batch {
		assert.Greater(t, cosine(batch[i].Vector, decoded[i].Vector), 0.98)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	batch := randomUnitBatch(t, 8, 128)

	blob1, err := Encode(batch)
	require.NoError(t, err)
	blob2, err := Encode(batch)
	require.NoError(t, err)

	assert.Equal(t, blob1, blob2)
}

func TestEncodeValidation(t *testing.T) {
	t.Run("empty batch", func(t *testing.T) {
		_, err := Encode(nil)
		assert.ErrorIs(t, err, core.ErrEmptyBatch)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		batch := core.EmbeddingBatch{
			{Identifier: "a", Content: "a", Vector: []float32{1, 0, 0}},
			{Identifier: "b", Content: "b", Vector: []float32{0, 1}},
		}
		_, err := Encode(batch)
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	})

	t.Run("zero vector encodes with scale 1", func(t *testing.T) {
		batch := core.EmbeddingBatch{
			{Identifier: "z", Content: "z", Vector: []float32{0, 0, 0}},
		}
		blob, err := Encode(batch)
		require.NoError(t, err)

		decoded, err := Decode(blob, nil)
		require.NoError(t, err)
		assert.Equal(t, []float32{0, 0, 0}, decoded[0].Vector)
	})
}

func TestDecodeHeaderValidation(t *testing.T) {
	blob, err := Encode(randomUnitBatch(t, 2, 8))
	require.NoError(t, err)

	t.Run("corrupted magic", func(t *testing.T) {
		bad := append([]byte(nil), blob...)
		copy(bad[0:4], "XXXX")
		_, err := Decode(bad, nil)
		assert.ErrorIs(t, err, ErrBadMagic)
		assert.ErrorIs(t, err, ErrBadBlob)
	})

	t.Run("wrong version", func(t *testing.T) {
		bad := append([]byte(nil), blob...)
		bad[4] = 9
		_, err := Decode(bad, nil)
		assert.ErrorIs(t, err, ErrBadVersion)
	})

	t.Run("wrong dtype", func(t *testing.T) {
		bad := append([]byte(nil), blob...)
		bad[13] = 2
		_, err := Decode(bad, nil)
		assert.ErrorIs(t, err, ErrUnsupportedDtype)
	})

	t.Run("too short for header", func(t *testing.T) {
		_, err := Decode(blob[:10], nil)
		assert.ErrorIs(t, err, ErrTruncatedBlob)
	})

	t.Run("payload shorter than declared", func(t *testing.T) {
		_, err := Decode(blob[:len(blob)-3], nil)
		assert.ErrorIs(t, err, ErrTruncatedBlob)
	})

	t.Run("hostile count and dim wrap the size arithmetic", func(t *testing.T) {
		// count*dim chosen so a signed combined size collapses to less than
		// the blob length; lengths must be rejected, not sliced.
		bad := append([]byte(nil), blob[:headerSize]...)
		binary.LittleEndian.PutUint32(bad[5:9], 0xFFFFFFFF)  // count
		binary.LittleEndian.PutUint32(bad[9:13], 0xFFFFFFFD) // dim
		_, err := Decode(bad, nil)
		assert.ErrorIs(t, err, ErrTruncatedBlob)
	})

	t.Run("huge count alone is rejected", func(t *testing.T) {
		bad := append([]byte(nil), blob...)
		binary.LittleEndian.PutUint32(bad[5:9], math.MaxUint32)
		_, err := Decode(bad, nil)
		assert.ErrorIs(t, err, ErrTruncatedBlob)
	})
}

func TestDecodeMeta(t *testing.T) {
	batch := core.EmbeddingBatch{
		{Identifier: "📣", Content: "megaphone shout", Vector: []float32{0.6, 0.8}},
		{Identifier: "🔔", Content: "bell ring", Vector: []float32{0.8, 0.6}},
	}
	blob, err := Encode(batch)
	require.NoError(t, err)

	t.Run("meta attached in order", func(t *testing.T) {
		decoded, err := Decode(blob, []Meta{
			{Identifier: "📣", Content: "megaphone shout"},
			{Identifier: "🔔", Content: "bell ring"},
		})
		require.NoError(t, err)
		require.Len(t, decoded, 2)
		assert.Equal(t, "📣", decoded[0].Identifier)
		assert.Equal(t, "bell ring", decoded[1].Content)
	})

	t.Run("meta length mismatch", func(t *testing.T) {
		_, err := Decode(blob, []Meta{{Identifier: "📣"}})
		assert.ErrorIs(t, err, ErrMetaLengthMismatch)
	})
}

func TestHeaderLayout(t *testing.T) {
	// The on-disk format is fixed; spot-check the raw bytes.
	batch := core.EmbeddingBatch{
		{Identifier: "a", Content: "a", Vector: []float32{1, -1, 0.5}},
	}
	blob, err := Encode(batch)
	require.NoError(t, err)

	assert.Equal(t, []byte("EMBD"), blob[0:4])
	assert.Equal(t, byte(1), blob[4])
	assert.Equal(t, []byte{1, 0, 0, 0}, blob[5:9])  // count
	assert.Equal(t, []byte{3, 0, 0, 0}, blob[9:13]) // dim
	assert.Equal(t, byte(1), blob[13])
	assert.Equal(t, []byte{0, 0}, blob[14:16]) // pad
	assert.Len(t, blob, 16+4+3)

	// maxAbs = 1 → q values 127, -127, 64 (0.5/scale rounds to 64)
	values := blob[20:]
	assert.Equal(t, int8(127), int8(values[0]))
	assert.Equal(t, int8(-127), int8(values[1]))
	assert.Equal(t, int8(64), int8(values[2]))
}
