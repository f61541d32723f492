// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/poiesic/semsearch/core"
)

// Blob layout (little-endian):
//
//	offset  size       field
//	0       4          magic "EMBD"
//	4       1          version = 1
//	5       4          count (uint32)
//	9       4          dim (uint32)
//	13      1          dtype = 1 (int8)
//	14      2          zero padding to the next 4-byte boundary
//	16      4*count    scales (float32)
//	—       dim*count  quantized values (int8)
const (
	Magic   = "EMBD"
	Version = 1

	// DtypeInt8 is the only quantization dtype of version 1.
	DtypeInt8 = 1

	headerSize = 16 // magic + version + count + dim + dtype, padded to 4 bytes
)

// maxQuant bounds quantized components to [-127, 127]. The -128 slot is
// unused so that scale = maxAbs/127 can never overflow at the negative
// extreme.
const maxQuant = 127

// Meta carries the per-vector identity that the blob itself does not store.
// It is serialized as a JSON sidecar next to the blob.
type Meta struct {
	Identifier string `json:"identifier"`
	Content    string `json:"content"`
}

// Encode quantizes every vector of the batch to int8 plus a per-vector
// scale and packs the result into a blob. Scaling is per vector, not per
// batch: upstream vectors are not guaranteed perfectly unit-normalized, and
// a shared scale would waste precision on the smaller ones.
//
// Output is byte-deterministic for identical input, so blobs can be cached
// and compared by content hash.
func Encode(batch core.EmbeddingBatch) ([]byte, error) {
	if len(batch) == 0 {
		return nil, core.ErrEmptyBatch
	}

	dim := batch.Dim()
	for i, entry := range batch {
		if len(entry.Vector) != dim {
			return nil, fmt.Errorf("%w: entry %d has %d values, want %d",
				core.ErrDimensionMismatch, i, len(entry.Vector), dim)
		}
	}

	count := len(batch)
	blob := make([]byte, headerSize+4*count+dim*count)

	copy(blob[0:4], Magic)
	blob[4] = Version
	binary.LittleEndian.PutUint32(blob[5:9], uint32(count))
	binary.LittleEndian.PutUint32(blob[9:13], uint32(dim))
	blob[13] = DtypeInt8

	scales := blob[headerSize : headerSize+4*count]
	values := blob[headerSize+4*count:]

	for i, entry := range batch {
		scale := quantize(entry.Vector, values[i*dim:(i+1)*dim])
		binary.LittleEndian.PutUint32(scales[i*4:], math.Float32bits(scale))
	}

	return blob, nil
}

// quantize writes the int8 encoding of vec into out and returns the scale.
func quantize(vec []float32, out []byte) float32 {
	var maxAbs float32
	for _, v := range vec {
		if a := abs32(v); a > maxAbs {
			maxAbs = a
		}
	}

	scale := float32(1)
	if maxAbs > 0 {
		scale = maxAbs / maxQuant
	}

	for i, v := range vec {
		q := math.Round(float64(v) / float64(scale))
		if q > maxQuant {
			q = maxQuant
		} else if q < -maxQuant {
			q = -maxQuant
		}
		out[i] = byte(int8(q))
	}

	return scale
}

// Decode unpacks a blob into float32 vectors, reconstructing each component
// as q*scale. Reconstruction is lossy; only cosine proximity to the encoded
// vectors is guaranteed, not bit-exact recovery.
//
// If meta is non-nil it must have exactly one element per encoded vector;
// identifiers and contents are then attached to the returned batch. With nil
// meta the returned entries carry vectors only.
func Decode(blob []byte, meta []Meta) (core.EmbeddingBatch, error) {
	count, dim, err := readHeader(blob)
	if err != nil {
		return nil, err
	}

	if meta != nil && len(meta) != count {
		return nil, fmt.Errorf("%w: %d meta entries for %d vectors",
			ErrMetaLengthMismatch, len(meta), count)
	}

	scales := blob[headerSize : headerSize+4*count]
	values := blob[headerSize+4*count:]

	batch := make(core.EmbeddingBatch, count)
	for i := 0; i < count; i++ {
		scale := math.Float32frombits(binary.LittleEndian.Uint32(scales[i*4:]))
		vec := make([]float32, dim)
		row := values[i*dim : (i+1)*dim]
		for j, b := range row {
			vec[j] = float32(int8(b)) * scale
		}

		entry := &core.Entry{Vector: vec}
		if meta != nil {
			entry.Identifier = meta[i].Identifier
			entry.Content = meta[i].Content
		}
		batch[i] = entry
	}

	return batch, nil
}

// readHeader validates the blob header and declared payload size.
func readHeader(blob []byte) (count, dim int, err error) {
	if len(blob) < headerSize {
		return 0, 0, fmt.Errorf("%w: %d header bytes", ErrTruncatedBlob, len(blob))
	}
	if string(blob[0:4]) != Magic {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadMagic, blob[0:4])
	}
	if blob[4] != Version {
		return 0, 0, fmt.Errorf("%w: %d", ErrBadVersion, blob[4])
	}
	if blob[13] != DtypeInt8 {
		return 0, 0, fmt.Errorf("%w: %d", ErrUnsupportedDtype, blob[13])
	}

	count64 := uint64(binary.LittleEndian.Uint32(blob[5:9]))
	dim64 := uint64(binary.LittleEndian.Uint32(blob[9:13]))

	// Payload sizes are checked term by term in uint64: count and dim come
	// straight from the untrusted header, and a combined int expression can
	// wrap for hostile values, passing the truncation check and panicking
	// on the slice below.
	payload := uint64(len(blob) - headerSize)
	scalesLen := 4 * count64
	if scalesLen > payload {
		return 0, 0, fmt.Errorf("%w: %d bytes, header declares %d vectors",
			ErrTruncatedBlob, len(blob), count64)
	}
	if dim64*count64 > payload-scalesLen {
		return 0, 0, fmt.Errorf("%w: %d bytes, header declares %d vectors of dim %d",
			ErrTruncatedBlob, len(blob), count64, dim64)
	}

	return int(count64), int(dim64), nil
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
