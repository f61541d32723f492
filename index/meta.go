package index

import (
	"encoding/json"

	"github.com/poiesic/semsearch/codec"
)

// EncodeMeta serializes the metadata sidecar as JSON. The sidecar travels
// next to the blob; the blob itself carries only vectors.
func EncodeMeta(meta []codec.Meta) ([]byte, error) {
	return json.Marshal(meta)
}

// DecodeMeta deserializes a metadata sidecar.
func DecodeMeta(data []byte) ([]codec.Meta, error) {
	var meta []codec.Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// DecodeItems deserializes build input: a JSON array of items.
func DecodeItems(data []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}
