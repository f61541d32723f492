package badger

import (
	"fmt"

	"github.com/poiesic/semsearch/core"
)

// Key prefixes for stored data
const (
	entryPrefix  = "embrow"
	schemaMarker = "embschema"
)

// makeEntryKey generates a key for an embedding row by ID.
func makeEntryKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", entryPrefix, id))
}
