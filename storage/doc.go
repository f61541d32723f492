// Package storage defines the vector-store contract consumed by the search
// coordinator, sentinel errors, and MUS serialization for stored rows.
// Backend implementations live in subpackages.
package storage
