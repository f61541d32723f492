// Package index builds the offline search index: item contents are embedded
// on a worker pool and packed into a quantized blob plus a JSON metadata
// sidecar, ready to be served as static artifacts.
package index
