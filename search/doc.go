// Package search contains the coordinator that reconciles the two
// asynchronous readiness signals of a session, the inference worker and the
// lazily-loaded vector store, so that a query issued at any time is neither
// dropped nor handled twice concurrently.
package search
