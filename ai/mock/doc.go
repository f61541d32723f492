// Package mock provides deterministic ai.Embedder test doubles.
package mock
