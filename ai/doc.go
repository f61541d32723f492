// Package ai defines the embedding abstraction and its configuration.
// Concrete backends live in subpackages: openai (OpenAI-compatible APIs via
// langchaingo) and mock (deterministic embedders for tests).
package ai
