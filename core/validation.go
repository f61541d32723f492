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


package core

import (
	"fmt"
	"math"
)

// ValidateEntry validates an Entry according to domain rules.
//
// Validation rules:
//   - Identifier must not be empty
//   - Content must not be empty
//   - Vector, if present, must contain only finite values
//
// NOT validated:
//   - Vector length (batches enforce a shared dimension, see ValidateBatch)
//   - ID (0 is valid until the store assigns one)
func ValidateEntry(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}

	if entry.Identifier == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyIdentifier)
	}

	if entry.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyContent)
	}

	for i, v := range entry.Vector {
		if !isFinite(v) {
			return fmt.Errorf("%w: %w at index %d", ErrInvalidEntry, ErrNonFiniteValue, i)
		}
	}

	return nil
}

// ValidateBatch validates that a batch is non-empty and that every vector
// shares the dimension of the first.
func ValidateBatch(batch EmbeddingBatch) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}

	dim := len(batch[0].Vector)
	for i, entry := range batch {
		if err := ValidateEntry(entry); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if len(entry.Vector) != dim {
			return fmt.Errorf("%w: entry %d has %d values, want %d",
				ErrDimensionMismatch, i, len(entry.Vector), dim)
		}
	}

	return nil
}

func isFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
