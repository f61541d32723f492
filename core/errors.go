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

import "errors"

// Domain validation errors
var (
	// ErrInvalidEntry indicates an Entry failed validation.
	ErrInvalidEntry = errors.New("invalid entry")

	// ErrEmptyIdentifier indicates the Identifier field is empty.
	ErrEmptyIdentifier = errors.New("identifier cannot be empty")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyBatch indicates an operation was given a batch with no entries.
	ErrEmptyBatch = errors.New("batch cannot be empty")

	// ErrDimensionMismatch indicates vectors in a batch do not share one length,
	// or a query vector length does not match the stored dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrNonFiniteValue indicates a vector contains NaN or Inf.
	ErrNonFiniteValue = errors.New("vector contains non-finite value")
)
