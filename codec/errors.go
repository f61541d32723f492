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
	"errors"
	"fmt"
)

// ErrBadBlob is the class ancestor of every decode format error. Callers can
// match the whole class with a single errors.Is check.
var ErrBadBlob = errors.New("bad embedding blob")

// Format errors. Each wraps ErrBadBlob.
var (
	// ErrBadMagic indicates the blob does not start with the EMBD magic.
	ErrBadMagic = fmt.Errorf("%w: bad magic", ErrBadBlob)

	// ErrBadVersion indicates an unsupported format version.
	ErrBadVersion = fmt.Errorf("%w: bad version", ErrBadBlob)

	// ErrUnsupportedDtype indicates a quantization dtype this decoder cannot read.
	ErrUnsupportedDtype = fmt.Errorf("%w: unsupported dtype", ErrBadBlob)

	// ErrTruncatedBlob indicates the blob is shorter than its header declares.
	ErrTruncatedBlob = fmt.Errorf("%w: truncated", ErrBadBlob)

	// ErrMetaLengthMismatch indicates supplied metadata does not match the
	// encoded vector count.
	ErrMetaLengthMismatch = fmt.Errorf("%w: meta length mismatch", ErrBadBlob)
)
