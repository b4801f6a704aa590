// Copyright 2025 Helix ML Project. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// The backend parallelizes element-wise kernels across goroutines for
// large tensors and keeps reshapes, slices along the leading dimension,
// and squeezes as zero-copy views.
package cpu

import (
	internalcpu "github.com/helix-ml/helix/internal/backend/cpu"
	"github.com/helix-ml/helix/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}
