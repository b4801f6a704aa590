// Copyright 2025 Helix ML Project. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/helix-ml/helix/internal/tensor"
)

// Backend defines the interface a compute backend must implement.
// Kernels signal misuse (shape or dtype mismatches) by panicking.
type Backend = tensor.Backend

// RawTensor is the low-level, type-erased tensor backends operate on.
// Most callers want Tensor[T, B] instead.
type RawTensor = tensor.RawTensor

// NewRaw allocates a raw tensor of the given shape and dtype.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}
