// Package cpu implements the pure-Go CPU backend.
package cpu

import (
	"fmt"

	"github.com/helix-ml/helix/internal/parallel"
	"github.com/helix-ml/helix/internal/tensor"
)

// CPUBackend implements tensor operations on the CPU.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    parallel.DefaultConfig(),
	}
}

// Name returns the backend name.
func (c *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (c *CPUBackend) Device() tensor.Device {
	return c.device
}

// Add performs element-wise addition with broadcasting.
func (c *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("add", opAdd, a, b)
}

// Sub performs element-wise subtraction with broadcasting.
func (c *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("sub", opSub, a, b)
}

// Mul performs element-wise multiplication with broadcasting.
func (c *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("mul", opMul, a, b)
}

// Div performs element-wise division with broadcasting.
func (c *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("div", opDiv, a, b)
}

func (c *CPUBackend) binary(name string, which binOp, a, b *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", name, a.DType(), b.DType()))
	}

	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result, err := tensor.NewRaw(outShape, a.DType(), c.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	switch a.DType() {
	case tensor.Float32:
		binaryTyped[float32](c, which, result, a, b)
	case tensor.Float64:
		binaryTyped[float64](c, which, result, a, b)
	case tensor.Int32:
		binaryTyped[int32](c, which, result, a, b)
	case tensor.Int64:
		binaryTyped[int64](c, which, result, a, b)
	case tensor.Uint8:
		binaryTyped[uint8](c, which, result, a, b)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
	return result
}

func binaryTyped[T number](c *CPUBackend, which binOp, out, a, b *tensor.RawTensor) {
	dst := slice[T](out)
	av := slice[T](a)
	bv := slice[T](b)
	op := opFunc[T](which)

	if a.Shape().Equal(b.Shape()) {
		// Fast path: no index translation.
		parallel.For(len(dst), func(i int) {
			dst[i] = op(av[i], bv[i])
		}, c.par)
		return
	}

	outShape := out.Shape()
	ai := newBroadcastIndexer(outShape, a.Shape())
	bi := newBroadcastIndexer(outShape, b.Shape())
	parallel.For(len(dst), func(i int) {
		dst[i] = op(av[ai.index(i)], bv[bi.index(i)])
	}, c.par)
}
