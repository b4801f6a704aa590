package cpu

import (
	"fmt"

	"github.com/helix-ml/helix/internal/tensor"
)

// number covers the numeric dtypes kernels operate on.
type number interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8
}

// binOp selects an element-wise binary operation.
type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
)

func opFunc[T number](which binOp) func(T, T) T {
	switch which {
	case opAdd:
		return func(a, b T) T { return a + b }
	case opSub:
		return func(a, b T) T { return a - b }
	case opMul:
		return func(a, b T) T { return a * b }
	case opDiv:
		return func(a, b T) T { return a / b }
	default:
		panic("unknown binary op")
	}
}

// slice reinterprets a RawTensor's storage as a typed slice.
func slice[T number](r *tensor.RawTensor) []T {
	var z T
	switch any(z).(type) {
	case float32:
		return any(r.AsFloat32()).([]T)
	case float64:
		return any(r.AsFloat64()).([]T)
	case int32:
		return any(r.AsInt32()).([]T)
	case int64:
		return any(r.AsInt64()).([]T)
	case uint8:
		return any(r.AsUint8()).([]T)
	default:
		panic(fmt.Sprintf("unsupported kernel type %T", z))
	}
}

// broadcastIndexer maps a linear index into an output tensor to the linear
// index of the corresponding element in a (possibly broadcast) source.
type broadcastIndexer struct {
	outStrides []int
	srcStrides []int // 0 where the source dimension is broadcast
}

func newBroadcastIndexer(outShape, srcShape tensor.Shape) *broadcastIndexer {
	outStrides := outShape.ComputeStrides()
	src := srcShape.ComputeStrides()

	// Align source dims to the right of the output dims; a source dimension
	// of size 1 contributes stride 0 so its index is pinned at 0.
	srcStrides := make([]int, len(outShape))
	offset := len(outShape) - len(srcShape)
	for d := range outShape {
		if d < offset {
			continue
		}
		if srcShape[d-offset] != 1 {
			srcStrides[d] = src[d-offset]
		}
	}

	return &broadcastIndexer{outStrides: outStrides, srcStrides: srcStrides}
}

func (bi *broadcastIndexer) index(i int) int {
	idx := 0
	for d, stride := range bi.outStrides {
		coord := i / stride
		i -= coord * stride
		idx += coord * bi.srcStrides[d]
	}
	return idx
}

// dimSplit decomposes a shape around dim into (outer, n, inner) extents
// such that flat index = (o*n + k)*inner + j.
func dimSplit(shape tensor.Shape, dim int) (outer, n, inner int) {
	outer, inner = 1, 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	n = shape[dim]
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	return outer, n, inner
}
