package cpu

import (
	"fmt"

	"github.com/helix-ml/helix/internal/tensor"
)

// Reshape returns a zero-copy view with a new shape.
// The number of elements must be preserved.
func (c *CPUBackend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if newShape.NumElements() != x.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			x.Shape(), x.NumElements(), newShape, newShape.NumElements()))
	}
	return x.View(newShape, 0)
}

// Unsqueeze adds a dimension of size 1 at the given position (zero-copy).
func (c *CPUBackend) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim = len(shape) + 1 + dim
	}
	if dim < 0 || dim > len(shape) {
		panic(fmt.Sprintf("unsqueeze: dimension %d out of range for %dD tensor", dim, len(shape)))
	}

	newShape := make(tensor.Shape, 0, len(shape)+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)
	return x.View(newShape, 0)
}

// Squeeze removes a dimension of size 1 at the given position (zero-copy).
func (c *CPUBackend) Squeeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)
	if shape[dim] != 1 {
		panic(fmt.Sprintf("squeeze: dimension %d has size %d, expected 1", dim, shape[dim]))
	}

	newShape := make(tensor.Shape, 0, len(shape)-1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, shape[dim+1:]...)
	return x.View(newShape, 0)
}

// Transpose permutes the tensor's dimensions. With no axes a 2D tensor is
// transposed; otherwise axes gives the permutation.
func (c *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		if ndim != 2 {
			panic(fmt.Sprintf("transpose: default transpose requires a 2D tensor, got %v", shape))
		}
		axes = []int{1, 0}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", ndim, len(axes)))
	}

	seen := make([]bool, ndim)
	outShape := make(tensor.Shape, ndim)
	for d, ax := range axes {
		ax = shape.NormalizeDim(ax)
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
		axes[d] = ax
		outShape[d] = shape[ax]
	}

	result, err := tensor.NewRaw(outShape, x.DType(), c.device)
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	srcStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	elem := x.DType().Size()
	src := x.Data()
	dst := result.Data()

	n := x.NumElements()
	for i := 0; i < n; i++ {
		rem := i
		srcIdx := 0
		for d := 0; d < ndim; d++ {
			coord := rem / outStrides[d]
			rem -= coord * outStrides[d]
			srcIdx += coord * srcStrides[axes[d]]
		}
		copy(dst[i*elem:(i+1)*elem], src[srcIdx*elem:(srcIdx+1)*elem])
	}
	return result
}

// Cat concatenates tensors along the given dimension. All tensors must share
// dtype and shape except along dim. Supports negative dim indexing.
func (c *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	shape := tensors[0].Shape()
	dtype := tensors[0].DType()
	ndim := len(shape)
	dim = shape.NormalizeDim(dim)

	totalDim := 0
	for i, t := range tensors {
		ts := t.Shape()
		if len(ts) != ndim {
			panic(fmt.Sprintf("cat: tensor %d has %d dimensions, expected %d", i, len(ts), ndim))
		}
		if t.DType() != dtype {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), dtype))
		}
		for d := 0; d < ndim; d++ {
			if d == dim {
				totalDim += ts[d]
			} else if ts[d] != shape[d] {
				panic(fmt.Sprintf("cat: tensor %d dimension %d is %d, expected %d", i, d, ts[d], shape[d]))
			}
		}
	}

	outShape := shape.Clone()
	outShape[dim] = totalDim
	result, err := tensor.NewRaw(outShape, dtype, c.device)
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}

	// Row-major layout: for every index prefix before dim, each input
	// contributes one contiguous slab of shape[dim]*inner elements.
	outer, _, inner := dimSplit(outShape, dim)
	elem := dtype.Size()
	dst := result.Data()

	pos := 0
	for o := 0; o < outer; o++ {
		for _, t := range tensors {
			slab := t.Shape()[dim] * inner * elem
			src := t.Data()[o*slab : (o+1)*slab]
			copy(dst[pos:pos+slab], src)
			pos += slab
		}
	}
	return result
}

// Narrow slices [start, start+length) along dim. Along dimension 0 the
// result is a zero-copy view sharing the input's buffer; otherwise the data
// is copied into a fresh tensor.
func (c *CPUBackend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dimension %d (size %d)",
			start, start+length, dim, shape[dim]))
	}

	outShape := shape.Clone()
	outShape[dim] = length

	if dim == 0 {
		stride := shape.ComputeStrides()[0]
		return x.View(outShape, start*stride)
	}

	result, err := tensor.NewRaw(outShape, x.DType(), c.device)
	if err != nil {
		panic(fmt.Sprintf("narrow: %v", err))
	}

	outer, n, inner := dimSplit(shape, dim)
	elem := x.DType().Size()
	src := x.Data()
	dst := result.Data()

	rowBytes := length * inner * elem
	for o := 0; o < outer; o++ {
		srcOff := (o*n + start) * inner * elem
		copy(dst[o*rowBytes:(o+1)*rowBytes], src[srcOff:srcOff+rowBytes])
	}
	return result
}
