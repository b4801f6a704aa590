package cpu

import (
	"fmt"

	"github.com/helix-ml/helix/internal/tensor"
)

// Sum computes the total sum, returning a scalar (0-D) tensor.
func (c *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{}, x.DType(), c.device)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		sumAll(result.AsFloat32(), x.AsFloat32())
	case tensor.Float64:
		sumAll(result.AsFloat64(), x.AsFloat64())
	case tensor.Int32:
		sumAll(result.AsInt32(), x.AsInt32())
	case tensor.Int64:
		sumAll(result.AsInt64(), x.AsInt64())
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}
	return result
}

func sumAll[T number](dst, src []T) {
	var acc T
	for _, v := range src {
		acc += v
	}
	dst[0] = acc
}

// SumDim sums along the given dimension.
func (c *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return c.reduceDim("sumdim", x, dim, keepDim, false)
}

// MeanDim averages along the given dimension. Float dtypes only.
func (c *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	if x.DType() != tensor.Float32 && x.DType() != tensor.Float64 {
		panic(fmt.Sprintf("meandim: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}
	return c.reduceDim("meandim", x, dim, keepDim, true)
}

func (c *CPUBackend) reduceDim(name string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)

	outShape := reducedShape(shape, dim, keepDim)
	result, err := tensor.NewRaw(outShape, x.DType(), c.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	switch x.DType() {
	case tensor.Float32:
		reduceTyped(result.AsFloat32(), x.AsFloat32(), shape, dim, mean)
	case tensor.Float64:
		reduceTyped(result.AsFloat64(), x.AsFloat64(), shape, dim, mean)
	case tensor.Int32:
		reduceTyped(result.AsInt32(), x.AsInt32(), shape, dim, mean)
	case tensor.Int64:
		reduceTyped(result.AsInt64(), x.AsInt64(), shape, dim, mean)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return result
}

func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	out := make(tensor.Shape, 0, len(shape))
	for d, size := range shape {
		switch {
		case d != dim:
			out = append(out, size)
		case keepDim:
			out = append(out, 1)
		}
	}
	if len(out) == 0 {
		out = tensor.Shape{1}
	}
	return out
}

func reduceTyped[T number](dst, src []T, shape tensor.Shape, dim int, mean bool) {
	outer, n, inner := dimSplit(shape, dim)
	for o := 0; o < outer; o++ {
		for j := 0; j < inner; j++ {
			var acc T
			base := o*n*inner + j
			for k := 0; k < n; k++ {
				acc += src[base+k*inner]
			}
			if mean {
				acc /= T(n)
			}
			dst[o*inner+j] = acc
		}
	}
}

// Argmax returns int32 indices of the maximum along the given dimension.
// Ties resolve to the first occurrence.
func (c *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)

	outShape := reducedShape(shape, dim, false)
	result, err := tensor.NewRaw(outShape, tensor.Int32, c.device)
	if err != nil {
		panic(fmt.Sprintf("argmax: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		argmaxTyped(result.AsInt32(), x.AsFloat32(), shape, dim)
	case tensor.Float64:
		argmaxTyped(result.AsInt32(), x.AsFloat64(), shape, dim)
	case tensor.Int32:
		argmaxTyped(result.AsInt32(), x.AsInt32(), shape, dim)
	case tensor.Int64:
		argmaxTyped(result.AsInt32(), x.AsInt64(), shape, dim)
	default:
		panic(fmt.Sprintf("argmax: unsupported dtype %s", x.DType()))
	}
	return result
}

func argmaxTyped[T number](dst []int32, src []T, shape tensor.Shape, dim int) {
	outer, n, inner := dimSplit(shape, dim)
	for o := 0; o < outer; o++ {
		for j := 0; j < inner; j++ {
			base := o*n*inner + j
			best := src[base]
			bestIdx := int32(0)
			for k := 1; k < n; k++ {
				if v := src[base+k*inner]; v > best {
					best = v
					bestIdx = int32(k)
				}
			}
			dst[o*inner+j] = bestIdx
		}
	}
}
