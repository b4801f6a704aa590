package cpu

import (
	"fmt"

	"github.com/helix-ml/helix/internal/parallel"
	"github.com/helix-ml/helix/internal/tensor"
)

// AddScalar adds a scalar to every element.
func (c *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return c.scalarOp("addscalar", opAdd, x, scalar)
}

// SubScalar subtracts a scalar from every element.
func (c *CPUBackend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return c.scalarOp("subscalar", opSub, x, scalar)
}

// MulScalar multiplies every element by a scalar.
func (c *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return c.scalarOp("mulscalar", opMul, x, scalar)
}

// DivScalar divides every element by a scalar.
func (c *CPUBackend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return c.scalarOp("divscalar", opDiv, x, scalar)
}

func (c *CPUBackend) scalarOp(name string, which binOp, x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), c.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	switch x.DType() {
	case tensor.Float32:
		scalarTyped[float32](c, name, which, result, x, scalar)
	case tensor.Float64:
		scalarTyped[float64](c, name, which, result, x, scalar)
	case tensor.Int32:
		scalarTyped[int32](c, name, which, result, x, scalar)
	case tensor.Int64:
		scalarTyped[int64](c, name, which, result, x, scalar)
	case tensor.Uint8:
		scalarTyped[uint8](c, name, which, result, x, scalar)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return result
}

func scalarTyped[T number](c *CPUBackend, name string, which binOp, out, x *tensor.RawTensor, scalar any) {
	s, ok := scalar.(T)
	if !ok {
		panic(fmt.Sprintf("%s: scalar type %T does not match tensor dtype %s", name, scalar, x.DType()))
	}

	dst := slice[T](out)
	src := slice[T](x)
	op := opFunc[T](which)
	parallel.For(len(dst), func(i int) {
		dst[i] = op(src[i], s)
	}, c.par)
}
