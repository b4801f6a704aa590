package cpu

import (
	"fmt"
	"math"

	"github.com/helix-ml/helix/internal/tensor"
)

// Exp computes the element-wise exponential.
func (c *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unaryFloat("exp", x, math.Exp)
}

// Log computes the element-wise natural logarithm.
// Panics on non-positive values.
func (c *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unaryFloat("log", x, func(v float64) float64 {
		if v <= 0 {
			panic(fmt.Sprintf("log: non-positive value %g", v))
		}
		return math.Log(v)
	})
}

func (c *CPUBackend) unaryFloat(name string, x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), c.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(f(float64(v)))
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = f(v)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32/float64 supported)", name, x.DType()))
	}

	return result
}
