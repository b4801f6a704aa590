package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err) // Shape validation should prevent this
	}

	// Data is already zero-initialized by make()
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, one[T](), b)
}

// Full creates a tensor filled with a specific value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a float tensor with values drawn from N(0, 1) using the
// given source. Uses the Box-Muller transform; math/rand is intentional,
// reproducibility for pinned seeds matters more than crypto strength here.
func Randn[T DType, B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()

	var dummy T
	switch any(dummy).(type) {
	case float32:
		dst := any(data).([]float32)
		for i := 0; i < len(dst); i += 2 {
			z0, z1 := boxMuller(rng)
			dst[i] = float32(z0)
			if i+1 < len(dst) {
				dst[i+1] = float32(z1)
			}
		}
	case float64:
		dst := any(data).([]float64)
		for i := 0; i < len(dst); i += 2 {
			z0, z1 := boxMuller(rng)
			dst[i] = z0
			if i+1 < len(dst) {
				dst[i+1] = z1
			}
		}
	default:
		panic("Randn only supports float32 and float64 types")
	}
	return t
}

// Rand creates a float tensor with values uniformly distributed in [0, 1).
func Rand[T DType, B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()

	var dummy T
	switch any(dummy).(type) {
	case float32:
		dst := any(data).([]float32)
		for i := range dst {
			dst[i] = rng.Float32()
		}
	case float64:
		dst := any(data).([]float64)
		for i := range dst {
			dst[i] = rng.Float64()
		}
	default:
		panic("Rand only supports float32 and float64 types")
	}
	return t
}

func boxMuller(rng *rand.Rand) (float64, float64) {
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	r := math.Sqrt(-2.0 * math.Log(u1))
	return r * math.Cos(2.0*math.Pi*u2), r * math.Sin(2.0*math.Pi*u2)
}

// one returns the unit value for the type.
func one[T DType]() T {
	var dummy T
	var v any
	switch any(dummy).(type) {
	case float32:
		v = float32(1)
	case float64:
		v = float64(1)
	case int32:
		v = int32(1)
	case int64:
		v = int64(1)
	case uint8:
		v = uint8(1)
	case bool:
		v = true
	}
	return v.(T)
}
