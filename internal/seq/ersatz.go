package seq

import (
	"fmt"
	"math/rand"

	"github.com/helix-ml/helix/internal/tensor"
)

// dims extracts (n, A, L) from a 3D batch tensor.
func dims[B tensor.Backend](x *tensor.Tensor[float32, B]) (n, a, length int, err error) {
	shape := x.Shape()
	if len(shape) != 3 {
		return 0, 0, 0, fmt.Errorf("expected a [n, A, L] tensor, got shape %v", shape)
	}
	return shape[0], shape[1], shape[2], nil
}

// deepCopy makes an independent copy of a tensor (Clone is copy-on-write and
// shares the buffer, which surgery must not mutate through).
func deepCopy[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := tensor.Zeros[float32, B](x.Shape(), x.Backend())
	copy(out.Data(), x.Data())
	return out
}

// Substitute overwrites a motif into every sequence of a [n, A, L] batch,
// returning a new tensor. The motif is a [A, W] tensor (one-hot or PWM
// probabilities, both substitute verbatim). A negative start centers the
// motif: start = (L - W) / 2.
func Substitute[B tensor.Backend](x, motif *tensor.Tensor[float32, B], start int) (*tensor.Tensor[float32, B], error) {
	n, a, length, err := dims(x)
	if err != nil {
		return nil, fmt.Errorf("substitute: %w", err)
	}

	ms := motif.Shape()
	if len(ms) != 2 || ms[0] != a {
		return nil, fmt.Errorf("substitute: motif shape %v does not match alphabet dimension %d", ms, a)
	}
	w := ms[1]
	if w > length {
		return nil, fmt.Errorf("substitute: motif width %d exceeds sequence length %d", w, length)
	}
	if start < 0 {
		start = (length - w) / 2
	}
	if start+w > length {
		return nil, fmt.Errorf("substitute: motif of width %d at position %d exceeds sequence length %d", w, start, length)
	}

	out := deepCopy(x)
	dst := out.Data()
	src := motif.Data()
	for i := 0; i < n; i++ {
		base := i * a * length
		for r := 0; r < a; r++ {
			copy(dst[base+r*length+start:base+r*length+start+w], src[r*w:(r+1)*w])
		}
	}
	return out, nil
}

// Insert splices a motif into every sequence, growing length to L + W.
// A negative start inserts at the midpoint L / 2.
func Insert[B tensor.Backend](x, motif *tensor.Tensor[float32, B], start int) (*tensor.Tensor[float32, B], error) {
	n, a, length, err := dims(x)
	if err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}

	ms := motif.Shape()
	if len(ms) != 2 || ms[0] != a {
		return nil, fmt.Errorf("insert: motif shape %v does not match alphabet dimension %d", ms, a)
	}
	w := ms[1]
	if start < 0 {
		start = length / 2
	}
	if start > length {
		return nil, fmt.Errorf("insert: position %d exceeds sequence length %d", start, length)
	}

	newLen := length + w
	out := tensor.Zeros[float32, B](tensor.Shape{n, a, newLen}, x.Backend())
	dst := out.Data()
	src := x.Data()
	motifData := motif.Data()
	for i := 0; i < n; i++ {
		srcBase := i * a * length
		dstBase := i * a * newLen
		for r := 0; r < a; r++ {
			srcRow := src[srcBase+r*length : srcBase+(r+1)*length]
			dstRow := dst[dstBase+r*newLen : dstBase+(r+1)*newLen]
			copy(dstRow[:start], srcRow[:start])
			copy(dstRow[start:start+w], motifData[r*w:(r+1)*w])
			copy(dstRow[start+w:], srcRow[start:])
		}
	}
	return out, nil
}

// Delete removes columns [start, end) from every sequence.
func Delete[B tensor.Backend](x *tensor.Tensor[float32, B], start, end int) (*tensor.Tensor[float32, B], error) {
	n, a, length, err := dims(x)
	if err != nil {
		return nil, fmt.Errorf("delete: %w", err)
	}
	if start < 0 || end <= start || end > length {
		return nil, fmt.Errorf("delete: invalid span [%d, %d) for length %d", start, end, length)
	}
	if end-start == length {
		return nil, fmt.Errorf("delete: span [%d, %d) removes the whole sequence", start, end)
	}

	newLen := length - (end - start)
	out := tensor.Zeros[float32, B](tensor.Shape{n, a, newLen}, x.Backend())
	dst := out.Data()
	src := x.Data()
	for i := 0; i < n; i++ {
		srcBase := i * a * length
		dstBase := i * a * newLen
		for r := 0; r < a; r++ {
			srcRow := src[srcBase+r*length : srcBase+(r+1)*length]
			dstRow := dst[dstBase+r*newLen : dstBase+(r+1)*newLen]
			copy(dstRow[:start], srcRow[:start])
			copy(dstRow[start:], srcRow[end:])
		}
	}
	return out, nil
}

// Randomize replaces columns [start, end) of every sequence with uniform
// random one-hot columns drawn from rng.
func Randomize[B tensor.Backend](x *tensor.Tensor[float32, B], start, end int, rng *rand.Rand) (*tensor.Tensor[float32, B], error) {
	n, a, length, err := dims(x)
	if err != nil {
		return nil, fmt.Errorf("randomize: %w", err)
	}
	if start < 0 || end <= start || end > length {
		return nil, fmt.Errorf("randomize: invalid span [%d, %d) for length %d", start, end, length)
	}

	out := deepCopy(x)
	dst := out.Data()
	for i := 0; i < n; i++ {
		base := i * a * length
		for p := start; p < end; p++ {
			for r := 0; r < a; r++ {
				dst[base+r*length+p] = 0
			}
			dst[base+rng.Intn(a)*length+p] = 1
		}
	}
	return out, nil
}

// Shuffle permutes the columns in [start, end) of every sequence, with an
// independent permutation per sequence. A span of (0, 0) shuffles the whole
// sequence.
func Shuffle[B tensor.Backend](x *tensor.Tensor[float32, B], start, end int, rng *rand.Rand) (*tensor.Tensor[float32, B], error) {
	n, a, length, err := dims(x)
	if err != nil {
		return nil, fmt.Errorf("shuffle: %w", err)
	}
	if start == 0 && end == 0 {
		end = length
	}
	if start < 0 || end <= start || end > length {
		return nil, fmt.Errorf("shuffle: invalid span [%d, %d) for length %d", start, end, length)
	}

	out := deepCopy(x)
	dst := out.Data()
	src := x.Data()
	span := end - start
	for i := 0; i < n; i++ {
		perm := rng.Perm(span)
		base := i * a * length
		for r := 0; r < a; r++ {
			row := base + r*length
			for p, q := range perm {
				dst[row+start+p] = src[row+start+q]
			}
		}
	}
	return out, nil
}
