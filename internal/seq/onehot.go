package seq

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/helix-ml/helix/internal/tensor"
)

// OneHot encodes a sequence as a [A, L] float32 tensor where A is the
// alphabet size and L is the sequence length. Characters equal to ignore
// (case-insensitive) produce an all-zero column; any other character not in
// the alphabet is an error.
func OneHot[B tensor.Backend](s string, alphabet Alphabet, ignore byte, b B) (*tensor.Tensor[float32, B], error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("one-hot: empty sequence")
	}

	t := tensor.Zeros[float32, B](tensor.Shape{alphabet.Len(), len(s)}, b)
	if err := encodeInto(t.Data(), s, alphabet, ignore); err != nil {
		return nil, err
	}
	return t, nil
}

// OneHotBatch encodes equal-length sequences as a [n, A, L] tensor.
func OneHotBatch[B tensor.Backend](seqs []string, alphabet Alphabet, ignore byte, b B) (*tensor.Tensor[float32, B], error) {
	if len(seqs) == 0 {
		return nil, fmt.Errorf("one-hot: no sequences")
	}
	length := len(seqs[0])
	if length == 0 {
		return nil, fmt.Errorf("one-hot: empty sequence at index 0")
	}
	for i, s := range seqs {
		if len(s) != length {
			return nil, fmt.Errorf("one-hot: sequence %d has length %d, expected %d", i, len(s), length)
		}
	}

	a := alphabet.Len()
	t := tensor.Zeros[float32, B](tensor.Shape{len(seqs), a, length}, b)
	data := t.Data()
	for i, s := range seqs {
		if err := encodeInto(data[i*a*length:(i+1)*a*length], s, alphabet, ignore); err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
	}
	return t, nil
}

// encodeInto writes the one-hot encoding of s into a zeroed [A, L] block.
func encodeInto(dst []float32, s string, alphabet Alphabet, ignore byte) error {
	length := len(s)
	for p := 0; p < length; p++ {
		c := s[p]
		idx := alphabet.Index(c)
		if idx < 0 {
			if upper(c) == upper(ignore) {
				continue
			}
			return fmt.Errorf("one-hot: character %q at position %d not in alphabet %q", c, p, alphabet)
		}
		dst[idx*length+p] = 1
	}
	return nil
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// Characters decodes a one-hot (or PWM-like) [A, L] tensor back into a
// string, taking the highest-scoring character at each position. All-zero
// columns decode to the ignore character.
func Characters[B tensor.Backend](x *tensor.Tensor[float32, B], alphabet Alphabet, ignore byte) (string, error) {
	shape := x.Shape()
	if len(shape) != 2 || shape[0] != alphabet.Len() {
		return "", fmt.Errorf("characters: expected shape [%d, L], got %v", alphabet.Len(), shape)
	}

	a, length := shape[0], shape[1]
	data := x.Data()
	out := make([]byte, length)
	for p := 0; p < length; p++ {
		best, bestRow := float32(0), -1
		for r := 0; r < a; r++ {
			if v := data[r*length+p]; v > best {
				best, bestRow = v, r
			}
		}
		if bestRow < 0 {
			out[p] = ignore
		} else {
			out[p] = alphabet[bestRow]
		}
	}
	return string(out), nil
}

// RandomOneHot generates n random one-hot sequences of the given length as
// a [n, A, length] tensor. Characters are drawn per position from probs
// (uniform when nil) using a deterministic categorical sampler, so a pinned
// seed reproduces the same tensor.
func RandomOneHot[B tensor.Backend](n, length int, alphabet Alphabet, probs []float64, seed uint64, b B) (*tensor.Tensor[float32, B], error) {
	if n <= 0 || length <= 0 {
		return nil, fmt.Errorf("random one-hot: n and length must be positive, got %d and %d", n, length)
	}

	a := alphabet.Len()
	if probs == nil {
		probs = make([]float64, a)
		for i := range probs {
			probs[i] = 1.0 / float64(a)
		}
	}
	if len(probs) != a {
		return nil, fmt.Errorf("random one-hot: got %d probabilities for alphabet of size %d", len(probs), a)
	}

	cat := distuv.NewCategorical(probs, rand.NewSource(seed))

	t := tensor.Zeros[float32, B](tensor.Shape{n, a, length}, b)
	data := t.Data()
	for i := 0; i < n; i++ {
		base := i * a * length
		for p := 0; p < length; p++ {
			row := int(cat.Rand())
			data[base+row*length+p] = 1
		}
	}
	return t, nil
}

// ReverseComplement returns the reverse complement of a [A, L] or [n, A, L]
// one-hot tensor. The alphabet must be complement-symmetric (DNA or RNA).
func ReverseComplement[B tensor.Backend](x *tensor.Tensor[float32, B], alphabet Alphabet) (*tensor.Tensor[float32, B], error) {
	if !alphabet.Complementable() {
		return nil, fmt.Errorf("reverse complement: alphabet %q has no complement pairing", alphabet)
	}

	shape := x.Shape()
	var n, a, length int
	switch len(shape) {
	case 2:
		n, a, length = 1, shape[0], shape[1]
	case 3:
		n, a, length = shape[0], shape[1], shape[2]
	default:
		return nil, fmt.Errorf("reverse complement: expected 2D or 3D tensor, got %v", shape)
	}
	if a != alphabet.Len() {
		return nil, fmt.Errorf("reverse complement: alphabet dimension is %d, expected %d", a, alphabet.Len())
	}

	out := tensor.Zeros[float32, B](shape, x.Backend())
	src := x.Data()
	dst := out.Data()
	for i := 0; i < n; i++ {
		base := i * a * length
		for r := 0; r < a; r++ {
			for p := 0; p < length; p++ {
				// Complement pairs row r with row a-1-r; reverse flips p.
				dst[base+(a-1-r)*length+(length-1-p)] = src[base+r*length+p]
			}
		}
	}
	return out, nil
}
