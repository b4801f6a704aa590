package seq

import (
	"fmt"
	"math/rand"

	"github.com/helix-ml/helix/internal/tensor"
)

// DinucleotideShuffle shuffles each sequence of a strictly one-hot
// [n, A, L] batch while preserving its exact dinucleotide counts, by
// walking a shuffled Eulerian path over the dinucleotide transition graph
// (Altschul-Erickson). The last outgoing edge of every character is kept in
// place so the walk always terminates at the original final character.
func DinucleotideShuffle[B tensor.Backend](x *tensor.Tensor[float32, B], rng *rand.Rand) (*tensor.Tensor[float32, B], error) {
	n, a, length, err := dims(x)
	if err != nil {
		return nil, fmt.Errorf("dinucleotide shuffle: %w", err)
	}
	if length < 2 {
		return nil, fmt.Errorf("dinucleotide shuffle: sequence length %d too short", length)
	}

	out := tensor.Zeros[float32, B](x.Shape(), x.Backend())
	src := x.Data()
	dst := out.Data()

	tokens := make([]int, length)
	shuffled := make([]int, length)
	for i := 0; i < n; i++ {
		base := i * a * length
		if err := decodeTokens(tokens, src[base:base+a*length], a, length); err != nil {
			return nil, fmt.Errorf("dinucleotide shuffle: sequence %d: %w", i, err)
		}

		shuffleTokens(shuffled, tokens, a, rng)

		for p, tok := range shuffled {
			dst[base+tok*length+p] = 1
		}
	}
	return out, nil
}

// decodeTokens extracts the character index per position from a strictly
// one-hot [A, L] block.
func decodeTokens(tokens []int, block []float32, a, length int) error {
	for p := 0; p < length; p++ {
		tok := -1
		for r := 0; r < a; r++ {
			v := block[r*length+p]
			switch {
			case v == 0:
			case v == 1 && tok < 0:
				tok = r
			default:
				return fmt.Errorf("position %d is not strictly one-hot", p)
			}
		}
		if tok < 0 {
			return fmt.Errorf("position %d is all zero", p)
		}
		tokens[p] = tok
	}
	return nil
}

// shuffleTokens writes a dinucleotide-preserving shuffle of tokens into out.
func shuffleTokens(out, tokens []int, a int, rng *rand.Rand) {
	length := len(tokens)

	// nextInds[t] lists the positions that follow each occurrence of t.
	nextInds := make([][]int, a)
	for p := 0; p < length-1; p++ {
		t := tokens[p]
		nextInds[t] = append(nextInds[t], p+1)
	}

	// Shuffle every successor list except its final entry; keeping the last
	// edge fixed guarantees the walk reaches the original terminal token.
	for t := 0; t < a; t++ {
		inds := nextInds[t]
		for j := len(inds) - 2; j > 0; j-- {
			k := rng.Intn(j + 1)
			inds[j], inds[k] = inds[k], inds[j]
		}
	}

	counters := make([]int, a)
	pos := 0
	out[0] = tokens[0]
	for p := 1; p < length; p++ {
		t := tokens[pos]
		pos = nextInds[t][counters[t]]
		counters[t]++
		out[p] = tokens[pos]
	}
}
