// Copyright 2025 Helix ML Project. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package seq provides one-hot encoding and in-place sequence surgery
// for biological sequences.
//
// Sequences are encoded as float32 tensors of shape [alphabet, length]
// or batched [n, alphabet, length]. The surgery functions (Substitute,
// Insert, Delete, Randomize, Shuffle, DinucleotideShuffle) never mutate
// their input; they return edited copies.
//
// Example:
//
//	backend := cpu.New()
//	x, err := seq.OneHotBatch([]string{"ACGTACGT", "TTTTAAAA"}, seq.DNA, 'N', backend)
package seq

import (
	"math/rand"

	internalseq "github.com/helix-ml/helix/internal/seq"
	"github.com/helix-ml/helix/tensor"
)

// Alphabet is an ordered set of sequence characters. The order fixes
// the row order of one-hot encodings.
type Alphabet = internalseq.Alphabet

// Standard alphabets.
var (
	DNA     = internalseq.DNA
	RNA     = internalseq.RNA
	Protein = internalseq.Protein
)

// DefaultIgnore is the conventional unknown-base character; it encodes
// to an all-zero column.
const DefaultIgnore = internalseq.DefaultIgnore

// OneHot encodes a single sequence as a [alphabet, length] tensor.
// Characters equal to ignore produce all-zero columns; any other
// character outside the alphabet is an error.
func OneHot[B tensor.Backend](s string, alphabet Alphabet, ignore byte, b B) (*tensor.Tensor[float32, B], error) {
	return internalseq.OneHot(s, alphabet, ignore, b)
}

// OneHotBatch encodes equal-length sequences as [n, alphabet, length].
func OneHotBatch[B tensor.Backend](seqs []string, alphabet Alphabet, ignore byte, b B) (*tensor.Tensor[float32, B], error) {
	return internalseq.OneHotBatch(seqs, alphabet, ignore, b)
}

// Characters decodes a [alphabet, length] one-hot tensor back into a
// string, writing ignore for all-zero columns.
func Characters[B tensor.Backend](x *tensor.Tensor[float32, B], alphabet Alphabet, ignore byte) (string, error) {
	return internalseq.Characters(x, alphabet, ignore)
}

// RandomOneHot samples n one-hot sequences of the given length with
// per-character probabilities probs (uniform when nil). The same seed
// always yields the same sequences.
func RandomOneHot[B tensor.Backend](n, length int, alphabet Alphabet, probs []float64, seed uint64, b B) (*tensor.Tensor[float32, B], error) {
	return internalseq.RandomOneHot(n, length, alphabet, probs, seed, b)
}

// ReverseComplement reverse-complements one-hot sequences, shaped
// either [alphabet, length] or [n, alphabet, length]. The alphabet must
// be complementable (DNA or RNA).
func ReverseComplement[B tensor.Backend](x *tensor.Tensor[float32, B], alphabet Alphabet) (*tensor.Tensor[float32, B], error) {
	return internalseq.ReverseComplement(x, alphabet)
}

// Substitute writes a one-hot motif [alphabet, width] over a window of
// every sequence in x [n, alphabet, length]. start < 0 centers the
// motif.
func Substitute[B tensor.Backend](x, motif *tensor.Tensor[float32, B], start int) (*tensor.Tensor[float32, B], error) {
	return internalseq.Substitute(x, motif, start)
}

// Insert splices a one-hot motif into every sequence, growing length by
// the motif width. start < 0 inserts at the midpoint.
func Insert[B tensor.Backend](x, motif *tensor.Tensor[float32, B], start int) (*tensor.Tensor[float32, B], error) {
	return internalseq.Insert(x, motif, start)
}

// Delete removes positions [start, end) from every sequence.
func Delete[B tensor.Backend](x *tensor.Tensor[float32, B], start, end int) (*tensor.Tensor[float32, B], error) {
	return internalseq.Delete(x, start, end)
}

// Randomize replaces positions [start, end) with uniformly random
// one-hot columns drawn from rng.
func Randomize[B tensor.Backend](x *tensor.Tensor[float32, B], start, end int, rng *rand.Rand) (*tensor.Tensor[float32, B], error) {
	return internalseq.Randomize(x, start, end, rng)
}

// Shuffle permutes the columns in [start, end) of every sequence
// independently. start == end == 0 shuffles whole sequences.
func Shuffle[B tensor.Backend](x *tensor.Tensor[float32, B], start, end int, rng *rand.Rand) (*tensor.Tensor[float32, B], error) {
	return internalseq.Shuffle(x, start, end, rng)
}

// DinucleotideShuffle shuffles each sequence while preserving its exact
// dinucleotide counts, following the Altschul-Erickson Eulerian walk.
func DinucleotideShuffle[B tensor.Backend](x *tensor.Tensor[float32, B], rng *rand.Rand) (*tensor.Tensor[float32, B], error) {
	return internalseq.DinucleotideShuffle(x, rng)
}
