package predict

import (
	"fmt"

	"github.com/helix-ml/helix/internal/tensor"
)

// HypotheticalAttributions projects DeepLIFT/SHAP-style multipliers into
// per-character attribution values for one-hot encoded sequences. Choosing
// one character at a position means not choosing the others, so the
// contribution of placing character i at a position is the multiplier for i
// minus the contribution of the reference characters being replaced:
//
//	out[n, i, l] = mult[n, i, l] - sum_r ref[n, r, l] * mult[n, r, l]
//
// multipliers and references have shape [n, A, L]; references are usually
// shuffled versions of the explained sequences (seq.DinucleotideShuffle
// preserves the dinucleotide composition, which is the customary choice).
// Averaging the result over several references per sequence is left to the
// caller.
func HypotheticalAttributions[B tensor.Backend](multipliers, references *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	ms, rs := multipliers.Shape(), references.Shape()
	if len(ms) != 3 {
		return nil, fmt.Errorf("hypothetical attributions: multipliers must be [n, A, L], got %v", ms)
	}
	if !ms.Equal(rs) {
		return nil, fmt.Errorf("hypothetical attributions: multipliers %v and references %v differ in shape", ms, rs)
	}

	// The reference term is shared across hypothetical characters, so it
	// reduces to one broadcast subtraction.
	refContrib := references.Mul(multipliers).SumDim(1, true)
	return multipliers.Sub(refContrib), nil
}
