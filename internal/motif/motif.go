// Package motif provides position-weight matrices, MEME format I/O, and
// PWM scanning over one-hot encoded sequences.
package motif

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/helix-ml/helix/internal/seq"
	"github.com/helix-ml/helix/internal/tensor"
)

// Motif is a named position-weight matrix. PWM has shape [A, W] with rows
// following the alphabet order and columns summing to approximately one.
type Motif[B tensor.Backend] struct {
	Name    string
	AltName string
	PWM     *tensor.Tensor[float32, B]
	NSites  int
	EValue  float64
}

// Width returns the number of positions in the motif.
func (m *Motif[B]) Width() int {
	return m.PWM.Shape()[1]
}

// InformationContent returns the total information content in bits relative
// to the background distribution: sum over positions of p * log2(p / bg).
func (m *Motif[B]) InformationContent(background []float64) float64 {
	shape := m.PWM.Shape()
	a, w := shape[0], shape[1]
	data := m.PWM.Data()

	perPos := make([]float64, w)
	for j := 0; j < w; j++ {
		ic := 0.0
		for r := 0; r < a; r++ {
			p := float64(data[r*w+j])
			if p <= 0 {
				continue
			}
			ic += p * math.Log2(p/background[r])
		}
		perPos[j] = ic
	}
	return floats.Sum(perPos)
}

// LogOdds returns the log2-odds matrix log2((pwm + pseudocount) / background)
// used for scanning. background must have one entry per alphabet row.
func (m *Motif[B]) LogOdds(background []float64, pseudocount float32) (*tensor.Tensor[float32, B], error) {
	shape := m.PWM.Shape()
	a := shape[0]
	if len(background) != a {
		return nil, fmt.Errorf("log odds: got %d background frequencies for alphabet dimension %d", len(background), a)
	}

	bg := make([]float32, a)
	for i, v := range background {
		if v <= 0 {
			return nil, fmt.Errorf("log odds: non-positive background frequency %g for row %d", v, i)
		}
		bg[i] = float32(v)
	}
	w := shape[1]
	for i, v := range m.PWM.Data() {
		if v+pseudocount <= 0 {
			return nil, fmt.Errorf("log odds: probability %g at row %d position %d needs a positive pseudocount, got %g",
				v, i/w, i%w, pseudocount)
		}
	}

	bgT, err := tensor.FromSlice(bg, tensor.Shape{a, 1}, m.PWM.Backend())
	if err != nil {
		return nil, err
	}

	// log2(x) = ln(x) / ln(2); Div broadcasts bg across every column.
	lo := m.PWM.AddScalar(pseudocount).Div(bgT).Log().MulScalar(float32(1 / math.Ln2))
	return lo, nil
}

// ReverseComplement returns the motif for the opposite strand. The PWM
// alphabet must be complement-symmetric (DNA or RNA).
func (m *Motif[B]) ReverseComplement(alphabet seq.Alphabet) (*Motif[B], error) {
	shape := m.PWM.Shape()
	a, w := shape[0], shape[1]
	if !alphabet.Complementable() || a != alphabet.Len() {
		return nil, fmt.Errorf("reverse complement: alphabet %q does not pair with a %d-row PWM", alphabet, a)
	}

	rc := tensor.Zeros[float32, B](tensor.Shape{a, w}, m.PWM.Backend())
	src := m.PWM.Data()
	dst := rc.Data()
	for r := 0; r < a; r++ {
		for j := 0; j < w; j++ {
			dst[(a-1-r)*w+(w-1-j)] = src[r*w+j]
		}
	}

	return &Motif[B]{
		Name:    m.Name,
		AltName: m.AltName,
		PWM:     rc,
		NSites:  m.NSites,
		EValue:  m.EValue,
	}, nil
}

// Motifs is an ordered collection of motifs with the file-level metadata of
// a MEME file: the alphabet and the background letter frequencies.
type Motifs[B tensor.Backend] struct {
	Alphabet   seq.Alphabet
	Background []float64

	list  []*Motif[B]
	index map[string]int
}

// Len returns the number of motifs.
func (ms *Motifs[B]) Len() int {
	return len(ms.list)
}

// All returns the motifs in file order.
func (ms *Motifs[B]) All() []*Motif[B] {
	return ms.list
}

// Get looks a motif up by its primary name.
func (ms *Motifs[B]) Get(name string) (*Motif[B], bool) {
	i, ok := ms.index[name]
	if !ok {
		return nil, false
	}
	return ms.list[i], true
}

func (ms *Motifs[B]) add(m *Motif[B]) {
	if ms.index == nil {
		ms.index = make(map[string]int)
	}
	ms.index[m.Name] = len(ms.list)
	ms.list = append(ms.list, m)
}

// UniformBackground returns a flat background for the alphabet.
func UniformBackground(alphabet seq.Alphabet) []float64 {
	bg := make([]float64, alphabet.Len())
	for i := range bg {
		bg[i] = 1.0 / float64(len(bg))
	}
	return bg
}
