package motif

import (
	"fmt"
	"math"
	"sort"

	"github.com/helix-ml/helix/internal/seq"
	"github.com/helix-ml/helix/internal/tensor"
)

// Hit is a single motif occurrence in a scanned sequence.
type Hit struct {
	Motif  string
	Seq    int     // index into the scanned batch
	Pos    int     // 0-based start position on the forward strand
	Strand byte    // '+' or '-'
	Score  float64 // log2-odds score
	P      float64 // p-value of the score under the background
}

// scanMatrix is a prepared log-odds matrix with its score p-value table.
type scanMatrix struct {
	name    string
	strand  byte
	width   int
	logodds []float64 // [A * W], alphabet-major

	// Score discretization for the p-value lookup. Scores are discretized
	// per column against colMin, the same way the table is built, so an
	// observed window always lands on the bin that carries its mass.
	scale   float64
	colMin  []float64 // per-column minimum log-odds
	pvalues []float64 // survival function over discretized scores
}

// ScannerOptions configure a Scanner.
type ScannerOptions struct {
	// PThreshold keeps hits with P <= PThreshold. Defaults to 1e-4.
	PThreshold float64
	// Pseudocount added to PWM probabilities before taking log odds.
	Pseudocount float32
	// BothStrands also scans the reverse complement of each motif.
	BothStrands bool
	// Bins controls the score discretization of the p-value tables.
	Bins int
}

// Scanner finds motif occurrences in one-hot encoded sequences, reporting
// log2-odds scores with p-values computed the way FIMO does: the exact
// distribution of scores under the background, over a discretized grid.
type Scanner[B tensor.Backend] struct {
	alphabet  seq.Alphabet
	threshold float64
	matrices  []scanMatrix
}

// NewScanner prepares a scanner for the given motifs.
func NewScanner[B tensor.Backend](ms *Motifs[B], opts ScannerOptions) (*Scanner[B], error) {
	if opts.PThreshold == 0 {
		opts.PThreshold = 1e-4
	}
	if opts.Pseudocount == 0 {
		opts.Pseudocount = 0.1
	}
	if opts.Bins == 0 {
		opts.Bins = 1000
	}

	s := &Scanner[B]{
		alphabet:  ms.Alphabet,
		threshold: opts.PThreshold,
	}

	for _, m := range ms.All() {
		mats := []*Motif[B]{m}
		strands := []byte{'+'}
		if opts.BothStrands {
			rc, err := m.ReverseComplement(ms.Alphabet)
			if err != nil {
				return nil, fmt.Errorf("scanner: %w", err)
			}
			mats = append(mats, rc)
			strands = append(strands, '-')
		}

		for i, mm := range mats {
			lo, err := mm.LogOdds(ms.Background, opts.Pseudocount)
			if err != nil {
				return nil, fmt.Errorf("scanner: motif %s: %w", m.Name, err)
			}
			sm := prepareMatrix(m.Name, strands[i], lo, ms.Background, opts.Bins)
			s.matrices = append(s.matrices, sm)
		}
	}
	return s, nil
}

// prepareMatrix discretizes the log-odds matrix and computes the exact
// score distribution under the background by dynamic programming, one
// column at a time.
func prepareMatrix[B tensor.Backend](name string, strand byte, lo *tensor.Tensor[float32, B], background []float64, bins int) scanMatrix {
	shape := lo.Shape()
	a, w := shape[0], shape[1]
	data := lo.Data()

	logodds := make([]float64, a*w)
	for i, v := range data {
		logodds[i] = float64(v)
	}

	// Per-column minima/maxima define the achievable score range.
	minScore, maxScore := 0.0, 0.0
	colMin := make([]float64, w)
	for j := 0; j < w; j++ {
		cLo, cHi := math.Inf(1), math.Inf(-1)
		for r := 0; r < a; r++ {
			v := logodds[r*w+j]
			cLo = math.Min(cLo, v)
			cHi = math.Max(cHi, v)
		}
		colMin[j] = cLo
		minScore += cLo
		maxScore += cHi
	}

	scale := 1.0
	if maxScore > minScore {
		scale = float64(bins*w) / (maxScore - minScore)
	}

	// ints[r*w+j] is the discretized per-column score above the column
	// minimum; the DP convolves the per-column distributions.
	ints := make([]int, a*w)
	total := 0
	for j := 0; j < w; j++ {
		hi := 0
		for r := 0; r < a; r++ {
			v := int(math.Round((logodds[r*w+j] - colMin[j]) * scale))
			ints[r*w+j] = v
			hi = max(hi, v)
		}
		total += hi
	}

	dist := make([]float64, total+1)
	dist[0] = 1
	reach := 0
	next := make([]float64, total+1)
	for j := 0; j < w; j++ {
		hi := 0
		for r := 0; r < a; r++ {
			hi = max(hi, ints[r*w+j])
		}
		for i := range next[:reach+hi+1] {
			next[i] = 0
		}
		for s := 0; s <= reach; s++ {
			if dist[s] == 0 {
				continue
			}
			for r := 0; r < a; r++ {
				next[s+ints[r*w+j]] += dist[s] * background[r]
			}
		}
		reach += hi
		copy(dist[:reach+1], next[:reach+1])
	}

	// Survival function: P(score >= s).
	pvalues := make([]float64, total+2)
	acc := 0.0
	for s := total; s >= 0; s-- {
		acc += dist[s]
		pvalues[s] = math.Min(acc, 1)
	}

	return scanMatrix{
		name:    name,
		strand:  strand,
		width:   w,
		logodds: logodds,
		scale:   scale,
		colMin:  colMin,
		pvalues: pvalues,
	}
}

// pvalueAt looks up the survival probability of a discretized score sum.
func (sm *scanMatrix) pvalueAt(idx int) float64 {
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sm.pvalues) {
		idx = len(sm.pvalues) - 1
	}
	return sm.pvalues[idx]
}

// Scan finds all hits with P <= threshold in a [n, A, L] one-hot batch.
// Hits are ordered by sequence, then position, then motif.
func (s *Scanner[B]) Scan(x *tensor.Tensor[float32, B]) ([]Hit, error) {
	shape := x.Shape()
	if len(shape) != 3 || shape[1] != s.alphabet.Len() {
		return nil, fmt.Errorf("scan: expected a [n, %d, L] tensor, got %v", s.alphabet.Len(), shape)
	}
	n, a, length := shape[0], shape[1], shape[2]
	data := x.Data()

	var hits []Hit
	for i := 0; i < n; i++ {
		block := data[i*a*length : (i+1)*a*length]
		for mi := range s.matrices {
			sm := &s.matrices[mi]
			if sm.width > length {
				continue
			}
			for p := 0; p+sm.width <= length; p++ {
				score := 0.0
				idx := 0
				for j := 0; j < sm.width; j++ {
					col := 0.0
					for r := 0; r < a; r++ {
						if v := block[r*length+p+j]; v != 0 {
							col += sm.logodds[r*sm.width+j] * float64(v)
						}
					}
					score += col
					idx += int(math.Round((col - sm.colMin[j]) * sm.scale))
				}
				if pv := sm.pvalueAt(idx); pv <= s.threshold {
					hits = append(hits, Hit{
						Motif:  sm.name,
						Seq:    i,
						Pos:    p,
						Strand: sm.strand,
						Score:  score,
						P:      pv,
					})
				}
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Seq != hits[j].Seq {
			return hits[i].Seq < hits[j].Seq
		}
		if hits[i].Pos != hits[j].Pos {
			return hits[i].Pos < hits[j].Pos
		}
		return hits[i].Motif < hits[j].Motif
	})
	return hits, nil
}
