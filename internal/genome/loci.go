package genome

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/helix-ml/helix/internal/seq"
	"github.com/helix-ml/helix/internal/tensor"
)

// SignalSource yields per-base signal values over a chromosome span.
// bigwig.File satisfies it; in-memory tracks can too.
type SignalSource interface {
	Values(chrom string, start, end int) ([]float32, error)
}

// ExtractOptions configure ExtractLoci. Zero values select the defaults
// noted per field.
type ExtractOptions struct {
	// InWindow is the sequence window width centered on each locus
	// midpoint. Defaults to 2114.
	InWindow int
	// OutWindow is the signal window width centered the same way.
	// Defaults to 1000.
	OutWindow int
	// MaxJitter widens both windows by this many bases on each side so a
	// training loop can jitter without re-extracting. Defaults to 0.
	MaxJitter int
	// MinCounts and MaxCounts drop loci whose summed target-track signal
	// over the central OutWindow falls outside [MinCounts, MaxCounts].
	// MaxCounts of 0 means unbounded. Only applied when signals are given.
	MinCounts float64
	MaxCounts float64
	// TargetIdx selects the signal track the count filters read.
	TargetIdx int
	// Alphabet for one-hot encoding. Defaults to seq.DNA.
	Alphabet seq.Alphabet
	// IgnoreChar encodes to an all-zero column. Defaults to 'N'.
	IgnoreChar byte
}

func (o *ExtractOptions) setDefaults() {
	if o.InWindow == 0 {
		o.InWindow = 2114
	}
	if o.OutWindow == 0 {
		o.OutWindow = 1000
	}
	if o.MaxCounts == 0 {
		o.MaxCounts = math.Inf(1)
	}
	if o.Alphabet == nil {
		o.Alphabet = seq.DNA
	}
	if o.IgnoreChar == 0 {
		o.IgnoreChar = seq.DefaultIgnore
	}
}

// Extraction is the result of ExtractLoci.
type Extraction[B tensor.Backend] struct {
	// X holds one-hot sequences, shape [n, A, InWindow + 2*MaxJitter].
	X *tensor.Tensor[float32, B]
	// Y holds signal values, shape [n, tracks, OutWindow + 2*MaxJitter].
	// Nil when no signal sources were given.
	Y *tensor.Tensor[float32, B]
	// Loci are the loci actually extracted, in input order.
	Loci []Locus
	// Dropped counts the input loci filtered out (window out of bounds,
	// missing counts, or counts outside the configured range).
	Dropped int
}

// ExtractLoci turns genomic loci into training tensors: a window of
// InWindow + 2*MaxJitter bases is centered on the midpoint of each locus
// and one-hot encoded from fasta, and for each signal source a window of
// OutWindow + 2*MaxJitter values is extracted the same way. Loci whose
// widened window leaves the chromosome are dropped, as are loci failing
// the count filters. A locus on an unknown chromosome is an error.
func ExtractLoci[B tensor.Backend](fasta *FASTA, loci []Locus, signals []SignalSource, opts ExtractOptions, b B) (*Extraction[B], error) {
	opts.setDefaults()

	inFlank := opts.InWindow/2 + opts.MaxJitter
	outFlank := opts.OutWindow/2 + opts.MaxJitter
	inWidth := opts.InWindow + 2*opts.MaxJitter
	outWidth := opts.OutWindow + 2*opts.MaxJitter

	if len(signals) > 0 && (opts.TargetIdx < 0 || opts.TargetIdx >= len(signals)) {
		return nil, fmt.Errorf("extract loci: target index %d out of range for %d signals", opts.TargetIdx, len(signals))
	}

	type row struct {
		locus Locus
		x     []float32   // [A * inWidth]
		y     [][]float32 // per track, [outWidth]
	}

	var rows []row
	dropped := 0
	a := opts.Alphabet.Len()

	for _, l := range loci {
		chromSeq, ok := fasta.Get(l.Chrom)
		if !ok {
			return nil, fmt.Errorf("extract loci: chromosome %q not in FASTA", l.Chrom)
		}

		mid := l.Mid()
		inStart, inEnd := mid-inFlank, mid-inFlank+inWidth
		outStart, outEnd := mid-outFlank, mid-outFlank+outWidth
		if inStart < 0 || inEnd > len(chromSeq) || (len(signals) > 0 && outStart < 0) {
			dropped++
			continue
		}

		r := row{locus: l, x: make([]float32, a*inWidth)}
		window := chromSeq[inStart:inEnd]
		if err := oneHotInto(r.x, window, opts.Alphabet, opts.IgnoreChar, inWidth); err != nil {
			return nil, fmt.Errorf("extract loci: %s: %w", l, err)
		}

		if len(signals) > 0 {
			keep := true
			for ti, src := range signals {
				vals, err := src.Values(l.Chrom, outStart, outEnd)
				if err != nil {
					return nil, fmt.Errorf("extract loci: %s: track %d: %w", l, ti, err)
				}
				if ti == opts.TargetIdx {
					counts := 0.0
					lo, hi := opts.MaxJitter, opts.MaxJitter+opts.OutWindow
					for _, v := range vals[lo:hi] {
						counts += float64(v)
					}
					if counts < opts.MinCounts || counts > opts.MaxCounts {
						keep = false
						break
					}
				}
				r.y = append(r.y, vals)
			}
			if !keep {
				dropped++
				continue
			}
		}

		rows = append(rows, r)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("extract loci: all %d loci were dropped", len(loci))
	}

	n := len(rows)
	ex := &Extraction[B]{Dropped: dropped}
	ex.X = tensor.Zeros[float32, B](tensor.Shape{n, a, inWidth}, b)
	xd := ex.X.Data()
	for i, r := range rows {
		copy(xd[i*a*inWidth:(i+1)*a*inWidth], r.x)
		ex.Loci = append(ex.Loci, r.locus)
	}

	if len(signals) > 0 {
		ex.Y = tensor.Zeros[float32, B](tensor.Shape{n, len(signals), outWidth}, b)
		yd := ex.Y.Data()
		for i, r := range rows {
			for ti, vals := range r.y {
				copy(yd[(i*len(signals)+ti)*outWidth:(i*len(signals)+ti+1)*outWidth], vals)
			}
		}
	}

	return ex, nil
}

// oneHotInto encodes window into a zeroed [A, width] block.
func oneHotInto(dst []float32, window []byte, alphabet seq.Alphabet, ignore byte, width int) error {
	for p, c := range window {
		idx := alphabet.Index(c)
		if idx < 0 {
			if c == ignore || c+('a'-'A') == ignore || c-('a'-'A') == ignore {
				continue
			}
			return fmt.Errorf("character %q at offset %d not in alphabet %q", c, p, alphabet)
		}
		dst[idx*width+p] = 1
	}
	return nil
}

// Jitter shifts each extracted window by a random offset in
// [-maxJitter, maxJitter], trimming the widened tensors produced by
// ExtractLoci with MaxJitter > 0 back to their core widths.
func Jitter[B tensor.Backend](ex *Extraction[B], inWindow, outWindow, maxJitter int, rng *rand.Rand) (x, y *tensor.Tensor[float32, B], err error) {
	xs := ex.X.Shape()
	if xs[2] != inWindow+2*maxJitter {
		return nil, nil, fmt.Errorf("jitter: X width %d does not match in-window %d with jitter %d", xs[2], inWindow, maxJitter)
	}
	if ex.Y != nil {
		if ys := ex.Y.Shape(); ys[2] != outWindow+2*maxJitter {
			return nil, nil, fmt.Errorf("jitter: Y width %d does not match out-window %d with jitter %d", ys[2], outWindow, maxJitter)
		}
	}

	n, a := xs[0], xs[1]
	x = tensor.Zeros[float32, B](tensor.Shape{n, a, inWindow}, ex.X.Backend())
	srcX := ex.X.Data()
	dstX := x.Data()

	var srcY, dstY []float32
	tracks := 0
	if ex.Y != nil {
		tracks = ex.Y.Shape()[1]
		y = tensor.Zeros[float32, B](tensor.Shape{n, tracks, outWindow}, ex.Y.Backend())
		srcY = ex.Y.Data()
		dstY = y.Data()
	}

	wideIn := inWindow + 2*maxJitter
	wideOut := outWindow + 2*maxJitter
	for i := 0; i < n; i++ {
		off := 0
		if maxJitter > 0 {
			off = rng.Intn(2*maxJitter + 1)
		}
		for r := 0; r < a; r++ {
			src := srcX[(i*a+r)*wideIn:]
			copy(dstX[(i*a+r)*inWindow:(i*a+r+1)*inWindow], src[off:off+inWindow])
		}
		for t := 0; t < tracks; t++ {
			src := srcY[(i*tracks+t)*wideOut:]
			copy(dstY[(i*tracks+t)*outWindow:(i*tracks+t+1)*outWindow], src[off:off+outWindow])
		}
	}
	return x, y, nil
}
