// Copyright 2025 Helix ML Project. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package motif reads and writes MEME motif files and scans one-hot
// sequences for motif occurrences.
//
// Position weight matrices are float32 tensors of shape
// [alphabet, width]. Scanning uses log2-odds scores against a
// background distribution, with p-values from the discretized score
// distribution the way FIMO computes them.
//
// Example:
//
//	backend := cpu.New()
//	ms, err := motif.ReadMEME("motifs.meme", backend)
//	sc, err := motif.NewScanner(ms, motif.ScannerOptions{BothStrands: true})
//	hits, err := sc.Scan(x)
package motif

import (
	"io"

	internalmotif "github.com/helix-ml/helix/internal/motif"
	"github.com/helix-ml/helix/seq"
	"github.com/helix-ml/helix/tensor"
)

// Motif is one position weight matrix with its MEME metadata.
type Motif[B tensor.Backend] = internalmotif.Motif[B]

// Motifs is an ordered collection sharing an alphabet and background.
type Motifs[B tensor.Backend] = internalmotif.Motifs[B]

// Hit is one motif occurrence found by a Scanner.
type Hit = internalmotif.Hit

// ScannerOptions configure NewScanner. Zero values select defaults: a
// p-value threshold of 1e-4, a pseudocount of 0.1, and 1000 bins for
// the score distribution.
type ScannerOptions = internalmotif.ScannerOptions

// Scanner finds motif occurrences in one-hot sequences.
type Scanner[B tensor.Backend] = internalmotif.Scanner[B]

// ReadMEME parses the minimal MEME format from path, gzip-transparent.
func ReadMEME[B tensor.Backend](path string, b B) (*Motifs[B], error) {
	return internalmotif.ReadMEME(path, b)
}

// ReadMEMEN is ReadMEME limited to the first n motifs.
func ReadMEMEN[B tensor.Backend](path string, n int, b B) (*Motifs[B], error) {
	return internalmotif.ReadMEMEN(path, n, b)
}

// WriteMEME writes ms in the minimal MEME format.
func WriteMEME[B tensor.Backend](w io.Writer, ms *Motifs[B]) error {
	return internalmotif.WriteMEME(w, ms)
}

// WriteMEMEFile writes ms to path.
func WriteMEMEFile[B tensor.Backend](path string, ms *Motifs[B]) error {
	return internalmotif.WriteMEMEFile(path, ms)
}

// NewScanner prepares scan matrices for every motif in ms.
func NewScanner[B tensor.Backend](ms *Motifs[B], opts ScannerOptions) (*Scanner[B], error) {
	return internalmotif.NewScanner(ms, opts)
}

// UniformBackground returns the uniform distribution over alphabet.
func UniformBackground(alphabet seq.Alphabet) []float64 {
	return internalmotif.UniformBackground(alphabet)
}
