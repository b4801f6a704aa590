// Copyright 2025 Helix ML Project. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package genome reads genomic file formats and turns loci into
// training tensors.
//
// Supported inputs are FASTA (gzip-transparent), BED, and bigWig.
// ExtractLoci combines them: a window is centered on the midpoint of
// each locus, one-hot encoded from the FASTA, and paired with per-base
// signal from any number of bigWig tracks.
//
// Example:
//
//	backend := cpu.New()
//	fa, err := genome.ReadFASTA("hg38.fa.gz")
//	loci, err := genome.ReadBED("peaks.bed")
//	bw, err := genome.OpenBigWig("atac.bw")
//	ex, err := genome.ExtractLoci(fa, loci, []genome.SignalSource{bw},
//	    genome.ExtractOptions{InWindow: 2114, OutWindow: 1000}, backend)
package genome

import (
	"io"
	"math/rand"

	"github.com/helix-ml/helix/internal/bigwig"
	internalgenome "github.com/helix-ml/helix/internal/genome"
	"github.com/helix-ml/helix/tensor"
)

// FASTA is an in-memory FASTA file.
type FASTA = internalgenome.FASTA

// Locus is one BED interval. Coordinates are 0-based half-open.
type Locus = internalgenome.Locus

// SignalSource yields per-base signal values over a chromosome span.
type SignalSource = internalgenome.SignalSource

// ExtractOptions configure ExtractLoci.
type ExtractOptions = internalgenome.ExtractOptions

// Extraction is the result of ExtractLoci.
type Extraction[B tensor.Backend] = internalgenome.Extraction[B]

// BigWig is an open bigWig file. It satisfies SignalSource.
type BigWig = bigwig.File

// ReadFASTA reads the FASTA file at path, gzip-transparent.
func ReadFASTA(path string) (*FASTA, error) {
	return internalgenome.ReadFASTA(path)
}

// ParseFASTA parses FASTA records from r.
func ParseFASTA(r io.Reader) (*FASTA, error) {
	return internalgenome.ParseFASTA(r)
}

// ReadBED reads the BED file at path, gzip-transparent.
func ReadBED(path string) ([]Locus, error) {
	return internalgenome.ReadBED(path)
}

// ParseBED parses BED records from r.
func ParseBED(r io.Reader) ([]Locus, error) {
	return internalgenome.ParseBED(r)
}

// OpenBigWig opens the bigWig file at path.
func OpenBigWig(path string) (*BigWig, error) {
	return bigwig.Open(path)
}

// ExtractLoci turns loci into one-hot sequence tensors and, when signal
// sources are given, matching per-base signal tensors. See
// ExtractOptions for windowing and filtering.
func ExtractLoci[B tensor.Backend](fasta *FASTA, loci []Locus, signals []SignalSource, opts ExtractOptions, b B) (*Extraction[B], error) {
	return internalgenome.ExtractLoci(fasta, loci, signals, opts, b)
}

// Jitter trims the widened tensors from an Extraction with MaxJitter
// back to their core windows at a random per-row offset.
func Jitter[B tensor.Backend](ex *Extraction[B], inWindow, outWindow, maxJitter int, rng *rand.Rand) (x, y *tensor.Tensor[float32, B], err error) {
	return internalgenome.Jitter(ex, inWindow, outWindow, maxJitter, rng)
}
