// Package main provides the Helix CLI.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/helix-ml/helix/backend/cpu"
	"github.com/helix-ml/helix/genome"
	"github.com/helix-ml/helix/internal/npy"
	"github.com/helix-ml/helix/motif"
	"github.com/helix-ml/helix/seq"
	"github.com/helix-ml/helix/tensor"
	"gopkg.in/yaml.v3"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("Helix %s\n", version)
	case "motifs":
		err = runMotifs(os.Args[2:])
	case "scan":
		err = runScan(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "helix: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Helix - Genomic Sequence Analysis for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version                      Show version")
	fmt.Println("  motifs <file.meme>           List the motifs in a MEME file")
	fmt.Println("  scan -motifs f.meme -fasta g.fa [-p 1e-4] [-o hits.tsv]")
	fmt.Println("                               Scan FASTA sequences for motif occurrences")
	fmt.Println("  extract -config c.yaml -out dir/")
	fmt.Println("                               Extract loci into .npy training tensors")
}

func runMotifs(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: helix motifs <file.meme>")
	}

	ms, err := motif.ReadMEME(args[0], cpu.New())
	if err != nil {
		return err
	}
	bg := ms.Background
	fmt.Printf("alphabet %s, %d motifs\n", ms.Alphabet, ms.Len())
	for _, m := range ms.All() {
		fmt.Printf("%s\twidth=%d\tic=%.2f bits\n", m.Name, m.Width(), m.InformationContent(bg))
	}
	return nil
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	memePath := fs.String("motifs", "", "MEME motif file (required)")
	fastaPath := fs.String("fasta", "", "FASTA file of sequences to scan (required)")
	threshold := fs.Float64("p", 0, "p-value threshold (default 1e-4)")
	outPath := fs.String("o", "", "TSV output file (default stdout)")
	bothStrands := fs.Bool("both-strands", true, "scan the reverse complement too")
	fs.Parse(args)
	if *memePath == "" || *fastaPath == "" {
		return fmt.Errorf("scan: -motifs and -fasta are required")
	}

	b := cpu.New()
	ms, err := motif.ReadMEME(*memePath, b)
	if err != nil {
		return err
	}
	sc, err := motif.NewScanner(ms, motif.ScannerOptions{
		PThreshold:  *threshold,
		BothStrands: *bothStrands,
	})
	if err != nil {
		return err
	}

	fa, err := genome.ReadFASTA(*fastaPath)
	if err != nil {
		return err
	}
	names := fa.Names()
	seqs := make([]string, len(names))
	for i, name := range names {
		raw, _ := fa.Get(name)
		seqs[i] = string(raw)
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	// Scan per sequence so lengths need not match.
	fmt.Fprintln(out, strings.Join([]string{"motif", "sequence", "pos", "strand", "score", "p"}, "\t"))
	for i, s := range seqs {
		x, err := seqOneHot(s, ms, b)
		if err != nil {
			return fmt.Errorf("scan: %s: %w", names[i], err)
		}
		hits, err := sc.Scan(x)
		if err != nil {
			return err
		}
		for _, h := range hits {
			fmt.Fprintf(out, "%s\t%s\t%d\t%c\t%.3f\t%.3g\n", h.Motif, names[i], h.Pos, h.Strand, h.Score, h.P)
		}
	}
	return nil
}

// extractConfig is the YAML schema for the extract command.
type extractConfig struct {
	FASTA     string   `yaml:"fasta"`
	BED       string   `yaml:"bed"`
	BigWigs   []string `yaml:"bigwigs"`
	InWindow  int      `yaml:"in_window"`
	OutWindow int      `yaml:"out_window"`
	MaxJitter int      `yaml:"max_jitter"`
	MinCounts float64  `yaml:"min_counts"`
	MaxCounts float64  `yaml:"max_counts"`
	TargetIdx int      `yaml:"target_idx"`
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML extraction config (required)")
	outDir := fs.String("out", "", "Output directory for X.npy / Y.npy (required)")
	fs.Parse(args)
	if *configPath == "" || *outDir == "" {
		return fmt.Errorf("extract: -config and -out are required")
	}

	raw, err := os.ReadFile(*configPath)
	if err != nil {
		return err
	}
	var cfg extractConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("extract: parse config: %w", err)
	}
	if cfg.FASTA == "" || cfg.BED == "" {
		return fmt.Errorf("extract: config needs fasta and bed")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	fa, err := genome.ReadFASTA(cfg.FASTA)
	if err != nil {
		return err
	}
	loci, err := genome.ReadBED(cfg.BED)
	if err != nil {
		return err
	}
	var signals []genome.SignalSource
	for _, path := range cfg.BigWigs {
		bw, err := genome.OpenBigWig(path)
		if err != nil {
			return err
		}
		defer bw.Close()
		signals = append(signals, bw)
	}

	ex, err := genome.ExtractLoci(fa, loci, signals, genome.ExtractOptions{
		InWindow:  cfg.InWindow,
		OutWindow: cfg.OutWindow,
		MaxJitter: cfg.MaxJitter,
		MinCounts: cfg.MinCounts,
		MaxCounts: cfg.MaxCounts,
		TargetIdx: cfg.TargetIdx,
	}, cpu.New())
	if err != nil {
		return err
	}

	xPath := filepath.Join(*outDir, "X.npy")
	if err := npy.WriteFile(xPath, ex.X.Data(), ex.X.Shape()); err != nil {
		return err
	}
	fmt.Printf("wrote %s %v\n", xPath, ex.X.Shape())
	if ex.Y != nil {
		yPath := filepath.Join(*outDir, "Y.npy")
		if err := npy.WriteFile(yPath, ex.Y.Data(), ex.Y.Shape()); err != nil {
			return err
		}
		fmt.Printf("wrote %s %v\n", yPath, ex.Y.Shape())
	}
	if ex.Dropped > 0 {
		fmt.Printf("dropped %d of %d loci\n", ex.Dropped, len(loci))
	}
	return nil
}

// seqOneHot encodes one sequence as a batch of one for the scanner,
// using the collection's alphabet.
func seqOneHot[B tensor.Backend](s string, ms *motif.Motifs[B], b B) (*tensor.Tensor[float32, B], error) {
	x, err := seq.OneHot(s, ms.Alphabet, seq.DefaultIgnore, b)
	if err != nil {
		return nil, err
	}
	return x.Unsqueeze(0), nil
}
