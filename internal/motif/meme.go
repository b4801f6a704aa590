package motif

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/helix-ml/helix/internal/seq"
	"github.com/helix-ml/helix/internal/tensor"
)

// ReadMEME parses a minimal MEME format file into a Motifs collection.
// Gzip-compressed files (.gz) are decompressed transparently.
//
// The minimal format is a version line, optional ALPHABET=, strands:, and
// "Background letter frequencies" blocks, followed by MOTIF blocks each
// carrying a "letter-probability matrix:" header with alength=, w=,
// nsites=, and E= attributes and w rows of alength probabilities.
func ReadMEME[B tensor.Backend](path string, b B) (*Motifs[B], error) {
	return ReadMEMEN(path, 0, b)
}

// ReadMEMEN is ReadMEME limited to the first n motifs (0 = no limit).
func ReadMEMEN[B tensor.Backend](path string, n int, b B) (*Motifs[B], error) {
	f, err := openMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("read meme: %w", err)
	}
	defer f.Close()

	ms, err := parseMEME(f, n, b)
	if err != nil {
		return nil, fmt.Errorf("read meme %s: %w", path, err)
	}
	return ms, nil
}

func parseMEME[B tensor.Backend](r io.Reader, limit int, b B) (*Motifs[B], error) {
	ms := &Motifs[B]{
		Alphabet: seq.DNA,
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	sawVersion := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, "MEME version"):
			sawVersion = true

		case strings.HasPrefix(line, "ALPHABET="):
			ms.Alphabet = seq.Alphabet(strings.TrimSpace(strings.TrimPrefix(line, "ALPHABET=")))

		case strings.HasPrefix(line, "strands:"):
			// Strand annotation carries no information we use.

		case strings.HasPrefix(line, "Background letter frequencies"):
			bg, err := scanBackground(sc, ms.Alphabet)
			if err != nil {
				return nil, err
			}
			ms.Background = bg

		case strings.HasPrefix(line, "MOTIF"):
			if !sawVersion {
				return nil, fmt.Errorf("MOTIF before MEME version line")
			}
			m, err := scanMotif(sc, line, ms.Alphabet, b)
			if err != nil {
				return nil, err
			}
			ms.add(m)
			if limit > 0 && ms.Len() == limit {
				return ms, nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !sawVersion {
		return nil, fmt.Errorf("missing MEME version line")
	}
	if ms.Background == nil {
		ms.Background = UniformBackground(ms.Alphabet)
	}
	return ms, nil
}

// scanBackground reads the frequency line(s) following the header: pairs of
// letter and frequency, possibly wrapped across lines.
func scanBackground(sc *bufio.Scanner, alphabet seq.Alphabet) ([]float64, error) {
	bg := make([]float64, alphabet.Len())
	seen := 0
	for seen < alphabet.Len() && sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields)%2 != 0 {
			return nil, fmt.Errorf("malformed background line %q", sc.Text())
		}
		for i := 0; i < len(fields); i += 2 {
			idx := alphabet.Index(fields[i][0])
			if len(fields[i]) != 1 || idx < 0 {
				return nil, fmt.Errorf("background letter %q not in alphabet %q", fields[i], alphabet)
			}
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("background frequency for %s: %w", fields[i], err)
			}
			bg[idx] = v
			seen++
		}
	}
	if seen != alphabet.Len() {
		return nil, fmt.Errorf("background block lists %d letters, alphabet has %d", seen, alphabet.Len())
	}
	return bg, nil
}

// scanMotif parses one MOTIF block starting from its header line.
func scanMotif[B tensor.Backend](sc *bufio.Scanner, header string, alphabet seq.Alphabet, b B) (*Motif[B], error) {
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return nil, fmt.Errorf("malformed MOTIF line %q", header)
	}
	m := &Motif[B]{Name: fields[1]}
	if len(fields) > 2 {
		m.AltName = fields[2]
	}

	// Skip to the letter-probability matrix header.
	attrs, found := "", false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "letter-probability matrix:") {
			attrs = strings.TrimPrefix(line, "letter-probability matrix:")
			found = true
			break
		}
		if strings.HasPrefix(line, "MOTIF") {
			return nil, fmt.Errorf("motif %s has no letter-probability matrix", m.Name)
		}
	}
	if !found {
		return nil, fmt.Errorf("motif %s has no letter-probability matrix", m.Name)
	}

	alength, w := alphabet.Len(), 0
	for kv := strings.Fields(attrs); len(kv) >= 2; kv = kv[2:] {
		key, val := kv[0], kv[1]
		switch key {
		case "alength=":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("motif %s: alength: %w", m.Name, err)
			}
			alength = n
		case "w=":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("motif %s: w: %w", m.Name, err)
			}
			w = n
		case "nsites=":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("motif %s: nsites: %w", m.Name, err)
			}
			m.NSites = n
		case "E=":
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("motif %s: E: %w", m.Name, err)
			}
			m.EValue = v
		}
	}
	if alength != alphabet.Len() {
		return nil, fmt.Errorf("motif %s: alength %d does not match alphabet %q", m.Name, alength, alphabet)
	}
	if w <= 0 {
		return nil, fmt.Errorf("motif %s: missing or invalid w= attribute", m.Name)
	}

	// Rows arrive position-major [W, A]; the PWM is stored alphabet-major
	// [A, W] to line up with one-hot encodings.
	rows := make([]float32, 0, w*alength)
	for len(rows) < w*alength && sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		vals := strings.Fields(line)
		if len(vals) != alength {
			return nil, fmt.Errorf("motif %s: row %d has %d values, expected %d", m.Name, len(rows)/alength, len(vals), alength)
		}
		for _, s := range vals {
			v, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, fmt.Errorf("motif %s: %w", m.Name, err)
			}
			rows = append(rows, float32(v))
		}
	}
	if len(rows) != w*alength {
		return nil, fmt.Errorf("motif %s: expected %d matrix rows, got %d", m.Name, w, len(rows)/alength)
	}

	byPos, err := tensor.FromSlice(rows, tensor.Shape{w, alength}, b)
	if err != nil {
		return nil, fmt.Errorf("motif %s: %w", m.Name, err)
	}
	m.PWM = byPos.Transpose()
	return m, nil
}

// WriteMEME writes motifs in minimal MEME format.
func WriteMEME[B tensor.Backend](w io.Writer, ms *Motifs[B]) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "MEME version 4\n\n")
	fmt.Fprintf(bw, "ALPHABET= %s\n\n", ms.Alphabet)
	fmt.Fprintf(bw, "strands: + -\n\n")

	fmt.Fprintf(bw, "Background letter frequencies\n")
	for i, c := range ms.Alphabet {
		if i > 0 {
			fmt.Fprint(bw, " ")
		}
		fmt.Fprintf(bw, "%c %g", c, ms.Background[i])
	}
	fmt.Fprint(bw, "\n")

	for _, m := range ms.All() {
		name := m.Name
		if m.AltName != "" {
			name += " " + m.AltName
		}
		fmt.Fprintf(bw, "\nMOTIF %s\n", name)

		shape := m.PWM.Shape()
		a, width := shape[0], shape[1]
		fmt.Fprintf(bw, "letter-probability matrix: alength= %d w= %d nsites= %d E= %g\n",
			a, width, m.NSites, m.EValue)

		data := m.PWM.Data()
		for j := 0; j < width; j++ {
			for r := 0; r < a; r++ {
				if r > 0 {
					fmt.Fprint(bw, " ")
				}
				fmt.Fprintf(bw, "%.6f", data[r*width+j])
			}
			fmt.Fprint(bw, "\n")
		}
	}

	return bw.Flush()
}

// WriteMEMEFile writes motifs to a file in minimal MEME format.
func WriteMEMEFile[B tensor.Backend](path string, ms *Motifs[B]) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write meme: %w", err)
	}
	if err := WriteMEME(f, ms); err != nil {
		f.Close()
		return fmt.Errorf("write meme %s: %w", path, err)
	}
	return f.Close()
}

// openMaybeGzip opens a file, transparently decompressing .gz paths.
func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &gzipReadCloser{zr: zr, f: f}, nil
}

type gzipReadCloser struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.zr.Read(p)
}

func (g *gzipReadCloser) Close() error {
	if err := g.zr.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}
