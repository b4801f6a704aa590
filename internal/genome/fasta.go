// Package genome provides FASTA and BED readers and tensor extraction of
// genomic loci for model training and evaluation.
package genome

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// FASTA holds a set of named sequences in file order.
type FASTA struct {
	names []string
	seqs  map[string][]byte
}

// ReadFASTA reads all records of a FASTA file into memory. The name of a
// record is the first whitespace-separated token of its header. Gzipped
// files (.gz) are decompressed transparently.
func ReadFASTA(path string) (*FASTA, error) {
	f, err := openMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("read fasta: %w", err)
	}
	defer f.Close()

	fa, err := ParseFASTA(f)
	if err != nil {
		return nil, fmt.Errorf("read fasta %s: %w", path, err)
	}
	return fa, nil
}

// ParseFASTA reads all FASTA records from r.
func ParseFASTA(r io.Reader) (*FASTA, error) {
	fa := &FASTA{seqs: make(map[string][]byte)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var name string
	var buf bytes.Buffer
	flush := func() {
		if name != "" {
			fa.names = append(fa.names, name)
			fa.seqs[name] = append([]byte(nil), buf.Bytes()...)
		}
		buf.Reset()
	}

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			header := strings.TrimSpace(string(line[1:]))
			if header == "" {
				return nil, fmt.Errorf("record %d has an empty header", len(fa.names)+1)
			}
			name = strings.Fields(header)[0]
			if _, dup := fa.seqs[name]; dup {
				return nil, fmt.Errorf("duplicate sequence name %q", name)
			}
			// Reserve the name so a duplicate later in the file is caught
			// even before its sequence is flushed.
			fa.seqs[name] = nil
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("sequence data before first header")
		}
		buf.Write(bytes.TrimSpace(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()

	if len(fa.names) == 0 {
		return nil, fmt.Errorf("no records")
	}
	return fa, nil
}

// Names returns the sequence names in file order.
func (fa *FASTA) Names() []string {
	return fa.names
}

// Get returns the sequence with the given name.
func (fa *FASTA) Get(name string) ([]byte, bool) {
	s, ok := fa.seqs[name]
	return s, ok
}

// Len returns the length of the named sequence, or -1 when absent.
func (fa *FASTA) Len(name string) int {
	s, ok := fa.seqs[name]
	if !ok {
		return -1
	}
	return len(s)
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
