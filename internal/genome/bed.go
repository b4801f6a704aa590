package genome

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Locus is one genomic interval from a BED file. Start and End follow BED
// conventions: 0-based, half-open.
type Locus struct {
	Chrom  string
	Start  int
	End    int
	Name   string  // column 4, optional
	Score  float64 // column 5, optional
	Strand byte    // column 6, optional; 0 when absent
}

// Mid returns the interval midpoint.
func (l Locus) Mid() int {
	return (l.Start + l.End) / 2
}

func (l Locus) String() string {
	return fmt.Sprintf("%s:%d-%d", l.Chrom, l.Start, l.End)
}

// ReadBED reads the loci of a BED file (3 or more columns). Lines starting
// with "track", "browser", or "#" are skipped. Gzipped files (.gz) are
// decompressed transparently.
func ReadBED(path string) ([]Locus, error) {
	f, err := openMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("read bed: %w", err)
	}
	defer f.Close()

	loci, err := ParseBED(f)
	if err != nil {
		return nil, fmt.Errorf("read bed %s: %w", path, err)
	}
	return loci, nil
}

// ParseBED reads BED loci from r.
func ParseBED(r io.Reader) ([]Locus, error) {
	var loci []Locus

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected at least 3 columns, got %d", lineNo, len(fields))
		}

		start, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: start: %w", lineNo, err)
		}
		end, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: end: %w", lineNo, err)
		}
		if start < 0 || end <= start {
			return nil, fmt.Errorf("line %d: invalid interval [%d, %d)", lineNo, start, end)
		}

		l := Locus{Chrom: fields[0], Start: start, End: end}
		if len(fields) > 3 {
			l.Name = fields[3]
		}
		if len(fields) > 4 && fields[4] != "." {
			score, err := strconv.ParseFloat(fields[4], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: score: %w", lineNo, err)
			}
			l.Score = score
		}
		if len(fields) > 5 && fields[5] != "." {
			if fields[5] != "+" && fields[5] != "-" {
				return nil, fmt.Errorf("line %d: invalid strand %q", lineNo, fields[5])
			}
			l.Strand = fields[5][0]
		}
		loci = append(loci, l)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(loci) == 0 {
		return nil, fmt.Errorf("no loci")
	}
	return loci, nil
}
