package genome

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBED(t *testing.T) {
	in := `track name=peaks
browser position chr1:1-100
# a comment

chr1	100	200
chr2	50	150	peak1	7.5	-
chr3	10	20	peak2	.	.
`
	loci, err := ParseBED(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, loci, 3)

	assert.Equal(t, Locus{Chrom: "chr1", Start: 100, End: 200}, loci[0])
	assert.Equal(t, Locus{Chrom: "chr2", Start: 50, End: 150, Name: "peak1", Score: 7.5, Strand: '-'}, loci[1])
	assert.Equal(t, Locus{Chrom: "chr3", Start: 10, End: 20, Name: "peak2"}, loci[2], "dot placeholders leave score and strand unset")
}

func TestParseBED_Errors(t *testing.T) {
	_, err := ParseBED(strings.NewReader("chr1\t100\n"))
	require.ErrorContains(t, err, "at least 3 columns")

	_, err = ParseBED(strings.NewReader("chr1\tx\t200\n"))
	require.ErrorContains(t, err, "start")

	_, err = ParseBED(strings.NewReader("chr1\t200\t100\n"))
	require.ErrorContains(t, err, "invalid interval")

	_, err = ParseBED(strings.NewReader("chr1\t100\t200\tp\tbad\n"))
	require.ErrorContains(t, err, "score")

	_, err = ParseBED(strings.NewReader("chr1\t100\t200\tp\t1\t*\n"))
	require.ErrorContains(t, err, "strand")

	_, err = ParseBED(strings.NewReader("# only comments\n"))
	require.ErrorContains(t, err, "no loci")
}

func TestLocusMidAndString(t *testing.T) {
	l := Locus{Chrom: "chr1", Start: 100, End: 201}
	assert.Equal(t, 150, l.Mid())
	assert.Equal(t, "chr1:100-201", l.String())
}

func TestReadBED_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peaks.bed.gz")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("chr1\t10\t30\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	loci, err := ReadBED(path)
	require.NoError(t, err)
	require.Len(t, loci, 1)
	assert.Equal(t, "chr1:10-30", loci[0].String())
}
