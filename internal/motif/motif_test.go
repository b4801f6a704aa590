package motif

import (
	"bytes"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helix-ml/helix/internal/backend/cpu"
	"github.com/helix-ml/helix/internal/seq"
	"github.com/helix-ml/helix/internal/tensor"
)

const memeFixture = `MEME version 4

ALPHABET= ACGT

strands: + -

Background letter frequencies
A 0.25 C 0.25 G 0.25 T 0.25

MOTIF GATA1 gata
letter-probability matrix: alength= 4 w= 3 nsites= 20 E= 1e-5
0.970000 0.010000 0.010000 0.010000
0.010000 0.010000 0.970000 0.010000
0.010000 0.010000 0.010000 0.970000

MOTIF CTCF
letter-probability matrix: alength= 4 w= 2 nsites= 10 E= 0.5
0.010000 0.970000 0.010000 0.010000
0.010000 0.010000 0.010000 0.970000
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadMEME(t *testing.T) {
	b := cpu.New()
	ms, err := ReadMEME(writeFixture(t, "motifs.meme", memeFixture), b)
	require.NoError(t, err)

	assert.Equal(t, "ACGT", ms.Alphabet.String())
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, ms.Background)
	require.Equal(t, 2, ms.Len())

	m, ok := ms.Get("GATA1")
	require.True(t, ok)
	assert.Equal(t, "gata", m.AltName)
	assert.Equal(t, 20, m.NSites)
	assert.Equal(t, 1e-5, m.EValue)
	assert.Equal(t, 3, m.Width())

	// PWM is alphabet-major: row A peaks at position 0, G at 1, T at 2.
	pwm := m.PWM.Data()
	assert.InDelta(t, 0.97, pwm[0*3+0], 1e-6)
	assert.InDelta(t, 0.97, pwm[2*3+1], 1e-6)
	assert.InDelta(t, 0.97, pwm[3*3+2], 1e-6)
	assert.InDelta(t, 0.01, pwm[1*3+0], 1e-6)

	_, ok = ms.Get("NOPE")
	assert.False(t, ok)
}

func TestReadMEMEN_Limit(t *testing.T) {
	b := cpu.New()
	ms, err := ReadMEMEN(writeFixture(t, "motifs.meme", memeFixture), 1, b)
	require.NoError(t, err)
	require.Equal(t, 1, ms.Len())
	assert.Equal(t, "GATA1", ms.All()[0].Name)
}

func TestReadMEME_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motifs.meme.gz")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(memeFixture))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	ms, err := ReadMEME(path, cpu.New())
	require.NoError(t, err)
	assert.Equal(t, 2, ms.Len())
}

func TestReadMEME_DefaultsWithoutHeaders(t *testing.T) {
	content := `MEME version 4

MOTIF tiny
letter-probability matrix: alength= 4 w= 1 nsites= 5 E= 0
0.250000 0.250000 0.250000 0.250000
`
	ms, err := ReadMEME(writeFixture(t, "tiny.meme", content), cpu.New())
	require.NoError(t, err)
	assert.Equal(t, "ACGT", ms.Alphabet.String())
	assert.Equal(t, UniformBackground(seq.DNA), ms.Background)
}

func TestReadMEME_MissingVersion(t *testing.T) {
	_, err := ReadMEME(writeFixture(t, "bad.meme", "MOTIF x\n"), cpu.New())
	require.ErrorContains(t, err, "version")
}

func TestWriteMEMERoundTrip(t *testing.T) {
	b := cpu.New()
	ms, err := ReadMEME(writeFixture(t, "motifs.meme", memeFixture), b)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.meme")
	require.NoError(t, WriteMEMEFile(path, ms))

	back, err := ReadMEME(path, b)
	require.NoError(t, err)
	require.Equal(t, ms.Len(), back.Len())
	for i, want := range ms.All() {
		got := back.All()[i]
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.NSites, got.NSites)
		assert.InDeltaSlice(t, want.PWM.Data(), got.PWM.Data(), 1e-5)
	}
}

// strongPWM builds a near-deterministic PWM for a DNA consensus with
// probability 0.97 on the consensus base.
func strongPWM(t *testing.T, consensus string, b *cpu.CPUBackend) *Motif[*cpu.CPUBackend] {
	t.Helper()
	w := len(consensus)
	data := make([]float32, 4*w)
	for j := 0; j < w; j++ {
		idx := seq.DNA.Index(consensus[j])
		require.GreaterOrEqual(t, idx, 0)
		for r := 0; r < 4; r++ {
			if r == idx {
				data[r*w+j] = 0.97
			} else {
				data[r*w+j] = 0.01
			}
		}
	}
	pwm, err := tensor.FromSlice(data, tensor.Shape{4, w}, b)
	require.NoError(t, err)
	return &Motif[*cpu.CPUBackend]{Name: consensus, PWM: pwm}
}

func TestInformationContent(t *testing.T) {
	b := cpu.New()
	// A deterministic 2-wide motif carries 2 bits per position under a
	// uniform background.
	data := []float32{
		1, 0,
		0, 1,
		0, 0,
		0, 0,
	}
	pwm, err := tensor.FromSlice(data, tensor.Shape{4, 2}, b)
	require.NoError(t, err)
	m := &Motif[*cpu.CPUBackend]{Name: "AC", PWM: pwm}

	ic := m.InformationContent(UniformBackground(seq.DNA))
	assert.InDelta(t, 4.0, ic, 1e-9)
}

func TestLogOdds(t *testing.T) {
	b := cpu.New()
	data := []float32{
		0.25, 0.25,
		0.25, 0.25,
		0.25, 0.25,
		0.25, 0.25,
	}
	pwm, err := tensor.FromSlice(data, tensor.Shape{4, 2}, b)
	require.NoError(t, err)
	m := &Motif[*cpu.CPUBackend]{Name: "flat", PWM: pwm}

	// With pseudocount p, every cell is log2((0.25 + p) / 0.25).
	lo, err := m.LogOdds(UniformBackground(seq.DNA), 0.1)
	require.NoError(t, err)
	want := math.Log2(0.35 / 0.25)
	for _, v := range lo.Data() {
		assert.InDelta(t, want, float64(v), 1e-6)
	}

	_, err = m.LogOdds([]float64{0.5, 0.5}, 0.1)
	require.Error(t, err, "background length mismatch")
}

func TestLogOdds_ZeroProbabilityNeedsPseudocount(t *testing.T) {
	b := cpu.New()
	data := []float32{
		1, 0,
		0, 1,
		0, 0,
		0, 0,
	}
	pwm, err := tensor.FromSlice(data, tensor.Shape{4, 2}, b)
	require.NoError(t, err)
	m := &Motif[*cpu.CPUBackend]{Name: "AC", PWM: pwm}

	_, err = m.LogOdds(UniformBackground(seq.DNA), 0)
	require.ErrorContains(t, err, "pseudocount")

	_, err = m.LogOdds(UniformBackground(seq.DNA), 0.1)
	require.NoError(t, err)
}

func TestMotifReverseComplement(t *testing.T) {
	b := cpu.New()
	m := strongPWM(t, "AG", b)
	rc, err := m.ReverseComplement(seq.DNA)
	require.NoError(t, err)

	// RC of AG is CT: C peaks at position 0, T at position 1.
	data := rc.PWM.Data()
	assert.InDelta(t, 0.97, data[1*2+0], 1e-6)
	assert.InDelta(t, 0.97, data[3*2+1], 1e-6)
}

func plantedBatch(t *testing.T, planted string, pos int, b *cpu.CPUBackend) *tensor.Tensor[float32, *cpu.CPUBackend] {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	raw := make([]byte, 60)
	for i := range raw {
		raw[i] = "ACGT"[rng.Intn(4)]
	}
	copy(raw[pos:], planted)
	x, err := seq.OneHotBatch([]string{string(raw)}, seq.DNA, 'N', b)
	require.NoError(t, err)
	return x
}

func TestScannerFindsPlantedMotif(t *testing.T) {
	b := cpu.New()
	consensus := "GATTACCA"
	ms := &Motifs[*cpu.CPUBackend]{
		Alphabet:   seq.DNA,
		Background: UniformBackground(seq.DNA),
	}
	ms.add(strongPWM(t, consensus, b))

	sc, err := NewScanner(ms, ScannerOptions{})
	require.NoError(t, err)

	x := plantedBatch(t, consensus, 20, b)
	hits, err := sc.Scan(x)
	require.NoError(t, err)

	found := false
	for _, h := range hits {
		if h.Seq == 0 && h.Pos == 20 && h.Strand == '+' {
			found = true
			assert.Equal(t, consensus, h.Motif)
			assert.Less(t, h.P, 1e-4)
			assert.Greater(t, h.Score, 10.0)
		}
	}
	assert.True(t, found, "planted motif not reported: %v", hits)
}

func TestScannerBothStrands(t *testing.T) {
	b := cpu.New()
	consensus := "GATTACCA"
	ms := &Motifs[*cpu.CPUBackend]{
		Alphabet:   seq.DNA,
		Background: UniformBackground(seq.DNA),
	}
	ms.add(strongPWM(t, consensus, b))

	sc, err := NewScanner(ms, ScannerOptions{BothStrands: true})
	require.NoError(t, err)

	// Plant the reverse complement; it should surface as a '-' hit.
	x := plantedBatch(t, "TGGTAATC", 30, b)
	hits, err := sc.Scan(x)
	require.NoError(t, err)

	found := false
	for _, h := range hits {
		if h.Seq == 0 && h.Pos == 30 && h.Strand == '-' {
			found = true
		}
	}
	assert.True(t, found, "reverse-strand occurrence not reported: %v", hits)
}

func TestPValueMonotonic(t *testing.T) {
	b := cpu.New()
	ms := &Motifs[*cpu.CPUBackend]{
		Alphabet:   seq.DNA,
		Background: UniformBackground(seq.DNA),
	}
	ms.add(strongPWM(t, "ACGT", b))

	sc, err := NewScanner(ms, ScannerOptions{})
	require.NoError(t, err)
	sm := &sc.matrices[0]

	assert.InDelta(t, 1.0, sm.pvalueAt(0), 1e-9, "minimum score has p-value 1")
	prev := 1.0
	for idx := 0; idx < len(sm.pvalues); idx++ {
		p := sm.pvalueAt(idx)
		assert.LessOrEqual(t, p, prev, "p-value must not increase with score")
		prev = p
	}
	assert.Equal(t, 0.0, sm.pvalueAt(len(sm.pvalues)-1))
}

func TestScanPValuesMatchEnumeration(t *testing.T) {
	b := cpu.New()

	// A width-2 PWM with distinct per-column probabilities so every
	// dinucleotide has a distinct score. The reported p-value of each one
	// must equal the exhaustive survival probability over all 16 windows
	// under the uniform background.
	data := []float32{
		0.45, 0.40,
		0.25, 0.30,
		0.20, 0.17,
		0.10, 0.13,
	}
	pwm, err := tensor.FromSlice(data, tensor.Shape{4, 2}, b)
	require.NoError(t, err)

	ms := &Motifs[*cpu.CPUBackend]{
		Alphabet:   seq.DNA,
		Background: UniformBackground(seq.DNA),
	}
	ms.add(&Motif[*cpu.CPUBackend]{Name: "dinuc", PWM: pwm})

	sc, err := NewScanner(ms, ScannerOptions{PThreshold: 1})
	require.NoError(t, err)

	var dinucs []string
	for _, c0 := range "ACGT" {
		for _, c1 := range "ACGT" {
			dinucs = append(dinucs, string(c0)+string(c1))
		}
	}
	x, err := seq.OneHotBatch(dinucs, seq.DNA, 'N', b)
	require.NoError(t, err)

	hits, err := sc.Scan(x)
	require.NoError(t, err)
	require.Len(t, hits, 16)

	scores := make([]float64, 16)
	for _, h := range hits {
		scores[h.Seq] = h.Score
	}
	for _, h := range hits {
		atLeast := 0
		for _, s := range scores {
			if s >= h.Score-1e-9 {
				atLeast++
			}
		}
		want := float64(atLeast) / 16
		assert.InDelta(t, want, h.P, 1e-9, "dinucleotide %s score %.4f", dinucs[h.Seq], h.Score)
	}
}
