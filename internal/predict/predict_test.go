package predict

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helix-ml/helix/internal/backend/cpu"
	"github.com/helix-ml/helix/internal/seq"
	"github.com/helix-ml/helix/internal/tensor"
)

type T = tensor.Tensor[float32, *cpu.CPUBackend]

// affineModel maps each input row to xScale*sum(row) plus the row sums
// of every arg. Stateless, so safe under concurrent Forward calls.
type affineModel struct{ xScale float32 }

func (m affineModel) Forward(x *T, args ...*T) *T {
	out := x.SumDim(1, true).MulScalar(m.xScale)
	for _, a := range args {
		out = out.Add(a.SumDim(1, true))
	}
	return out
}

func randMatrix(t *testing.T, rng *rand.Rand, rows, cols int, b *cpu.CPUBackend) *T {
	t.Helper()
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = rng.Float32()
	}
	x, err := tensor.FromSlice(data, tensor.Shape{rows, cols}, b)
	require.NoError(t, err)
	return x
}

func TestPredict_MatchesSingleForward(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(1))
	x := randMatrix(t, rng, 7, 3, b)
	m := affineModel{xScale: 1}

	want := m.Forward(x)
	got, err := Predict(context.Background(), m, x, nil, WithBatchSize(3))
	require.NoError(t, err)
	assert.Equal(t, want.Shape(), got.Shape())
	assert.InDeltaSlice(t, want.Data(), got.Data(), 1e-6)
}

func TestPredict_BatchSizeInvariance(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(2))
	x := randMatrix(t, rng, 11, 4, b)
	m := affineModel{xScale: 2}

	ref, err := Predict(context.Background(), m, x, nil, WithBatchSize(11))
	require.NoError(t, err)
	for _, bs := range []int{1, 2, 3, 5, 32} {
		got, err := Predict(context.Background(), m, x, nil, WithBatchSize(bs))
		require.NoError(t, err)
		assert.InDeltaSlice(t, ref.Data(), got.Data(), 1e-6, "batch size %d", bs)
	}
}

func TestPredict_Workers(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(3))
	x := randMatrix(t, rng, 20, 3, b)
	m := affineModel{xScale: 1}

	ref, err := Predict(context.Background(), m, x, nil, WithBatchSize(20))
	require.NoError(t, err)
	got, err := Predict(context.Background(), m, x, nil, WithBatchSize(3), WithWorkers(4))
	require.NoError(t, err)
	assert.InDeltaSlice(t, ref.Data(), got.Data(), 1e-6)
}

func TestPredict_ArgsBatchedAlongside(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(4))
	x := randMatrix(t, rng, 6, 3, b)
	a := randMatrix(t, rng, 6, 2, b)
	m := affineModel{xScale: 1}

	got, err := Predict(context.Background(), m, x, []*T{a}, WithBatchSize(4))
	require.NoError(t, err)

	xd, ad, gd := x.Data(), a.Data(), got.Data()
	for i := 0; i < 6; i++ {
		want := xd[i*3] + xd[i*3+1] + xd[i*3+2] + ad[i*2] + ad[i*2+1]
		assert.InDelta(t, want, gd[i], 1e-6, "row %d", i)
	}
}

func TestPredict_ArgLeadingDimMismatch(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(5))
	x := randMatrix(t, rng, 6, 3, b)
	a := randMatrix(t, rng, 5, 2, b)

	_, err := Predict(context.Background(), affineModel{xScale: 1}, x, []*T{a})
	require.ErrorContains(t, err, "leading dim")
}

func TestPredict_ContextCanceled(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(6))
	x := randMatrix(t, rng, 8, 3, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Predict(ctx, affineModel{xScale: 1}, x, nil, WithBatchSize(2))
	require.ErrorIs(t, err, context.Canceled)
}

// aCountModel counts the bases on alphabet row 0 of each one-hot
// sequence.
type aCountModel struct{}

func (aCountModel) Forward(x *T, args ...*T) *T {
	return x.Narrow(1, 0, 1).SumDim(2, false)
}

func TestMarginalize(t *testing.T) {
	b := cpu.New()
	// Three sequences of all C over DNA rows ACGT: row 1 set, row 0 empty.
	n, length := 3, 8
	data := make([]float32, n*4*length)
	for i := 0; i < n; i++ {
		for p := 0; p < length; p++ {
			data[(i*4+1)*length+p] = 1
		}
	}
	x, err := tensor.FromSlice(data, tensor.Shape{n, 4, length}, b)
	require.NoError(t, err)

	// A two-base AA motif.
	motif, err := tensor.FromSlice([]float32{
		1, 1,
		0, 0,
		0, 0,
		0, 0,
	}, tensor.Shape{4, 2}, b)
	require.NoError(t, err)

	m, err := Marginalize(context.Background(), aCountModel{}, x, motif, -1, nil, WithBatchSize(2))
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		assert.Equal(t, float32(0), m.Before.Data()[i])
		assert.Equal(t, float32(2), m.After.Data()[i])
	}
}

func TestMarginalizeString(t *testing.T) {
	b := cpu.New()
	n, length := 3, 8
	data := make([]float32, n*4*length)
	for i := 0; i < n; i++ {
		for p := 0; p < length; p++ {
			data[(i*4+1)*length+p] = 1
		}
	}
	x, err := tensor.FromSlice(data, tensor.Shape{n, 4, length}, b)
	require.NoError(t, err)

	m, err := MarginalizeString(context.Background(), aCountModel{}, x, "AA", seq.DNA, -1, nil, WithBatchSize(2))
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.Equal(t, float32(0), m.Before.Data()[i])
		assert.Equal(t, float32(2), m.After.Data()[i])
	}

	_, err = MarginalizeString(context.Background(), aCountModel{}, x, "AXA", seq.DNA, -1, nil)
	require.Error(t, err, "characters outside the alphabet are rejected")
}

// truncatingModel drops all but the first row of every batch.
type truncatingModel struct{}

func (truncatingModel) Forward(x *T, args ...*T) *T {
	return x.Narrow(0, 0, 1)
}

func TestPredict_OutputLeadingDimMismatch(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(10))
	x := randMatrix(t, rng, 4, 2, b)

	_, err := Predict(context.Background(), truncatingModel{}, x, nil, WithBatchSize(4))
	require.ErrorContains(t, err, "leading dim")
}

func TestApplyProductFunc_OutputLeadingDimMismatch(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(11))
	x := randMatrix(t, rng, 4, 2, b)

	_, err := ApplyProductFunc(context.Background(), func(xb *T, args ...*T) (*T, error) {
		return xb.Narrow(0, 0, 1), nil
	}, x, nil, WithBatchSize(4))
	require.ErrorContains(t, err, "leading dim")
}

func TestApplyProduct_BruteForce(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(7))
	x := randMatrix(t, rng, 2, 3, b)
	a := randMatrix(t, rng, 3, 3, b)
	m := affineModel{xScale: 10}

	got, err := ApplyProduct(context.Background(), m, x, []*T{a}, WithBatchSize(4))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3, 1}, got.Shape())

	xd, ad, gd := x.Data(), a.Data(), got.Data()
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			want := 10*(xd[i*3]+xd[i*3+1]+xd[i*3+2]) + ad[j*3] + ad[j*3+1] + ad[j*3+2]
			assert.InDelta(t, want, gd[i*3+j], 1e-5, "pair (%d, %d)", i, j)
		}
	}
}

func TestApplyProduct_TwoArgs(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(8))
	x := randMatrix(t, rng, 2, 2, b)
	a1 := randMatrix(t, rng, 2, 2, b)
	a2 := randMatrix(t, rng, 3, 2, b)
	m := affineModel{xScale: 1}

	got, err := ApplyProduct(context.Background(), m, x, []*T{a1, a2}, WithBatchSize(5), WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2, 3, 1}, got.Shape())

	sum := func(d []float32, row int) float32 { return d[row*2] + d[row*2+1] }
	gd := got.Data()
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 3; k++ {
				want := sum(x.Data(), i) + sum(a1.Data(), j) + sum(a2.Data(), k)
				assert.InDelta(t, want, gd[(i*2+j)*3+k], 1e-5)
			}
		}
	}
}

func TestApplyProductFunc_ErrorPropagates(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(9))
	x := randMatrix(t, rng, 4, 2, b)

	boom := errors.New("boom")
	_, err := ApplyProductFunc(context.Background(), func(xb *T, args ...*T) (*T, error) {
		return nil, boom
	}, x, nil, WithBatchSize(2))
	require.ErrorIs(t, err, boom)
}
