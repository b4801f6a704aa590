// Package predict runs models over batched one-hot sequences: plain
// batched inference, marginalization against a substituted motif, and
// cartesian-product application over argument tensors.
package predict

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/helix-ml/helix/internal/seq"
	"github.com/helix-ml/helix/internal/tensor"
)

// Model is anything that maps a batch of inputs [b, ...] to a batch of
// outputs [b, ...]. Extra argument tensors ride along batched the same
// way.
type Model[B tensor.Backend] interface {
	Forward(x *tensor.Tensor[float32, B], args ...*tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
}

// Options control batching and concurrency.
type Options struct {
	// BatchSize is the number of rows per forward call. Defaults to 32.
	BatchSize int
	// Workers is the number of concurrent forward calls. Defaults to 1;
	// raise it only for models that are safe to call concurrently.
	Workers int
}

// Option mutates Options.
type Option func(*Options)

// WithBatchSize sets the rows per forward call.
func WithBatchSize(n int) Option { return func(o *Options) { o.BatchSize = n } }

// WithWorkers sets the number of concurrent forward calls.
func WithWorkers(n int) Option { return func(o *Options) { o.Workers = n } }

func buildOptions(opts []Option) Options {
	o := Options{BatchSize: 32, Workers: 1}
	for _, fn := range opts {
		fn(&o)
	}
	if o.BatchSize < 1 {
		o.BatchSize = 1
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

// Predict runs model over x in batches along dim 0 and concatenates the
// outputs in input order. Every arg must share x's leading dimension and
// is batched alongside it. Batches run on Options.Workers goroutines.
func Predict[B tensor.Backend](ctx context.Context, model Model[B], x *tensor.Tensor[float32, B], args []*tensor.Tensor[float32, B], opts ...Option) (*tensor.Tensor[float32, B], error) {
	o := buildOptions(opts)
	n := x.Shape()[0]
	for i, a := range args {
		if a.Shape()[0] != n {
			return nil, fmt.Errorf("predict: arg %d has leading dim %d, want %d", i, a.Shape()[0], n)
		}
	}

	nBatches := (n + o.BatchSize - 1) / o.BatchSize
	outputs := make([]*tensor.Tensor[float32, B], nBatches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)
	for bi := 0; bi < nBatches; bi++ {
		start := bi * o.BatchSize
		size := min(o.BatchSize, n-start)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			xb := x.Narrow(0, start, size)
			ab := make([]*tensor.Tensor[float32, B], len(args))
			for i, a := range args {
				ab[i] = a.Narrow(0, start, size)
			}
			out := model.Forward(xb, ab...)
			if got := out.Shape()[0]; got != size {
				return fmt.Errorf("predict: model output has leading dim %d for a batch of %d rows", got, size)
			}
			outputs[bi] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if nBatches == 1 {
		return outputs[0], nil
	}
	return tensor.Cat(outputs, 0), nil
}

// Marginalization holds the paired outputs of Marginalize.
type Marginalization[B tensor.Backend] struct {
	Before *tensor.Tensor[float32, B]
	After  *tensor.Tensor[float32, B]
}

// Marginalize runs model over x before and after substituting motif
// into every sequence. start < 0 centers the motif. The two outputs
// line up row for row, so their difference is the motif's marginal
// effect on each sequence.
func Marginalize[B tensor.Backend](ctx context.Context, model Model[B], x, motif *tensor.Tensor[float32, B], start int, args []*tensor.Tensor[float32, B], opts ...Option) (*Marginalization[B], error) {
	before, err := Predict(ctx, model, x, args, opts...)
	if err != nil {
		return nil, err
	}
	edited, err := seq.Substitute(x, motif, start)
	if err != nil {
		return nil, err
	}
	after, err := Predict(ctx, model, edited, args, opts...)
	if err != nil {
		return nil, err
	}
	return &Marginalization[B]{Before: before, After: after}, nil
}

// MarginalizeString is Marginalize for a motif given as characters,
// one-hot encoded over alphabet before substitution.
func MarginalizeString[B tensor.Backend](ctx context.Context, model Model[B], x *tensor.Tensor[float32, B], motif string, alphabet seq.Alphabet, start int, args []*tensor.Tensor[float32, B], opts ...Option) (*Marginalization[B], error) {
	mt, err := seq.OneHot(motif, alphabet, seq.DefaultIgnore, x.Backend())
	if err != nil {
		return nil, fmt.Errorf("marginalize: %w", err)
	}
	return Marginalize(ctx, model, x, mt, start, args, opts...)
}

// ApplyProduct runs model over the cartesian product of x rows and the
// rows of every arg tensor without materializing the product: row i of
// the result pairs x[i0] with args[0][i1], args[1][i2], and so on, the
// last arg varying fastest. The output has shape
// [len(x), len(args[0]), ..., out...].
func ApplyProduct[B tensor.Backend](ctx context.Context, model Model[B], x *tensor.Tensor[float32, B], args []*tensor.Tensor[float32, B], opts ...Option) (*tensor.Tensor[float32, B], error) {
	return ApplyProductFunc(ctx, func(xb *tensor.Tensor[float32, B], ab ...*tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
		return model.Forward(xb, ab...), nil
	}, x, args, opts...)
}

// ApplyProductFunc is ApplyProduct for an arbitrary batch function, for
// callers composing model calls with pre- or post-processing.
func ApplyProductFunc[B tensor.Backend](ctx context.Context, fn func(x *tensor.Tensor[float32, B], args ...*tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error), x *tensor.Tensor[float32, B], args []*tensor.Tensor[float32, B], opts ...Option) (*tensor.Tensor[float32, B], error) {
	o := buildOptions(opts)

	dims := make([]int, 1+len(args))
	dims[0] = x.Shape()[0]
	total := dims[0]
	for i, a := range args {
		dims[i+1] = a.Shape()[0]
		total *= dims[i+1]
	}
	if total == 0 {
		return nil, fmt.Errorf("apply product: empty product")
	}

	nBatches := (total + o.BatchSize - 1) / o.BatchSize
	outputs := make([]*tensor.Tensor[float32, B], nBatches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)
	for bi := 0; bi < nBatches; bi++ {
		start := bi * o.BatchSize
		size := min(o.BatchSize, total-start)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Decompose each flat product index into per-tensor row
			// indices, x slowest.
			xIdx := make([]int, size)
			argIdx := make([][]int, len(args))
			for i := range argIdx {
				argIdx[i] = make([]int, size)
			}
			for r := 0; r < size; r++ {
				rem := start + r
				for i := len(args) - 1; i >= 0; i-- {
					argIdx[i][r] = rem % dims[i+1]
					rem /= dims[i+1]
				}
				xIdx[r] = rem
			}

			xb := gatherRows(x, xIdx)
			ab := make([]*tensor.Tensor[float32, B], len(args))
			for i, a := range args {
				ab[i] = gatherRows(a, argIdx[i])
			}
			out, err := fn(xb, ab...)
			if err != nil {
				return err
			}
			if got := out.Shape()[0]; got != size {
				return fmt.Errorf("apply product: batch output has leading dim %d for a batch of %d rows", got, size)
			}
			outputs[bi] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	flat := outputs[0]
	if nBatches > 1 {
		flat = tensor.Cat(outputs, 0)
	}
	outShape := append(dims, flat.Shape()[1:]...)
	return flat.Reshape(outShape...), nil
}

// gatherRows copies the selected dim-0 rows of t into a fresh tensor.
func gatherRows[B tensor.Backend](t *tensor.Tensor[float32, B], idx []int) *tensor.Tensor[float32, B] {
	shape := t.Shape().Clone()
	shape[0] = len(idx)
	out := tensor.Zeros[float32, B](shape, t.Backend())

	rowSize := t.NumElements() / t.Shape()[0]
	src := t.Data()
	dst := out.Data()
	for r, i := range idx {
		copy(dst[r*rowSize:(r+1)*rowSize], src[i*rowSize:(i+1)*rowSize])
	}
	return out
}
