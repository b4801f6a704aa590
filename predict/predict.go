// Copyright 2025 Helix ML Project. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package predict runs models over batched one-hot sequences.
//
// Predict batches plain inference, Marginalize compares model output
// before and after substituting a motif into every sequence, and
// ApplyProduct runs a model over the cartesian product of input rows
// and argument rows without materializing the product.
//
// Example:
//
//	y, err := predict.Predict(ctx, model, x, nil,
//	    predict.WithBatchSize(64), predict.WithWorkers(4))
package predict

import (
	"context"

	internalpredict "github.com/helix-ml/helix/internal/predict"
	"github.com/helix-ml/helix/seq"
	"github.com/helix-ml/helix/tensor"
)

// Model is anything that maps a batch of inputs [b, ...] to a batch of
// outputs [b, ...].
type Model[B tensor.Backend] = internalpredict.Model[B]

// Options control batching and concurrency.
type Options = internalpredict.Options

// Option mutates Options.
type Option = internalpredict.Option

// Marginalization holds the paired outputs of Marginalize.
type Marginalization[B tensor.Backend] = internalpredict.Marginalization[B]

// WithBatchSize sets the rows per forward call. The default is 32.
func WithBatchSize(n int) Option { return internalpredict.WithBatchSize(n) }

// WithWorkers sets the number of concurrent forward calls. The default
// is 1; raise it only for models safe to call concurrently.
func WithWorkers(n int) Option { return internalpredict.WithWorkers(n) }

// Predict runs model over x in batches along dim 0, concatenating the
// outputs in input order. Args must share x's leading dimension.
func Predict[B tensor.Backend](ctx context.Context, model Model[B], x *tensor.Tensor[float32, B], args []*tensor.Tensor[float32, B], opts ...Option) (*tensor.Tensor[float32, B], error) {
	return internalpredict.Predict(ctx, model, x, args, opts...)
}

// Marginalize runs model over x before and after substituting motif
// into every sequence. start < 0 centers the motif.
func Marginalize[B tensor.Backend](ctx context.Context, model Model[B], x, motif *tensor.Tensor[float32, B], start int, args []*tensor.Tensor[float32, B], opts ...Option) (*Marginalization[B], error) {
	return internalpredict.Marginalize(ctx, model, x, motif, start, args, opts...)
}

// MarginalizeString is Marginalize for a motif given as characters,
// one-hot encoded over alphabet before substitution.
func MarginalizeString[B tensor.Backend](ctx context.Context, model Model[B], x *tensor.Tensor[float32, B], motif string, alphabet seq.Alphabet, start int, args []*tensor.Tensor[float32, B], opts ...Option) (*Marginalization[B], error) {
	return internalpredict.MarginalizeString(ctx, model, x, motif, alphabet, start, args, opts...)
}

// HypotheticalAttributions projects DeepLIFT/SHAP-style multipliers into
// per-character attribution values for one-hot sequences: the multiplier of
// each character minus the contribution of the reference characters it
// would replace. multipliers and references share shape [n, A, L].
func HypotheticalAttributions[B tensor.Backend](multipliers, references *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	return internalpredict.HypotheticalAttributions(multipliers, references)
}

// ApplyProduct runs model over the cartesian product of x rows and the
// rows of every arg tensor. The output has shape
// [len(x), len(args[0]), ..., out...], the last arg varying fastest.
func ApplyProduct[B tensor.Backend](ctx context.Context, model Model[B], x *tensor.Tensor[float32, B], args []*tensor.Tensor[float32, B], opts ...Option) (*tensor.Tensor[float32, B], error) {
	return internalpredict.ApplyProduct(ctx, model, x, args, opts...)
}

// ApplyProductFunc is ApplyProduct for an arbitrary batch function.
func ApplyProductFunc[B tensor.Backend](ctx context.Context, fn func(x *tensor.Tensor[float32, B], args ...*tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error), x *tensor.Tensor[float32, B], args []*tensor.Tensor[float32, B], opts ...Option) (*tensor.Tensor[float32, B], error) {
	return internalpredict.ApplyProductFunc(ctx, fn, x, args, opts...)
}
