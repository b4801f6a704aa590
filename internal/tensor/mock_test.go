package tensor

import "math/rand"

func newTestRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// mockBackend satisfies Backend for tests that only need allocation and
// metadata. Every kernel panics; tests exercising kernels belong in the
// cpu backend package.
type mockBackend struct{}

func (mockBackend) Add(a, b *RawTensor) *RawTensor            { panic("mock") }
func (mockBackend) Sub(a, b *RawTensor) *RawTensor            { panic("mock") }
func (mockBackend) Mul(a, b *RawTensor) *RawTensor            { panic("mock") }
func (mockBackend) Div(a, b *RawTensor) *RawTensor            { panic("mock") }
func (mockBackend) MatMul(a, b *RawTensor) *RawTensor         { panic("mock") }
func (mockBackend) AddScalar(x *RawTensor, s any) *RawTensor  { panic("mock") }
func (mockBackend) SubScalar(x *RawTensor, s any) *RawTensor  { panic("mock") }
func (mockBackend) MulScalar(x *RawTensor, s any) *RawTensor  { panic("mock") }
func (mockBackend) DivScalar(x *RawTensor, s any) *RawTensor  { panic("mock") }
func (mockBackend) Exp(x *RawTensor) *RawTensor               { panic("mock") }
func (mockBackend) Log(x *RawTensor) *RawTensor               { panic("mock") }
func (mockBackend) Reshape(x *RawTensor, s Shape) *RawTensor  { panic("mock") }
func (mockBackend) Transpose(x *RawTensor, a ...int) *RawTensor {
	panic("mock")
}
func (mockBackend) Unsqueeze(x *RawTensor, d int) *RawTensor { panic("mock") }
func (mockBackend) Squeeze(x *RawTensor, d int) *RawTensor   { panic("mock") }
func (mockBackend) Cat(ts []*RawTensor, d int) *RawTensor    { panic("mock") }
func (mockBackend) Narrow(x *RawTensor, d, s, l int) *RawTensor {
	panic("mock")
}
func (mockBackend) Sum(x *RawTensor) *RawTensor { panic("mock") }
func (mockBackend) SumDim(x *RawTensor, d int, k bool) *RawTensor {
	panic("mock")
}
func (mockBackend) MeanDim(x *RawTensor, d int, k bool) *RawTensor {
	panic("mock")
}
func (mockBackend) Argmax(x *RawTensor, d int) *RawTensor { panic("mock") }
func (mockBackend) Name() string                          { return "mock" }
func (mockBackend) Device() Device                        { return CPU }

var _ Backend = mockBackend{}
