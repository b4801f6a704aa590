package tensor

import (
	"math"
	"strings"
	"testing"
)

func TestFromSlice(t *testing.T) {
	x, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, mockBackend{})
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	if !x.Shape().Equal(Shape{2, 3}) {
		t.Errorf("shape = %v, want [2 3]", x.Shape())
	}
	if x.DType() != Float32 {
		t.Errorf("dtype = %v, want float32", x.DType())
	}
	if got := x.At(1, 2); got != 6 {
		t.Errorf("At(1, 2) = %v, want 6", got)
	}
}

func TestFromSliceLengthMismatch(t *testing.T) {
	if _, err := FromSlice([]float32{1, 2, 3}, Shape{2, 2}, mockBackend{}); err == nil {
		t.Error("length mismatch accepted")
	}
}

func TestZerosOnesFull(t *testing.T) {
	z := Zeros[float32](Shape{3, 2}, mockBackend{})
	for i, v := range z.Data() {
		if v != 0 {
			t.Fatalf("Zeros()[%d] = %v", i, v)
		}
	}
	o := Ones[int32](Shape{4}, mockBackend{})
	for i, v := range o.Data() {
		if v != 1 {
			t.Fatalf("Ones()[%d] = %v", i, v)
		}
	}
	f := Full[float64](Shape{2, 2}, 3.5, mockBackend{})
	for i, v := range f.Data() {
		if v != 3.5 {
			t.Fatalf("Full()[%d] = %v", i, v)
		}
	}
}

func TestAtSet(t *testing.T) {
	x := Zeros[float32](Shape{2, 3}, mockBackend{})
	x.Set(7, 1, 1)
	if got := x.At(1, 1); got != 7 {
		t.Errorf("At(1, 1) = %v after Set, want 7", got)
	}
	if got := x.Data()[4]; got != 7 {
		t.Errorf("flat data[4] = %v, want 7", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("out-of-bounds At did not panic")
		}
	}()
	x.At(2, 0)
}

func TestItem(t *testing.T) {
	s := Full[float32](Shape{}, 2.5, mockBackend{})
	if got := s.Item(); got != 2.5 {
		t.Errorf("Item() = %v, want 2.5", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("Item() on multi-element tensor did not panic")
		}
	}()
	Zeros[float32](Shape{2}, mockBackend{}).Item()
}

func TestCloneSharesBufferUntilWrite(t *testing.T) {
	x := Zeros[float32](Shape{4}, mockBackend{})
	if !x.Raw().IsUnique() {
		t.Fatal("fresh tensor not unique")
	}
	y := x.Clone()
	if x.Raw().IsUnique() || y.Raw().IsUnique() {
		t.Error("clone did not share the buffer")
	}
	y.Raw().Release()
	if !x.Raw().IsUnique() {
		t.Error("release did not restore uniqueness")
	}
}

func TestRawView(t *testing.T) {
	x := Zeros[float32](Shape{4, 3}, mockBackend{})
	x.Data()[3] = 9 // first element of row 1

	v := New[float32, mockBackend](x.Raw().View(Shape{3}, 3), mockBackend{})
	if got := v.Data()[0]; got != 9 {
		t.Errorf("view data[0] = %v, want 9", got)
	}
	v.Data()[1] = 5
	if got := x.Data()[4]; got != 5 {
		t.Error("write through view did not reach parent buffer")
	}
}

func TestRandnSeeded(t *testing.T) {
	a := Randn[float32](Shape{100}, newTestRand(11), mockBackend{})
	b := Randn[float32](Shape{100}, newTestRand(11), mockBackend{})
	for i := range a.Data() {
		if a.Data()[i] != b.Data()[i] {
			t.Fatal("same seed produced different draws")
		}
	}

	// Loose sanity check on the distribution.
	sum := 0.0
	for _, v := range a.Data() {
		sum += float64(v)
	}
	if mean := sum / 100; math.Abs(mean) > 0.5 {
		t.Errorf("sample mean %v too far from 0", mean)
	}
}

func TestRandRange(t *testing.T) {
	x := Rand[float64](Shape{200}, newTestRand(3), mockBackend{})
	for i, v := range x.Data() {
		if v < 0 || v >= 1 {
			t.Fatalf("Rand()[%d] = %v outside [0, 1)", i, v)
		}
	}
}

func TestString(t *testing.T) {
	x := Zeros[float32](Shape{2, 3}, mockBackend{})
	s := x.String()
	if !strings.Contains(s, "float32") || !strings.Contains(s, "[2 3]") {
		t.Errorf("String() = %q", s)
	}
}
