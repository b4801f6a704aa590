package tensor

// Cat concatenates tensors along the specified dimension.
//
// All tensors must have the same shape except along the concatenation
// dimension. Supports negative dim indexing (-1 = last dimension).
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	if len(tensors) == 1 {
		return tensors[0].Clone()
	}

	rawTensors := make([]*RawTensor, len(tensors))
	backend := tensors[0].backend
	for i, t := range tensors {
		rawTensors[i] = t.raw
	}

	return New[T, B](backend.Cat(rawTensors, dim), backend)
}

// Narrow returns a slice of the tensor along dim covering
// [start, start+length). Along dimension 0 this is a zero-copy view.
func (t *Tensor[T, B]) Narrow(dim, start, length int) *Tensor[T, B] {
	return New[T, B](t.backend.Narrow(t.raw, dim, start, length), t.backend)
}

// Unsqueeze adds a dimension of size 1 at the specified position.
// This is a view operation (no data copy).
func (t *Tensor[T, B]) Unsqueeze(dim int) *Tensor[T, B] {
	return New[T, B](t.backend.Unsqueeze(t.raw, dim), t.backend)
}

// Squeeze removes a dimension of size 1 at the specified position.
// Panics if the dimension size is not 1. This is a view operation.
func (t *Tensor[T, B]) Squeeze(dim int) *Tensor[T, B] {
	return New[T, B](t.backend.Squeeze(t.raw, dim), t.backend)
}
