// Package tensor provides the dense row-major float32 tensor used for mel
// spectrograms, attention matrices and pitch vectors throughout the
// preparation pipeline.
package tensor

import (
	"errors"
	"fmt"
	"math"
)

// Tensor is a dense, row-major float32 tensor.
type Tensor struct {
	shape []int64
	data  []float32
}

// New creates a tensor from data and shape. Both slices are copied.
func New(data []float32, shape []int64) (*Tensor, error) {
	want, err := elemCountOf(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != want {
		return nil, fmt.Errorf("tensor: %d values cannot fill shape %v (%d elements)", len(data), shape, want)
	}

	return &Tensor{
		shape: append([]int64(nil), shape...),
		data:  append([]float32(nil), data...),
	}, nil
}

// Zeros creates a zero-initialized tensor.
func Zeros(shape []int64) (*Tensor, error) {
	n, err := elemCountOf(shape)
	if err != nil {
		return nil, err
	}

	return &Tensor{shape: append([]int64(nil), shape...), data: make([]float32, n)}, nil
}

// FromVector wraps a 1-D float32 slice as a rank-1 tensor.
func FromVector(data []float32) *Tensor {
	return &Tensor{
		shape: []int64{int64(len(data))},
		data:  append([]float32(nil), data...),
	}
}

// Shape returns a copy of the dimension sizes.
func (t *Tensor) Shape() []int64 {
	if t == nil {
		return nil
	}

	return append([]int64(nil), t.shape...)
}

// Dim returns the size of dimension d, or 0 when out of range.
func (t *Tensor) Dim(d int) int64 {
	if t == nil || d < 0 || d >= len(t.shape) {
		return 0
	}

	return t.shape[d]
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	if t == nil {
		return 0
	}

	return len(t.shape)
}

// ElemCount returns the total number of elements.
func (t *Tensor) ElemCount() int {
	if t == nil {
		return 0
	}

	return len(t.data)
}

// Data returns a copy of the element values.
func (t *Tensor) Data() []float32 {
	if t == nil {
		return nil
	}

	return append([]float32(nil), t.data...)
}

// RawData returns the backing slice without copying.
// Callers must treat it as read-only.
func (t *Tensor) RawData() []float32 {
	if t == nil {
		return nil
	}

	return t.data
}

// Clone returns an independent copy sharing nothing with the receiver.
func (t *Tensor) Clone() *Tensor {
	if t == nil {
		return nil
	}

	return &Tensor{
		shape: append([]int64(nil), t.shape...),
		data:  append([]float32(nil), t.data...),
	}
}

// At returns the element at the given coordinate of a rank-2 tensor.
func (t *Tensor) At(row, col int64) (float32, error) {
	if t == nil {
		return 0, errors.New("tensor: at on nil tensor")
	}
	if len(t.shape) != 2 {
		return 0, fmt.Errorf("tensor: at requires rank 2, got %d", len(t.shape))
	}
	if row < 0 || row >= t.shape[0] || col < 0 || col >= t.shape[1] {
		return 0, fmt.Errorf("tensor: at (%d, %d) out of bounds for shape %v", row, col, t.shape)
	}

	return t.data[row*t.shape[1]+col], nil
}

// Row returns the contiguous row of a rank-2 tensor as a sub-slice of the
// underlying data. Callers must treat it as read-only.
func (t *Tensor) Row(row int64) ([]float32, error) {
	if t == nil {
		return nil, errors.New("tensor: row on nil tensor")
	}
	if len(t.shape) != 2 {
		return nil, fmt.Errorf("tensor: row requires rank 2, got %d", len(t.shape))
	}
	if row < 0 || row >= t.shape[0] {
		return nil, fmt.Errorf("tensor: row %d out of bounds for shape %v", row, t.shape)
	}

	width := t.shape[1]

	return t.data[row*width : (row+1)*width], nil
}

// Narrow slices the tensor along a single dimension, returning a copy.
// A negative dim counts from the last dimension.
func (t *Tensor) Narrow(dim int, start, length int64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: narrow on nil tensor")
	}

	dim, err := resolveDim(dim, len(t.shape))
	if err != nil {
		return nil, fmt.Errorf("tensor: narrow: %w", err)
	}

	if start < 0 || length < 0 || start+length > t.shape[dim] {
		return nil, fmt.Errorf("tensor: narrow: range [%d:%d] out of bounds for dim %d size %d", start, start+length, dim, t.shape[dim])
	}

	outShape := append([]int64(nil), t.shape...)
	outShape[dim] = length

	out, err := Zeros(outShape)
	if err != nil {
		return nil, err
	}

	// The slice along dim copies as outer contiguous blocks of
	// length*inner elements each.
	inner := int64(1)
	for i := dim + 1; i < len(t.shape); i++ {
		inner *= t.shape[i]
	}

	outer := int64(1)
	for i := range dim {
		outer *= t.shape[i]
	}

	srcDim := t.shape[dim]
	for o := range outer {
		srcBase := (o*srcDim + start) * inner
		dstBase := o * length * inner
		copy(out.data[dstBase:dstBase+length*inner], t.data[srcBase:srcBase+length*inner])
	}

	return out, nil
}

// elemCountOf multiplies out a shape with overflow checks.
func elemCountOf(shape []int64) (int, error) {
	n := int64(1)
	for i, d := range shape {
		switch {
		case d < 0:
			return 0, fmt.Errorf("tensor: shape %v has negative dimension at %d", shape, i)
		case d > 0 && n > math.MaxInt64/d:
			return 0, fmt.Errorf("tensor: shape %v overflows element count", shape)
		}

		n *= d
	}

	if n > int64(^uint(0)>>1) {
		return 0, fmt.Errorf("tensor: shape %v exceeds platform int size", shape)
	}

	return int(n), nil
}

// resolveDim maps a possibly negative dimension index onto [0, rank).
func resolveDim(dim, rank int) (int, error) {
	d := dim
	if d < 0 {
		d += rank
	}
	if d < 0 || d >= rank {
		return 0, fmt.Errorf("dim %d out of range for rank %d", dim, rank)
	}

	return d, nil
}
