// Package tensorfile reads and writes the on-disk tensor container used for
// extracted training targets. The layout is safetensors-compatible:
// 8-byte LE header length, JSON header, then raw little-endian tensor data.
package tensorfile

import (
	"fmt"
	"math"
)

const (
	DTypeF32 = "F32"
	DTypeI32 = "I32"
)

// Tensor holds a single named tensor of a container file. Exactly one of
// F32 and I32 is populated, according to DType.
type Tensor struct {
	Name  string
	DType string
	Shape []int64
	F32   []float32
	I32   []int32
}

// Float32Tensor builds an F32 entry from data and shape.
func Float32Tensor(name string, data []float32, shape []int64) Tensor {
	return Tensor{
		Name:  name,
		DType: DTypeF32,
		Shape: append([]int64(nil), shape...),
		F32:   append([]float32(nil), data...),
	}
}

// Float32Vector builds a rank-1 F32 entry.
func Float32Vector(name string, data []float32) Tensor {
	return Float32Tensor(name, data, []int64{int64(len(data))})
}

// Int32Vector builds a rank-1 I32 entry from ints. Values must fit in int32.
func Int32Vector(name string, values []int) Tensor {
	data := make([]int32, len(values))
	for i, v := range values {
		data[i] = int32(v)
	}

	return Tensor{
		Name:  name,
		DType: DTypeI32,
		Shape: []int64{int64(len(values))},
		I32:   data,
	}
}

// Ints returns the I32 payload widened to ints.
func (t Tensor) Ints() []int {
	out := make([]int, len(t.I32))
	for i, v := range t.I32 {
		out[i] = int(v)
	}

	return out
}

func (t Tensor) elemCount() (int64, error) {
	return shapeElementCount(t.Shape)
}

func shapeElementCount(shape []int64) (int64, error) {
	total := int64(1)

	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d", d)
		}

		if d == 0 {
			return 0, nil
		}

		if total > math.MaxInt64/d {
			return 0, fmt.Errorf("shape %v overflows element count", shape)
		}

		total *= d
	}

	return total, nil
}

func dtypeBytes(dtype string) (int, error) {
	switch dtype {
	case DTypeF32, DTypeI32:
		return 4, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %q", dtype)
	}
}
