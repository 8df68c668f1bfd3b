package tensorfile

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
)

type headerEntry struct {
	DType   string  `json:"dtype"`
	Shape   []int64 `json:"shape"`
	Offsets [2]int  `json:"data_offsets"`
}

// Encode serializes tensors into the container format.
func Encode(tensors []Tensor) ([]byte, error) {
	if len(tensors) == 0 {
		return nil, errors.New("tensorfile: no tensors to encode")
	}

	sorted := make([]Tensor, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	header := make(map[string]headerEntry, len(sorted))
	raw := make([]byte, 0, estimateBytes(sorted))

	for _, tensor := range sorted {
		name := strings.TrimSpace(tensor.Name)
		if name == "" {
			return nil, errors.New("tensorfile: tensor name must not be empty")
		}

		if _, exists := header[name]; exists {
			return nil, fmt.Errorf("tensorfile: duplicate tensor name %q", name)
		}

		elemCount, err := tensor.elemCount()
		if err != nil {
			return nil, fmt.Errorf("tensorfile: tensor %q: %w", name, err)
		}

		start := len(raw)

		switch tensor.DType {
		case DTypeF32:
			if int64(len(tensor.F32)) != elemCount {
				return nil, fmt.Errorf(
					"tensorfile: tensor %q shape %v expects %d elements, got %d",
					name,
					tensor.Shape,
					elemCount,
					len(tensor.F32),
				)
			}

			raw = append(raw, make([]byte, len(tensor.F32)*4)...)
			for i, v := range tensor.F32 {
				binary.LittleEndian.PutUint32(raw[start+i*4:], math.Float32bits(v))
			}
		case DTypeI32:
			if int64(len(tensor.I32)) != elemCount {
				return nil, fmt.Errorf(
					"tensorfile: tensor %q shape %v expects %d elements, got %d",
					name,
					tensor.Shape,
					elemCount,
					len(tensor.I32),
				)
			}

			raw = append(raw, make([]byte, len(tensor.I32)*4)...)
			for i, v := range tensor.I32 {
				binary.LittleEndian.PutUint32(raw[start+i*4:], uint32(v))
			}
		default:
			return nil, fmt.Errorf("tensorfile: tensor %q has unsupported dtype %q", name, tensor.DType)
		}

		header[name] = headerEntry{
			DType:   tensor.DType,
			Shape:   append([]int64(nil), tensor.Shape...),
			Offsets: [2]int{start, len(raw)},
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("tensorfile: encode header: %w", err)
	}

	out := make([]byte, 0, 8+len(headerJSON)+len(raw))
	lenPrefix := make([]byte, 8)
	binary.LittleEndian.PutUint64(lenPrefix, uint64(len(headerJSON)))
	out = append(out, lenPrefix...)
	out = append(out, headerJSON...)
	out = append(out, raw...)

	return out, nil
}

// WriteFile writes tensors into a container file.
func WriteFile(path string, tensors []Tensor) error {
	data, err := Encode(tensors)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("tensorfile: write %s: %w", path, err)
	}

	return nil
}

func estimateBytes(tensors []Tensor) int {
	total := 0
	for _, tensor := range tensors {
		total += (len(tensor.F32) + len(tensor.I32)) * 4
	}

	return total
}
