package tensorfile

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

// Decode parses a container payload into its named tensors, sorted by name.
func Decode(data []byte) ([]Tensor, error) {
	headerEnd, header, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(header))

	for name := range header {
		if name == "__metadata__" {
			continue
		}

		names = append(names, name)
	}

	sort.Strings(names)

	if len(names) == 0 {
		return nil, errors.New("tensorfile: no tensors found")
	}

	out := make([]Tensor, 0, len(names))

	for _, name := range names {
		entry, err := parseHeaderEntry(header[name])
		if err != nil {
			return nil, fmt.Errorf("tensorfile: decode header entry %q: %w", name, err)
		}

		if err := validateHeaderEntry(name, entry); err != nil {
			return nil, err
		}

		start := headerEnd + entry.Offsets[0]

		end := headerEnd + entry.Offsets[1]
		if start < headerEnd || end < start || end > len(data) {
			return nil, fmt.Errorf(
				"tensorfile: tensor %q data [%d:%d] exceeds file size %d",
				name,
				start,
				end,
				len(data),
			)
		}

		tensor, err := decodeTensor(name, entry, data[start:end])
		if err != nil {
			return nil, err
		}

		out = append(out, tensor)
	}

	return out, nil
}

// ReadFile reads all tensors from a container file.
func ReadFile(path string) ([]Tensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tensorfile: read %s: %w", path, err)
	}

	tensors, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("tensorfile: %s: %w", path, err)
	}

	return tensors, nil
}

// ReadOne reads a container file that holds exactly one tensor.
func ReadOne(path string) (Tensor, error) {
	tensors, err := ReadFile(path)
	if err != nil {
		return Tensor{}, err
	}

	if len(tensors) != 1 {
		return Tensor{}, fmt.Errorf("tensorfile: %s holds %d tensors, expected one", path, len(tensors))
	}

	return tensors[0], nil
}

func decodeHeader(data []byte) (int, map[string]json.RawMessage, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("tensorfile: file too short (%d bytes)", len(data))
	}

	headerLen := binary.LittleEndian.Uint64(data[:8])

	headerEnd := 8 + int(headerLen)
	if headerEnd > len(data) || headerEnd < 8 {
		return 0, nil, fmt.Errorf("tensorfile: header length %d exceeds file size %d", headerLen, len(data))
	}

	var header map[string]json.RawMessage

	err := json.Unmarshal(data[8:headerEnd], &header)
	if err != nil {
		return 0, nil, fmt.Errorf("tensorfile: parse header: %w", err)
	}

	return headerEnd, header, nil
}

func parseHeaderEntry(raw json.RawMessage) (headerEntry, error) {
	var e headerEntry

	err := json.Unmarshal(raw, &e)
	if err != nil {
		return headerEntry{}, err
	}

	return e, nil
}

func validateHeaderEntry(name string, entry headerEntry) error {
	if _, err := dtypeBytes(entry.DType); err != nil {
		return fmt.Errorf("tensorfile: tensor %q: %w", name, err)
	}

	if entry.Offsets[0] < 0 || entry.Offsets[1] < entry.Offsets[0] {
		return fmt.Errorf("tensorfile: tensor %q has invalid data offsets %v", name, entry.Offsets)
	}

	for _, d := range entry.Shape {
		if d < 0 {
			return fmt.Errorf("tensorfile: tensor %q has negative shape dimension in %v", name, entry.Shape)
		}
	}

	return nil
}

func decodeTensor(name string, entry headerEntry, raw []byte) (Tensor, error) {
	elemCount, err := shapeElementCount(entry.Shape)
	if err != nil {
		return Tensor{}, fmt.Errorf("tensorfile: tensor %q: %w", name, err)
	}

	elemBytes, err := dtypeBytes(entry.DType)
	if err != nil {
		return Tensor{}, fmt.Errorf("tensorfile: tensor %q: %w", name, err)
	}

	n := int(elemCount)
	if len(raw) < n*elemBytes {
		return Tensor{}, fmt.Errorf("tensorfile: tensor %q needs %d bytes but data has %d", name, n*elemBytes, len(raw))
	}

	out := Tensor{
		Name:  name,
		DType: entry.DType,
		Shape: append([]int64(nil), entry.Shape...),
	}

	switch entry.DType {
	case DTypeF32:
		out.F32 = make([]float32, n)
		for i := range out.F32 {
			out.F32[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	case DTypeI32:
		out.I32 = make([]int32, n)
		for i := range out.I32 {
			out.I32[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	}

	return out, nil
}
