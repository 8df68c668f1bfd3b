package tensorfile

import (
	"path/filepath"
	"testing"
)

func TestWriteFile_RoundTripMixedDTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.pt")

	mel := Float32Tensor("mel", []float32{0.5, -1.25, 3.0, 4.5, -2.0, 0.25}, []int64{2, 3})
	durs := Int32Vector("durations", []int{3, 1, 7})

	if err := WriteFile(path, []Tensor{mel, durs}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("read %d tensors, want 2", len(got))
	}

	// Decode returns tensors sorted by name.
	if got[0].Name != "durations" || got[1].Name != "mel" {
		t.Fatalf("names = [%q %q], want [durations mel]", got[0].Name, got[1].Name)
	}

	if got[0].DType != DTypeI32 {
		t.Fatalf("durations dtype = %q, want I32", got[0].DType)
	}

	ints := got[0].Ints()
	if len(ints) != 3 || ints[0] != 3 || ints[1] != 1 || ints[2] != 7 {
		t.Fatalf("durations = %v, want [3 1 7]", ints)
	}

	if got[1].DType != DTypeF32 {
		t.Fatalf("mel dtype = %q, want F32", got[1].DType)
	}

	if len(got[1].Shape) != 2 || got[1].Shape[0] != 2 || got[1].Shape[1] != 3 {
		t.Fatalf("mel shape = %v, want [2 3]", got[1].Shape)
	}

	for i, v := range got[1].F32 {
		if v != mel.F32[i] {
			t.Fatalf("mel[%d] = %v, want %v", i, v, mel.F32[i])
		}
	}
}

func TestReadOne_SingleTensorContract(t *testing.T) {
	dir := t.TempDir()

	single := filepath.Join(dir, "single.pt")
	if err := WriteFile(single, []Tensor{Float32Vector("pitch", []float32{1, 0, 2})}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadOne(single)
	if err != nil {
		t.Fatalf("ReadOne: %v", err)
	}

	if got.Name != "pitch" || len(got.F32) != 3 {
		t.Fatalf("tensor = %q with %d elements, want pitch with 3", got.Name, len(got.F32))
	}

	multi := filepath.Join(dir, "multi.pt")
	err = WriteFile(multi, []Tensor{
		Float32Vector("a", []float32{1}),
		Float32Vector("b", []float32{2}),
	})
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := ReadOne(multi); err == nil {
		t.Fatal("ReadOne should reject a multi-tensor file")
	}
}

func TestEncode_ValidationErrors(t *testing.T) {
	if _, err := Encode(nil); err == nil {
		t.Fatal("Encode(nil) should fail")
	}

	if _, err := Encode([]Tensor{Float32Vector("", []float32{1})}); err == nil {
		t.Fatal("empty tensor name should fail")
	}

	if _, err := Encode([]Tensor{
		Float32Vector("x", []float32{1}),
		Float32Vector("x", []float32{2}),
	}); err == nil {
		t.Fatal("duplicate tensor names should fail")
	}

	if _, err := Encode([]Tensor{{Name: "x", DType: DTypeF32, Shape: []int64{2}, F32: []float32{1}}}); err == nil {
		t.Fatal("shape/data mismatch should fail")
	}

	if _, err := Encode([]Tensor{{Name: "x", DType: "F64", Shape: []int64{1}}}); err == nil {
		t.Fatal("unsupported dtype should fail")
	}
}

func TestDecode_CorruptInput(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Fatal("short payload should fail")
	}

	// Header length far beyond the payload.
	bad := []byte{0xff, 0xff, 0, 0, 0, 0, 0, 0, '{', '}'}
	if _, err := Decode(bad); err == nil {
		t.Fatal("oversized header length should fail")
	}

	// Valid prefix but header is not JSON.
	notJSON := append([]byte{4, 0, 0, 0, 0, 0, 0, 0}, []byte("xxxx")...)
	if _, err := Decode(notJSON); err == nil {
		t.Fatal("malformed header JSON should fail")
	}
}
