package text

import (
	"fmt"
	"strconv"
	"sync"
)

// Encoder maps symbols to the integer IDs the acoustic model consumes.
//
// Characters encode as their rune code points and units as their numeric
// labels, so both are stable across runs. Phone labels are assigned IDs in
// order of first appearance; a model shipping its own phone inventory can
// pre-seed the mapping with SeedInventory.
type Encoder struct {
	typ InputType

	mu        sync.Mutex
	inventory map[string]int64
}

// NewEncoder creates an encoder for the given input type.
func NewEncoder(typ InputType) *Encoder {
	return &Encoder{
		typ:       typ,
		inventory: make(map[string]int64),
	}
}

// SeedInventory assigns IDs 0..n-1 to the given phone labels before any
// encoding happens, overriding first-appearance ordering.
func (e *Encoder) SeedInventory(labels []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, label := range labels {
		if _, ok := e.inventory[label]; !ok {
			e.inventory[label] = int64(len(e.inventory))
		}
	}
}

// Encode converts a symbol sequence into model input IDs.
func (e *Encoder) Encode(symbols []string) ([]int64, error) {
	out := make([]int64, len(symbols))

	for i, sym := range symbols {
		id, err := e.encodeOne(sym)
		if err != nil {
			return nil, err
		}

		out[i] = id
	}

	return out, nil
}

func (e *Encoder) encodeOne(sym string) (int64, error) {
	switch e.typ {
	case InputChar:
		runes := []rune(sym)
		if len(runes) != 1 {
			return 0, fmt.Errorf("char symbol %q is not a single rune", sym)
		}

		return int64(runes[0]), nil
	case InputUnit:
		id, err := strconv.ParseInt(sym, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("unit symbol %q is not numeric: %w", sym, err)
		}

		return id, nil
	case InputPhone:
		e.mu.Lock()
		defer e.mu.Unlock()

		id, ok := e.inventory[sym]
		if !ok {
			id = int64(len(e.inventory))
			e.inventory[sym] = id
		}

		return id, nil
	default:
		return 0, fmt.Errorf("unknown input type %q", e.typ)
	}
}
