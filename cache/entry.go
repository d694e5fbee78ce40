package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// DefaultDimension is the embedding dimension used when none is configured.
const DefaultDimension = 1536

// Vector is the embedding of a single text.
type Vector []float32

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	return slices.Clone(v)
}

// Matrix holds one Vector per text of a batch, in input order.
type Matrix []Vector

// Clone returns a deep copy of m.
func (m Matrix) Clone() Matrix {
	if m == nil {
		return nil
	}
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = row.Clone()
	}
	return out
}

// DefinitionMap maps a name to its generated definition. Updates only add
// names.
type DefinitionMap map[string]string

// Clone returns a copy of d.
func (d DefinitionMap) Clone() DefinitionMap {
	return maps.Clone(d)
}

func checkVector(v Vector, dim int) error {
	if len(v) != dim {
		return fmt.Errorf("%w: vector has %d dimensions, want %d", ErrShapeMismatch, len(v), dim)
	}
	return nil
}

func checkMatrix(m Matrix, dim int) error {
	for i, row := range m {
		if len(row) != dim {
			return fmt.Errorf("%w: row %d has %d dimensions, want %d", ErrShapeMismatch, i, len(row), dim)
		}
	}
	return nil
}

// checkShape validates the entry types this package knows about. Other
// values are accepted as they are.
func checkShape(entry any, dim int) error {
	switch e := entry.(type) {
	case Vector:
		return checkVector(e, dim)
	case *Vector:
		return checkVector(*e, dim)
	case Matrix:
		return checkMatrix(e, dim)
	case *Matrix:
		return checkMatrix(*e, dim)
	case DefinitionMap:
		if e == nil {
			return fmt.Errorf("%w: definition map is null", ErrShapeMismatch)
		}
	case *DefinitionMap:
		if *e == nil {
			return fmt.Errorf("%w: definition map is null", ErrShapeMismatch)
		}
	}
	return nil
}

// decodeEntry parses stored bytes into entry and checks their shape. Any
// failure of the stored data is reported as ErrCorruptEntry.
func decodeEntry(data []byte, entry any, dim int) error {
	if err := json.Unmarshal(data, entry); err != nil {
		var invalid *json.InvalidUnmarshalError
		if errors.As(err, &invalid) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if err := checkShape(entry, dim); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return nil
}

// VerifyEntry checks stored bytes without knowing which cache wrote them.
// They must be valid JSON. An array of numbers is checked as a Vector and an
// array of number arrays as a Matrix, both against dim. Any other value is
// accepted as a named document.
func VerifyEntry(data []byte, dim int) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	arr, ok := value.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}

	if _, ok := arr[0].(float64); ok {
		if !allNumbers(arr) {
			return nil
		}
		if len(arr) != dim {
			return fmt.Errorf("%w: vector has %d dimensions, want %d", ErrCorruptEntry, len(arr), dim)
		}
		return nil
	}

	for i, row := range arr {
		nums, ok := row.([]any)
		if !ok || !allNumbers(nums) {
			return nil
		}
		if len(nums) != dim {
			return fmt.Errorf("%w: row %d has %d dimensions, want %d", ErrCorruptEntry, i, len(nums), dim)
		}
	}
	return nil
}

func allNumbers(values []any) bool {
	for _, v := range values {
		if _, ok := v.(float64); !ok {
			return false
		}
	}
	return true
}
