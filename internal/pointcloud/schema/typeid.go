package schema

import (
	"fmt"
	"strings"
)

// TypeID identifies the storage type of a single record field.
// The set is closed: every switch over TypeID must handle all ten members
// and treat anything else as an UnsupportedTypeError.
type TypeID uint8

const (
	TypeInvalid TypeID = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

// AllTypes lists every supported TypeID in declaration order.
var AllTypes = []TypeID{Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64, Float32, Float64}

// Width returns the encoded size of t in bytes.
func (t TypeID) Width() (uint32, error) {
	switch t {
	case Int8, Uint8:
		return 1, nil
	case Int16, Uint16:
		return 2, nil
	case Int32, Uint32, Float32:
		return 4, nil
	case Int64, Uint64, Float64:
		return 8, nil
	default:
		return 0, &UnsupportedTypeError{ID: t}
	}
}

// Valid reports whether t is one of the ten supported types.
func (t TypeID) Valid() bool {
	_, err := t.Width()
	return err == nil
}

func (t TypeID) String() string {
	switch t {
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Int64:
		return "int64"
	case Uint64:
		return "uint64"
	case Float32:
		return "float"
	case Float64:
		return "double"
	default:
		return fmt.Sprintf("TypeID(%d)", uint8(t))
	}
}

// integerPrefixes are matched by prefix, so "uint16_t" resolves as "uint16".
var integerPrefixes = []struct {
	prefix string
	id     TypeID
}{
	{"uint64", Uint64},
	{"uint32", Uint32},
	{"uint16", Uint16},
	{"uint8", Uint8},
	{"int64", Int64},
	{"int32", Int32},
	{"int16", Int16},
	{"int8", Int8},
}

// ParseInterpretation maps a source interpretation name onto a TypeID.
// Float names match exactly ("float", "double", "float32", "float64");
// integer names match by prefix.
func ParseInterpretation(name string) (TypeID, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "float", "float32":
		return Float32, nil
	case "double", "float64":
		return Float64, nil
	}
	for _, p := range integerPrefixes {
		if strings.HasPrefix(n, p.prefix) {
			return p.id, nil
		}
	}
	return TypeInvalid, &UnsupportedTypeError{Interpretation: name}
}
