package schema

import "fmt"

// Dimension is one entry of a source's field list, as reported by the
// point provider before any resolution.
type Dimension struct {
	Name           string `json:"name"`
	Interpretation string `json:"interpretation"`
	Width          uint32 `json:"size"`
}

// FieldDescriptor is a resolved field: its type and where it sits inside a record.
type FieldDescriptor struct {
	Name   string
	Type   TypeID
	Offset uint32
	Width  uint32
}

// FieldIndex addresses one of the six well-known fields in a Lookup.
type FieldIndex int

const (
	FieldX FieldIndex = iota
	FieldY
	FieldZ
	FieldRed
	FieldGreen
	FieldBlue

	numWellKnown
)

var wellKnownNames = [numWellKnown]string{"X", "Y", "Z", "Red", "Green", "Blue"}

func (i FieldIndex) String() string {
	if i < 0 || i >= numWellKnown {
		return fmt.Sprintf("FieldIndex(%d)", int(i))
	}
	return wellKnownNames[i]
}

// FieldRef is the compact {type, offset} pair used on the hot decode path.
// Present is false when the source did not declare the field.
type FieldRef struct {
	Type    TypeID
	Offset  uint32
	Present bool
}

// Lookup holds the six well-known fields indexed by FieldIndex.
type Lookup [numWellKnown]FieldRef

// HasPosition reports whether X, Y and Z are all present.
func (l *Lookup) HasPosition() bool {
	return l[FieldX].Present && l[FieldY].Present && l[FieldZ].Present
}

// HasColor reports whether Red, Green and Blue are all present.
func (l *Lookup) HasColor() bool {
	return l[FieldRed].Present && l[FieldGreen].Present && l[FieldBlue].Present
}

// RecordSchema is the resolved layout of one packed record.
type RecordSchema struct {
	Fields []FieldDescriptor
	Stride uint32
	Lookup Lookup

	byName map[string]int
}

// Resolve builds a RecordSchema from an ordered dimension list.
// Offsets follow declaration order; the stride is the sum of all widths.
// A width above the type's natural width pads the field: the value sits at
// the field offset and the trailing bytes are skipped.
// Unknown field names are kept for stride computation but are only
// reachable through Field, never through Lookup.
func Resolve(dims []Dimension) (*RecordSchema, error) {
	if len(dims) == 0 {
		return nil, ErrEmptySchema
	}

	s := &RecordSchema{
		Fields: make([]FieldDescriptor, 0, len(dims)),
		byName: make(map[string]int, len(dims)),
	}

	var offset uint32
	for _, d := range dims {
		if d.Name == "" {
			return nil, fmt.Errorf("schema: field at offset %d has no name", offset)
		}
		if _, dup := s.byName[d.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate field %q", d.Name)
		}

		id, err := ParseInterpretation(d.Interpretation)
		if err != nil {
			return nil, &UnsupportedTypeError{Field: d.Name, Interpretation: d.Interpretation}
		}
		natural, err := id.Width()
		if err != nil {
			return nil, err
		}
		width := d.Width
		if width == 0 {
			return nil, fmt.Errorf("schema: field %q has zero width", d.Name)
		}
		if width < natural {
			return nil, &WidthMismatchError{Field: d.Name, Type: id, Declared: width, Expected: natural}
		}

		s.byName[d.Name] = len(s.Fields)
		s.Fields = append(s.Fields, FieldDescriptor{
			Name:   d.Name,
			Type:   id,
			Offset: offset,
			Width:  width,
		})
		offset += width
	}
	s.Stride = offset

	for i, name := range wellKnownNames {
		if idx, ok := s.byName[name]; ok {
			f := s.Fields[idx]
			s.Lookup[i] = FieldRef{Type: f.Type, Offset: f.Offset, Present: true}
		}
	}

	return s, nil
}

// Field returns the descriptor for name.
func (s *RecordSchema) Field(name string) (FieldDescriptor, bool) {
	idx, ok := s.byName[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return s.Fields[idx], true
}

// RequirePosition returns ErrMissingPosition unless X, Y and Z are declared.
func (s *RecordSchema) RequirePosition() error {
	if !s.Lookup.HasPosition() {
		return ErrMissingPosition
	}
	return nil
}

// HasColor reports whether the schema carries all three color channels.
func (s *RecordSchema) HasColor() bool {
	return s.Lookup.HasColor()
}

// Validate checks the stride invariant for every field. Resolve always
// produces a valid schema; this exists for schemas assembled by hand.
func (s *RecordSchema) Validate() error {
	if s.Stride == 0 {
		return ErrEmptySchema
	}
	for _, f := range s.Fields {
		w, err := f.Type.Width()
		if err != nil {
			return &UnsupportedTypeError{Field: f.Name, ID: f.Type}
		}
		if f.Width < w {
			return &WidthMismatchError{Field: f.Name, Type: f.Type, Declared: f.Width, Expected: w}
		}
		if f.Offset+f.Width > s.Stride {
			return fmt.Errorf("schema: field %s [%d,%d) exceeds stride %d",
				f.Name, f.Offset, f.Offset+f.Width, s.Stride)
		}
	}
	for i, ref := range s.Lookup {
		if !ref.Present {
			continue
		}
		if !ref.Type.Valid() {
			return &UnsupportedTypeError{Field: FieldIndex(i).String(), ID: ref.Type}
		}
	}
	return nil
}
