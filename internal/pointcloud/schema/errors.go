package schema

import (
	"errors"
	"fmt"
)

// ErrMissingPosition is returned when a schema lacks one of X, Y or Z.
var ErrMissingPosition = errors.New("schema: record has no X/Y/Z position fields")

// ErrEmptySchema is returned when a source declares no fields at all.
var ErrEmptySchema = errors.New("schema: no fields declared")

// UnsupportedTypeError reports an interpretation name or TypeID with no
// decode mapping. Either Interpretation or ID is set, never both.
type UnsupportedTypeError struct {
	Field          string
	Interpretation string
	ID             TypeID
}

func (e *UnsupportedTypeError) Error() string {
	var what string
	if e.Interpretation != "" {
		what = fmt.Sprintf("interpretation %q", e.Interpretation)
	} else {
		what = fmt.Sprintf("type id %d", uint8(e.ID))
	}
	if e.Field != "" {
		return fmt.Sprintf("schema: field %s: unsupported %s", e.Field, what)
	}
	return "schema: unsupported " + what
}

// WidthMismatchError reports a declared byte width too small to hold the
// field's type.
type WidthMismatchError struct {
	Field    string
	Type     TypeID
	Declared uint32
	Expected uint32
}

func (e *WidthMismatchError) Error() string {
	return fmt.Sprintf("schema: field %s: %s declared %d bytes, want %d",
		e.Field, e.Type, e.Declared, e.Expected)
}
