// Package scalar reads and writes single little-endian values of a
// schema.TypeID at a byte offset inside a packed buffer.
package scalar

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/banshee-data/pointbake/internal/pointcloud/schema"
)

// OutOfBoundsError reports a read or write that would run past the buffer.
type OutOfBoundsError struct {
	Offset int
	Width  int
	Len    int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("scalar: access [%d,%d) out of bounds for %d-byte buffer",
		e.Offset, e.Offset+e.Width, e.Len)
}

func span(buf []byte, t schema.TypeID, off int) ([]byte, error) {
	w, err := t.Width()
	if err != nil {
		return nil, err
	}
	width := int(w)
	if off < 0 || off > len(buf)-width {
		return nil, &OutOfBoundsError{Offset: off, Width: width, Len: len(buf)}
	}
	return buf[off : off+width], nil
}

// Decode reads one value of type t at off and widens it to float64.
// Signed integers sign-extend; uint64/int64 values beyond 2^53 lose
// precision the same way any float64 conversion does.
func Decode(buf []byte, t schema.TypeID, off int) (float64, error) {
	b, err := span(buf, t, off)
	if err != nil {
		return 0, err
	}

	switch t {
	case schema.Int8:
		return float64(int8(b[0])), nil
	case schema.Uint8:
		return float64(b[0]), nil
	case schema.Int16:
		return float64(int16(binary.LittleEndian.Uint16(b))), nil
	case schema.Uint16:
		return float64(binary.LittleEndian.Uint16(b)), nil
	case schema.Int32:
		return float64(int32(binary.LittleEndian.Uint32(b))), nil
	case schema.Uint32:
		return float64(binary.LittleEndian.Uint32(b)), nil
	case schema.Int64:
		return float64(int64(binary.LittleEndian.Uint64(b))), nil
	case schema.Uint64:
		return float64(binary.LittleEndian.Uint64(b)), nil
	case schema.Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case schema.Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	default:
		return 0, &schema.UnsupportedTypeError{ID: t}
	}
}

// colorScale is applied to channel values below 1.0, which are taken to be
// already normalized.
const colorScale = 256

// DecodeColorChannel reads a color channel and reduces it to a byte.
// Values below 1.0 are multiplied by 256 first; the result is clamped to
// [0, 255] and truncated.
func DecodeColorChannel(buf []byte, t schema.TypeID, off int) (uint8, error) {
	v, err := Decode(buf, t, off)
	if err != nil {
		return 0, err
	}
	return ColorByte(v), nil
}

// ColorByte applies the color channel reduction to an already decoded value.
func ColorByte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 1.0 {
		v *= colorScale
	}
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// Encode writes v at off using the encoding of t. Integer types truncate
// toward zero after saturating to the type's range.
func Encode(buf []byte, t schema.TypeID, off int, v float64) error {
	b, err := span(buf, t, off)
	if err != nil {
		return err
	}

	switch t {
	case schema.Int8:
		b[0] = byte(int8(clamp(v, math.MinInt8, math.MaxInt8)))
	case schema.Uint8:
		b[0] = uint8(clamp(v, 0, math.MaxUint8))
	case schema.Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(clamp(v, math.MinInt16, math.MaxInt16))))
	case schema.Uint16:
		binary.LittleEndian.PutUint16(b, uint16(clamp(v, 0, math.MaxUint16)))
	case schema.Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(clamp(v, math.MinInt32, math.MaxInt32))))
	case schema.Uint32:
		binary.LittleEndian.PutUint32(b, uint32(clamp(v, 0, math.MaxUint32)))
	case schema.Int64:
		binary.LittleEndian.PutUint64(b, uint64(int64(clamp(v, math.MinInt64, math.MaxInt64))))
	case schema.Uint64:
		binary.LittleEndian.PutUint64(b, uint64(clamp(v, 0, math.MaxUint64)))
	case schema.Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case schema.Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	default:
		return &schema.UnsupportedTypeError{ID: t}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
