package decode

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/pointbake/internal/monitoring"
	"github.com/banshee-data/pointbake/internal/pointcloud/atlas"
	"github.com/banshee-data/pointbake/internal/pointcloud/scalar"
	"github.com/banshee-data/pointbake/internal/pointcloud/schema"
)

// ErrEmptyBuffer is returned when records are expected but no bytes were supplied.
var ErrEmptyBuffer = errors.New("decode: record buffer is empty")

// ErrTooManyRecords is returned when a record count does not fit the atlas index space.
var ErrTooManyRecords = errors.New("decode: record count exceeds 2^32-1")

// TruncatedError is returned in strict mode when the buffer is shorter than
// the declared records require. Err is the bounds failure of the first
// record that does not fit.
type TruncatedError struct {
	Records  uint64
	Stride   uint32
	Need     uint64
	Have     int
	FirstBad uint64
	Err      error
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("decode: buffer holds %d bytes, %d records of stride %d need %d (first truncated record %d)",
		e.Have, e.Records, e.Stride, e.Need, e.FirstBad)
}

func (e *TruncatedError) Unwrap() error { return e.Err }

// Stats reports what a point decode did.
type Stats struct {
	Records  int
	Decoded  int
	Skipped  int
	Chunks   int
	HasColor bool
}

// DecodePoints decodes count packed records from buf into a new atlas.
// Record i lands at atlas index i regardless of how chunks are scheduled.
// Schema problems fail the whole decode before any chunk starts. Records
// that run past the end of buf are skipped in lenient mode and fail the
// decode up front in strict mode.
func DecodePoints(buf []byte, s *schema.RecordSchema, count uint64, opts Options) (*atlas.PointAtlas, Stats, error) {
	var stats Stats

	if s == nil {
		return nil, stats, errors.New("decode: nil schema")
	}
	if err := checkLookup(s); err != nil {
		return nil, stats, err
	}
	if count > math.MaxUint32 {
		return nil, stats, ErrTooManyRecords
	}

	out := atlas.New(uint32(count))
	out.HasColor = s.HasColor()
	stats.Records = int(count)
	stats.HasColor = out.HasColor
	if count == 0 {
		return out, stats, nil
	}
	if len(buf) == 0 {
		return nil, stats, ErrEmptyBuffer
	}

	stride := uint64(s.Stride)
	if need := count * stride; uint64(len(buf)) < need && opts.Tolerance == Strict {
		first := uint64(len(buf)) / stride
		return nil, stats, &TruncatedError{
			Records:  count,
			Stride:   s.Stride,
			Need:     need,
			Have:     len(buf),
			FirstBad: first,
			Err: &scalar.OutOfBoundsError{
				Offset: int(first * stride),
				Width:  int(stride),
				Len:    len(buf),
			},
		}
	}

	chunks := partition(int(count), opts.pointChunk())
	skipped := make([]int, len(chunks))
	stats.Chunks = len(chunks)

	d := recordDecoder{buf: buf, lookup: s.Lookup, stride: int(stride), color: out.HasColor}
	err := runChunks(chunks, opts.workers(), func(c chunk) error {
		n, err := d.decodeRange(c, out.Positions[c.start:c.end], out.Colors[c.start:c.end])
		skipped[c.start/opts.pointChunk()] = n
		return err
	})
	if err != nil {
		return nil, stats, err
	}

	for _, n := range skipped {
		stats.Skipped += n
	}
	stats.Decoded = stats.Records - stats.Skipped
	if stats.Skipped > 0 {
		monitoring.Logf("decode: skipped %d of %d truncated records (buffer %d bytes, stride %d)",
			stats.Skipped, stats.Records, len(buf), stride)
	}
	monitoring.Debugf("decode: %d records in %d chunks, color=%v", stats.Records, stats.Chunks, stats.HasColor)

	return out, stats, nil
}

// checkLookup validates the fields the decoder will read before any work starts.
func checkLookup(s *schema.RecordSchema) error {
	if err := s.RequirePosition(); err != nil {
		return err
	}
	if s.Stride == 0 {
		return schema.ErrEmptySchema
	}
	for i, ref := range s.Lookup {
		if !ref.Present {
			continue
		}
		w, err := ref.Type.Width()
		if err != nil {
			return &schema.UnsupportedTypeError{Field: schema.FieldIndex(i).String(), ID: ref.Type}
		}
		if ref.Offset+w > s.Stride {
			return fmt.Errorf("decode: field %s [%d,%d) exceeds stride %d",
				schema.FieldIndex(i), ref.Offset, ref.Offset+w, s.Stride)
		}
	}
	return nil
}

// recordDecoder is shared read-only by every chunk.
type recordDecoder struct {
	buf    []byte
	lookup schema.Lookup
	stride int
	color  bool
}

// decodeRange fills positions and colors, which are the atlas slots for
// records [c.start, c.end). Returns how many records were skipped.
func (d *recordDecoder) decodeRange(c chunk, positions [][4]float32, colors [][4]uint8) (int, error) {
	skipped := 0
	for i := c.start; i < c.end; i++ {
		base := i * d.stride
		if base > len(d.buf)-d.stride {
			skipped++
			continue
		}
		rec := d.buf[base : base+d.stride]

		var pos [4]float32
		for axis, field := range [3]schema.FieldIndex{schema.FieldX, schema.FieldY, schema.FieldZ} {
			ref := d.lookup[field]
			v, err := scalar.Decode(rec, ref.Type, int(ref.Offset))
			if err != nil {
				return skipped, fmt.Errorf("decode: record %d %s: %w", i, field, err)
			}
			pos[axis] = float32(v)
		}
		positions[i-c.start] = pos

		if !d.color {
			continue
		}
		col := [4]uint8{3: 255}
		for ch, field := range [3]schema.FieldIndex{schema.FieldRed, schema.FieldGreen, schema.FieldBlue} {
			ref := d.lookup[field]
			b, err := scalar.DecodeColorChannel(rec, ref.Type, int(ref.Offset))
			if err != nil {
				return skipped, fmt.Errorf("decode: record %d %s: %w", i, field, err)
			}
			col[ch] = b
		}
		colors[i-c.start] = col
	}
	return skipped, nil
}
