package decode

import (
	"fmt"

	"github.com/banshee-data/pointbake/internal/monitoring"
	"github.com/banshee-data/pointbake/internal/pointcloud/scalar"
	"github.com/banshee-data/pointbake/internal/pointcloud/schema"
)

// TriangleSize is the encoded size of one triangle: three little-endian uint32.
const TriangleSize = 12

// TriangleBuffer holds vertex-index triples in stream order.
type TriangleBuffer [][3]uint32

// Flat returns the indices as one slice, three per triangle.
func (t TriangleBuffer) Flat() []uint32 {
	out := make([]uint32, 0, 3*len(t))
	for _, tri := range t {
		out = append(out, tri[0], tri[1], tri[2])
	}
	return out
}

// MaxIndex returns the largest vertex index referenced, and false when empty.
func (t TriangleBuffer) MaxIndex() (uint32, bool) {
	if len(t) == 0 {
		return 0, false
	}
	var m uint32
	for _, tri := range t {
		m = max(m, tri[0], tri[1], tri[2])
	}
	return m, true
}

// DecodeTriangles decodes floor(len(buf)/12) triangles. A trailing partial
// triangle is dropped silently in both tolerance modes; an empty buffer
// yields an empty result.
func DecodeTriangles(buf []byte, opts Options) (TriangleBuffer, error) {
	n := len(buf) / TriangleSize
	if rem := len(buf) % TriangleSize; rem != 0 {
		monitoring.Debugf("decode: dropping %d trailing bytes of partial triangle", rem)
	}
	out := make(TriangleBuffer, n)
	if n == 0 {
		return out, nil
	}

	chunks := partition(n, opts.triangleChunk())
	err := runChunks(chunks, opts.workers(), func(c chunk) error {
		for i := c.start; i < c.end; i++ {
			off := i * TriangleSize
			for j := range out[i] {
				v, err := scalar.Decode(buf, schema.Uint32, off+4*j)
				if err != nil {
					return fmt.Errorf("decode: triangle %d: %w", i, err)
				}
				out[i][j] = uint32(v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
