package atlas

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// paddingStride is the prime step used to pick which real point a padding
// texel repeats.
const paddingStride = 132049

// PointAtlas holds decoded point records on a square grid.
// Positions are (x, y, z, 0) and colors are (r, g, b, 255). Cells at or past
// PointCount are padding.
type PointAtlas struct {
	Width      uint32
	Height     uint32
	PointCount uint32
	HasColor   bool

	Positions [][4]float32
	Colors    [][4]uint8
}

// New allocates a zeroed atlas sized for n points. Both grids are allocated
// once, up front, so decoders can hand out disjoint sub-slices.
func New(n uint32) *PointAtlas {
	w, h := Layout(n)
	cells := int(w) * int(h)
	return &PointAtlas{
		Width:      w,
		Height:     h,
		PointCount: n,
		Positions:  make([][4]float32, cells),
		Colors:     make([][4]uint8, cells),
	}
}

// Empty reports whether the atlas holds no points.
func (a *PointAtlas) Empty() bool {
	return a == nil || a.PointCount == 0
}

// Cells returns width*height.
func (a *PointAtlas) Cells() int {
	return int(a.Width) * int(a.Height)
}

// Position returns the xyz of record i.
func (a *PointAtlas) Position(i int) [3]float32 {
	p := a.Positions[i]
	return [3]float32{p[0], p[1], p[2]}
}

// Color returns the rgb of record i.
func (a *PointAtlas) Color(i int) [3]uint8 {
	c := a.Colors[i]
	return [3]uint8{c[0], c[1], c[2]}
}

// At returns the position and color stored at texel (x, y).
func (a *PointAtlas) At(x, y uint32) ([4]float32, [4]uint8) {
	i := Index(x, y, a.Width)
	return a.Positions[i], a.Colors[i]
}

// Positions64 upcasts the first PointCount positions to float64 triples.
func (a *PointAtlas) Positions64() [][3]float64 {
	out := make([][3]float64, a.PointCount)
	for i := range out {
		p := a.Positions[i]
		out[i] = [3]float64{float64(p[0]), float64(p[1]), float64(p[2])}
	}
	return out
}

// WithRepeatedPadding returns a copy whose padding cells repeat real points.
// Renderers that draw every texel then never emit a stray point at the origin.
func (a *PointAtlas) WithRepeatedPadding() *PointAtlas {
	out := &PointAtlas{
		Width:      a.Width,
		Height:     a.Height,
		PointCount: a.PointCount,
		HasColor:   a.HasColor,
		Positions:  make([][4]float32, len(a.Positions)),
		Colors:     make([][4]uint8, len(a.Colors)),
	}
	copy(out.Positions, a.Positions)
	copy(out.Colors, a.Colors)
	if a.PointCount == 0 {
		return out
	}

	n := uint64(a.PointCount)
	for cell := n; cell < uint64(len(out.Positions)); cell++ {
		src := (cell * paddingStride) % n
		out.Positions[cell] = a.Positions[src]
		out.Colors[cell] = a.Colors[src]
	}
	return out
}

// axes splits the first PointCount positions into per-axis columns.
func (a *PointAtlas) axes() (xs, ys, zs []float64) {
	n := int(a.PointCount)
	xs = make([]float64, n)
	ys = make([]float64, n)
	zs = make([]float64, n)
	for i := 0; i < n; i++ {
		p := a.Positions[i]
		xs[i], ys[i], zs[i] = float64(p[0]), float64(p[1]), float64(p[2])
	}
	return xs, ys, zs
}

// Bounds returns the axis-aligned bounding box of the stored points.
// ok is false for an empty atlas.
func (a *PointAtlas) Bounds() (lo, hi [3]float64, ok bool) {
	if a.Empty() {
		return lo, hi, false
	}
	xs, ys, zs := a.axes()
	for axis, col := range [][]float64{xs, ys, zs} {
		lo[axis] = floats.Min(col)
		hi[axis] = floats.Max(col)
	}
	return lo, hi, true
}

// Summary describes the spread of the points in an atlas.
type Summary struct {
	PointCount uint32
	Width      uint32
	Centroid   [3]float64
	StdDev     [3]float64
	Min        [3]float64
	Max        [3]float64
}

// Summarize computes per-axis centroid and spread.
func (a *PointAtlas) Summarize() Summary {
	s := Summary{PointCount: a.PointCount, Width: a.Width}
	if a.Empty() {
		return s
	}
	xs, ys, zs := a.axes()
	for axis, col := range [][]float64{xs, ys, zs} {
		if len(col) == 1 {
			s.Centroid[axis] = col[0]
			continue
		}
		s.Centroid[axis], s.StdDev[axis] = stat.MeanStdDev(col, nil)
	}
	s.Min, s.Max, _ = a.Bounds()
	return s
}
