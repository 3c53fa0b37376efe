package atlas

import (
	"bytes"
	"encoding/binary"
	"image"
	"math"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
	"golang.org/x/image/tiff"
)

func TestLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    uint32
		want uint32
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{4, 2},
		{5, 3},
		{10, 4},
		{16, 4},
		{17, 5},
		{1_000_000, 1000},
		{1_000_001, 1001},
		{math.MaxUint32, 65536},
	}

	for _, tt := range tests {
		w, h := Layout(tt.n)
		assert.Equal(t, tt.want, w, "width for n=%d", tt.n)
		assert.Equal(t, w, h, "height for n=%d", tt.n)
	}
}

func TestLayoutIsSmallestSquare(t *testing.T) {
	t.Parallel()

	for n := uint32(0); n < 5000; n++ {
		w, _ := Layout(n)
		cells := uint64(w) * uint64(w)
		if cells < uint64(n) {
			t.Fatalf("n=%d: %dx%d grid too small", n, w, w)
		}
		if w > 0 && uint64(w-1)*uint64(w-1) >= uint64(n) {
			t.Fatalf("n=%d: width %d is not minimal", n, w)
		}
	}
}

func TestIndexCoordInverse(t *testing.T) {
	const width = 7
	for i := uint32(0); i < width*width; i++ {
		x, y := Coord(i, width)
		assert.Less(t, x, uint32(width))
		assert.Equal(t, i, Index(x, y, width))
	}

	x, y := Coord(5, 0)
	assert.Zero(t, x)
	assert.Zero(t, y)
}

func TestNewAllocatesZeroedGrids(t *testing.T) {
	a := New(10)
	assert.Equal(t, uint32(4), a.Width)
	assert.Equal(t, uint32(4), a.Height)
	assert.Equal(t, 16, a.Cells())
	require.Len(t, a.Positions, 16)
	require.Len(t, a.Colors, 16)
	for i := range a.Positions {
		assert.Zero(t, a.Positions[i])
		assert.Zero(t, a.Colors[i])
	}

	empty := New(0)
	assert.True(t, empty.Empty())
	assert.Zero(t, empty.Width)
	assert.Empty(t, empty.Positions)
}

func filledAtlas(n uint32) *PointAtlas {
	a := New(n)
	a.HasColor = true
	for i := 0; i < int(n); i++ {
		a.Positions[i] = [4]float32{float32(i), float32(2 * i), float32(-i), 0}
		a.Colors[i] = [4]uint8{uint8(i), uint8(10 + i), uint8(20 + i), 255}
	}
	return a
}

func TestAccessors(t *testing.T) {
	a := filledAtlas(5)

	assert.Equal(t, [3]float32{3, 6, -3}, a.Position(3))
	assert.Equal(t, [3]uint8{3, 13, 23}, a.Color(3))

	p, c := a.At(1, 1) // index 4 in a 3-wide grid
	assert.Equal(t, [4]float32{4, 8, -4, 0}, p)
	assert.Equal(t, [4]uint8{4, 14, 24, 255}, c)

	p64 := a.Positions64()
	require.Len(t, p64, 5)
	assert.Equal(t, [3]float64{2, 4, -2}, p64[2])
}

func TestWithRepeatedPadding(t *testing.T) {
	a := filledAtlas(5) // 3x3, 4 padding cells
	padded := a.WithRepeatedPadding()

	// Original untouched.
	for i := 5; i < 9; i++ {
		assert.Zero(t, a.Positions[i])
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Positions[i], padded.Positions[i])
	}
	for cell := 5; cell < 9; cell++ {
		src := (cell * paddingStride) % 5
		assert.Equal(t, a.Positions[src], padded.Positions[cell], "cell %d", cell)
		assert.Equal(t, a.Colors[src], padded.Colors[cell], "cell %d", cell)
	}

	assert.True(t, New(0).WithRepeatedPadding().Empty())
}

func TestBoundsAndSummary(t *testing.T) {
	a := filledAtlas(5)

	lo, hi, ok := a.Bounds()
	require.True(t, ok)
	assert.Equal(t, [3]float64{0, 0, -4}, lo)
	assert.Equal(t, [3]float64{4, 8, 0}, hi)

	s := a.Summarize()
	assert.Equal(t, uint32(5), s.PointCount)
	assert.InDelta(t, 2.0, s.Centroid[0], 1e-12)
	assert.InDelta(t, 4.0, s.Centroid[1], 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), s.StdDev[0], 1e-12)

	single := filledAtlas(1)
	s = single.Summarize()
	assert.Zero(t, s.StdDev)

	_, _, ok = New(0).Bounds()
	assert.False(t, ok)
}

func TestColorImageAndWebP(t *testing.T) {
	a := filledAtlas(5)
	img := a.ColorImage()
	assert.Equal(t, image.Rect(0, 0, 3, 3), img.Bounds())
	assert.Equal(t, uint8(14), img.NRGBAAt(1, 1).G)
	assert.Equal(t, uint8(0), img.NRGBAAt(2, 2).A, "padding stays transparent")

	var buf bytes.Buffer
	require.NoError(t, a.EncodeColorWebP(&buf, false))

	decoded, err := nativewebp.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
	r, g, b, _ := decoded.At(1, 0).RGBA()
	assert.Equal(t, [3]uint32{1, 11, 21}, [3]uint32{r >> 8, g >> 8, b >> 8})

	assert.ErrorIs(t, New(0).EncodeColorWebP(&buf, false), ErrEmptyAtlas)
}

func TestColorThumbnail(t *testing.T) {
	a := filledAtlas(4) // 2x2
	thumb, err := a.ColorThumbnail(8)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 8), thumb.Bounds())
	assert.Equal(t, a.Colors[3][0], thumb.NRGBAAt(7, 7).R)

	var buf bytes.Buffer
	require.NoError(t, a.EncodeThumbnailWebP(&buf, 8, true))
	decoded, err := nativewebp.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, thumb.Bounds(), decoded.Bounds())

	_, err = a.ColorThumbnail(0)
	assert.Error(t, err)
	_, err = New(0).ColorThumbnail(8)
	assert.ErrorIs(t, err, ErrEmptyAtlas)
}

func TestPositionImageAndTIFF(t *testing.T) {
	a := filledAtlas(5)
	img, err := a.PositionImage()
	require.NoError(t, err)

	first := img.NRGBA64At(0, 0)
	assert.Equal(t, uint16(0), first.R)
	assert.Equal(t, uint16(0xFFFF), first.B, "z=0 is the max")
	last := img.NRGBA64At(1, 1)
	assert.Equal(t, uint16(0xFFFF), last.R)
	assert.Equal(t, uint16(0xFFFF), last.A)
	assert.Equal(t, uint16(0), img.NRGBA64At(2, 2).A)

	var buf bytes.Buffer
	require.NoError(t, a.EncodePositionTIFF(&buf))
	decoded, err := tiff.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	_, err = New(0).PositionImage()
	assert.ErrorIs(t, err, ErrEmptyAtlas)
}

func TestNormalize16DegenerateExtent(t *testing.T) {
	assert.Equal(t, uint16(0), normalize16(3, 3, 3))
	assert.Equal(t, uint16(0x8000), normalize16(0.5, 0, 1))
}

func TestHalfPositions(t *testing.T) {
	a := New(2)
	a.Positions[0] = [4]float32{1.5, -2, 0.25, 0}
	a.Positions[1] = [4]float32{65504, 0, 0, 0}

	half := a.HalfPositions()
	require.Len(t, half, 4*4)
	assert.Equal(t, float32(1.5), float16.Frombits(half[0]).Float32())
	assert.Equal(t, float32(-2), float16.Frombits(half[1]).Float32())
	assert.Equal(t, float32(0.25), float16.Frombits(half[2]).Float32())
	assert.Equal(t, float32(65504), float16.Frombits(half[4]).Float32())
	assert.Equal(t, uint16(0), half[15])
}

func TestWriteHalfPositions(t *testing.T) {
	a := New(1)
	a.Positions[0] = [4]float32{2, 0.5, -1, 0}

	var buf bytes.Buffer
	require.NoError(t, a.WriteHalfPositions(&buf))
	require.Equal(t, 8, buf.Len())
	assert.Equal(t, float32(2), float16.Frombits(binary.LittleEndian.Uint16(buf.Bytes()[0:])).Float32())
	assert.Equal(t, float32(-1), float16.Frombits(binary.LittleEndian.Uint16(buf.Bytes()[4:])).Float32())

	assert.ErrorIs(t, New(0).WriteHalfPositions(&buf), ErrEmptyAtlas)
}
