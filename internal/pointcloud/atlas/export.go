package atlas

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/x448/float16"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// ErrEmptyAtlas is returned by exporters when there is nothing to encode.
var ErrEmptyAtlas = errors.New("atlas: no points")

// Texel rows map straight onto image rows: texel (x, y) is pixel (x, y).
// This is the raw texture upload order, not a bottom-up screen orientation.

// ColorImage returns the color grid as an NRGBA image. Padding cells keep
// whatever the grid holds (zero unless padding was repeated).
func (a *PointAtlas) ColorImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, int(a.Width), int(a.Height)))
	for i, c := range a.Colors {
		x, y := Coord(uint32(i), a.Width)
		img.SetNRGBA(int(x), int(y), color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]})
	}
	return img
}

// EncodeColorWebP writes the color grid as a lossless WebP.
func (a *PointAtlas) EncodeColorWebP(w io.Writer, extended bool) error {
	if a.Empty() {
		return ErrEmptyAtlas
	}
	if err := nativewebp.Encode(w, a.ColorImage(), &nativewebp.Options{UseExtendedFormat: extended}); err != nil {
		return fmt.Errorf("atlas: webp encode: %w", err)
	}
	return nil
}

// ColorThumbnail scales the color grid to size x size with nearest-neighbour
// sampling so individual points stay crisp.
func (a *PointAtlas) ColorThumbnail(size int) (*image.NRGBA, error) {
	if a.Empty() {
		return nil, ErrEmptyAtlas
	}
	if size <= 0 {
		return nil, fmt.Errorf("atlas: thumbnail size must be positive, got %d", size)
	}
	src := a.ColorImage()
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// EncodeThumbnailWebP writes ColorThumbnail(size) as a lossless WebP.
func (a *PointAtlas) EncodeThumbnailWebP(w io.Writer, size int, extended bool) error {
	img, err := a.ColorThumbnail(size)
	if err != nil {
		return err
	}
	if err := nativewebp.Encode(w, img, &nativewebp.Options{UseExtendedFormat: extended}); err != nil {
		return fmt.Errorf("atlas: webp encode: %w", err)
	}
	return nil
}

// PositionImage returns the position grid normalized to the atlas bounds,
// one 16-bit channel per axis. Real points have full alpha, padding has none.
func (a *PointAtlas) PositionImage() (*image.NRGBA64, error) {
	lo, hi, ok := a.Bounds()
	if !ok {
		return nil, ErrEmptyAtlas
	}

	img := image.NewNRGBA64(image.Rect(0, 0, int(a.Width), int(a.Height)))
	for i := 0; i < int(a.PointCount); i++ {
		p := a.Positions[i]
		var ch [3]uint16
		for axis := 0; axis < 3; axis++ {
			ch[axis] = normalize16(float64(p[axis]), lo[axis], hi[axis])
		}
		x, y := Coord(uint32(i), a.Width)
		img.SetNRGBA64(int(x), int(y), color.NRGBA64{R: ch[0], G: ch[1], B: ch[2], A: 0xFFFF})
	}
	return img, nil
}

func normalize16(v, lo, hi float64) uint16 {
	extent := hi - lo
	if extent <= 0 {
		return 0
	}
	t := (v - lo) / extent
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 0xFFFF
	default:
		return uint16(t*0xFFFF + 0.5)
	}
}

// EncodePositionTIFF writes PositionImage as a deflate-compressed TIFF.
func (a *PointAtlas) EncodePositionTIFF(w io.Writer) error {
	img, err := a.PositionImage()
	if err != nil {
		return err
	}
	if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("atlas: tiff encode: %w", err)
	}
	return nil
}

// HalfPositions returns the position grid as RGBA half-float texels,
// four uint16 words per cell, ready for an RGBAHalf texture upload.
func (a *PointAtlas) HalfPositions() []uint16 {
	out := make([]uint16, 4*len(a.Positions))
	for i, p := range a.Positions {
		for c := 0; c < 4; c++ {
			out[4*i+c] = float16.Fromfloat32(p[c]).Bits()
		}
	}
	return out
}

// WriteHalfPositions writes HalfPositions as little-endian words.
func (a *PointAtlas) WriteHalfPositions(w io.Writer) error {
	if a.Empty() {
		return ErrEmptyAtlas
	}
	if err := binary.Write(w, binary.LittleEndian, a.HalfPositions()); err != nil {
		return fmt.Errorf("atlas: write half positions: %w", err)
	}
	return nil
}
