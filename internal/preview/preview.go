// Package preview renders quick-look scatter plots of a baked atlas.
package preview

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/pointbake/internal/pointcloud/atlas"
)

// DefaultMaxPoints caps how many points a single preview draws.
const DefaultMaxPoints = 50000

// ErrNoPoints is returned when asked to plot an empty atlas.
var ErrNoPoints = errors.New("preview: atlas has no points")

// View selects which pair of axes a preview projects onto.
type View int

const (
	// Top looks down the Z axis (X across, Y up).
	Top View = iota
	// Side looks along the Y axis (X across, Z up).
	Side
)

func (v View) String() string {
	switch v {
	case Top:
		return "top"
	case Side:
		return "side"
	default:
		return fmt.Sprintf("View(%d)", int(v))
	}
}

// axes returns the atlas components plotted on x and y.
func (v View) axes() (int, int, string, string) {
	if v == Side {
		return 0, 2, "X", "Z"
	}
	return 0, 1, "X", "Y"
}

// Plotter renders atlas previews.
type Plotter struct {
	// SizeInches is the side length of the square output image.
	SizeInches float64
	// MaxPoints limits drawn points; larger atlases are subsampled evenly.
	MaxPoints int
}

// NewPlotter returns a Plotter producing square images of sizeInches.
func NewPlotter(sizeInches float64) *Plotter {
	return &Plotter{SizeInches: sizeInches, MaxPoints: DefaultMaxPoints}
}

// sample returns the record indices to draw.
func (p *Plotter) sample(n int) []int {
	limit := p.MaxPoints
	if limit <= 0 || limit > n {
		limit = n
	}
	idx := make([]int, limit)
	for i := range idx {
		idx[i] = int(int64(i) * int64(n) / int64(limit))
	}
	return idx
}

// Plot builds the scatter plot for one view. Points carry their atlas
// color when the atlas has one.
func (p *Plotter) Plot(a *atlas.PointAtlas, v View) (*plot.Plot, error) {
	if a.Empty() {
		return nil, ErrNoPoints
	}
	ax, ay, lx, ly := v.axes()

	idx := p.sample(int(a.PointCount))
	pts := make(plotter.XYs, len(idx))
	for i, rec := range idx {
		pos := a.Positions[rec]
		pts[i] = plotter.XY{X: float64(pos[ax]), Y: float64(pos[ay])}
	}

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	sc.GlyphStyle.Radius = vg.Points(0.75)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	if a.HasColor {
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			c := a.Colors[idx[i]]
			gs := sc.GlyphStyle
			gs.Color = color.NRGBA{R: c[0], G: c[1], B: c[2], A: 255}
			return gs
		}
	} else {
		sc.GlyphStyle.Color = color.Gray{Y: 40}
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("%s view (%d of %d points)", v, len(idx), a.PointCount)
	pl.X.Label.Text = lx
	pl.Y.Label.Text = ly
	pl.Add(plotter.NewGrid(), sc)
	return pl, nil
}

// WritePNG renders one view as PNG into w.
func (p *Plotter) WritePNG(w io.Writer, a *atlas.PointAtlas, v View) error {
	pl, err := p.Plot(a, v)
	if err != nil {
		return err
	}
	size := vg.Length(p.SizeInches) * vg.Inch
	wt, err := pl.WriterTo(size, size, "png")
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("preview: write %s: %w", v, err)
	}
	return nil
}

// SaveAll writes preview_top.png and preview_side.png into dir and returns
// their paths.
func (p *Plotter) SaveAll(dir string, a *atlas.PointAtlas) ([]string, error) {
	var paths []string
	size := vg.Length(p.SizeInches) * vg.Inch
	for _, v := range []View{Top, Side} {
		pl, err := p.Plot(a, v)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("preview_%s.png", v))
		if err := pl.Save(size, size, path); err != nil {
			return paths, fmt.Errorf("preview: save %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
