// Package atlas lays decoded point records out on a square texel grid.
//
// Record i lives at texel (i % width, i / width). The grid is the smallest
// square that holds every record; the trailing cells are padding and stay
// zero unless a caller asks for WithRepeatedPadding.
package atlas

import "math"

// Layout returns the grid size for n records: width = height = ceil(sqrt(n)).
// n == 0 yields a 0x0 grid, which callers treat as "no atlas".
func Layout(n uint32) (width, height uint32) {
	if n == 0 {
		return 0, 0
	}
	w := uint32(math.Sqrt(float64(n)))
	// Float sqrt can land one off either side for large n.
	for uint64(w)*uint64(w) > uint64(n) {
		w--
	}
	for uint64(w)*uint64(w) < uint64(n) {
		w++
	}
	return w, w
}

// Index maps texel (x, y) to its row-major linear index.
func Index(x, y, width uint32) uint32 {
	return y*width + x
}

// Coord maps a linear index back to its texel.
func Coord(i, width uint32) (x, y uint32) {
	if width == 0 {
		return 0, 0
	}
	return i % width, i / width
}
