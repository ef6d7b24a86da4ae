// Package grid holds the tile grid model grass is streamed on: integer cell
// coordinates, observer cell rounding and square rings around a center cell.
package grid

import (
	"iter"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Coord identifies a tile by its grid cell.
type Coord struct {
	X, Y int
}

// Add returns c offset by (dx, dy).
func (c Coord) Add(dx, dy int) Coord {
	return Coord{X: c.X + dx, Y: c.Y + dy}
}

// Center returns the world XZ center of the tile as (x, z).
func (c Coord) Center(gridSize float32) (float32, float32) {
	return float32(c.X) * gridSize, float32(c.Y) * gridSize
}

// CellOf returns the cell containing a world position. X maps to Coord.X and
// Z to Coord.Y. Halfway cases round to even.
func CellOf(pos mgl32.Vec3, gridSize float32) Coord {
	return Coord{
		X: int(math.RoundToEven(float64(pos.X() / gridSize))),
		Y: int(math.RoundToEven(float64(pos.Z() / gridSize))),
	}
}

// Chebyshev returns max(|dx|, |dy|), the ring index of an offset.
func Chebyshev(dx, dy int) int {
	return max(abs(dx), abs(dy))
}

// RingArea returns the number of cells in the square [-r, r] x [-r, r].
// A negative radius has no cells.
func RingArea(r int) int {
	if r < 0 {
		return 0
	}
	side := 2*r + 1
	return side * side
}

// Ring yields every offset in [-r, r] x [-r, r] with its linear index.
// X is the outer loop and Y the inner one; culling masks use the same order.
func Ring(r int) iter.Seq2[int, Coord] {
	return func(yield func(int, Coord) bool) {
		index := 0
		for x := -r; x <= r; x++ {
			for y := -r; y <= r; y++ {
				if !yield(index, Coord{X: x, Y: y}) {
					return
				}
				index++
			}
		}
	}
}

// Seed derives the per-tile random seed. It only depends on the coordinate so
// a tile regenerates identically on every pass. Arithmetic wraps at 32 bits
// and the result is never zero.
func Seed(c Coord) uint32 {
	x, y := int32(c.X), int32(c.Y)
	k := y%131 - x
	sx, sy := x*k, y*k
	s := uint32(sx*sx + sy*sy + 1)
	if s == 0 {
		return 1
	}
	return s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
