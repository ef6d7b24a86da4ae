// Package lod models the distance tiers grass is generated at. A tier covers
// a square band of grid cells around the observer and carries its own density
// and render assets.
package lod

import (
	"errors"
	"fmt"

	"grassfield/internal/grid"
)

var (
	ErrNoLevels          = errors.New("lod: at least one level is required")
	ErrUnsortedLevels    = errors.New("lod: thresholds must be strictly ascending")
	ErrNegativeThreshold = errors.New("lod: threshold must not be negative")
	ErrNegativeDensity   = errors.New("lod: density must not be negative")
	ErrDensityIncreases  = errors.New("lod: smooth density needs densities that do not increase outward")
)

// Level is one tier. Threshold is the ring radius in cells up to which the
// tier applies; Density is the maximum number of instances per tile. Mesh and
// Material are opaque keys the renderer resolves.
type Level struct {
	Threshold int
	Density   int
	Mesh      string
	Material  string
}

// Ladder is the ordered list of tiers, nearest first. The last tier is the
// catch-all and its threshold is the streaming radius.
type Ladder []Level

// Validate checks ordering and ranges. With smooth set, densities must also be
// non-increasing so an interpolated density never exceeds the sizing of its
// own tier.
func (l Ladder) Validate(smooth bool) error {
	if len(l) == 0 {
		return ErrNoLevels
	}
	for i, lv := range l {
		if lv.Threshold < 0 {
			return fmt.Errorf("level %d: %w", i, ErrNegativeThreshold)
		}
		if lv.Density < 0 {
			return fmt.Errorf("level %d: %w", i, ErrNegativeDensity)
		}
		if i == 0 {
			continue
		}
		if lv.Threshold <= l[i-1].Threshold {
			return fmt.Errorf("level %d threshold %d after %d: %w", i, lv.Threshold, l[i-1].Threshold, ErrUnsortedLevels)
		}
		if smooth && lv.Density > l[i-1].Density {
			return fmt.Errorf("level %d density %d after %d: %w", i, lv.Density, l[i-1].Density, ErrDensityIncreases)
		}
	}
	return nil
}

// Radius returns the outermost threshold.
func (l Ladder) Radius() int {
	return l[len(l)-1].Threshold
}

// IndexFor returns the tier of a cell offset from the observer cell: the
// number of inner thresholds its Chebyshev distance exceeds. The result is in
// [0, len(l)-1].
func (l Ladder) IndexFor(offset grid.Coord) int {
	d := grid.Chebyshev(offset.X, offset.Y)
	index := 0
	for i := 0; i < len(l)-1; i++ {
		if d > l[i].Threshold {
			index++
		}
	}
	return index
}

// Cells returns how many cells of a full ring fall into tier i.
func (l Ladder) Cells(i int) int {
	inner := 0
	if i > 0 {
		inner = grid.RingArea(l[i-1].Threshold)
	}
	return grid.RingArea(l[i].Threshold) - inner
}

// Capacity returns the maximum number of instances tier i can receive in one
// pass. Instance buffers are sized with it.
func (l Ladder) Capacity(i int) int {
	return l.Cells(i) * l[i].Density
}

// SmoothDensity interpolates the density of tier i towards tier i+1 by how
// far the offset sits inside the tier's band. The last tier keeps its own
// density.
func (l Ladder) SmoothDensity(i int, offset grid.Coord) int {
	if i >= len(l)-1 {
		return l[i].Density
	}
	start := 0
	if i > 0 {
		start = l[i-1].Threshold
	}
	end := l[i].Threshold
	d := grid.Chebyshev(offset.X, offset.Y)

	t := float32(d-start) / float32(end-start+1)
	t = min(max(t, 0), 1)
	from, to := float32(l[i].Density), float32(l[i+1].Density)
	return int(from + (to-from)*t)
}
