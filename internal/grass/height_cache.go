package grass

import (
	"grassfield/internal/grid"
	"grassfield/internal/terrain"
	"grassfield/internal/tilegen"
)

// HeightSample holds the corner heights of one tile. Invalid samples mark
// tiles without ground under their center; they are never generated.
type HeightSample struct {
	Corners tilegen.Corners
	Valid   bool
}

var invalidSample = HeightSample{Corners: tilegen.Corners{TopLeft: tilegen.InvalidHeight}}

// HeightCache remembers the probed heights of every tile ever visited. Each
// tile is probed at most once; entries stay until Invalidate or Clear.
type HeightCache struct {
	entries  map[grid.Coord]HeightSample
	probe    terrain.Probe
	filter   terrain.LayerMask
	gridSize float32
	probes   int
}

// NewHeightCache creates an empty cache over probe.
func NewHeightCache(probe terrain.Probe, filter terrain.LayerMask, gridSize float32) *HeightCache {
	return &HeightCache{
		entries:  make(map[grid.Coord]HeightSample),
		probe:    probe,
		filter:   filter,
		gridSize: gridSize,
	}
}

// Resolve returns the sample for c, probing the terrain on a miss.
func (hc *HeightCache) Resolve(c grid.Coord) HeightSample {
	if s, ok := hc.entries[c]; ok {
		return s
	}
	s := hc.sample(c)
	hc.entries[c] = s
	return s
}

// sample casts one ray at the tile center and, if it hits, one per corner. A
// corner without ground stays at height 0.
func (hc *HeightCache) sample(c grid.Coord) HeightSample {
	cx, cz := c.Center(hc.gridSize)
	if _, ok := hc.cast(cx, cz); !ok {
		return invalidSample
	}

	half := hc.gridSize / 2
	var s HeightSample
	s.Valid = true
	if h, ok := hc.cast(cx-half, cz-half); ok {
		s.Corners.TopLeft = h
	}
	if h, ok := hc.cast(cx+half, cz-half); ok {
		s.Corners.TopRight = h
	}
	if h, ok := hc.cast(cx-half, cz+half); ok {
		s.Corners.BottomLeft = h
	}
	if h, ok := hc.cast(cx+half, cz+half); ok {
		s.Corners.BottomRight = h
	}
	return s
}

func (hc *HeightCache) cast(x, z float32) (float32, bool) {
	hc.probes++
	return hc.probe.Probe(x, z, hc.filter)
}

// Lookup returns a cached sample without probing.
func (hc *HeightCache) Lookup(c grid.Coord) (HeightSample, bool) {
	s, ok := hc.entries[c]
	return s, ok
}

// Invalidate forgets the given tiles so the next Resolve probes them again.
// Hosts with changing terrain call it; the field never does on its own.
func (hc *HeightCache) Invalidate(coords ...grid.Coord) {
	for _, c := range coords {
		delete(hc.entries, c)
	}
}

// Len returns the number of cached tiles.
func (hc *HeightCache) Len() int {
	return len(hc.entries)
}

// Probes returns the total number of rays cast.
func (hc *HeightCache) Probes() int {
	return hc.probes
}

// Clear drops every entry.
func (hc *HeightCache) Clear() {
	clear(hc.entries)
}
