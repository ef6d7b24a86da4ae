// Package terrain answers ground height queries for the grass field. A Scene
// holds any number of surfaces, each on a layer; a probe casts a vertical ray
// from above and reports the highest surface whose layer passes the filter.
package terrain

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// Layer is a surface category in [0, 31].
type Layer uint8

// LayerMask selects layers a probe may hit.
type LayerMask uint32

// AllLayers accepts every surface.
const AllLayers = ^LayerMask(0)

// Well-known layers. Names are what config files use.
const (
	LayerDefault Layer = 0
	LayerGround  Layer = 1
	LayerRock    Layer = 2
	LayerWater   Layer = 4
	LayerRoad    Layer = 5
)

var layerNames = map[string]Layer{
	"default": LayerDefault,
	"ground":  LayerGround,
	"rock":    LayerRock,
	"water":   LayerWater,
	"road":    LayerRoad,
}

// MaskOf builds a mask from layers.
func MaskOf(layers ...Layer) LayerMask {
	var m LayerMask
	for _, l := range layers {
		m |= 1 << (l & 31)
	}
	return m
}

// Has reports whether l passes the mask.
func (m LayerMask) Has(l Layer) bool {
	return m&(1<<(l&31)) != 0
}

// Count returns the number of layers in the mask.
func (m LayerMask) Count() int {
	return bits.OnesCount32(uint32(m))
}

// LayerByName resolves a layer name.
func LayerByName(name string) (Layer, error) {
	l, ok := layerNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown layer %q (known: %s)", name, strings.Join(LayerNames(), ", "))
	}
	return l, nil
}

// ParseLayerMask turns layer names into a mask. An empty list or "all"
// selects every layer.
func ParseLayerMask(names []string) (LayerMask, error) {
	if len(names) == 0 {
		return AllLayers, nil
	}
	var m LayerMask
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "all") {
			return AllLayers, nil
		}
		l, err := LayerByName(name)
		if err != nil {
			return 0, err
		}
		m |= MaskOf(l)
	}
	return m, nil
}

// LayerNames lists the known layer names, sorted.
func LayerNames() []string {
	names := make([]string, 0, len(layerNames))
	for name := range layerNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Probe is a vertical ground query restricted to a layer filter.
type Probe interface {
	Probe(x, z float32, filter LayerMask) (height float32, found bool)
}

// Surface is a height field on one layer. HeightAt reports false where the
// surface does not exist.
type Surface interface {
	HeightAt(x, z float32) (float32, bool)
	Layer() Layer
}

// Default ray parameters: cast from y=1000 straight down for 1000 units.
const (
	DefaultRayOrigin = 1000
	DefaultRayLength = 1000
)

// Scene is a Probe over a set of surfaces.
type Scene struct {
	surfaces  []Surface
	RayOrigin float32
	RayLength float32
}

// NewScene creates a scene with the default ray.
func NewScene(surfaces ...Surface) *Scene {
	return &Scene{
		surfaces:  surfaces,
		RayOrigin: DefaultRayOrigin,
		RayLength: DefaultRayLength,
	}
}

// Add appends a surface.
func (s *Scene) Add(surface Surface) {
	s.surfaces = append(s.surfaces, surface)
}

// Len returns the number of surfaces.
func (s *Scene) Len() int {
	return len(s.surfaces)
}

// Probe returns the first surface a downward ray at (x, z) would hit.
func (s *Scene) Probe(x, z float32, filter LayerMask) (float32, bool) {
	lowest := s.RayOrigin - s.RayLength
	best := float32(0)
	found := false
	for _, surface := range s.surfaces {
		if !filter.Has(surface.Layer()) {
			continue
		}
		h, ok := surface.HeightAt(x, z)
		if !ok || h > s.RayOrigin || h < lowest {
			continue
		}
		if !found || h > best {
			best = h
			found = true
		}
	}
	return best, found
}

// Rect is an XZ rectangle, inclusive on both ends.
type Rect struct {
	MinX, MinZ float32
	MaxX, MaxZ float32
}

// Contains reports whether (x, z) lies inside r.
func (r Rect) Contains(x, z float32) bool {
	return x >= r.MinX && x <= r.MaxX && z >= r.MinZ && z <= r.MaxZ
}

// Flat is a horizontal plane, optionally limited to a rectangle.
type Flat struct {
	Height float32
	Bounds *Rect
	On     Layer
}

// HeightAt implements Surface.
func (f Flat) HeightAt(x, z float32) (float32, bool) {
	if f.Bounds != nil && !f.Bounds.Contains(x, z) {
		return 0, false
	}
	return f.Height, true
}

// Layer implements Surface.
func (f Flat) Layer() Layer {
	return f.On
}
