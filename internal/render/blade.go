package render

// BladeVertexSize is the number of floats per blade vertex: x, y, z and the
// bend weight, which is 0 at the root and 1 at the tip.
const BladeVertexSize = 4

// BladeShape describes a single tapered grass blade.
type BladeShape struct {
	Segments int
	Width    float32
	Height   float32
}

// Blade shapes for the mesh keys the default config uses. More segments bend
// more smoothly.
var BladeShapes = map[string]BladeShape{
	"blade_high":   {Segments: 4, Width: 0.08, Height: 1},
	"blade_medium": {Segments: 2, Width: 0.09, Height: 1},
	"blade_low":    {Segments: 1, Width: 0.12, Height: 1},
}

// DefaultBladeShape is used for unknown mesh keys.
var DefaultBladeShape = BladeShape{Segments: 1, Width: 0.1, Height: 1}

// ShapeFor returns the blade shape registered for mesh.
func ShapeFor(mesh string) (BladeShape, bool) {
	s, ok := BladeShapes[mesh]
	if !ok {
		return DefaultBladeShape, false
	}
	return s, true
}

// BladeVertexCount returns how many vertices BladeMesh emits.
func BladeVertexCount(segments int) int {
	segments = max(segments, 1)
	return 6*(segments-1) + 3
}

// BladeMesh triangulates a blade in the XY plane standing on the origin. The
// width tapers linearly to a single tip vertex. Triangles are listed without
// indices so the mesh can be drawn with DrawArraysInstanced.
func BladeMesh(s BladeShape) []float32 {
	segments := max(s.Segments, 1)
	out := make([]float32, 0, BladeVertexCount(segments)*BladeVertexSize)

	vertex := func(x, y, bend float32) {
		out = append(out, x, y, 0, bend)
	}
	half := func(level int) float32 {
		return s.Width / 2 * (1 - float32(level)/float32(segments))
	}
	height := func(level int) float32 {
		return s.Height * float32(level) / float32(segments)
	}
	bend := func(level int) float32 {
		return float32(level) / float32(segments)
	}

	for i := 0; i < segments-1; i++ {
		w0, w1 := half(i), half(i+1)
		y0, y1 := height(i), height(i+1)
		b0, b1 := bend(i), bend(i+1)

		vertex(-w0, y0, b0)
		vertex(w0, y0, b0)
		vertex(w1, y1, b1)

		vertex(-w0, y0, b0)
		vertex(w1, y1, b1)
		vertex(-w1, y1, b1)
	}

	last := segments - 1
	w := half(last)
	vertex(-w, height(last), bend(last))
	vertex(w, height(last), bend(last))
	vertex(0, s.Height, 1)

	return out
}
