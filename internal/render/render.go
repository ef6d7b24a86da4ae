// Package render is the boundary between instance generation and the host's
// draw call.
package render

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultBatchLimit is the largest instance count sent in one draw call.
const DefaultBatchLimit = 1023

// Renderer draws instances of a mesh with a material. Mesh and material are
// opaque keys owned by the renderer. transforms is only valid for the
// duration of the call.
type Renderer interface {
	DrawInstanced(mesh, material string, transforms []mgl32.Mat4)
}

// DrawChunked submits transforms in order, splitting them into calls of at
// most limit instances. It returns the number of calls made.
func DrawChunked(r Renderer, mesh, material string, transforms []mgl32.Mat4, limit int) int {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	calls := 0
	for start := 0; start < len(transforms); start += limit {
		end := min(start+limit, len(transforms))
		r.DrawInstanced(mesh, material, transforms[start:end])
		calls++
	}
	return calls
}
