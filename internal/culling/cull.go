// Package culling tests axis-aligned boxes against a view frustum.
//
// The test is conservative: a box that touches the inside of every plane is
// kept, which also keeps a few boxes just outside the frustum corners. It
// never drops a box that is partly visible.
package culling

import (
	"grassfield/internal/jobs"
	"grassfield/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// Box is an axis-aligned box given by center and half extents.
type Box struct {
	Center  mgl32.Vec3
	Extents mgl32.Vec3
}

// Min returns the lowest corner.
func (b Box) Min() mgl32.Vec3 { return b.Center.Sub(b.Extents) }

// Max returns the highest corner.
func (b Box) Max() mgl32.Vec3 { return b.Center.Add(b.Extents) }

// Visible reports whether the box is inside or intersecting the frustum.
func (f *Frustum) Visible(b Box) bool {
	lo, hi := b.Min(), b.Max()
	for i := range f {
		p := &f[i]
		// positive vertex: the corner furthest along the plane normal
		px := lo.X()
		if p.Normal.X() > 0 {
			px = hi.X()
		}
		py := lo.Y()
		if p.Normal.Y() > 0 {
			py = hi.Y()
		}
		pz := lo.Z()
		if p.Normal.Z() > 0 {
			pz = hi.Z()
		}
		if p.Normal.X()*px+p.Normal.Y()*py+p.Normal.Z()*pz+p.D < 0 {
			return false
		}
	}
	return true
}

// Cull tests every box against the frustum in parallel batches and returns
// one visibility flag per box. It returns after all batches have finished.
func Cull(pool *jobs.Pool, f Frustum, boxes []Box) []bool {
	defer profiling.Track("culling.Cull")()

	visible := make([]bool, len(boxes))
	pool.ParallelFor(len(boxes), jobs.DefaultBatch, func(start, end int) {
		for i := start; i < end; i++ {
			visible[i] = f.Visible(boxes[i])
		}
	})
	return visible
}
