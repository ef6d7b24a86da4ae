package culling

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane is n·p + D = 0 with the inside on the side the normal points to.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// Distance returns the signed distance of p to the plane.
func (pl Plane) Distance(p mgl32.Vec3) float32 {
	return pl.Normal.Dot(p) + pl.D
}

// Frustum holds six planes in the order left, right, bottom, top, near, far.
type Frustum [6]Plane

// Extractor supplies the current view frustum.
type Extractor interface {
	Planes() Frustum
}

// ExtractPlanes builds the frustum of a combined projection*view matrix.
func ExtractPlanes(clip mgl32.Mat4) Frustum {
	// mgl32 is column-major: row i is clip[i], clip[i+4], clip[i+8], clip[i+12]
	r0 := clip.Row(0)
	r1 := clip.Row(1)
	r2 := clip.Row(2)
	r3 := clip.Row(3)

	return Frustum{
		normalizePlane(r3.Add(r0)), // left
		normalizePlane(r3.Sub(r0)), // right
		normalizePlane(r3.Add(r1)), // bottom
		normalizePlane(r3.Sub(r1)), // top
		normalizePlane(r3.Add(r2)), // near
		normalizePlane(r3.Sub(r2)), // far
	}
}

func normalizePlane(v mgl32.Vec4) Plane {
	n := mgl32.Vec3{v.X(), v.Y(), v.Z()}
	l := float32(math.Sqrt(float64(n.Dot(n))))
	if l == 0 {
		return Plane{Normal: n, D: v.W()}
	}
	return Plane{Normal: n.Mul(1 / l), D: v.W() / l}
}
