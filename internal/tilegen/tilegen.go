// Package tilegen scatters grass instances over a single tile.
package tilegen

import (
	"fmt"
	"math/rand/v2"

	"grassfield/internal/grid"

	"github.com/go-gl/mathgl/mgl32"
)

// InvalidHeight marks a tile whose center has no ground below it.
const InvalidHeight = -999

// sampleSteps is the number of discrete positions per axis inside a tile.
const sampleSteps = 100

// pcgStream is the fixed second PCG word; the tile seed is the first.
const pcgStream = 0x9E3779B97F4A7C15

// BladeScale is the non-uniform scale applied to every instance.
var BladeScale = mgl32.Vec3{1, 0.7, 1}

// Corners are the ground heights at a tile's corners. Top is the -Z edge and
// Left the -X edge.
type Corners struct {
	TopLeft     float32
	TopRight    float32
	BottomLeft  float32
	BottomRight float32
}

// Bilinear interpolates the corner heights. u runs from left to right and v
// from top to bottom, both in [0, 1].
func Bilinear(c Corners, u, v float32) float32 {
	top := lerp(c.TopLeft, c.TopRight, u)
	bottom := lerp(c.BottomLeft, c.BottomRight, u)
	return lerp(top, bottom, v)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// Params describes one tile to populate.
type Params struct {
	Corners   Corners
	Seed      uint32
	Density   int
	MinHeight float32
	MaxHeight float32
	Tile      grid.Coord
	GridSize  float32
}

// Generate draws Density candidate positions on a 100x100 lattice inside the
// tile and writes a transform into dst for every candidate whose interpolated
// height is within [MinHeight, MaxHeight]. Rejected candidates are not
// replaced. It returns the number of transforms written. The same Params
// always produce the same transforms in the same order.
//
// dst must hold at least Density transforms.
func Generate(dst []mgl32.Mat4, p Params) int {
	if p.Density <= 0 {
		return 0
	}
	if len(dst) < p.Density {
		panic(fmt.Sprintf("tilegen: destination holds %d transforms, density is %d", len(dst), p.Density))
	}

	r := rand.New(rand.NewPCG(uint64(p.Seed), pcgStream))
	originX, originZ := p.Tile.Center(p.GridSize)
	scale := mgl32.Scale3D(BladeScale.X(), BladeScale.Y(), BladeScale.Z())

	n := 0
	for range p.Density {
		u := float32(r.IntN(sampleSteps)+1) / sampleSteps
		v := float32(r.IntN(sampleSteps)+1) / sampleSteps
		height := Bilinear(p.Corners, u, v)

		if height < p.MinHeight || height > p.MaxHeight {
			continue
		}

		yaw := r.Float32() * 360
		pos := mgl32.Vec3{
			originX + (u-0.5)*p.GridSize,
			height,
			originZ + (v-0.5)*p.GridSize,
		}
		dst[n] = mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()).
			Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(yaw))).
			Mul4(scale)
		n++
	}
	return n
}
