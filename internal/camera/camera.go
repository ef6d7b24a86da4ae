// Package camera is a free-flying observer: yaw/pitch mouse look, planar
// movement and the matrices and frustum planes derived from them.
package camera

import (
	"math"

	"grassfield/internal/culling"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	maxPitch           = 89.0
	defaultSensitivity = 0.1
	defaultSpeed       = 8.0
)

var worldUp = mgl32.Vec3{0, 1, 0}

// Camera handles the view and projection matrices.
type Camera struct {
	Position mgl32.Vec3
	// Yaw and Pitch are in degrees. Yaw 0 looks along +X.
	Yaw   float32
	Pitch float32

	FOV    float32
	Aspect float32
	Near   float32
	Far    float32

	Sensitivity float32
	Speed       float32

	firstMouse bool
	lastX      float64
	lastY      float64
}

// New creates a camera for a viewport of the given size.
func New(width, height int) *Camera {
	c := &Camera{
		FOV:         60.0,
		Near:        0.1,
		Far:         1000.0,
		Sensitivity: defaultSensitivity,
		Speed:       defaultSpeed,
		firstMouse:  true,
	}
	c.SetViewport(width, height)
	return c
}

// SetViewport updates the aspect ratio. Zero sizes are ignored so a minimized
// window keeps its last projection.
func (c *Camera) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		if c.Aspect == 0 {
			c.Aspect = 1
		}
		return
	}
	c.Aspect = float32(width) / float32(height)
}

// Look turns the camera by yaw and pitch degrees. Pitch stays within ±89.
func (c *Camera) Look(yaw, pitch float32) {
	c.Yaw += yaw
	c.Pitch = mgl32.Clamp(c.Pitch+pitch, -maxPitch, maxPitch)
}

// HandleMouseMovement turns the camera by the cursor delta since the last
// call. The first call only records the cursor.
func (c *Camera) HandleMouseMovement(xpos, ypos float64) {
	if c.firstMouse {
		c.lastX, c.lastY = xpos, ypos
		c.firstMouse = false
		return
	}
	dx := float32(xpos-c.lastX) * c.Sensitivity
	dy := float32(c.lastY-ypos) * c.Sensitivity
	c.lastX, c.lastY = xpos, ypos
	c.Look(dx, dy)
}

// ResetMouse makes the next HandleMouseMovement call re-anchor the cursor.
func (c *Camera) ResetMouse() {
	c.firstMouse = true
}

// Front returns the unit view direction.
func (c *Camera) Front() mgl32.Vec3 {
	y := float64(mgl32.DegToRad(c.Yaw))
	p := float64(mgl32.DegToRad(c.Pitch))
	return mgl32.Vec3{
		float32(math.Cos(y) * math.Cos(p)),
		float32(math.Sin(p)),
		float32(math.Sin(y) * math.Cos(p)),
	}.Normalize()
}

// Move walks the camera. forward and strafe move on the XZ plane regardless
// of pitch; rise moves along world up. Each is scaled by Speed and dt.
func (c *Camera) Move(forward, strafe, rise float32, dt float64) {
	front := c.Front()
	flat := mgl32.Vec3{front.X(), 0, front.Z()}
	if flat.Len() > 1e-6 {
		flat = flat.Normalize()
	}
	right := flat.Cross(worldUp)

	step := c.Speed * float32(dt)
	dir := flat.Mul(forward).Add(right.Mul(strafe)).Add(worldUp.Mul(rise))
	if l := dir.Len(); l > 1 {
		dir = dir.Mul(1 / l)
	}
	c.Position = c.Position.Add(dir.Mul(step))
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front()), worldUp)
}

// Projection returns the perspective matrix.
func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// Orientation returns the camera rotation in world space.
func (c *Camera) Orientation() mgl32.Quat {
	look := mgl32.LookAtV(mgl32.Vec3{}, c.Front(), worldUp)
	return mgl32.Mat4ToQuat(look).Conjugate().Normalize()
}

// Planes implements culling.Extractor.
func (c *Camera) Planes() culling.Frustum {
	return culling.ExtractPlanes(c.Projection().Mul4(c.View()))
}
