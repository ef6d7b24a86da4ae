// Package glrender draws grass instances with OpenGL 4.1 instanced arrays.
// Every mesh key becomes a blade VAO that shares one streaming instance
// buffer; every material key is a pair of root and tip colors.
package glrender

import (
	_ "embed"

	"grassfield/internal/logger"
	"grassfield/internal/render"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	//go:embed shaders/grass.vert
	vertexSource string
	//go:embed shaders/grass.frag
	fragmentSource string
)

const (
	mat4Size       = 16 * 4
	bladeStride    = render.BladeVertexSize * 4
	instanceAttrib = 2

	// DefaultPushRadius is how close the observer must be to bend blades.
	DefaultPushRadius = 1.5
)

// Material colors a blade from root to tip.
type Material struct {
	Base mgl32.Vec3
	Tip  mgl32.Vec3
}

// DefaultMaterials are available without registration.
var DefaultMaterials = map[string]Material{
	"grass": {Base: mgl32.Vec3{0.10, 0.32, 0.08}, Tip: mgl32.Vec3{0.45, 0.72, 0.25}},
	"dry":   {Base: mgl32.Vec3{0.35, 0.30, 0.12}, Tip: mgl32.Vec3{0.78, 0.70, 0.38}},
}

var fallbackMaterial = DefaultMaterials["grass"]

var _ render.Renderer = (*Renderer)(nil)

type bladeMesh struct {
	vao         uint32
	vbo         uint32
	vertexCount int32
}

// Renderer implements render.Renderer on the current GL context. All calls
// must come from the thread that owns the context.
type Renderer struct {
	shader    *Shader
	meshes    map[string]*bladeMesh
	materials map[string]Material
	warned    map[string]bool
	log       *zap.Logger

	instanceVBO uint32
	instanceCap int

	// PushRadius is how close the observer bends blades.
	PushRadius float32

	clearColor mgl32.Vec3
}

// New initializes GL function pointers and compiles the grass program. A GL
// context must be current.
func New() (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, err
	}

	gl.Enable(gl.DEPTH_TEST)
	// blades are flat and seen from both sides
	gl.Disable(gl.CULL_FACE)

	shader, err := NewShader(vertexSource, fragmentSource)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		shader:     shader,
		meshes:     make(map[string]*bladeMesh),
		materials:  make(map[string]Material),
		warned:     make(map[string]bool),
		log:        logger.Named("glrender"),
		PushRadius: DefaultPushRadius,
		clearColor: mgl32.Vec3{0.53, 0.81, 0.92},
	}
	for key, m := range DefaultMaterials {
		r.materials[key] = m
	}
	gl.GenBuffers(1, &r.instanceVBO)

	r.log.Info("renderer ready",
		zap.String("gl_version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("gl_renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)
	return r, nil
}

// SetMaterial registers or replaces a material key.
func (r *Renderer) SetMaterial(key string, m Material) {
	r.materials[key] = m
}

// SetWireframe switches between line and fill rasterization.
func (r *Renderer) SetWireframe(on bool) {
	if on {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
}

// SetViewport resizes the GL viewport.
func (r *Renderer) SetViewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

// BeginFrame clears the target and uploads the per-frame uniforms. observer
// is the world position blades lean away from.
func (r *Renderer) BeginFrame(view, projection mgl32.Mat4, observer mgl32.Vec3, seconds float32) {
	gl.ClearColor(r.clearColor.X(), r.clearColor.Y(), r.clearColor.Z(), 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	r.shader.Use()
	r.shader.SetMatrix4("uView", view)
	r.shader.SetMatrix4("uProjection", projection)
	r.shader.SetVector3("uPlayer", observer)
	r.shader.SetFloat("uTime", seconds)
	r.shader.SetFloat("uPushRadius", r.PushRadius)
}

// DrawInstanced implements render.Renderer.
func (r *Renderer) DrawInstanced(mesh, material string, transforms []mgl32.Mat4) {
	if len(transforms) == 0 {
		return
	}

	m := r.mesh(mesh)
	mat, ok := r.materials[material]
	if !ok {
		r.warnOnce("material:"+material, "unknown material, using default", zap.String("material", material))
		mat = fallbackMaterial
	}

	r.shader.Use()
	r.shader.SetVector3("uBaseColor", mat.Base)
	r.shader.SetVector3("uTipColor", mat.Tip)

	r.upload(transforms)

	gl.BindVertexArray(m.vao)
	gl.DrawArraysInstanced(gl.TRIANGLES, 0, m.vertexCount, int32(len(transforms)))
	gl.BindVertexArray(0)
}

// upload streams transforms into the shared instance buffer, orphaning the
// previous contents.
func (r *Renderer) upload(transforms []mgl32.Mat4) {
	gl.BindBuffer(gl.ARRAY_BUFFER, r.instanceVBO)
	if len(transforms) > r.instanceCap {
		r.instanceCap = len(transforms)
	}
	gl.BufferData(gl.ARRAY_BUFFER, r.instanceCap*mat4Size, nil, gl.STREAM_DRAW)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(transforms)*mat4Size, gl.Ptr(&transforms[0][0]))
}

// mesh returns the VAO for a mesh key, building it on first use.
func (r *Renderer) mesh(key string) *bladeMesh {
	if m, ok := r.meshes[key]; ok {
		return m
	}

	shape, ok := render.ShapeFor(key)
	if !ok {
		r.warnOnce("mesh:"+key, "unknown mesh, using default blade", zap.String("mesh", key))
	}
	vertices := render.BladeMesh(shape)

	m := &bladeMesh{vertexCount: int32(len(vertices) / render.BladeVertexSize)}
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, bladeStride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 1, gl.FLOAT, false, bladeStride, 3*4)

	// a mat4 attribute takes four vec4 slots
	gl.BindBuffer(gl.ARRAY_BUFFER, r.instanceVBO)
	for i := uint32(0); i < 4; i++ {
		loc := instanceAttrib + i
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointerWithOffset(loc, 4, gl.FLOAT, false, mat4Size, uintptr(i*16))
		gl.VertexAttribDivisor(loc, 1)
	}

	gl.BindVertexArray(0)
	r.meshes[key] = m
	r.log.Debug("blade mesh built", zap.String("mesh", key), zap.Int32("vertices", m.vertexCount))
	return m
}

func (r *Renderer) warnOnce(key, msg string, fields ...zap.Field) {
	if r.warned[key] {
		return
	}
	r.warned[key] = true
	r.log.Warn(msg, fields...)
}

// Dispose frees every GL object the renderer created.
func (r *Renderer) Dispose() {
	for key, m := range r.meshes {
		gl.DeleteVertexArrays(1, &m.vao)
		gl.DeleteBuffers(1, &m.vbo)
		delete(r.meshes, key)
	}
	if r.instanceVBO != 0 {
		gl.DeleteBuffers(1, &r.instanceVBO)
		r.instanceVBO = 0
	}
	if r.shader != nil {
		r.shader.Delete()
		r.shader = nil
	}
}
