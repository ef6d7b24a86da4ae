package render

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Call is one recorded draw.
type Call struct {
	Mesh       string
	Material   string
	Transforms []mgl32.Mat4
}

// Recorder is a Renderer that keeps copies of every draw. Headless runs and
// tests use it in place of a GPU.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	keep  bool
	count int
	total int
}

// NewRecorder creates a recorder. With keep false only counters are kept.
func NewRecorder(keep bool) *Recorder {
	return &Recorder{keep: keep}
}

// DrawInstanced implements Renderer.
func (r *Recorder) DrawInstanced(mesh, material string, transforms []mgl32.Mat4) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	r.total += len(transforms)
	if r.keep {
		r.calls = append(r.calls, Call{
			Mesh:       mesh,
			Material:   material,
			Transforms: append([]mgl32.Mat4(nil), transforms...),
		})
	}
}

// Calls returns the recorded draws.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Counts returns the number of calls and instances drawn since the last reset.
func (r *Recorder) Counts() (calls, instances int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count, r.total
}

// Reset forgets everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.count = 0
	r.total = 0
}
