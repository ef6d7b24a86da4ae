package grass

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// InstanceBuffer is a fixed-capacity arena of transforms with a pivot that
// counts the valid prefix. It never grows after creation.
type InstanceBuffer struct {
	data  []mgl32.Mat4
	pivot int
}

// NewInstanceBuffer allocates a buffer holding capacity transforms.
func NewInstanceBuffer(capacity int) *InstanceBuffer {
	return &InstanceBuffer{data: make([]mgl32.Mat4, capacity)}
}

// Cap returns the fixed capacity.
func (b *InstanceBuffer) Cap() int {
	return len(b.data)
}

// Len returns the pivot.
func (b *InstanceBuffer) Len() int {
	return b.pivot
}

// Reset moves the pivot back to zero. Contents are overwritten by later writes.
func (b *InstanceBuffer) Reset() {
	b.pivot = 0
}

// Reserve returns the n slots following the pivot for a writer to fill.
// Asking for more than the remaining capacity is a sizing bug and panics.
func (b *InstanceBuffer) Reserve(n int) []mgl32.Mat4 {
	if n < 0 || b.pivot+n > len(b.data) {
		panic(fmt.Sprintf("grass: instance buffer overflow: pivot %d + %d exceeds capacity %d", b.pivot, n, len(b.data)))
	}
	return b.data[b.pivot : b.pivot+n]
}

// Advance moves the pivot past n written slots.
func (b *InstanceBuffer) Advance(n int) {
	if n < 0 || b.pivot+n > len(b.data) {
		panic(fmt.Sprintf("grass: instance buffer overflow: pivot %d + %d exceeds capacity %d", b.pivot, n, len(b.data)))
	}
	b.pivot += n
}

// Instances returns the valid prefix. The slice aliases the buffer.
func (b *InstanceBuffer) Instances() []mgl32.Mat4 {
	return b.data[:b.pivot]
}

// release drops the backing array.
func (b *InstanceBuffer) release() {
	b.data = nil
	b.pivot = 0
}
