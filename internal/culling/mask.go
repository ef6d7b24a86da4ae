package culling

// Mask is either absent, in which case every index is visible, or a set of
// per-index visibility flags.
type Mask struct {
	bits []bool
	set  bool
}

// NoMask returns a mask that hides nothing.
func NoMask() Mask {
	return Mask{}
}

// MaskOf wraps visibility flags.
func MaskOf(bits []bool) Mask {
	return Mask{bits: bits, set: true}
}

// IsSet reports whether the mask carries flags.
func (m Mask) IsSet() bool {
	return m.set
}

// Visible reports whether index i passes the mask. Indexes past the flags are
// visible.
func (m Mask) Visible(i int) bool {
	if !m.set || i < 0 || i >= len(m.bits) {
		return true
	}
	return m.bits[i]
}

// Hidden counts the indexes the mask rejects.
func (m Mask) Hidden() int {
	n := 0
	for _, v := range m.bits {
		if !v {
			n++
		}
	}
	return n
}
