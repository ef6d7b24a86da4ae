package terrain

import "math"

// Deterministic 2D value noise with octaves, hashed from integer lattice
// coordinates so the same seed always yields the same terrain.

// NoiseConfig parameterizes a Noise surface.
type NoiseConfig struct {
	Seed        int64
	Scale       float64 // lattice cells per world unit
	BaseHeight  float64
	Amplitude   float64
	Octaves     int
	Persistence float64
	Lacunarity  float64
	On          Layer
}

// DefaultNoiseConfig returns rolling hills around y=0.
func DefaultNoiseConfig(seed int64) NoiseConfig {
	return NoiseConfig{
		Seed:        seed,
		Scale:       1.0 / 64.0,
		BaseHeight:  -8,
		Amplitude:   16,
		Octaves:     4,
		Persistence: 0.5,
		Lacunarity:  2.0,
		On:          LayerGround,
	}
}

// Noise is an unbounded procedural height field.
type Noise struct {
	cfg NoiseConfig
}

// NewNoise creates a noise surface.
func NewNoise(cfg NoiseConfig) *Noise {
	if cfg.Octaves <= 0 {
		cfg.Octaves = 1
	}
	return &Noise{cfg: cfg}
}

// HeightAt implements Surface. Noise covers every column.
func (n *Noise) HeightAt(x, z float32) (float32, bool) {
	v := octaveNoise2D(float64(x)*n.cfg.Scale, float64(z)*n.cfg.Scale, n.cfg.Seed, n.cfg.Octaves, n.cfg.Persistence, n.cfg.Lacunarity)
	return float32(n.cfg.BaseHeight + v*n.cfg.Amplitude), true
}

// Layer implements Surface.
func (n *Noise) Layer() Layer {
	return n.cfg.On
}

// fade is 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// hash2 is a SplitMix64-style integer hash.
func hash2(x, z, seed int64) uint64 {
	v := uint64(x) + (uint64(z) << 1) + uint64(seed)*0x9E3779B97F4A7C15
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}

func latticeValue(x, z, seed int64) float64 {
	return float64(hash2(x, z, seed)&0xFFFFFFFF) / float64(0xFFFFFFFF)
}

func valueNoise2D(x, z float64, seed int64) float64 {
	x0 := math.Floor(x)
	z0 := math.Floor(z)
	fx := fade(x - x0)
	fz := fade(z - z0)

	ix, iz := int64(x0), int64(z0)
	top := lerp(latticeValue(ix, iz, seed), latticeValue(ix+1, iz, seed), fx)
	bottom := lerp(latticeValue(ix, iz+1, seed), latticeValue(ix+1, iz+1, seed), fx)
	return lerp(top, bottom, fz)
}

// octaveNoise2D sums octaves and normalizes the result to [0, 1].
func octaveNoise2D(x, z float64, seed int64, octaves int, persistence, lacunarity float64) float64 {
	amplitude := 1.0
	frequency := 1.0
	sum := 0.0
	norm := 0.0
	for i := range octaves {
		sum += valueNoise2D(x*frequency, z*frequency, seed+int64(i*131)) * amplitude
		norm += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}
