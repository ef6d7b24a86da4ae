package terrain

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// HeightmapOptions place an image in the world. Pixel (0,0) maps to Origin
// and each pixel covers CellSize world units. Gray level 0 is BaseHeight and
// full white is BaseHeight+HeightScale.
type HeightmapOptions struct {
	OriginX     float32
	OriginZ     float32
	CellSize    float32
	BaseHeight  float32
	HeightScale float32
	On          Layer
}

// Heightmap is a surface sampled from a grayscale image. Columns outside the
// image have no ground.
type Heightmap struct {
	width   int
	height  int
	samples []float32
	opts    HeightmapOptions
}

// NewHeightmap converts img to normalized heights.
func NewHeightmap(img image.Image, opts HeightmapOptions) (*Heightmap, error) {
	if opts.CellSize <= 0 {
		return nil, fmt.Errorf("heightmap cell size must be positive, got %v", opts.CellSize)
	}
	b := img.Bounds()
	if b.Dx() < 2 || b.Dy() < 2 {
		return nil, fmt.Errorf("heightmap must be at least 2x2, got %dx%d", b.Dx(), b.Dy())
	}

	hm := &Heightmap{
		width:   b.Dx(),
		height:  b.Dy(),
		samples: make([]float32, b.Dx()*b.Dy()),
		opts:    opts,
	}
	for y := 0; y < hm.height; y++ {
		for x := 0; x < hm.width; x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			hm.samples[y*hm.width+x] = float32(g.Y) / math.MaxUint16
		}
	}
	return hm, nil
}

// LoadHeightmap reads a PNG, BMP or TIFF file. The format is detected from
// the file contents, not the extension.
func LoadHeightmap(path string, opts HeightmapOptions) (*Heightmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding heightmap %s: %w", path, err)
	}
	return NewHeightmap(img, opts)
}

// Size returns the image dimensions in pixels.
func (h *Heightmap) Size() (int, int) {
	return h.width, h.height
}

// HeightAt implements Surface with bilinear filtering between pixels.
func (h *Heightmap) HeightAt(x, z float32) (float32, bool) {
	px := (x - h.opts.OriginX) / h.opts.CellSize
	pz := (z - h.opts.OriginZ) / h.opts.CellSize
	if px < 0 || pz < 0 || px > float32(h.width-1) || pz > float32(h.height-1) {
		return 0, false
	}

	x0 := min(int(px), h.width-2)
	z0 := min(int(pz), h.height-2)
	fx := px - float32(x0)
	fz := pz - float32(z0)

	s := func(ix, iz int) float32 { return h.samples[iz*h.width+ix] }
	top := s(x0, z0) + (s(x0+1, z0)-s(x0, z0))*fx
	bottom := s(x0, z0+1) + (s(x0+1, z0+1)-s(x0, z0+1))*fx
	v := top + (bottom-top)*fz

	return h.opts.BaseHeight + v*h.opts.HeightScale, true
}

// Layer implements Surface.
func (h *Heightmap) Layer() Layer {
	return h.opts.On
}
