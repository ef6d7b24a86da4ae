// Package grass streams grass instances around a moving observer.
//
// A Field owns one fixed-size instance buffer per LOD tier and a cache of
// probed tile heights. Every frame Tick either regenerates all tiles in the
// square ring around the observer's cell, or redraws what the last pass left
// in the buffers. A pass runs when the observer enters a new cell or, with
// culling enabled, when the camera turns by more than RotationThreshold.
package grass

import (
	"errors"
	"fmt"
	"math"

	"grassfield/internal/culling"
	"grassfield/internal/grid"
	"grassfield/internal/jobs"
	"grassfield/internal/lod"
	"grassfield/internal/logger"
	"grassfield/internal/profiling"
	"grassfield/internal/render"
	"grassfield/internal/terrain"
	"grassfield/internal/tilegen"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// RotationThreshold is the camera turn in degrees that triggers a pass when
// culling is enabled.
const RotationThreshold = 1.0

// DefaultCullHeightExtent is the half height of the boxes tested for culling.
const DefaultCullHeightExtent = 2

var (
	ErrBadGridSize   = errors.New("grass: grid size must be positive and finite")
	ErrBadSpawnRange = errors.New("grass: spawn range min must not exceed max")
	ErrBadBatchLimit = errors.New("grass: batch limit must not be negative")
	ErrNoProbe       = errors.New("grass: a height probe is required")
	ErrNoRenderer    = errors.New("grass: a renderer is required")
)

// SpawnRange limits the heights grass may grow at.
type SpawnRange struct {
	Min float32
	Max float32
}

// Options configure a Field.
type Options struct {
	Levels        lod.Ladder
	GridSize      float32
	SpawnRange    SpawnRange
	LayerFilter   terrain.LayerMask
	SmoothDensity bool
	// BatchLimit caps instances per draw call; 0 means render.DefaultBatchLimit.
	BatchLimit int
	// CullHeightExtent is the half height of culling boxes; 0 means
	// DefaultCullHeightExtent.
	CullHeightExtent float32
	// Workers sizes the job pool when Deps.Pool is nil; 0 means one per CPU.
	Workers int
}

// Deps are the collaborators a Field calls into.
type Deps struct {
	Probe    terrain.Probe
	Renderer render.Renderer
	// Frustum is optional. Without it culling requests are ignored.
	Frustum culling.Extractor
	// Pool is optional. When nil the field starts and owns its own pool.
	Pool *jobs.Pool
}

// Stats describe the most recent tick.
type Stats struct {
	Regenerated    bool
	Cell           grid.Coord
	Cells          int
	Culled         int
	SkippedInvalid int
	Probes         int
	Instances      []int
	DrawCalls      int
}

// Field is the grass orchestrator. It is not safe for concurrent use; call it
// from the frame loop only.
type Field struct {
	opts     Options
	deps     Deps
	log      *zap.Logger
	pool     *jobs.Pool
	ownsPool bool

	cache   *HeightCache
	buffers []*InstanceBuffer
	planes  culling.Frustum

	lastCell        grid.Coord
	lastOrientation mgl32.Quat
	generated       bool
	closed          bool

	stats Stats
}

// Validate reports the first problem with the options.
func (o Options) Validate() error {
	if err := o.Levels.Validate(o.SmoothDensity); err != nil {
		return fmt.Errorf("grass: invalid levels: %w", err)
	}
	if !(o.GridSize > 0) || math.IsInf(float64(o.GridSize), 0) {
		return fmt.Errorf("%w: got %v", ErrBadGridSize, o.GridSize)
	}
	if o.SpawnRange.Min > o.SpawnRange.Max {
		return fmt.Errorf("%w: [%v, %v]", ErrBadSpawnRange, o.SpawnRange.Min, o.SpawnRange.Max)
	}
	if o.BatchLimit < 0 {
		return fmt.Errorf("%w: got %d", ErrBadBatchLimit, o.BatchLimit)
	}
	return nil
}

// New validates the options and allocates the per-tier buffers. Nothing is
// retained when it fails.
func New(opts Options, deps Deps) (*Field, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if deps.Probe == nil {
		return nil, ErrNoProbe
	}
	if deps.Renderer == nil {
		return nil, ErrNoRenderer
	}
	if opts.BatchLimit == 0 {
		opts.BatchLimit = render.DefaultBatchLimit
	}
	if opts.CullHeightExtent <= 0 {
		opts.CullHeightExtent = DefaultCullHeightExtent
	}
	opts.Levels = append(lod.Ladder(nil), opts.Levels...)

	f := &Field{
		opts:            opts,
		deps:            deps,
		log:             logger.Named("grass"),
		pool:            deps.Pool,
		cache:           NewHeightCache(deps.Probe, opts.LayerFilter, opts.GridSize),
		buffers:         make([]*InstanceBuffer, len(opts.Levels)),
		lastOrientation: mgl32.QuatIdent(),
	}
	if f.pool == nil {
		f.pool = jobs.NewPool(opts.Workers, 0)
		f.ownsPool = true
	}

	for i := range opts.Levels {
		f.buffers[i] = NewInstanceBuffer(opts.Levels.Capacity(i))
		f.log.Info("lod buffer allocated",
			zap.Int("lod", i),
			zap.Int("threshold", opts.Levels[i].Threshold),
			zap.Int("density", opts.Levels[i].Density),
			zap.Int("capacity", f.buffers[i].Cap()),
		)
	}
	f.stats.Instances = make([]int, len(opts.Levels))

	return f, nil
}

// Tick advances one frame for an observer at position looking along
// orientation.
func (f *Field) Tick(position mgl32.Vec3, orientation mgl32.Quat, cullingEnabled bool) {
	cell := grid.CellOf(position, f.opts.GridSize)
	cull := cullingEnabled && f.deps.Frustum != nil

	if !f.generated || cell != f.lastCell || (cull && angleDegrees(orientation, f.lastOrientation) > RotationThreshold) {
		f.regenerate(cell, position, cull)
		f.lastCell = cell
		f.lastOrientation = orientation
		f.generated = true
		return
	}

	f.stats.Regenerated = false
	f.redraw()
}

// regenerate refills every buffer from the tiles around cell and draws them.
func (f *Field) regenerate(cell grid.Coord, position mgl32.Vec3, cull bool) {
	defer profiling.Track("grass.Regenerate")()

	for _, b := range f.buffers {
		b.Reset()
	}

	levels := f.opts.Levels
	radius := levels.Radius()

	mask := culling.NoMask()
	if cull {
		mask = f.visibility(position, radius)
	}

	stats := Stats{Regenerated: true, Cell: cell, Instances: make([]int, len(levels))}
	probesBefore := f.cache.Probes()

	for index, off := range grid.Ring(radius) {
		if !mask.Visible(index) {
			stats.Culled++
			continue
		}
		stats.Cells++

		coord := cell.Add(off.X, off.Y)
		tier := levels.IndexFor(off)

		sample := f.cache.Resolve(coord)
		if !sample.Valid {
			stats.SkippedInvalid++
			continue
		}

		density := levels[tier].Density
		if f.opts.SmoothDensity {
			density = levels.SmoothDensity(tier, off)
		}
		if density <= 0 {
			continue
		}

		buf := f.buffers[tier]
		dst := buf.Reserve(density)
		params := tilegen.Params{
			Corners:   sample.Corners,
			Seed:      grid.Seed(coord),
			Density:   density,
			MinHeight: f.opts.SpawnRange.Min,
			MaxHeight: f.opts.SpawnRange.Max,
			Tile:      coord,
			GridSize:  f.opts.GridSize,
		}
		var written int
		f.pool.Run(func() {
			written = tilegen.Generate(dst, params)
		})
		buf.Advance(written)
	}

	stats.Probes = f.cache.Probes() - probesBefore
	for i, b := range f.buffers {
		stats.Instances[i] = b.Len()
	}
	f.stats = stats

	f.log.Debug("grass regenerated",
		zap.Int("cell_x", cell.X),
		zap.Int("cell_y", cell.Y),
		zap.Int("cells", stats.Cells),
		zap.Int("culled", stats.Culled),
		zap.Int("invalid", stats.SkippedInvalid),
		zap.Int("probes", stats.Probes),
		zap.Ints("instances", stats.Instances),
	)

	f.redraw()
}

// visibility culls one tile-sized box per ring cell. Boxes are centered on
// the observer's position rather than the cell grid, so the mask is an
// approximation of per-tile visibility.
func (f *Field) visibility(position mgl32.Vec3, radius int) culling.Mask {
	f.planes = f.deps.Frustum.Planes()

	g := f.opts.GridSize
	extents := mgl32.Vec3{g / 2, f.opts.CullHeightExtent, g / 2}
	boxes := make([]culling.Box, grid.RingArea(radius))
	for index, off := range grid.Ring(radius) {
		boxes[index] = culling.Box{
			Center:  position.Add(mgl32.Vec3{float32(off.X) * g, 0, float32(off.Y) * g}),
			Extents: extents,
		}
	}
	return culling.MaskOf(culling.Cull(f.pool, f.planes, boxes))
}

// redraw submits the valid prefix of every buffer.
func (f *Field) redraw() {
	defer profiling.Track("grass.Redraw")()

	calls := 0
	for i, lv := range f.opts.Levels {
		calls += render.DrawChunked(f.deps.Renderer, lv.Mesh, lv.Material, f.buffers[i].Instances(), f.opts.BatchLimit)
	}
	f.stats.DrawCalls = calls
}

// Teardown releases the buffers and the height cache and stops an owned job
// pool. Calling it again does nothing; other methods must not be called after.
func (f *Field) Teardown() {
	if f.closed {
		return
	}
	f.closed = true

	for _, b := range f.buffers {
		b.release()
	}
	tiles := f.cache.Len()
	f.cache.Clear()
	if f.ownsPool {
		f.pool.Shutdown()
	}
	f.log.Info("grass field released", zap.Int("cached_tiles", tiles))
}

// Stats returns a copy of the latest tick statistics.
func (f *Field) Stats() Stats {
	s := f.stats
	s.Instances = append([]int(nil), f.stats.Instances...)
	return s
}

// Levels returns the configured tiers.
func (f *Field) Levels() lod.Ladder {
	return f.opts.Levels
}

// Instances returns the transforms tier i holds after the last pass. The
// slice aliases the field's buffer and changes on the next pass.
func (f *Field) Instances(i int) []mgl32.Mat4 {
	return f.buffers[i].Instances()
}

// Capacity returns the fixed capacity of tier i's buffer.
func (f *Field) Capacity(i int) int {
	return f.buffers[i].Cap()
}

// CachedTiles returns the number of tiles with a cached height sample.
func (f *Field) CachedTiles() int {
	return f.cache.Len()
}

// InvalidateTiles drops cached heights and forces a pass on the next tick, so
// the tiles are probed again if they are in range. Use it when the terrain
// under them has changed.
func (f *Field) InvalidateTiles(coords ...grid.Coord) {
	f.cache.Invalidate(coords...)
	f.generated = false
	f.log.Debug("height cache invalidated", zap.Int("tiles", len(coords)))
}

// angleDegrees returns the rotation angle between two unit quaternions.
func angleDegrees(a, b mgl32.Quat) float32 {
	d := float64(a.Dot(b))
	d = math.Min(math.Abs(d), 1)
	if d > 1-1e-6 {
		return 0
	}
	return float32(math.Acos(d) * 2 * 180 / math.Pi)
}
