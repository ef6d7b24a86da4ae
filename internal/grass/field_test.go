package grass

import (
	"errors"
	"math"
	"testing"

	"grassfield/internal/culling"
	"grassfield/internal/grid"
	"grassfield/internal/lod"
	"grassfield/internal/render"
	"grassfield/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
)

// countingProbe records every ray cast.
type countingProbe struct {
	probe terrain.Probe
	calls int
	hits  map[[2]float32]int
}

func newCountingProbe(p terrain.Probe) *countingProbe {
	return &countingProbe{probe: p, hits: make(map[[2]float32]int)}
}

func (c *countingProbe) Probe(x, z float32, filter terrain.LayerMask) (float32, bool) {
	c.calls++
	c.hits[[2]float32{x, z}]++
	return c.probe.Probe(x, z, filter)
}

// fixedFrustum returns the same planes every time.
type fixedFrustum struct {
	planes culling.Frustum
	calls  int
}

func (f *fixedFrustum) Planes() culling.Frustum {
	f.calls++
	return f.planes
}

// halfSpaceFrustum keeps everything with x >= 0.
func halfSpaceFrustum() *fixedFrustum {
	far := float32(1e6)
	return &fixedFrustum{planes: culling.Frustum{
		{Normal: mgl32.Vec3{1, 0, 0}, D: 0},
		{Normal: mgl32.Vec3{-1, 0, 0}, D: far},
		{Normal: mgl32.Vec3{0, 1, 0}, D: far},
		{Normal: mgl32.Vec3{0, -1, 0}, D: far},
		{Normal: mgl32.Vec3{0, 0, 1}, D: far},
		{Normal: mgl32.Vec3{0, 0, -1}, D: far},
	}}
}

func scenarioOptions() Options {
	return Options{
		Levels: lod.Ladder{
			{Threshold: 1, Density: 4, Mesh: "blade_near", Material: "grass"},
			{Threshold: 2, Density: 2, Mesh: "blade_far", Material: "grass"},
		},
		GridSize:    5,
		SpawnRange:  SpawnRange{Min: -1, Max: 1},
		LayerFilter: terrain.AllLayers,
		Workers:     2,
	}
}

func newTestField(t *testing.T, opts Options, probe terrain.Probe, frustum culling.Extractor) (*Field, *render.Recorder) {
	t.Helper()
	rec := render.NewRecorder(true)
	f, err := New(opts, Deps{Probe: probe, Renderer: rec, Frustum: frustum})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(f.Teardown)
	return f, rec
}

func scaleOf(m mgl32.Mat4) mgl32.Vec3 {
	return mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
}

func TestNewValidation(t *testing.T) {
	probe := terrain.NewScene(terrain.Flat{})
	rec := render.NewRecorder(false)

	tests := []struct {
		name   string
		mutate func(*Options, *Deps)
		want   error
	}{
		{"empty levels", func(o *Options, _ *Deps) { o.Levels = nil }, lod.ErrNoLevels},
		{"unsorted levels", func(o *Options, _ *Deps) { o.Levels[0].Threshold = 5 }, lod.ErrUnsortedLevels},
		{"zero grid size", func(o *Options, _ *Deps) { o.GridSize = 0 }, ErrBadGridSize},
		{"negative grid size", func(o *Options, _ *Deps) { o.GridSize = -5 }, ErrBadGridSize},
		{"nan grid size", func(o *Options, _ *Deps) { o.GridSize = float32(math.NaN()) }, ErrBadGridSize},
		{"infinite grid size", func(o *Options, _ *Deps) { o.GridSize = float32(math.Inf(1)) }, ErrBadGridSize},
		{"inverted spawn range", func(o *Options, _ *Deps) { o.SpawnRange = SpawnRange{Min: 2, Max: 1} }, ErrBadSpawnRange},
		{"negative batch limit", func(o *Options, _ *Deps) { o.BatchLimit = -1 }, ErrBadBatchLimit},
		{"no probe", func(_ *Options, d *Deps) { d.Probe = nil }, ErrNoProbe},
		{"no renderer", func(_ *Options, d *Deps) { d.Renderer = nil }, ErrNoRenderer},
		{"smooth with rising density", func(o *Options, _ *Deps) {
			o.SmoothDensity = true
			o.Levels[1].Density = 10
		}, lod.ErrDensityIncreases},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := scenarioOptions()
			deps := Deps{Probe: probe, Renderer: rec}
			tt.mutate(&opts, &deps)
			f, err := New(opts, deps)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if f != nil {
				t.Error("expected no field on error")
			}
		})
	}
}

func TestBufferSizing(t *testing.T) {
	f, _ := newTestField(t, scenarioOptions(), terrain.NewScene(terrain.Flat{}), nil)
	if c := f.Capacity(0); c != 36 {
		t.Errorf("LOD0 capacity = %d, want 36", c)
	}
	if c := f.Capacity(1); c != 32 {
		t.Errorf("LOD1 capacity = %d, want 32", c)
	}
}

func TestScenarioFlatTerrain(t *testing.T) {
	probe := newCountingProbe(terrain.NewScene(terrain.Flat{Height: 0}))
	f, rec := newTestField(t, scenarioOptions(), probe, nil)

	f.Tick(mgl32.Vec3{0, 1.8, 0}, mgl32.QuatIdent(), false)

	s := f.Stats()
	if !s.Regenerated {
		t.Fatal("first tick must regenerate")
	}
	if s.Cells != 25 {
		t.Errorf("visited %d cells, want 25", s.Cells)
	}
	if probe.calls != 25*5 {
		t.Errorf("cast %d rays, want 125", probe.calls)
	}

	// flat ground inside the range keeps every sample
	if n := len(f.Instances(0)); n != 36 {
		t.Errorf("LOD0 holds %d instances, want 36", n)
	}
	if n := len(f.Instances(1)); n != 32 {
		t.Errorf("LOD1 holds %d instances, want 32", n)
	}
	for lvl := 0; lvl < 2; lvl++ {
		for i, m := range f.Instances(lvl) {
			if y := m.Col(3).Y(); y != 0 {
				t.Errorf("LOD%d instance %d at y=%f", lvl, i, y)
			}
			if s := scaleOf(m); math.Abs(float64(s.X()-1)) > 1e-4 || math.Abs(float64(s.Y()-0.7)) > 1e-4 || math.Abs(float64(s.Z()-1)) > 1e-4 {
				t.Errorf("LOD%d instance %d scale %v", lvl, i, s)
			}
		}
	}

	// inner instances stay inside the 3x3 block, outer ones outside it
	for _, m := range f.Instances(0) {
		p := m.Col(3)
		if math.Abs(float64(p.X())) > 7.5 || math.Abs(float64(p.Z())) > 7.5 {
			t.Errorf("LOD0 instance at %v outside the inner block", p)
		}
	}
	for _, m := range f.Instances(1) {
		p := m.Col(3)
		if math.Abs(float64(p.X())) < 7.5 && math.Abs(float64(p.Z())) < 7.5 {
			t.Errorf("LOD1 instance at %v inside the inner block", p)
		}
	}

	calls := rec.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected one draw per LOD, got %d", len(calls))
	}
	if calls[0].Mesh != "blade_near" || len(calls[0].Transforms) != 36 {
		t.Errorf("unexpected first draw %q with %d instances", calls[0].Mesh, len(calls[0].Transforms))
	}
	if calls[1].Mesh != "blade_far" || len(calls[1].Transforms) != 32 {
		t.Errorf("unexpected second draw %q with %d instances", calls[1].Mesh, len(calls[1].Transforms))
	}
}

func TestSameCellRedraws(t *testing.T) {
	probe := newCountingProbe(terrain.NewScene(terrain.Flat{}))
	f, rec := newTestField(t, scenarioOptions(), probe, nil)

	f.Tick(mgl32.Vec3{0, 0, 0}, mgl32.QuatIdent(), false)
	before := append([]mgl32.Mat4(nil), f.Instances(0)...)
	probesBefore := probe.calls
	rec.Reset()

	f.Tick(mgl32.Vec3{2, 0, -2}, mgl32.QuatIdent(), false)

	if f.Stats().Regenerated {
		t.Error("moving inside the cell must not regenerate")
	}
	if probe.calls != probesBefore {
		t.Errorf("redraw cast %d rays", probe.calls-probesBefore)
	}
	after := f.Instances(0)
	if len(after) != len(before) {
		t.Fatalf("buffer length changed %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("instance %d changed on redraw", i)
		}
	}
	if calls, n := rec.Counts(); calls != 2 || n != 68 {
		t.Errorf("redraw submitted %d calls / %d instances, want 2 / 68", calls, n)
	}
}

func TestRegenerationIsDeterministic(t *testing.T) {
	terrainScene := terrain.NewScene(terrain.NewNoise(terrain.DefaultNoiseConfig(7)))
	opts := scenarioOptions()
	opts.SpawnRange = SpawnRange{Min: -100, Max: 100}
	f, _ := newTestField(t, opts, terrainScene, nil)

	f.Tick(mgl32.Vec3{0, 0, 0}, mgl32.QuatIdent(), false)
	first := append([]mgl32.Mat4(nil), f.Instances(0)...)

	f.Tick(mgl32.Vec3{100, 0, 0}, mgl32.QuatIdent(), false)
	f.Tick(mgl32.Vec3{0, 0, 0}, mgl32.QuatIdent(), false)
	second := f.Instances(0)

	if len(first) != len(second) {
		t.Fatalf("instance count changed %d -> %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("instance %d differs between passes", i)
		}
	}

	// a second field over the same terrain agrees as well
	g, _ := newTestField(t, opts, terrainScene, nil)
	g.Tick(mgl32.Vec3{0, 0, 0}, mgl32.QuatIdent(), false)
	for i, m := range g.Instances(0) {
		if m != first[i] {
			t.Fatalf("instance %d differs between fields", i)
		}
	}
}

func TestInvalidTilesArePermanent(t *testing.T) {
	// ground ends at x = 7.5, so the column of tiles centered at x = 10 has none
	scene := terrain.NewScene(terrain.Flat{Bounds: &terrain.Rect{MinX: -100, MinZ: -100, MaxX: 7.5, MaxZ: 100}})
	probe := newCountingProbe(scene)
	f, _ := newTestField(t, scenarioOptions(), probe, nil)

	f.Tick(mgl32.Vec3{0, 0, 0}, mgl32.QuatIdent(), false)
	if s := f.Stats(); s.SkippedInvalid != 5 {
		t.Errorf("skipped %d tiles, want 5", s.SkippedInvalid)
	}
	if probe.calls != 20*5+5 {
		t.Errorf("cast %d rays, want 105 (invalid tiles stop after the center)", probe.calls)
	}
	for _, m := range f.Instances(1) {
		if x := m.Col(3).X(); x > 7.5 {
			t.Errorf("instance generated on invalid tile at x=%f", x)
		}
	}

	// step one cell right: only the new column (also invalid) is probed
	before := probe.calls
	f.Tick(mgl32.Vec3{5, 0, 0}, mgl32.QuatIdent(), false)
	if got := probe.calls - before; got != 5 {
		t.Errorf("stepping right cast %d rays, want 5", got)
	}
	if s := f.Stats(); s.SkippedInvalid != 10 {
		t.Errorf("skipped %d tiles, want 10", s.SkippedInvalid)
	}

	// returning costs nothing and the invalid centers were each probed once
	before = probe.calls
	f.Tick(mgl32.Vec3{0, 0, 0}, mgl32.QuatIdent(), false)
	if probe.calls != before {
		t.Errorf("returning cast %d rays", probe.calls-before)
	}
	for z := -2; z <= 2; z++ {
		if n := probe.hits[[2]float32{10, float32(z) * 5}]; n != 1 {
			t.Errorf("invalid center (10,%d) probed %d times", z*5, n)
		}
	}
	if s, ok := f.cache.Lookup(grid.Coord{X: 2, Y: 0}); !ok || s.Valid || s.Corners.TopLeft != -999 {
		t.Errorf("expected invalid sentinel cached, got %+v %v", s, ok)
	}
}

func TestInvalidateTilesReprobes(t *testing.T) {
	probe := newCountingProbe(terrain.NewScene(terrain.Flat{}))
	f, _ := newTestField(t, scenarioOptions(), probe, nil)

	f.Tick(mgl32.Vec3{0, 0, 0}, mgl32.QuatIdent(), false)
	if f.CachedTiles() != 25 {
		t.Fatalf("expected 25 cached tiles, got %d", f.CachedTiles())
	}

	f.InvalidateTiles(grid.Coord{X: 0, Y: 0}, grid.Coord{X: 1, Y: 1})
	before := probe.calls
	f.Tick(mgl32.Vec3{100, 0, 0}, mgl32.QuatIdent(), false)
	f.Tick(mgl32.Vec3{0, 0, 0}, mgl32.QuatIdent(), false)
	if f.Stats().Probes != 10 {
		t.Errorf("expected 10 rays for 2 invalidated tiles, got %d", f.Stats().Probes)
	}
	if probe.calls-before != 25*5+10 {
		t.Errorf("unexpected total rays %d", probe.calls-before)
	}
}

func TestInvalidateTilesForcesPass(t *testing.T) {
	probe := newCountingProbe(terrain.NewScene(terrain.Flat{}))
	f, _ := newTestField(t, scenarioOptions(), probe, nil)

	f.Tick(mgl32.Vec3{}, mgl32.QuatIdent(), false)
	f.InvalidateTiles(grid.Coord{X: 1, Y: -1})
	f.Tick(mgl32.Vec3{}, mgl32.QuatIdent(), false)

	s := f.Stats()
	if !s.Regenerated {
		t.Fatal("invalidation should force a pass in the same cell")
	}
	if s.Probes != 5 {
		t.Errorf("expected 5 rays for the invalidated tile, got %d", s.Probes)
	}

	f.Tick(mgl32.Vec3{}, mgl32.QuatIdent(), false)
	if f.Stats().Regenerated {
		t.Error("the forced pass should happen once")
	}
}

func TestCullingSkipsHiddenCells(t *testing.T) {
	frustum := halfSpaceFrustum()
	f, _ := newTestField(t, scenarioOptions(), terrain.NewScene(terrain.Flat{}), frustum)

	f.Tick(mgl32.Vec3{0, 0, 0}, mgl32.QuatIdent(), true)

	s := f.Stats()
	if s.Culled != 10 || s.Cells != 15 {
		t.Errorf("culled %d / visited %d, want 10 / 15", s.Culled, s.Cells)
	}
	if frustum.calls != 1 {
		t.Errorf("planes fetched %d times, want once per pass", frustum.calls)
	}
	for lvl := 0; lvl < 2; lvl++ {
		for _, m := range f.Instances(lvl) {
			if x := m.Col(3).X(); x < -2.5 {
				t.Errorf("instance from a culled column at x=%f", x)
			}
		}
	}
	if f.CachedTiles() != 15 {
		t.Errorf("culled cells should not be probed, cached %d", f.CachedTiles())
	}
}

func TestCullingWithoutFrustumIsIgnored(t *testing.T) {
	f, _ := newTestField(t, scenarioOptions(), terrain.NewScene(terrain.Flat{}), nil)
	f.Tick(mgl32.Vec3{0, 0, 0}, mgl32.QuatIdent(), true)
	if s := f.Stats(); s.Culled != 0 || s.Cells != 25 {
		t.Errorf("expected no culling, got %d culled / %d cells", s.Culled, s.Cells)
	}
}

func TestRotationTriggersRegeneration(t *testing.T) {
	f, _ := newTestField(t, scenarioOptions(), terrain.NewScene(terrain.Flat{}), halfSpaceFrustum())
	up := mgl32.Vec3{0, 1, 0}

	f.Tick(mgl32.Vec3{0, 0, 0}, mgl32.QuatIdent(), true)

	f.Tick(mgl32.Vec3{0, 0, 0}, mgl32.QuatRotate(mgl32.DegToRad(0.5), up), true)
	if f.Stats().Regenerated {
		t.Error("a half degree turn should redraw")
	}

	turned := mgl32.QuatRotate(mgl32.DegToRad(5), up)
	f.Tick(mgl32.Vec3{0, 0, 0}, turned, true)
	if !f.Stats().Regenerated {
		t.Error("a five degree turn with culling should regenerate")
	}

	f.Tick(mgl32.Vec3{0, 0, 0}, turned, true)
	if f.Stats().Regenerated {
		t.Error("no further turn should redraw")
	}

	f.Tick(mgl32.Vec3{0, 0, 0}, mgl32.QuatRotate(mgl32.DegToRad(90), up), false)
	if f.Stats().Regenerated {
		t.Error("turning without culling should redraw")
	}
}

func TestSmoothDensity(t *testing.T) {
	opts := scenarioOptions()
	opts.Levels = lod.Ladder{
		{Threshold: 1, Density: 8, Mesh: "near"},
		{Threshold: 3, Density: 2, Mesh: "far"},
	}

	plain, _ := newTestField(t, opts, terrain.NewScene(terrain.Flat{}), nil)
	plain.Tick(mgl32.Vec3{}, mgl32.QuatIdent(), false)
	if n := len(plain.Instances(0)); n != 72 {
		t.Errorf("fixed density: LOD0 holds %d, want 72", n)
	}

	opts.SmoothDensity = true
	smooth, _ := newTestField(t, opts, terrain.NewScene(terrain.Flat{}), nil)
	smooth.Tick(mgl32.Vec3{}, mgl32.QuatIdent(), false)
	// center keeps 8, the first ring is halfway to 2: 8 + 8*5
	if n := len(smooth.Instances(0)); n != 48 {
		t.Errorf("smooth density: LOD0 holds %d, want 48", n)
	}
	if n := len(smooth.Instances(1)); n != len(plain.Instances(1)) {
		t.Errorf("last tier should be unchanged, %d vs %d", n, len(plain.Instances(1)))
	}
}

func TestBufferCapacityInvariant(t *testing.T) {
	opts := Options{
		Levels: lod.Ladder{
			{Threshold: 2, Density: 24},
			{Threshold: 5, Density: 8},
			{Threshold: 9, Density: 2},
		},
		GridSize:      4,
		SpawnRange:    SpawnRange{Min: -50, Max: 50},
		LayerFilter:   terrain.AllLayers,
		SmoothDensity: true,
		Workers:       2,
	}
	f, _ := newTestField(t, opts, terrain.NewScene(terrain.NewNoise(terrain.DefaultNoiseConfig(3))), nil)

	for step := 0; step < 40; step++ {
		pos := mgl32.Vec3{float32(step*7 - 120), 0, float32(step*-5 + 60)}
		f.Tick(pos, mgl32.QuatIdent(), false)
		for i := range opts.Levels {
			if n, c := len(f.Instances(i)), f.Capacity(i); n > c {
				t.Fatalf("step %d: LOD%d holds %d > capacity %d", step, i, n, c)
			}
		}
	}
}

func TestDrawCallsAreChunked(t *testing.T) {
	opts := scenarioOptions()
	opts.BatchLimit = 10
	f, rec := newTestField(t, opts, terrain.NewScene(terrain.Flat{}), nil)

	f.Tick(mgl32.Vec3{}, mgl32.QuatIdent(), false)
	if s := f.Stats(); s.DrawCalls != 8 {
		t.Errorf("expected 4+4 draw calls, got %d", s.DrawCalls)
	}
	for i, c := range rec.Calls() {
		if len(c.Transforms) > 10 {
			t.Errorf("call %d has %d instances", i, len(c.Transforms))
		}
	}
}

func TestTeardownIsIdempotent(t *testing.T) {
	rec := render.NewRecorder(false)
	f, err := New(scenarioOptions(), Deps{Probe: terrain.NewScene(terrain.Flat{}), Renderer: rec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.Tick(mgl32.Vec3{}, mgl32.QuatIdent(), false)

	f.Teardown()
	f.Teardown()
	if f.CachedTiles() != 0 {
		t.Errorf("cache should be empty after teardown, has %d", f.CachedTiles())
	}
	if f.Capacity(0) != 0 {
		t.Error("buffers should be released")
	}
}

func TestInstanceBufferOverflowPanics(t *testing.T) {
	b := NewInstanceBuffer(4)
	b.Advance(len(b.Reserve(3)))
	defer func() {
		if recover() == nil {
			t.Error("expected overflow panic")
		}
	}()
	b.Reserve(2)
}

func TestHeightCacheCornerMiss(t *testing.T) {
	// ground at 0.8 stops at x = 6: tile (1,0) has its center but not its right corners
	scene := terrain.NewScene(terrain.Flat{Height: 0.8, Bounds: &terrain.Rect{MinX: -100, MinZ: -100, MaxX: 6, MaxZ: 100}})
	hc := NewHeightCache(scene, terrain.AllLayers, 5)

	s := hc.Resolve(grid.Coord{X: 1, Y: 0})
	if !s.Valid {
		t.Fatal("center has ground, sample must be valid")
	}
	if s.Corners.TopLeft != 0.8 || s.Corners.BottomLeft != 0.8 {
		t.Errorf("left corners should be 0.8, got %+v", s.Corners)
	}
	if s.Corners.TopRight != 0 || s.Corners.BottomRight != 0 {
		t.Errorf("missing corners should default to 0, got %+v", s.Corners)
	}
	if hc.Probes() != 5 {
		t.Errorf("expected 5 rays, got %d", hc.Probes())
	}
	hc.Resolve(grid.Coord{X: 1, Y: 0})
	if hc.Probes() != 5 {
		t.Error("cached tile must not be probed again")
	}
}

func TestHeightCacheLayerFilter(t *testing.T) {
	scene := terrain.NewScene(
		terrain.Flat{Height: 3, On: terrain.LayerWater},
		terrain.Flat{Height: 0, On: terrain.LayerGround, Bounds: &terrain.Rect{MinX: -1, MinZ: -1, MaxX: 1, MaxZ: 1}},
	)
	hc := NewHeightCache(scene, terrain.MaskOf(terrain.LayerGround), 2)
	if s := hc.Resolve(grid.Coord{}); !s.Valid || s.Corners.TopLeft != 0 {
		t.Errorf("ground tile should ignore water, got %+v", s)
	}
	if s := hc.Resolve(grid.Coord{X: 5}); s.Valid {
		t.Error("tile with only water below should be invalid")
	}
}

func TestAngleDegrees(t *testing.T) {
	up := mgl32.Vec3{0, 1, 0}
	q := mgl32.QuatRotate(mgl32.DegToRad(30), up)
	if a := angleDegrees(mgl32.QuatIdent(), q); math.Abs(float64(a-30)) > 1e-2 {
		t.Errorf("expected 30 degrees, got %f", a)
	}
	// q and -q are the same rotation
	neg := mgl32.Quat{W: -q.W, V: q.V.Mul(-1)}
	if a := angleDegrees(q, neg); a != 0 {
		t.Errorf("expected 0 for opposite sign quaternions, got %f", a)
	}
}

func BenchmarkRegenerate(b *testing.B) {
	opts := Options{
		Levels: lod.Ladder{
			{Threshold: 3, Density: 64, Mesh: "near"},
			{Threshold: 8, Density: 16, Mesh: "mid"},
			{Threshold: 16, Density: 4, Mesh: "far"},
		},
		GridSize:    5,
		SpawnRange:  SpawnRange{Min: -50, Max: 50},
		LayerFilter: terrain.AllLayers,
	}
	f, err := New(opts, Deps{Probe: terrain.NewScene(terrain.NewNoise(terrain.DefaultNoiseConfig(1))), Renderer: render.NewRecorder(false)})
	if err != nil {
		b.Fatal(err)
	}
	defer f.Teardown()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Tick(mgl32.Vec3{float32(i%2) * 10, 0, 0}, mgl32.QuatIdent(), false)
	}
}
