// Package session wires a config into a running grass field: terrain scene,
// observer camera and the field itself, plus the frame step shared by the
// windowed and headless hosts.
package session

import (
	"fmt"

	"grassfield/internal/camera"
	"grassfield/internal/config"
	"grassfield/internal/grass"
	"grassfield/internal/grid"
	"grassfield/internal/logger"
	"grassfield/internal/profiling"
	"grassfield/internal/render"
	"grassfield/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Session owns everything one run needs besides the window.
type Session struct {
	Config *config.Config
	Scene  *terrain.Scene
	Camera *camera.Camera
	Field  *grass.Field

	filter terrain.LayerMask
	ground float32
	log    *zap.Logger
	frames int
	passes int
	closed bool
}

// New builds the scene, camera and field. renderer receives the draws.
func New(cfg *config.Config, renderer render.Renderer) (*Session, error) {
	scene, err := BuildScene(cfg.Terrain)
	if err != nil {
		return nil, err
	}

	cam := camera.New(cfg.Graphics.Width, cfg.Graphics.Height)
	cam.FOV = cfg.Camera.FOV
	cam.Near = cfg.Camera.Near
	cam.Far = cfg.Camera.Far
	cam.Speed = cfg.Camera.Speed
	cam.Sensitivity = cfg.Camera.Sensitivity
	cam.Position = mgl32.Vec3{cfg.Camera.Start.X, cfg.Camera.Start.Y, cfg.Camera.Start.Z}

	opts, err := cfg.Grass.Options()
	if err != nil {
		return nil, err
	}
	field, err := grass.New(opts, grass.Deps{
		Probe:    scene,
		Renderer: renderer,
		Frustum:  cam,
	})
	if err != nil {
		return nil, fmt.Errorf("creating grass field: %w", err)
	}

	config.ApplyRuntime(cfg)

	s := &Session{
		Config: cfg,
		Scene:  scene,
		Camera: cam,
		Field:  field,
		filter: opts.LayerFilter,
		ground: cam.Position.Y(),
		log:    logger.Named("session"),
	}
	s.log.Info("session started",
		zap.String("terrain", cfg.Terrain.Kind),
		zap.Int("surfaces", scene.Len()),
		zap.Int("lods", len(opts.Levels)),
		zap.Float32("grid_size", opts.GridSize),
		zap.Int("radius", opts.Levels.Radius()),
	)
	return s, nil
}

// Frame advances the field for the camera's current pose.
func (s *Session) Frame() grass.Stats {
	defer profiling.Track("session.Frame")()

	s.Field.Tick(s.Observer(), s.Camera.Orientation(), config.GetCulling())
	s.frames++

	stats := s.Field.Stats()
	if stats.Regenerated {
		s.passes++
	}
	return stats
}

// RefreshAround drops the cached heights of every tile in range of the
// camera so the next frame probes them again. It returns the tile count.
func (s *Session) RefreshAround() int {
	radius := s.Field.Levels().Radius()
	cell := grid.CellOf(s.Camera.Position, s.Config.Grass.GridSize)

	coords := make([]grid.Coord, 0, grid.RingArea(radius))
	for _, off := range grid.Ring(radius) {
		coords = append(coords, cell.Add(off.X, off.Y))
	}
	s.Field.InvalidateTiles(coords...)
	return len(coords)
}

// Observer is the point the field streams around: the camera column at ground
// level. Culling boxes are centered at its height, so a camera flying above
// the terrain still keeps the grass below it. Over holes the last ground
// height seen is reused.
func (s *Session) Observer() mgl32.Vec3 {
	pos := s.Camera.Position
	if h, ok := s.GroundHeight(); ok {
		s.ground = h
	}
	pos[1] = s.ground
	return pos
}

// GroundHeight probes the terrain under the camera with the field's layer
// filter. It reports false over holes.
func (s *Session) GroundHeight() (float32, bool) {
	return s.Scene.Probe(s.Camera.Position.X(), s.Camera.Position.Z(), s.filter)
}

// Frames returns how many frames ran.
func (s *Session) Frames() int {
	return s.frames
}

// Passes returns how many frames regenerated the field.
func (s *Session) Passes() int {
	return s.passes
}

// Close tears the field down. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.Field.Teardown()
	s.log.Info("session closed", zap.Int("frames", s.frames), zap.Int("passes", s.passes))
}
