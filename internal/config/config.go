// Package config handles grassfield configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"

	"grassfield/internal/grass"
	"grassfield/internal/lod"
	"grassfield/internal/terrain"
)

// Terrain kinds.
const (
	TerrainFlat      = "flat"
	TerrainNoise     = "noise"
	TerrainHeightmap = "heightmap"
)

// Config holds all settings.
type Config struct {
	Grass    GrassConfig    `yaml:"grass"`
	Terrain  TerrainConfig  `yaml:"terrain"`
	Graphics GraphicsConfig `yaml:"graphics"`
	Camera   CameraConfig   `yaml:"camera"`
	Run      RunConfig      `yaml:"run"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LODConfig is one distance tier.
type LODConfig struct {
	Threshold int    `yaml:"threshold"`
	Density   int    `yaml:"density"`
	Mesh      string `yaml:"mesh"`
	Material  string `yaml:"material"`
}

// RangeConfig is an inclusive height interval.
type RangeConfig struct {
	Min float32 `yaml:"min"`
	Max float32 `yaml:"max"`
}

// GrassConfig holds the streaming settings.
type GrassConfig struct {
	LODs              []LODConfig `yaml:"lods"`
	GridSize          float32     `yaml:"grid_size"`
	SpawnRange        RangeConfig `yaml:"spawn_range"`
	UseFrustumCulling bool        `yaml:"use_frustum_culling"`
	UseSmoothDensity  bool        `yaml:"use_smooth_density"`
	LayerFilter       []string    `yaml:"layer_filter"` // Layer names; empty means all
	BatchLimit        int         `yaml:"batch_limit"`
	CullHeightExtent  float32     `yaml:"cull_height_extent"`
	Workers           int         `yaml:"workers"` // 0 = one per CPU
}

// TerrainConfig selects and shapes the ground the grass is probed against.
type TerrainConfig struct {
	Kind  string `yaml:"kind"` // flat, noise or heightmap
	Layer string `yaml:"layer"`

	FlatHeight float32 `yaml:"flat_height"`

	Seed        int64   `yaml:"seed"`
	NoiseScale  float64 `yaml:"noise_scale"`
	BaseHeight  float64 `yaml:"base_height"`
	Amplitude   float64 `yaml:"amplitude"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
	Lacunarity  float64 `yaml:"lacunarity"`

	Heightmap HeightmapConfig `yaml:"heightmap"`

	// Water adds a flat plane on the water layer. Grass only avoids it when
	// the layer filter excludes "water".
	Water WaterConfig `yaml:"water"`
}

// HeightmapConfig places a grayscale image in the world.
type HeightmapConfig struct {
	Path        string  `yaml:"path"`
	OriginX     float32 `yaml:"origin_x"`
	OriginZ     float32 `yaml:"origin_z"`
	CellSize    float32 `yaml:"cell_size"`
	BaseHeight  float32 `yaml:"base_height"`
	HeightScale float32 `yaml:"height_scale"`
}

// WaterConfig is an optional water plane.
type WaterConfig struct {
	Enabled bool    `yaml:"enabled"`
	Level   float32 `yaml:"level"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width    int  `yaml:"width"`
	Height   int  `yaml:"height"`
	VSync    bool `yaml:"vsync"`
	FPSLimit int  `yaml:"fps_limit"`
}

// CameraConfig holds the observer settings.
type CameraConfig struct {
	FOV         float32     `yaml:"fov"`
	Near        float32     `yaml:"near"`
	Far         float32     `yaml:"far"`
	Speed       float32     `yaml:"speed"`
	Sensitivity float32     `yaml:"sensitivity"`
	Start       PointConfig `yaml:"start"`
}

// PointConfig is a world position.
type PointConfig struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

// RunConfig selects how the binary runs.
type RunConfig struct {
	Headless bool `yaml:"headless"`
	Frames   int  `yaml:"frames"` // headless frame count
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Grass: GrassConfig{
			LODs: []LODConfig{
				{Threshold: 2, Density: 256, Mesh: "blade_high", Material: "grass"},
				{Threshold: 6, Density: 96, Mesh: "blade_medium", Material: "grass"},
				{Threshold: 12, Density: 24, Mesh: "blade_low", Material: "grass"},
			},
			GridSize:          5,
			SpawnRange:        RangeConfig{Min: -10, Max: 10},
			UseFrustumCulling: true,
			UseSmoothDensity:  false,
			LayerFilter:       []string{"ground"},
			BatchLimit:        1023,
			CullHeightExtent:  grass.DefaultCullHeightExtent,
			Workers:           0,
		},
		Terrain: TerrainConfig{
			Kind:        TerrainNoise,
			Layer:       "ground",
			Seed:        1337,
			NoiseScale:  1.0 / 64.0,
			BaseHeight:  -8,
			Amplitude:   16,
			Octaves:     4,
			Persistence: 0.5,
			Lacunarity:  2.0,
			Heightmap: HeightmapConfig{
				CellSize:    1,
				HeightScale: 20,
			},
			Water: WaterConfig{Enabled: true, Level: -4},
		},
		Graphics: GraphicsConfig{
			Width:    1280,
			Height:   720,
			VSync:    true,
			FPSLimit: 0,
		},
		Camera: CameraConfig{
			FOV:         60,
			Near:        0.1,
			Far:         400,
			Speed:       8,
			Sensitivity: 0.1,
			Start:       PointConfig{Y: 12},
		},
		Run: RunConfig{
			Headless: false,
			Frames:   600,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks every section and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Grass.Options(); err != nil {
		errs = append(errs, err)
	}

	switch c.Terrain.Kind {
	case TerrainFlat, TerrainNoise:
	case TerrainHeightmap:
		if c.Terrain.Heightmap.Path == "" {
			errs = append(errs, errors.New("terrain: heightmap kind needs heightmap.path"))
		}
		if c.Terrain.Heightmap.CellSize <= 0 {
			errs = append(errs, fmt.Errorf("terrain: heightmap cell_size must be positive, got %v", c.Terrain.Heightmap.CellSize))
		}
	default:
		errs = append(errs, fmt.Errorf("terrain: unknown kind %q (want %s, %s or %s)", c.Terrain.Kind, TerrainFlat, TerrainNoise, TerrainHeightmap))
	}
	if _, err := c.Terrain.SurfaceLayer(); err != nil {
		errs = append(errs, fmt.Errorf("terrain: %w", err))
	}

	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		errs = append(errs, fmt.Errorf("graphics: window size must be positive, got %dx%d", c.Graphics.Width, c.Graphics.Height))
	}
	if c.Graphics.FPSLimit < 0 {
		errs = append(errs, fmt.Errorf("graphics: fps_limit must not be negative, got %d", c.Graphics.FPSLimit))
	}

	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		errs = append(errs, fmt.Errorf("camera: fov must be in (0, 180), got %v", c.Camera.FOV))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("camera: need 0 < near < far, got %v and %v", c.Camera.Near, c.Camera.Far))
	}

	if c.Run.Frames < 0 {
		errs = append(errs, fmt.Errorf("run: frames must not be negative, got %d", c.Run.Frames))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Ladder converts the configured tiers.
func (g GrassConfig) Ladder() lod.Ladder {
	ladder := make(lod.Ladder, len(g.LODs))
	for i, l := range g.LODs {
		ladder[i] = lod.Level{
			Threshold: l.Threshold,
			Density:   l.Density,
			Mesh:      l.Mesh,
			Material:  l.Material,
		}
	}
	return ladder
}

// Options converts the section into field options and validates them so bad
// files fail before anything is allocated.
func (g GrassConfig) Options() (grass.Options, error) {
	mask, err := terrain.ParseLayerMask(g.LayerFilter)
	if err != nil {
		return grass.Options{}, fmt.Errorf("grass: layer_filter: %w", err)
	}
	opts := grass.Options{
		Levels:           g.Ladder(),
		GridSize:         g.GridSize,
		SpawnRange:       grass.SpawnRange{Min: g.SpawnRange.Min, Max: g.SpawnRange.Max},
		LayerFilter:      mask,
		SmoothDensity:    g.UseSmoothDensity,
		BatchLimit:       g.BatchLimit,
		CullHeightExtent: g.CullHeightExtent,
		Workers:          g.Workers,
	}

	if err := opts.Validate(); err != nil {
		return grass.Options{}, err
	}
	return opts, nil
}

// SurfaceLayer resolves the layer the generated terrain lives on.
func (t TerrainConfig) SurfaceLayer() (terrain.Layer, error) {
	if t.Layer == "" {
		return terrain.LayerGround, nil
	}
	return terrain.LayerByName(t.Layer)
}
