package session

import (
	"fmt"

	"grassfield/internal/config"
	"grassfield/internal/terrain"
)

// BuildScene creates the probe scene a terrain config describes.
func BuildScene(tc config.TerrainConfig) (*terrain.Scene, error) {
	layer, err := tc.SurfaceLayer()
	if err != nil {
		return nil, err
	}

	scene := terrain.NewScene()
	switch tc.Kind {
	case config.TerrainFlat:
		scene.Add(terrain.Flat{Height: tc.FlatHeight, On: layer})
	case config.TerrainNoise:
		nc := terrain.DefaultNoiseConfig(tc.Seed)
		if tc.NoiseScale > 0 {
			nc.Scale = tc.NoiseScale
		}
		if tc.Octaves > 0 {
			nc.Octaves = tc.Octaves
		}
		if tc.Persistence > 0 {
			nc.Persistence = tc.Persistence
		}
		if tc.Lacunarity > 0 {
			nc.Lacunarity = tc.Lacunarity
		}
		nc.BaseHeight = tc.BaseHeight
		nc.Amplitude = tc.Amplitude
		nc.On = layer
		scene.Add(terrain.NewNoise(nc))
	case config.TerrainHeightmap:
		hc := tc.Heightmap
		hm, err := terrain.LoadHeightmap(hc.Path, terrain.HeightmapOptions{
			OriginX:     hc.OriginX,
			OriginZ:     hc.OriginZ,
			CellSize:    hc.CellSize,
			BaseHeight:  hc.BaseHeight,
			HeightScale: hc.HeightScale,
			On:          layer,
		})
		if err != nil {
			return nil, fmt.Errorf("terrain: %w", err)
		}
		scene.Add(hm)
	default:
		return nil, fmt.Errorf("terrain: unknown kind %q", tc.Kind)
	}

	if tc.Water.Enabled {
		scene.Add(terrain.Flat{Height: tc.Water.Level, On: terrain.LayerWater})
	}
	return scene, nil
}
