package config

import "sync"

// RuntimeSettings hold the toggles a running host may flip between frames.
type RuntimeSettings struct {
	mu       sync.RWMutex
	culling  bool
	fpsLimit int
	paused   bool
}

var globalRuntimeSettings = &RuntimeSettings{}

// ApplyRuntime seeds the runtime toggles from a loaded config.
func ApplyRuntime(cfg *Config) {
	globalRuntimeSettings.mu.Lock()
	defer globalRuntimeSettings.mu.Unlock()
	globalRuntimeSettings.culling = cfg.Grass.UseFrustumCulling
	globalRuntimeSettings.fpsLimit = max(cfg.Graphics.FPSLimit, 0)
	globalRuntimeSettings.paused = false
}

// GetCulling returns whether frustum culling is requested.
func GetCulling() bool {
	globalRuntimeSettings.mu.RLock()
	defer globalRuntimeSettings.mu.RUnlock()
	return globalRuntimeSettings.culling
}

// ToggleCulling flips culling and returns the new state.
func ToggleCulling() bool {
	globalRuntimeSettings.mu.Lock()
	defer globalRuntimeSettings.mu.Unlock()
	globalRuntimeSettings.culling = !globalRuntimeSettings.culling
	return globalRuntimeSettings.culling
}

// GetFPSLimit returns the frame cap; 0 is uncapped.
func GetFPSLimit() int {
	globalRuntimeSettings.mu.RLock()
	defer globalRuntimeSettings.mu.RUnlock()
	return globalRuntimeSettings.fpsLimit
}

// SetFPSLimit sets the frame cap, clamped to [0, 1000].
func SetFPSLimit(limit int) {
	globalRuntimeSettings.mu.Lock()
	defer globalRuntimeSettings.mu.Unlock()
	globalRuntimeSettings.fpsLimit = min(max(limit, 0), 1000)
}

// GetPaused reports whether the observer is frozen.
func GetPaused() bool {
	globalRuntimeSettings.mu.RLock()
	defer globalRuntimeSettings.mu.RUnlock()
	return globalRuntimeSettings.paused
}

// TogglePaused flips the pause state and returns it.
func TogglePaused() bool {
	globalRuntimeSettings.mu.Lock()
	defer globalRuntimeSettings.mu.Unlock()
	globalRuntimeSettings.paused = !globalRuntimeSettings.paused
	return globalRuntimeSettings.paused
}
