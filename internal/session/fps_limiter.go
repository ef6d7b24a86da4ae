package session

import (
	"time"

	"grassfield/internal/config"
)

const (
	// PausedFPS caps the loop while the host is paused.
	PausedFPS = 30

	spinWindow = 200 * time.Microsecond
)

// FPSLimiter paces the windowed frame loop against an absolute schedule so
// sleep jitter does not accumulate.
type FPSLimiter struct {
	deadline time.Time
	hitches  int
}

// NewFPSLimiter creates a limiter with no schedule yet.
func NewFPSLimiter() *FPSLimiter {
	return &FPSLimiter{}
}

// Wait blocks until the next frame is due under the runtime FPS limit.
func (f *FPSLimiter) Wait(paused bool) {
	limit := config.GetFPSLimit()
	if paused && (limit <= 0 || limit > PausedFPS) {
		limit = PausedFPS
	}
	f.waitFor(limit)
}

// Hitches counts frames that overran a whole period and forced a resync.
func (f *FPSLimiter) Hitches() int { return f.hitches }

func (f *FPSLimiter) waitFor(limit int) {
	if limit <= 0 {
		f.deadline = time.Time{}
		return
	}
	period := time.Second / time.Duration(limit)

	now := time.Now()
	if f.deadline.IsZero() {
		f.deadline = now
	}
	f.deadline = f.deadline.Add(period)

	if now.Sub(f.deadline) > period {
		f.hitches++
		f.deadline = now.Add(period)
	}

	if d := time.Until(f.deadline) - spinWindow; d > 0 {
		time.Sleep(d)
	}
	for time.Now().Before(f.deadline) {
	}
}
