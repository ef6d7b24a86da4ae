package session

import (
	"time"

	"grassfield/internal/profiling"

	"go.uber.org/zap"
)

// EyeHeight is how far above the ground the autopilot keeps the camera.
const EyeHeight = 1.8

// Autopilot walks the camera in a slow curve, following the ground.
type Autopilot struct {
	// TurnRate is the yaw change in degrees per second.
	TurnRate float32
}

// Step moves the session camera forward by dt seconds.
func (a Autopilot) Step(s *Session, dt float64) {
	s.Camera.Look(a.TurnRate*float32(dt), 0)
	s.Camera.Move(1, 0, 0, dt)
	if h, ok := s.GroundHeight(); ok {
		s.Camera.Position[1] = h + EyeHeight
	}
}

// Summary aggregates a headless run.
type Summary struct {
	Frames       int
	Passes       int
	DrawCalls    int
	Probes       int
	Culled       int
	MaxInstances int
	Elapsed      time.Duration
}

// RunHeadless drives the session for frames fixed steps of dt seconds with
// the autopilot. Statistics are logged every logEvery frames; 0 disables it.
func RunHeadless(s *Session, pilot Autopilot, frames int, dt float64, logEvery int) Summary {
	var sum Summary
	start := time.Now()

	for i := 0; i < frames; i++ {
		profiling.ResetFrame()
		pilot.Step(s, dt)
		stats := s.Frame()

		sum.Frames++
		sum.DrawCalls += stats.DrawCalls
		if stats.Regenerated {
			sum.Passes++
			sum.Probes += stats.Probes
			sum.Culled += stats.Culled
		}
		total := 0
		for _, n := range stats.Instances {
			total += n
		}
		sum.MaxInstances = max(sum.MaxInstances, total)

		if logEvery > 0 && (i+1)%logEvery == 0 {
			s.log.Info("headless progress",
				zap.Int("frame", i+1),
				zap.Int("cell_x", stats.Cell.X),
				zap.Int("cell_y", stats.Cell.Y),
				zap.Ints("instances", stats.Instances),
				zap.Int("draw_calls", stats.DrawCalls),
				zap.String("top", profiling.TopN(3)),
			)
		}
	}

	sum.Elapsed = time.Since(start)
	s.log.Debug("headless run finished",
		zap.Int("frames", sum.Frames),
		zap.Int("passes", sum.Passes),
		zap.Int("draw_calls", sum.DrawCalls),
		zap.Int("probes", sum.Probes),
		zap.Int("culled", sum.Culled),
		zap.Int("max_instances", sum.MaxInstances),
		zap.Duration("elapsed", sum.Elapsed),
	)
	return sum
}
