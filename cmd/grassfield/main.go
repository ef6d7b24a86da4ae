package main

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"grassfield/internal/config"
	"grassfield/internal/logger"
	"grassfield/internal/render"
	"grassfield/internal/session"

	"github.com/xlab/closer"
	"go.uber.org/zap"
)

func init() {
	// GLFW and GL calls must stay on the main thread
	runtime.LockOSThread()
}

const (
	headlessStep     = 1.0 / 60
	headlessLogEvery = 120
	headlessTurnRate = 6
)

// stopper lets a signal handler ask the frame loop to end and wait for it.
type stopper struct {
	requested atomic.Bool
	done      chan struct{}
}

func newStopper() *stopper {
	return &stopper{done: make(chan struct{})}
}

func (s *stopper) Stop()         { s.requested.Store(true) }
func (s *stopper) Stopped() bool { return s.requested.Load() }

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "grassfield: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "grassfield: init logger: %v\n", err)
		os.Exit(1)
	}

	closer.Init(closer.Config{
		ExitCodeOK:  0,
		ExitCodeErr: 1,
		ExitSignals: closer.DefaultSignalSet,
	})

	logger.Log.Info("starting grassfield",
		zap.Bool("headless", cfg.Run.Headless),
		zap.String("level", cfg.Logging.Level),
		zap.Bool("culling", cfg.Grass.UseFrustumCulling),
		zap.Bool("smooth_density", cfg.Grass.UseSmoothDensity),
	)

	loop := newStopper()

	// The session lives on the main thread; cleanup waits for the loop to
	// finish before tearing it down.
	var sess atomic.Pointer[session.Session]
	closer.Bind(func() {
		loop.Stop()
		<-loop.done
		if s := sess.Load(); s != nil {
			s.Close()
		}
		logger.Sync()
	})

	var runErr error
	if cfg.Run.Headless {
		runErr = runHeadless(cfg, loop, &sess)
	} else {
		runErr = runWindowed(cfg, loop, &sess)
	}

	if runErr != nil {
		logger.Log.Error("grassfield stopped", zap.Error(runErr))
		closer.Exit(1)
	}
	closer.Close()
}

func runHeadless(cfg *config.Config, loop *stopper, out *atomic.Pointer[session.Session]) error {
	defer close(loop.done)

	rec := render.NewRecorder(false)
	s, err := session.New(cfg, rec)
	if err != nil {
		return err
	}
	out.Store(s)

	pilot := session.Autopilot{TurnRate: headlessTurnRate}
	frames := cfg.Run.Frames
	for done := 0; done < frames && !loop.Stopped(); {
		batch := min(headlessLogEvery, frames-done)
		session.RunHeadless(s, pilot, batch, headlessStep, 0)
		done += batch

		calls, instances := rec.Counts()
		logger.Log.Info("headless frames",
			zap.Int("done", done),
			zap.Int("frames", frames),
			zap.Int("passes", s.Passes()),
			zap.Int("draw_calls", calls),
			zap.Int("instances_drawn", instances),
			zap.Int("cached_tiles", s.Field.CachedTiles()),
		)
		rec.Reset()
	}
	return nil
}
