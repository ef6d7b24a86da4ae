package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"grassfield/internal/config"
	"grassfield/internal/input"
	"grassfield/internal/logger"
	"grassfield/internal/profiling"
	"grassfield/internal/render/glrender"
	"grassfield/internal/session"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

const (
	windowTitle      = "grassfield"
	sprintMultiplier = 3
)

func setupWindow(gc config.GraphicsConfig) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(gc.Width, gc.Height, windowTitle, nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()

	// with vsync off the FPS limiter paces frames
	if gc.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)

	return window, nil
}

func runWindowed(cfg *config.Config, loop *stopper, out *atomic.Pointer[session.Session]) error {
	defer close(loop.done)

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("init glfw: %w", err)
	}
	defer glfw.Terminate()

	window, err := setupWindow(cfg.Graphics)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()

	r, err := glrender.New()
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	defer r.Dispose()

	s, err := session.New(cfg, r)
	if err != nil {
		return err
	}
	out.Store(s)

	fbWidth, fbHeight := window.GetFramebufferSize()
	r.SetViewport(fbWidth, fbHeight)
	s.Camera.SetViewport(fbWidth, fbHeight)

	im := input.NewInputManager()
	im.Attach(window)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if !config.GetPaused() {
			s.Camera.HandleMouseMovement(xpos, ypos)
		}
	})
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		r.SetViewport(width, height)
		s.Camera.SetViewport(width, height)
	})

	log := logger.Named("window")
	limiter := session.NewFPSLimiter()
	wireframe := false

	start := time.Now()
	lastTime := start
	lastFPSCheck := start
	frames := 0

	for !window.ShouldClose() && !loop.Stopped() {
		profiling.ResetFrame()
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		if im.JustPressed(input.ActionQuit) {
			window.SetShouldClose(true)
		}
		if im.JustPressed(input.ActionTogglePause) {
			paused := config.TogglePaused()
			if paused {
				window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			} else {
				window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
				s.Camera.ResetMouse()
			}
		}
		if im.JustPressed(input.ActionToggleCulling) {
			log.Info("frustum culling toggled", zap.Bool("enabled", config.ToggleCulling()))
		}
		if im.JustPressed(input.ActionToggleWireframe) {
			wireframe = !wireframe
			r.SetWireframe(wireframe)
		}
		if im.JustPressed(input.ActionRefreshTiles) {
			log.Info("tiles refreshed", zap.Int("tiles", s.RefreshAround()))
		}

		paused := config.GetPaused()
		if !paused {
			func() {
				defer profiling.Track("camera.Move")()
				speed := s.Camera.Speed
				if im.IsActive(input.ActionSprint) {
					s.Camera.Speed *= sprintMultiplier
				}
				s.Camera.Move(
					im.Axis(input.ActionMoveForward, input.ActionMoveBackward),
					im.Axis(input.ActionMoveRight, input.ActionMoveLeft),
					im.Axis(input.ActionMoveUp, input.ActionMoveDown),
					dt,
				)
				s.Camera.Speed = speed
			}()
		}

		r.BeginFrame(s.Camera.View(), s.Camera.Projection(), s.Camera.Position, float32(now.Sub(start).Seconds()))
		stats := s.Frame()
		frames++

		func() { defer profiling.Track("glfw.SwapBuffers")(); window.SwapBuffers() }()
		im.PostUpdate()
		func() { defer profiling.Track("glfw.PollEvents")(); glfw.PollEvents() }()

		if time.Since(lastFPSCheck) >= time.Second {
			total := 0
			for _, n := range stats.Instances {
				total += n
			}
			window.SetTitle(fmt.Sprintf("%s | %d fps | %d blades | %d draws", windowTitle, frames, total, stats.DrawCalls))
			log.Debug("frame stats",
				zap.Int("fps", frames),
				zap.Ints("instances", stats.Instances),
				zap.Int("draw_calls", stats.DrawCalls),
				zap.Int("cached_tiles", s.Field.CachedTiles()),
				zap.String("top", profiling.TopN(4)),
			)
			frames = 0
			lastFPSCheck = time.Now()
		}

		limiter.Wait(paused)
	}
	return nil
}
