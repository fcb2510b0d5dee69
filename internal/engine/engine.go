// Package engine drives the render loop: input, behaviours, frame drawing
// and settings reloaded while running.
package engine

import (
	"context"
	"image"
	"time"

	"Prism3D/internal/behaviour"
	"Prism3D/internal/logger"
	"Prism3D/internal/renderer"

	"go.uber.org/zap"
)

// Window is the display surface plus the input the loop reads.
type Window interface {
	renderer.Window
	Keyboard
	// SetKeyHandler registers fn for key presses.
	SetKeyHandler(fn func(Key))
	RequestClose()
}

// Capturer receives frames requested with F12.
type Capturer interface {
	Submit(img *image.NRGBA) (string, error)
}

// maxDelta caps the frame time fed to movement and behaviours after a stall.
const maxDelta = 0.1

type Engine struct {
	renderer   *renderer.Renderer
	window     Window
	behaviours *behaviour.Manager
	capturer   Capturer

	frame   renderer.FrameSettings
	changes chan renderer.FrameSettings

	// loaded is the last value read from the settings file, before any
	// key toggles.
	loaded renderer.FrameSettings

	now  func() time.Time
	last time.Time
}

func New(r *renderer.Renderer, win Window, behaviours *behaviour.Manager, frame renderer.FrameSettings) *Engine {
	if behaviours == nil {
		behaviours = behaviour.NewManager()
	}
	e := &Engine{
		renderer:   r,
		window:     win,
		behaviours: behaviours,
		frame:      frame,
		loaded:     frame,
		changes:    make(chan renderer.FrameSettings, 1),
		now:        time.Now,
	}
	win.SetKeyHandler(e.HandleKey)
	return e
}

func (e *Engine) SetCapturer(c Capturer) { e.capturer = c }

func (e *Engine) FrameSettings() renderer.FrameSettings { return e.frame }

// ApplyFrameSettings queues fs for the next frame boundary. It may be called
// from any goroutine; only the newest pending settings are kept.
func (e *Engine) ApplyFrameSettings(fs renderer.FrameSettings) {
	for {
		select {
		case e.changes <- fs:
			return
		default:
		}
		select {
		case <-e.changes:
		default:
		}
	}
}

// HandleKey reacts to a key press.
func (e *Engine) HandleKey(k Key) {
	switch k {
	case KeyEscape:
		e.window.RequestClose()
	case KeyF12:
		e.requestCapture()
	case KeyN:
		e.frame.UseNormalMaps = !e.frame.UseNormalMaps
		logger.Log.Info("Normal maps toggled", zap.Bool("enabled", e.frame.UseNormalMaps))
	case KeyF3:
		e.frame.DebugView = e.frame.DebugView.Next()
		logger.Log.Info("Debug view", zap.Stringer("view", e.frame.DebugView))
	}
}

func (e *Engine) requestCapture() {
	if e.capturer == nil {
		logger.Log.Warn("Capture requested but no capture output is configured")
		return
	}
	c := e.capturer
	e.renderer.RequestCapture(func(img *image.NRGBA) {
		if _, err := c.Submit(img); err != nil {
			logger.Log.Warn("Capture dropped", zap.Error(err))
		}
	})
}

// Step runs one frame: camera movement, behaviours, drawing, then any
// settings that arrived while the frame was built.
func (e *Engine) Step(dt float32) {
	if cam, ok := e.renderer.Scene().Camera.(*renderer.Camera); ok {
		moveCamera(cam, e.window, dt)
	}
	e.behaviours.UpdateAll(e.renderer.Scene(), dt)
	e.renderer.DrawFrame(e.frame)
	e.drainChanges()
}

func (e *Engine) drainChanges() {
	select {
	case fs := <-e.changes:
		e.frame = mergeFrameSettings(e.frame, e.loaded, fs)
		e.loaded = fs
	default:
	}
}

// mergeFrameSettings applies a reloaded file on top of current. The values
// the keyboard toggles keep their current state unless the file itself
// changed them since prev.
func mergeFrameSettings(current, prev, next renderer.FrameSettings) renderer.FrameSettings {
	merged := next
	if next.UseNormalMaps == prev.UseNormalMaps {
		merged.UseNormalMaps = current.UseNormalMaps
	} else if current.UseNormalMaps != next.UseNormalMaps {
		logger.Log.Info("Normal maps set by settings file", zap.Bool("enabled", next.UseNormalMaps))
	}
	if next.DebugView == prev.DebugView {
		merged.DebugView = current.DebugView
	} else if current.DebugView != next.DebugView {
		logger.Log.Info("Debug view set by settings file", zap.Stringer("view", next.DebugView))
	}
	return merged
}

// Run steps frames until the window closes or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	logger.Log.Info("Render loop started", zap.Strings("behaviours", e.behaviours.Names()))
	e.last = e.now()
	for !e.window.ShouldClose() {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := e.now()
		dt := float32(now.Sub(e.last).Seconds())
		e.last = now
		e.Step(min(dt, maxDelta))
	}
	logger.Log.Info("Render loop finished", zap.Uint64("frames", e.renderer.FrameCount()))
	return nil
}
