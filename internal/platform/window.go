// Package platform opens the GLFW window and OpenGL context the renderer
// draws into.
package platform

import (
	"fmt"

	"Prism3D/internal/config"
	"Prism3D/internal/engine"
	"Prism3D/internal/logger"
	"Prism3D/internal/renderer"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

var keyMap = map[glfw.Key]engine.Key{
	glfw.KeyW:          engine.KeyW,
	glfw.KeyA:          engine.KeyA,
	glfw.KeyS:          engine.KeyS,
	glfw.KeyD:          engine.KeyD,
	glfw.KeyLeftShift:  engine.KeyShift,
	glfw.KeyRightShift: engine.KeyShift,
	glfw.KeyEscape:     engine.KeyEscape,
	glfw.KeyF12:        engine.KeyF12,
	glfw.KeyN:          engine.KeyN,
	glfw.KeyF3:         engine.KeyF3,
}

// Window is a GLFW window with a current OpenGL 4.1 core context. All
// methods must be called from the thread that opened it.
type Window struct {
	win   *glfw.Window
	onKey func(engine.Key)
}

// Open initialises GLFW and creates the window. The caller must have locked
// the OS thread.
func Open(cfg config.Window) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Decorated, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolHint(cfg.Resizable))
	glfw.WindowHint(glfw.DepthBits, 24)

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	win.MakeContextCurrent()
	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	if cfg.CaptureCursor {
		win.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	}
	setDarkTitleBar(win)

	w := &Window{win: win}
	win.SetKeyCallback(w.keyCallback)

	fbw, fbh := win.GetFramebufferSize()
	logger.Log.Info("Window opened",
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Int("framebufferWidth", fbw),
		zap.Int("framebufferHeight", fbh))
	return w, nil
}

func boolHint(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}

func (w *Window) ShouldClose() bool { return w.win.ShouldClose() }
func (w *Window) Present()          { w.win.SwapBuffers() }
func (w *Window) PollEvents()       { glfw.PollEvents() }
func (w *Window) RequestClose()     { w.win.SetShouldClose(true) }

// SetInputHandler routes framebuffer resizes and cursor motion to h.
func (w *Window) SetInputHandler(h renderer.InputHandler) {
	w.win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		h.OnResize(width, height)
	})
	w.win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		h.OnCursorMove(x, y)
	})
}

func (w *Window) SetKeyHandler(fn func(engine.Key)) { w.onKey = fn }

func (w *Window) KeyDown(k engine.Key) bool {
	for gk, ek := range keyMap {
		if ek == k && w.win.GetKey(gk) == glfw.Press {
			return true
		}
	}
	return false
}

func (w *Window) keyCallback(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action != glfw.Press || w.onKey == nil {
		return
	}
	if k, ok := keyMap[key]; ok {
		w.onKey(k)
	}
}

// FramebufferSize is the drawable size in pixels, which differs from the
// window size on high-DPI displays.
func (w *Window) FramebufferSize() (width, height int) {
	return w.win.GetFramebufferSize()
}

// Close destroys the window and shuts GLFW down.
func (w *Window) Close() {
	w.win.Destroy()
	glfw.Terminate()
}
