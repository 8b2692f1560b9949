package opengl

import (
	"runtime"
	"time"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"

	"point-viewer/core"
)

func init() {
	runtime.LockOSThread()
}

type WindowConfig struct {
	Width     int
	Height    int
	Title     string
	Resizable bool
	VSync     bool
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Width:     800,
		Height:    600,
		Title:     "Point Viewer",
		Resizable: true,
		VSync:     true,
	}
}

// Window owns the GLFW window and its GL context, and collects input events
// between frames.
type Window struct {
	Handle *glfw.Window
	Width  int
	Height int

	pending core.Input
	held    map[core.Key]bool
	lastX   float64
	lastY   float64
}

func NewWindow(config WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize GLFW")
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolToInt(config.Resizable))

	handle, err := glfw.CreateWindow(config.Width, config.Height, config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "failed to create window")
	}
	handle.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		handle.Destroy()
		glfw.Terminate()
		return nil, errors.Wrap(err, "failed to initialize OpenGL")
	}
	if config.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	w := &Window{
		Handle: handle,
		held:   make(map[core.Key]bool),
	}
	w.Width, w.Height = handle.GetFramebufferSize()
	w.lastX, w.lastY = handle.GetCursorPos()
	w.pending.Resized = true
	gl.Viewport(0, 0, int32(w.Width), int32(w.Height))

	handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		k := core.Key(key)
		switch action {
		case glfw.Press:
			w.held[k] = true
			w.pending.Pressed = append(w.pending.Pressed, k)
		case glfw.Release:
			delete(w.held, k)
		}
	})
	handle.SetCursorPosCallback(func(win *glfw.Window, x, y float64) {
		if win.GetMouseButton(glfw.MouseButtonLeft) == glfw.Press {
			w.pending.DragX += x - w.lastX
			w.pending.DragY += y - w.lastY
		}
		w.lastX, w.lastY = x, y
	})
	handle.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		w.pending.Scroll += yoff
	})
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.Width, w.Height = width, height
		w.pending.Resized = true
	})
	return w, nil
}

// PollInput processes pending events and returns what happened since the
// previous call.
func (w *Window) PollInput() core.Input {
	glfw.PollEvents()
	return w.drain()
}

// WaitInput blocks until an event arrives or timeout passes.
func (w *Window) WaitInput(timeout time.Duration) core.Input {
	glfw.WaitEventsTimeout(timeout.Seconds())
	return w.drain()
}

func (w *Window) drain() core.Input {
	in := w.pending
	w.pending = core.Input{}
	in.Held = make(map[core.Key]bool, len(w.held))
	for k := range w.held {
		in.Held[k] = true
	}
	in.Width, in.Height = w.Width, w.Height
	in.CloseRequested = w.Handle.ShouldClose()
	return in
}

// Clear starts a frame on a black background.
func (w *Window) Clear() {
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (w *Window) SetViewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

func (w *Window) Present() {
	w.Handle.SwapBuffers()
}

func (w *Window) SetTitle(title string) {
	w.Handle.SetTitle(title)
}

func (w *Window) Destroy() {
	w.Handle.Destroy()
	glfw.Terminate()
}

func boolToInt(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}
