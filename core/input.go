package core

import "slices"

// Key identifies a keyboard key. Values match GLFW key codes so the window
// layer converts with a plain cast.
type Key int

const (
	Key0      Key = 48
	Key1      Key = 49
	Key2      Key = 50
	Key5      Key = 53
	Key6      Key = 54
	Key7      Key = 55
	Key8      Key = 56
	Key9      Key = 57
	KeyA      Key = 65
	KeyD      Key = 68
	KeyF      Key = 70
	KeyL      Key = 76
	KeyO      Key = 79
	KeyQ      Key = 81
	KeyS      Key = 83
	KeyT      Key = 84
	KeyW      Key = 87
	KeyY      Key = 89
	KeyZ      Key = 90
	KeyEscape Key = 256
	KeyF5     Key = 294
	KeyF9     Key = 298
)

// Input is everything that happened since the previous frame.
type Input struct {
	// Pressed lists keys that went down, in event order.
	Pressed []Key
	// Held is the set of keys currently down.
	Held map[Key]bool

	// DragX and DragY are the cursor motion in pixels while the left mouse
	// button was down.
	DragX, DragY float64
	Scroll       float64

	// Width and Height are the framebuffer size. Resized is set when they
	// changed.
	Width, Height int
	Resized       bool

	CloseRequested bool
}

func (in *Input) WasPressed(k Key) bool {
	return slices.Contains(in.Pressed, k)
}

func (in *Input) IsHeld(k Key) bool {
	return in.Held[k]
}

// Active reports whether the user did anything this frame.
func (in *Input) Active() bool {
	return len(in.Pressed) > 0 || in.DragX != 0 || in.DragY != 0 || in.Scroll != 0 || in.Resized
}
