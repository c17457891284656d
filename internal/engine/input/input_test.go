package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"
)

func keyEvent(typ uint32, code sdl.Scancode, repeat uint8) *sdl.KeyboardEvent {
	return &sdl.KeyboardEvent{Type: typ, Repeat: repeat, Keysym: sdl.Keysym{Scancode: code}}
}

func TestKeyPressAndHold(t *testing.T) {
	in := New()
	in.BeginFrame()
	in.Handle(keyEvent(sdl.KEYDOWN, sdl.SCANCODE_W, 0))
	in.Handle(keyEvent(sdl.KEYDOWN, sdl.SCANCODE_W, 1))

	assert.True(t, in.IsKeyPressed(sdl.SCANCODE_W))
	assert.Len(t, in.Events(), 1, "repeats are not presses")
	assert.True(t, in.IsKeyDown(sdl.SCANCODE_W))
	assert.Equal(t, float32(1), in.Axis(sdl.SCANCODE_W, sdl.SCANCODE_S))

	in.BeginFrame()
	assert.False(t, in.IsKeyPressed(sdl.SCANCODE_W))
	assert.True(t, in.IsKeyDown(sdl.SCANCODE_W), "held keys survive the frame")

	in.Handle(keyEvent(sdl.KEYDOWN, sdl.SCANCODE_S, 0))
	assert.Equal(t, float32(0), in.Axis(sdl.SCANCODE_W, sdl.SCANCODE_S))
	in.Handle(keyEvent(sdl.KEYUP, sdl.SCANCODE_W, 0))
	assert.Equal(t, float32(-1), in.Axis(sdl.SCANCODE_W, sdl.SCANCODE_S))
}

func TestDragOnlyWithLeftButton(t *testing.T) {
	in := New()
	in.BeginFrame()
	in.Handle(&sdl.MouseMotionEvent{X: 10, Y: 10})
	in.Handle(&sdl.MouseMotionEvent{X: 20, Y: 15})
	dx, dy := in.Drag()
	assert.Zero(t, dx)
	assert.Zero(t, dy)

	in.Handle(&sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONDOWN, Button: sdl.BUTTON_LEFT, X: 20, Y: 15})
	in.Handle(&sdl.MouseMotionEvent{X: 25, Y: 5})
	in.Handle(&sdl.MouseMotionEvent{X: 30, Y: 0})
	dx, dy = in.Drag()
	assert.Equal(t, float32(10), dx)
	assert.Equal(t, float32(-15), dy)

	in.BeginFrame()
	in.Handle(&sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONUP, Button: sdl.BUTTON_LEFT, X: 30, Y: 0})
	in.Handle(&sdl.MouseMotionEvent{X: 50, Y: 50})
	dx, _ = in.Drag()
	assert.Zero(t, dx)
}

func TestWheelAndResize(t *testing.T) {
	in := New()
	in.BeginFrame()
	in.Handle(&sdl.MouseWheelEvent{Y: 1})
	in.Handle(&sdl.MouseWheelEvent{Y: 2})
	in.Handle(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESIZED, Data1: 640, Data2: 480})

	assert.Equal(t, float32(3), in.Wheel())
	assert.Equal(t, []Event{{Type: EventWindowResize, Width: 640, Height: 480}}, in.Events())
}

func TestQuit(t *testing.T) {
	in := New()
	assert.True(t, in.Handle(&sdl.QuitEvent{}))
	assert.Equal(t, EventQuit, in.Events()[0].Type)
}
