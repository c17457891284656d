// Package input turns SDL2 events into per-frame viewer input: discrete
// key presses, held keys, mouse drags and wheel motion.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType tags a discrete event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
}

// Input accumulates the events of one frame.
type Input struct {
	events []Event
	held   map[sdl.Scancode]bool

	dragging       bool
	dragX, dragY   float32
	wheel          float32
	lastX, lastY   int32
	haveLastCursor bool
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
		held:   make(map[sdl.Scancode]bool),
	}
}

// Update polls SDL events and converts them to viewer events.
// Returns true if the viewer should quit.
func (i *Input) Update() bool {
	i.BeginFrame()
	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if i.Handle(event) {
			quit = true
		}
	}
	return quit
}

// BeginFrame clears the per-frame state. Held keys survive.
func (i *Input) BeginFrame() {
	i.events = i.events[:0]
	i.dragX, i.dragY, i.wheel = 0, 0, 0
}

// Handle folds one SDL event into the frame state and reports a quit
// request.
func (i *Input) Handle(event sdl.Event) bool {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		i.events = append(i.events, Event{Type: EventQuit})
		return true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			i.events = append(i.events, Event{
				Type:   EventWindowResize,
				Width:  int(e.Data1),
				Height: int(e.Data2),
			})
		}

	case *sdl.KeyboardEvent:
		code := e.Keysym.Scancode
		switch e.Type {
		case sdl.KEYDOWN:
			if e.Repeat == 0 {
				i.events = append(i.events, Event{Type: EventKeyDown, Key: code})
			}
			i.held[code] = true
		case sdl.KEYUP:
			delete(i.held, code)
		}

	case *sdl.MouseButtonEvent:
		if e.Button == sdl.BUTTON_LEFT {
			i.dragging = e.Type == sdl.MOUSEBUTTONDOWN
			i.lastX, i.lastY = e.X, e.Y
			i.haveLastCursor = true
		}

	case *sdl.MouseMotionEvent:
		if i.dragging && i.haveLastCursor {
			i.dragX += float32(e.X - i.lastX)
			i.dragY += float32(e.Y - i.lastY)
		}
		i.lastX, i.lastY = e.X, e.Y
		i.haveLastCursor = true

	case *sdl.MouseWheelEvent:
		i.wheel += float32(e.Y)
	}
	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}

// IsKeyDown reports whether the key is held.
func (i *Input) IsKeyDown(scancode sdl.Scancode) bool {
	return i.held[scancode]
}

// Axis returns +1, -1 or 0 from a pair of held keys.
func (i *Input) Axis(positive, negative sdl.Scancode) float32 {
	var v float32
	if i.held[positive] {
		v++
	}
	if i.held[negative] {
		v--
	}
	return v
}

// Drag returns the cursor motion with the left button down this frame.
func (i *Input) Drag() (dx, dy float32) { return i.dragX, i.dragY }

// Wheel returns the wheel motion of this frame.
func (i *Input) Wheel() float32 { return i.wheel }
