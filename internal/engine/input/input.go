// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Event types for game use
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseWheel
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
	// DX and DY are relative mouse motion, DY growing downwards.
	DX, DY int
	// Scroll is the vertical wheel delta, positive away from the user.
	Scroll float32
}

// Input tracks per-frame events and which keys are held.
type Input struct {
	events []Event
	held   map[sdl.Scancode]bool
	quit   bool
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
		held:   make(map[sdl.Scancode]bool),
	}
}

// Update polls SDL events and converts them to game events.
// Returns true if the game should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		i.Handle(event)
	}

	return i.quit
}

// Handle records one SDL event. Update calls it for every polled event.
func (i *Input) Handle(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		i.events = append(i.events, Event{Type: EventQuit})
		i.quit = true

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
			i.held[code] = true
			if e.Repeat == 0 {
				i.events = append(i.events, Event{Type: EventKeyDown, Key: code})
			}
		case sdl.KEYUP:
			delete(i.held, code)
			i.events = append(i.events, Event{Type: EventKeyUp, Key: code})
		}

	case *sdl.MouseMotionEvent:
		i.events = append(i.events, Event{
			Type: EventMouseMove,
			DX:   int(e.XRel),
			DY:   int(e.YRel),
		})

	case *sdl.MouseWheelEvent:
		scroll := float32(e.Y)
		if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
			scroll = -scroll
		}
		i.events = append(i.events, Event{Type: EventMouseWheel, Scroll: scroll})
	}
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

// IsKeyHeld reports whether a key is currently down.
func (i *Input) IsKeyHeld(scancode sdl.Scancode) bool {
	return i.held[scancode]
}

// MouseDelta sums relative mouse motion for the frame.
func (i *Input) MouseDelta() (dx, dy int) {
	for _, e := range i.events {
		if e.Type == EventMouseMove {
			dx += e.DX
			dy += e.DY
		}
	}
	return dx, dy
}

// Scroll sums wheel motion for the frame.
func (i *Input) Scroll() float32 {
	var s float32
	for _, e := range i.events {
		if e.Type == EventMouseWheel {
			s += e.Scroll
		}
	}
	return s
}

// RequestQuit makes subsequent Update calls report quit.
func (i *Input) RequestQuit() {
	i.quit = true
}
