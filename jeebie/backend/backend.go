package backend

import (
	"github.com/student/gameboy/jeebie/audio"
	"github.com/student/gameboy/jeebie/input/action"
	"github.com/student/gameboy/jeebie/input/event"
	"github.com/student/gameboy/jeebie/video"
)

// InputEvent represents an input event from a backend
type InputEvent struct {
	Action action.Action
	Type   event.Type
}

// Backend represents a complete emulator platform (rendering + input + audio).
// Backends are responsible for:
// - Rendering frames to their specific output (terminal, SDL window, files)
// - Capturing platform-specific input events and returning them as InputEvents
// - Playing the audio stream, when the platform has an audio device
type Backend interface {
	// Init configures the backend with the provided configuration.
	// This is a required step before calling Update.
	Init(config BackendConfig) error

	// Update handles rendering the frame and collecting platform events.
	// Backends should:
	// 1. Poll for platform-specific events (keyboard, window events, etc.)
	// 2. Translate events to InputEvents and return them
	// 3. Render the provided frame
	// The returned events are the host's non-blocking input queue: the run
	// loop drains them once per frame and feeds them to the machine.
	Update(frame *video.FrameBuffer) ([]InputEvent, error)

	// Cleanup resources when shutting down
	Cleanup() error
}

// BackendConfig holds configuration for backends
type BackendConfig struct {
	Title string
	Scale int
	VSync bool
	APU   *audio.APU // optional: backends with an audio device attach a sink
}
