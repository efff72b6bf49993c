package jeebie

import (
	"github.com/student/gameboy/jeebie/input/action"
	"github.com/student/gameboy/jeebie/timing"
	"github.com/student/gameboy/jeebie/video"
)

// Emulator is what a host frontend drives: run a frame, read the frame
// buffer, feed input. Backends hold this interface rather than the concrete
// Machine so tests can substitute lightweight fakes.
type Emulator interface {
	RunUntilFrame() error
	GetCurrentFrame() *video.FrameBuffer
	HandleAction(act action.Action, pressed bool)
	SetFrameLimiter(limiter timing.Limiter)
	ResetFrameTiming()
}

var _ Emulator = (*Machine)(nil)
