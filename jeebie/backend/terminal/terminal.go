// Package terminal implements a Backend on top of tcell: the frame is drawn
// with half-block glyphs (two pixels per character cell) and keyboard input
// is translated into emulator actions. Terminals never report key releases,
// so held buttons are emulated with a short expiry timeout.
package terminal

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/student/gameboy/jeebie/backend"
	"github.com/student/gameboy/jeebie/input"
	"github.com/student/gameboy/jeebie/input/action"
	"github.com/student/gameboy/jeebie/input/event"
	"github.com/student/gameboy/jeebie/video"
)

// keyTimeout is how long a key counts as held after its last repeat event.
// Slightly longer than typical terminal key-repeat intervals.
const keyTimeout = 100 * time.Millisecond

// Backend renders to a terminal via tcell.
type Backend struct {
	config backend.BackendConfig
	screen tcell.Screen

	// pressed tracks when each game input was last seen, to synthesize
	// press/release pairs from key-repeat events.
	pressed map[action.Action]time.Time
	active  map[action.Action]bool

	// one-shot emulator actions queued by the key handler
	queued []backend.InputEvent

	interrupted chan os.Signal
}

// New creates a new terminal backend
func New() *Backend {
	return &Backend{
		pressed: make(map[action.Action]time.Time),
		active:  make(map[action.Action]bool),
	}
}

// Init initializes the terminal backend
func (t *Backend) Init(config backend.BackendConfig) error {
	t.config = config

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to initialize terminal: %v", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %v", err)
	}

	t.screen = screen
	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	t.interrupted = make(chan os.Signal, 1)
	signal.Notify(t.interrupted, syscall.SIGINT, syscall.SIGTERM)

	return nil
}

// Update renders a frame and processes events
func (t *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	now := time.Now()

	select {
	case <-t.interrupted:
		return []backend.InputEvent{{Action: action.EmulatorQuit, Type: event.Press}}, nil
	default:
	}

	for t.screen.HasPendingEvent() {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			t.handleKey(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}

	events := t.queued
	t.queued = nil

	// synthesize presses and releases for held game inputs
	for act, lastSeen := range t.pressed {
		held := now.Sub(lastSeen) < keyTimeout
		switch {
		case held && !t.active[act]:
			t.active[act] = true
			events = append(events, backend.InputEvent{Action: act, Type: event.Press})
		case !held && t.active[act]:
			t.active[act] = false
			delete(t.pressed, act)
			events = append(events, backend.InputEvent{Action: act, Type: event.Release})
		}
	}

	t.render(frame)

	return events, nil
}

func (t *Backend) Cleanup() error {
	if t.screen != nil {
		t.screen.Fini()
	}
	signal.Stop(t.interrupted)
	return nil
}

var tcellKeyNames = map[tcell.Key]string{
	tcell.KeyEnter:  "Enter",
	tcell.KeyUp:     "Up",
	tcell.KeyDown:   "Down",
	tcell.KeyLeft:   "Left",
	tcell.KeyRight:  "Right",
	tcell.KeyEscape: "Escape",
	tcell.KeyF9:     "F9",
	// terminals don't report shift on its own; backspace stands in for Select
	tcell.KeyBS: "Shift",
}

func (t *Backend) handleKey(ev *tcell.EventKey, now time.Time) {
	if ev.Key() == tcell.KeyCtrlC {
		t.queued = append(t.queued, backend.InputEvent{Action: action.EmulatorQuit, Type: event.Press})
		return
	}

	var name string
	if ev.Key() == tcell.KeyRune {
		name = string(ev.Rune())
	} else {
		name = tcellKeyNames[ev.Key()]
	}

	act, ok := input.GetDefaultMapping(name)
	if !ok {
		return
	}

	if act.IsGameInput() {
		t.pressed[act] = now
		return
	}

	t.queued = append(t.queued, backend.InputEvent{Action: act, Type: event.Press})
}

// render draws the frame using the upper-half-block glyph, packing two
// vertically adjacent pixels into each character cell.
func (t *Backend) render(frame *video.FrameBuffer) {
	termWidth, termHeight := t.screen.Size()
	if termWidth < video.FramebufferWidth || termHeight < video.FramebufferHeight/2 {
		msg := fmt.Sprintf("terminal too small: need %dx%d",
			video.FramebufferWidth, video.FramebufferHeight/2)
		style := tcell.StyleDefault.Foreground(tcell.ColorRed)
		for i, ch := range msg {
			t.screen.SetContent(i, termHeight/2, ch, nil, style)
		}
		t.screen.Show()
		return
	}

	for y := 0; y < video.FramebufferHeight; y += 2 {
		for x := 0; x < video.FramebufferWidth; x++ {
			top := pixelColor(frame, x, y)
			bottom := pixelColor(frame, x, y+1)
			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			t.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}

	t.screen.Show()
}

func pixelColor(frame *video.FrameBuffer, x, y int) tcell.Color {
	pixel := frame.GetPixel(uint(x), uint(y))
	return tcell.NewRGBColor(
		int32(pixel>>24&0xFF),
		int32(pixel>>16&0xFF),
		int32(pixel>>8&0xFF),
	)
}
