//go:build sdl2

// Package sdl2 implements a windowed Backend with audio output.
// Building it requires the SDL2 development libraries; default builds get
// the stub in stub.go instead (see the sdl2 build tag).
package sdl2

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/student/gameboy/jeebie/audio"
	"github.com/student/gameboy/jeebie/backend"
	"github.com/student/gameboy/jeebie/display"
	"github.com/student/gameboy/jeebie/input/action"
	"github.com/student/gameboy/jeebie/input/event"
	"github.com/student/gameboy/jeebie/video"
	"github.com/veandco/go-sdl2/sdl"
)

// Backend implements the Backend interface using SDL2 bindings.
type Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	running  bool
	config   backend.BackendConfig

	audioDevice sdl.AudioDeviceID

	pixelBuffer []byte
	eventBuffer []backend.InputEvent
}

// New creates a new SDL2 backend
func New() *Backend {
	return &Backend{}
}

// Init initializes the SDL2 backend
func (s *Backend) Init(config backend.BackendConfig) error {
	s.config = config

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS | sdl.INIT_AUDIO); err != nil {
		return fmt.Errorf("failed to initialize SDL2: %v", err)
	}

	scale := config.Scale
	if scale <= 0 {
		scale = display.DefaultPixelScale
	}

	window, err := sdl.CreateWindow(
		config.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(video.FramebufferWidth*scale),
		int32(video.FramebufferHeight*scale),
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return fmt.Errorf("failed to create window: %v", err)
	}
	s.window = window

	flags := uint32(sdl.RENDERER_ACCELERATED)
	if config.VSync {
		flags |= sdl.RENDERER_PRESENTVSYNC
	}
	renderer, err := sdl.CreateRenderer(window, -1, flags)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("failed to create renderer: %v", err)
	}
	s.renderer = renderer

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_RGBA8888,
		sdl.TEXTUREACCESS_STREAMING,
		video.FramebufferWidth,
		video.FramebufferHeight,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("failed to create texture: %v", err)
	}
	s.texture = texture

	s.pixelBuffer = make([]byte, video.FramebufferWidth*video.FramebufferHeight*display.RGBABytesPerPixel)
	s.eventBuffer = make([]backend.InputEvent, 0, 10)

	if config.APU != nil {
		if err := s.initAudio(config.APU); err != nil {
			slog.Warn("Failed to initialize audio", "error", err)
		}
	}

	s.running = true
	slog.Info("SDL2 backend initialized")

	return nil
}

// Update renders a frame and processes events
func (s *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	s.eventBuffer = s.eventBuffer[:0]

	for evt := sdl.PollEvent(); evt != nil; evt = sdl.PollEvent() {
		if inputEvents := s.handleEvent(evt); inputEvents != nil {
			s.eventBuffer = append(s.eventBuffer, inputEvents...)
		}
	}

	if !s.running {
		return s.eventBuffer, nil
	}

	s.renderFrame(frame)

	return s.eventBuffer, nil
}

// Cleanup cleans up SDL2 resources
func (s *Backend) Cleanup() error {
	if s.audioDevice != 0 {
		sdl.CloseAudioDevice(s.audioDevice)
	}
	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()

	return nil
}

func (s *Backend) handleEvent(evt sdl.Event) []backend.InputEvent {
	switch e := evt.(type) {
	case *sdl.QuitEvent:
		s.running = false
		return []backend.InputEvent{{Action: action.EmulatorQuit, Type: event.Press}}

	case *sdl.KeyboardEvent:
		act, ok := keyMapping[e.Keysym.Sym]
		if !ok || e.Repeat != 0 {
			return nil
		}
		if e.Type == sdl.KEYDOWN {
			return []backend.InputEvent{{Action: act, Type: event.Press}}
		}
		if e.Type == sdl.KEYUP && act.IsGameInput() {
			return []backend.InputEvent{{Action: act, Type: event.Release}}
		}
	}

	return nil
}

// keyMapping maps SDL2 keys to actions
var keyMapping = map[sdl.Keycode]action.Action{
	sdl.K_z:      action.GBButtonA,
	sdl.K_x:      action.GBButtonB,
	sdl.K_RETURN: action.GBButtonStart,
	sdl.K_RSHIFT: action.GBButtonSelect,
	sdl.K_LSHIFT: action.GBButtonSelect,
	sdl.K_UP:     action.GBDPadUp,
	sdl.K_DOWN:   action.GBDPadDown,
	sdl.K_LEFT:   action.GBDPadLeft,
	sdl.K_RIGHT:  action.GBDPadRight,

	sdl.K_w: action.GBDPadUp,
	sdl.K_s: action.GBDPadDown,
	sdl.K_a: action.GBDPadLeft,
	sdl.K_d: action.GBDPadRight,

	sdl.K_SPACE:  action.EmulatorPauseToggle,
	sdl.K_p:      action.EmulatorPauseToggle,
	sdl.K_F9:     action.EmulatorSnapshot,
	sdl.K_ESCAPE: action.EmulatorQuit,
	sdl.K_q:      action.EmulatorQuit,
}

func (s *Backend) renderFrame(frame *video.FrameBuffer) {
	for i, pixel := range frame.ToSlice() {
		offset := i * display.RGBABytesPerPixel
		s.pixelBuffer[offset] = byte(pixel >> display.RGBARShift)
		s.pixelBuffer[offset+1] = byte(pixel >> display.RGBAGShift)
		s.pixelBuffer[offset+2] = byte(pixel >> display.RGBABShift)
		s.pixelBuffer[offset+3] = display.RGBAColorMask
	}

	s.texture.Update(nil, unsafe.Pointer(&s.pixelBuffer[0]), video.FramebufferWidth*display.RGBABytesPerPixel)
	s.renderer.Clear()
	s.renderer.Copy(s.texture, nil, nil)
	s.renderer.Present()
}

// initAudio opens a float32 output device at the APU's sample rate and
// attaches it as the APU's sink: each completed block is queued as-is.
func (s *Backend) initAudio(apu *audio.APU) error {
	spec := &sdl.AudioSpec{
		Freq:     audio.SampleRate,
		Format:   sdl.AUDIO_F32SYS,
		Channels: 2,
		Samples:  audio.BlockSamples / 2,
	}

	obtained := &sdl.AudioSpec{}
	device, err := sdl.OpenAudioDevice("", false, spec, obtained, 0)
	if err != nil {
		return fmt.Errorf("opening audio device: %w", err)
	}

	s.audioDevice = device
	apu.SetSink(&queueSink{device: device})
	sdl.PauseAudioDevice(device, false)

	return nil
}

// queueSink pushes APU blocks into the SDL audio queue. QueueAudio copies
// the data, so handing it the APU's internal buffer is safe.
type queueSink struct {
	device sdl.AudioDeviceID
}

func (q *queueSink) Play(block []float32) {
	data := unsafe.Slice((*byte)(unsafe.Pointer(&block[0])), len(block)*4)
	if err := sdl.QueueAudio(q.device, data); err != nil {
		slog.Debug("Audio queue error", "error", err)
	}
}
