package jeebie

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/student/gameboy/jeebie/audio"
	"github.com/student/gameboy/jeebie/cpu"
	"github.com/student/gameboy/jeebie/input/action"
	"github.com/student/gameboy/jeebie/memory"
	"github.com/student/gameboy/jeebie/save"
	"github.com/student/gameboy/jeebie/timing"
	"github.com/student/gameboy/jeebie/video"
)

// Mode selects which hardware revision the machine boots as.
type Mode int

const (
	// ModeAuto picks CGB when the cartridge header declares color support,
	// DMG otherwise.
	ModeAuto Mode = iota
	ModeDMG
	ModeCGB
)

func (m Mode) String() string {
	switch m {
	case ModeDMG:
		return "dmg"
	case ModeCGB:
		return "cgb"
	default:
		return "auto"
	}
}

// ParseMode maps a CLI-style mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "dmg":
		return ModeDMG, nil
	case "cgb":
		return ModeCGB, nil
	default:
		return ModeAuto, fmt.Errorf("unknown mode %q (want auto, dmg or cgb)", s)
	}
}

// Config carries everything needed to power on a machine.
type Config struct {
	Mode     Mode
	ROM      []byte
	BootROM  []byte // optional; 256 bytes (DMG) or 2304 bytes (CGB)
	Headless bool   // skip frame pacing
	SaveDir  string // battery saves land here; empty disables persistence
}

// Machine is a complete Game Boy: CPU, bus, memory, PPU and APU wired
// together. The CPU drives the schedule; one call to RunUntilFrame executes
// instructions until the PPU finishes a frame.
type Machine struct {
	cpu *cpu.CPU
	gpu *video.GPU
	mem *memory.MMU
	bus *bus

	limiter timing.Limiter
	paused  bool

	frameCount uint64
}

// NewMachine powers on a machine from a Config. With a boot ROM the CPU
// starts at 0x0000 with zeroed registers; without one, registers and the I/O
// space are seeded with their documented post-boot values.
func NewMachine(cfg Config) (*Machine, error) {
	cart := memory.NewCartridgeWithData(cfg.ROM)

	cgb := cart.CGB()
	switch cfg.Mode {
	case ModeDMG:
		cgb = false
	case ModeCGB:
		cgb = true
	}

	mem, err := memory.NewWithCartridgeMode(cart, cgb)
	if err != nil {
		return nil, err
	}

	if cfg.SaveDir != "" {
		mem.SetSaveStore(save.NewFileStore(cfg.SaveDir))
	}

	m := &Machine{
		mem:     mem,
		gpu:     video.NewGpu(mem),
		limiter: timing.NewNoOpLimiter(),
	}
	m.bus = newBus(mem, m.gpu)
	m.cpu = cpu.New(m.bus, cgb)

	if len(cfg.BootROM) > 0 {
		mem.SetBootROM(cfg.BootROM)
		m.cpu.ResetToBootROM()
	} else {
		m.cpu.Reset()
		mem.ResetPostBoot()
	}

	if !cfg.Headless {
		m.limiter = timing.NewAdaptiveLimiter()
	}

	slog.Debug("Machine powered on",
		"title", cart.Title(), "cgb", cgb, "bootROM", len(cfg.BootROM) > 0)

	return m, nil
}

// NewWithFile powers on a machine from a ROM file in auto mode with no boot
// ROM, pacing disabled. This is the entry point the ROM-driven tests use.
func NewWithFile(path string) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewMachine(Config{ROM: data, Headless: true})
}

// RunUntilFrame executes instructions until the PPU completes the current
// frame, then (unless headless) sleeps out the remainder of the frame period.
func (m *Machine) RunUntilFrame() error {
	if m.paused {
		m.limiter.WaitForNextFrame()
		return nil
	}

	for {
		m.cpu.Step()
		if m.gpu.ConsumeFrameReady() {
			break
		}
	}
	m.frameCount++

	m.limiter.WaitForNextFrame()
	return nil
}

// GetCurrentFrame returns the PPU's framebuffer. The buffer is owned by the
// machine; callers must copy out of it if they need it past the next frame.
func (m *Machine) GetCurrentFrame() *video.FrameBuffer {
	return m.gpu.GetFrameBuffer()
}

// HandleAction applies a host input event. Game Boy button actions are
// forwarded to the joypad; emulator-level actions are handled here.
func (m *Machine) HandleAction(act action.Action, pressed bool) {
	if key, ok := joypadKeyFor(act); ok {
		if pressed {
			m.mem.HandleKeyPress(key)
		} else {
			m.mem.HandleKeyRelease(key)
		}
		return
	}

	if act == action.EmulatorPauseToggle && pressed {
		m.paused = !m.paused
		m.limiter.Reset()
	}
}

func joypadKeyFor(act action.Action) (memory.JoypadKey, bool) {
	switch act {
	case action.GBButtonA:
		return memory.JoypadA, true
	case action.GBButtonB:
		return memory.JoypadB, true
	case action.GBButtonStart:
		return memory.JoypadStart, true
	case action.GBButtonSelect:
		return memory.JoypadSelect, true
	case action.GBDPadUp:
		return memory.JoypadUp, true
	case action.GBDPadDown:
		return memory.JoypadDown, true
	case action.GBDPadLeft:
		return memory.JoypadLeft, true
	case action.GBDPadRight:
		return memory.JoypadRight, true
	}
	return 0, false
}

// SetFrameLimiter swaps the frame pacing strategy.
func (m *Machine) SetFrameLimiter(limiter timing.Limiter) {
	if limiter == nil {
		limiter = timing.NewNoOpLimiter()
	}
	m.limiter = limiter
}

// ResetFrameTiming resets pacing state, e.g. after the host was suspended.
func (m *Machine) ResetFrameTiming() {
	m.limiter.Reset()
}

// APU exposes the audio unit so a host backend can attach a sample sink.
func (m *Machine) APU() *audio.APU {
	return m.mem.APU
}

// MMU exposes the memory unit; tests use it to poke at machine state.
func (m *Machine) MMU() *memory.MMU {
	return m.mem
}

// CPU exposes the processor; tests use it to inspect machine state.
func (m *Machine) CPU() *cpu.CPU {
	return m.cpu
}

// FrameCount returns the number of completed frames since power-on.
func (m *Machine) FrameCount() uint64 {
	return m.frameCount
}

// Close flushes battery-backed RAM to the save store. The machine is not
// usable afterwards.
func (m *Machine) Close() error {
	if err := m.mem.FlushSave(); err != nil {
		return errors.Join(errors.New("flushing save data"), err)
	}
	return nil
}
