package jeebie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/student/gameboy/jeebie/addr"
	"github.com/student/gameboy/jeebie/input/action"
	"github.com/student/gameboy/jeebie/video"
)

// testROM builds a minimal cartridge image: a valid-enough header and an
// infinite JR -2 loop at the entry point.
func testROM(cartType byte) []byte {
	rom := make([]byte, 0x8000)
	copy(rom[0x0134:], "TESTCART")
	rom[0x0147] = cartType
	rom[0x0100] = 0x18 // JR -2
	rom[0x0101] = 0xFE

	var sum uint8
	for i := 0x0134; i < 0x014D; i++ {
		sum = sum - rom[i] - 1
	}
	rom[0x014D] = sum
	return rom
}

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	m, err := NewMachine(Config{ROM: testROM(0x00), Headless: true})
	require.NoError(t, err)
	return m
}

func TestMachinePostBootState(t *testing.T) {
	m := newTestMachine(t)

	assert.Equal(t, uint16(0x0100), m.CPU().GetPC())
	assert.Equal(t, uint16(0xFFFE), m.CPU().GetSP())
	assert.Equal(t, uint16(0x01B0), m.CPU().GetAF())
	assert.Equal(t, uint8(0x91), m.MMU().Read(addr.LCDC))
	assert.Equal(t, uint8(0xFC), m.MMU().Read(addr.BGP))
	assert.Equal(t, uint8(0x80), m.MMU().Read(addr.NR52)&0x80, "APU powered on post boot")
}

func TestMachineRunsFrames(t *testing.T) {
	m := newTestMachine(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.RunUntilFrame())
	}

	assert.Equal(t, uint64(3), m.FrameCount())
	assert.NotNil(t, m.GetCurrentFrame())
	assert.Len(t, m.GetCurrentFrame().ToSlice(), video.FramebufferSize)
}

func TestMachineFramePacingAdvancesLY(t *testing.T) {
	m := newTestMachine(t)

	require.NoError(t, m.RunUntilFrame())

	// a frame boundary lands at the start of VBlank
	assert.Equal(t, uint8(144), m.MMU().Read(addr.LY))
}

func TestMachineJoypadActions(t *testing.T) {
	m := newTestMachine(t)

	// select the d-pad group, then press Right
	m.MMU().Write(addr.P1, 0x20)
	m.HandleAction(action.GBDPadRight, true)

	p1 := m.MMU().Read(addr.P1)
	assert.Equal(t, uint8(0), p1&0x01, "Right reads low while pressed")
	assert.Equal(t, uint8(0x10), m.MMU().Read(addr.IF)&0x10, "Joypad interrupt requested")

	m.HandleAction(action.GBDPadRight, false)
	assert.Equal(t, uint8(0x01), m.MMU().Read(addr.P1)&0x01)
}

func TestMachinePauseSkipsExecution(t *testing.T) {
	m := newTestMachine(t)

	m.HandleAction(action.EmulatorPauseToggle, true)
	require.NoError(t, m.RunUntilFrame())
	assert.Equal(t, uint64(0), m.FrameCount(), "paused machine must not run frames")

	m.HandleAction(action.EmulatorPauseToggle, true)
	require.NoError(t, m.RunUntilFrame())
	assert.Equal(t, uint64(1), m.FrameCount())
}

func TestMachineModeForcing(t *testing.T) {
	rom := testROM(0x00)
	rom[0x0143] = 0x80 // header requests CGB

	auto, err := NewMachine(Config{ROM: rom, Headless: true})
	require.NoError(t, err)
	assert.True(t, auto.MMU().IsCGB())

	forced, err := NewMachine(Config{Mode: ModeDMG, ROM: rom, Headless: true})
	require.NoError(t, err)
	assert.False(t, forced.MMU().IsCGB())
}

func TestMachineBootROMStartsAtZero(t *testing.T) {
	bootROM := make([]byte, 256)
	bootROM[0] = 0x18 // JR -2
	bootROM[1] = 0xFE

	m, err := NewMachine(Config{ROM: testROM(0x00), BootROM: bootROM, Headless: true})
	require.NoError(t, err)

	assert.Equal(t, uint16(0x0000), m.CPU().GetPC())
	assert.Equal(t, uint8(0x18), m.MMU().Read(0x0000), "boot ROM overlays the cartridge")

	// disabling the overlay exposes the cartridge again
	m.MMU().Write(addr.BootDisable, 0x01)
	assert.Equal(t, uint8(0x00), m.MMU().Read(0x0000))
}

func TestParseMode(t *testing.T) {
	for input, want := range map[string]Mode{"": ModeAuto, "auto": ModeAuto, "dmg": ModeDMG, "cgb": ModeCGB} {
		mode, err := ParseMode(input)
		assert.NoError(t, err)
		assert.Equal(t, want, mode)
	}

	_, err := ParseMode("gba")
	assert.Error(t, err)
}
