package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/student/gameboy/jeebie/addr"
)

func powerOn(apu *APU) {
	apu.WriteRegister(addr.NR52, 0x80)
}

func TestAPUPowerControl(t *testing.T) {
	apu := New()
	powerOn(apu)

	apu.WriteRegister(addr.NR10, 0x12)
	apu.WriteRegister(addr.NR11, 0x34)
	// NR10 bit7 reads as 1; NR11 lower 6 read as 1s
	assert.Equal(t, uint8((0x12&0x7F)|0x80), apu.ReadRegister(addr.NR10))
	assert.Equal(t, uint8((0x34&0xC0)|0x3F), apu.ReadRegister(addr.NR11))

	apu.WriteRegister(addr.NR52, 0x00)

	// When powered off, reads still apply masks to cleared storage
	assert.Equal(t, uint8(0x80), apu.ReadRegister(addr.NR10))
	assert.Equal(t, uint8(0x3F), apu.ReadRegister(addr.NR11))

	assert.Equal(t, uint8(0x70), apu.ReadRegister(addr.NR52))
}

func TestFrameSequencerStepsOnExternalTick(t *testing.T) {
	apu := New()
	powerOn(apu)

	// Ticking master cycles alone never advances the sequencer; the DIV-APU
	// event does.
	apu.Tick(8192 * 4)
	assert.Equal(t, 0, apu.step)

	for i := 1; i <= 8; i++ {
		apu.TickFrameSequencer()
		assert.Equal(t, i%8, apu.step)
	}
}

func TestBasicSampleGeneration(t *testing.T) {
	apu := New()
	powerOn(apu)

	apu.WriteRegister(addr.NR12, 0xF0)
	apu.WriteRegister(addr.NR11, 0x80)
	apu.WriteRegister(addr.NR13, 0x00)
	apu.WriteRegister(addr.NR14, 0x87)
	apu.WriteRegister(addr.NR51, 0x11)
	apu.WriteRegister(addr.NR50, 0x77)

	for i := 0; i < 100; i++ {
		apu.Tick(95)
	}

	samples := apu.GetSamples(100)

	hasNonZero := false
	for _, sample := range samples {
		if sample != 0 {
			hasNonZero = true
			break
		}
	}
	assert.True(t, hasNonZero, "Should generate non-zero samples when channel is active")
}

func TestSinkReceivesFixedBlocks(t *testing.T) {
	apu := New()
	powerOn(apu)

	var blocks [][]float32
	apu.SetSink(sinkFunc(func(block []float32) {
		copied := make([]float32, len(block))
		copy(copied, block)
		blocks = append(blocks, copied)
	}))

	apu.WriteRegister(addr.NR12, 0xF0)
	apu.WriteRegister(addr.NR14, 0x87)
	apu.WriteRegister(addr.NR51, 0x11)
	apu.WriteRegister(addr.NR50, 0x77)

	// One block needs 512 stereo pairs at ~87.4 cycles each.
	for i := 0; i < 1200; i++ {
		apu.Tick(87)
	}

	require.NotEmpty(t, blocks)
	for _, block := range blocks {
		assert.Len(t, block, BlockSamples)
		for _, s := range block {
			assert.LessOrEqual(t, s, float32(1))
			assert.GreaterOrEqual(t, s, float32(-1))
		}
	}
}

type sinkFunc func([]float32)

func (f sinkFunc) Play(block []float32) { f(block) }

func TestRegisterMasking(t *testing.T) {
	apu := New()
	powerOn(apu)

	apu.WriteRegister(addr.NR10, 0xFF)
	assert.Equal(t, uint8(0xFF), apu.ReadRegister(addr.NR10))

	apu.WriteRegister(addr.NR52, 0xFF)
	status := apu.ReadRegister(addr.NR52)
	assert.Equal(t, uint8(0x70), status&0x70, "Unused bits should always read as 1")
}

func TestWaveRAMAccess(t *testing.T) {
	apu := New()
	powerOn(apu)

	testPattern := []uint8{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}

	for i, val := range testPattern {
		apu.WriteRegister(addr.WaveRAMStart+uint16(i), val)
	}

	for i, val := range testPattern {
		read := apu.ReadRegister(addr.WaveRAMStart + uint16(i))
		assert.Equal(t, val, read, "Wave RAM should store and return values correctly")
	}
}

func TestAPU_WritesIgnoredWhenPoweredOff(t *testing.T) {
	apu := New()
	apu.WriteRegister(addr.NR52, 0x00)

	apu.WriteRegister(addr.NR12, 0xFF)
	assert.Equal(t, uint8(0x00), apu.ReadRegister(addr.NR12), "Writes should be ignored when APU is powered off")
}

func TestLengthRegistersWritableWhileOff(t *testing.T) {
	apu := New()
	apu.WriteRegister(addr.NR52, 0x00)

	// The length-initial registers still load the counters while off.
	apu.WriteRegister(addr.NR11, 0x3F) // length 63 -> counter 1
	assert.Equal(t, uint16(1), apu.ch[0].length)

	apu.WriteRegister(addr.NR31, 0xFE)
	assert.Equal(t, uint16(2), apu.ch[2].length)
}

func TestPowerOffPreservesWaveRAMAndLengths(t *testing.T) {
	apu := New()
	powerOn(apu)

	pattern := []uint8{0x12, 0x23, 0x34, 0x45, 0x56, 0x67, 0x78, 0x89}
	for i, v := range pattern {
		apu.WriteRegister(addr.WaveRAMStart+uint16(i), v)
	}
	apu.WriteRegister(addr.NR11, 0x10) // counter = 48
	apu.WriteRegister(addr.NR31, 0x40) // counter = 192

	apu.WriteRegister(addr.NR52, 0x00)

	for i, v := range pattern {
		got := apu.ReadRegister(addr.WaveRAMStart + uint16(i))
		assert.Equal(t, v, got, "Wave RAM must be unaffected by power off")
	}
	assert.Equal(t, uint16(48), apu.ch[0].length, "length counters survive power off")
	assert.Equal(t, uint16(192), apu.ch[2].length)
}

func TestNR52_ChannelBitsSetOnlyOnTrigger(t *testing.T) {
	apu := New()
	powerOn(apu)

	// CH1: enable DAC via NR12, but do NOT trigger
	apu.WriteRegister(addr.NR12, 0xF0)
	status := apu.ReadRegister(addr.NR52)
	assert.Equal(t, uint8(0), status&0x01, "CH1 status must remain off until trigger")

	// CH3: enable DAC via NR30, but do NOT trigger
	apu.WriteRegister(addr.NR30, 0x80)
	status = apu.ReadRegister(addr.NR52)
	assert.Equal(t, uint8(0), status&0x04, "CH3 status must remain off until trigger")

	apu.WriteRegister(addr.NR14, 0x80)
	status = apu.ReadRegister(addr.NR52)
	assert.Equal(t, uint8(1), status&0x01, "CH1 status set after trigger")
}

func TestChannel1_SweepUpdatesFrequency(t *testing.T) {
	apu := New()
	powerOn(apu)

	// Sweep: period=1, increase, shift=1
	apu.WriteRegister(addr.NR10, 0b00010001)
	apu.WriteRegister(addr.NR12, 0xF0)

	apu.WriteRegister(addr.NR13, 0x40)
	apu.WriteRegister(addr.NR14, 0x80)
	before := apu.ch[0].period

	// Steps 0,1,2: the sweep clocks on step 2.
	apu.TickFrameSequencer()
	apu.TickFrameSequencer()
	apu.TickFrameSequencer()

	after := apu.ch[0].period
	assert.NotEqual(t, before, after, "Sweep should update CH1 frequency at 128 Hz steps")
	assert.Equal(t, before+(before>>1), after)
}

func TestChannel1_SweepOverflowDisables(t *testing.T) {
	apu := New()
	powerOn(apu)

	apu.WriteRegister(addr.NR12, 0xF0)
	apu.WriteRegister(addr.NR10, 0b00010001) // period=1, add, shift=1
	// Frequency high enough that freq + freq>>1 > 2047 on the first sweep.
	apu.WriteRegister(addr.NR13, 0xFF)
	apu.WriteRegister(addr.NR14, 0x85) // trigger, freq = 0x5FF

	for i := 0; i < 3; i++ {
		apu.TickFrameSequencer()
	}

	assert.False(t, apu.ch[0].enabled, "sweep overflow must disable channel 1")
}

func TestChannel1_SweepNegateThenAddDisables(t *testing.T) {
	apu := New()
	powerOn(apu)

	apu.WriteRegister(addr.NR12, 0xF0)
	apu.WriteRegister(addr.NR10, 0b00011001) // period=1, subtract, shift=1
	apu.WriteRegister(addr.NR13, 0x00)
	apu.WriteRegister(addr.NR14, 0x84) // trigger, freq = 0x400

	// Let one subtract-mode sweep calculation happen.
	for i := 0; i < 3; i++ {
		apu.TickFrameSequencer()
	}
	require.True(t, apu.ch[0].enabled)

	// Flipping to additive after a subtract calculation kills the channel.
	apu.WriteRegister(addr.NR10, 0b00010001)
	assert.False(t, apu.ch[0].enabled)
}

func TestLengthCounterDisablesChannel(t *testing.T) {
	apu := New()
	powerOn(apu)

	apu.WriteRegister(addr.NR12, 0xF0)
	apu.WriteRegister(addr.NR11, 0x3E) // length = 62 -> counter 2
	apu.WriteRegister(addr.NR14, 0xC0) // trigger with length enable

	require.True(t, apu.ch[0].enabled)

	// Length clocks on even steps: two full periods reach zero.
	for i := 0; i < 4; i++ {
		apu.TickFrameSequencer()
	}

	assert.False(t, apu.ch[0].enabled, "length expiry must disable the channel")
	assert.Equal(t, uint8(0), apu.ReadRegister(addr.NR52)&0x01)
}

func TestLengthEnableDuringFirstHalfClocksOnce(t *testing.T) {
	apu := New()
	powerOn(apu)

	apu.WriteRegister(addr.NR12, 0xF0)
	apu.WriteRegister(addr.NR11, 0x3E) // counter = 2
	apu.WriteRegister(addr.NR14, 0x80) // trigger, length disabled

	// Advance to step 1 (between two length clocks).
	apu.TickFrameSequencer()
	require.Equal(t, 1, apu.step)

	// Enabling length now clocks the counter immediately.
	apu.WriteRegister(addr.NR14, 0x40)
	assert.Equal(t, uint16(1), apu.ch[0].length)
}

func TestNoiseLFSRShortMode(t *testing.T) {
	apu := New()
	powerOn(apu)

	apu.WriteRegister(addr.NR42, 0xF0)
	apu.WriteRegister(addr.NR43, 0x08) // short mode, divider 0, shift 0
	apu.WriteRegister(addr.NR44, 0x80)

	ch := &apu.ch[3]
	require.Equal(t, uint16(0x7FFF), ch.lfsr)

	// One LFSR clock: feedback = bit0 XOR bit1 = 0, so bit14 and bit6 clear.
	apu.Tick(8)
	assert.Equal(t, uint16(0x3FBF), ch.lfsr)
}

func TestMasterVolumeNeverMutes(t *testing.T) {
	apu := New()
	powerOn(apu)

	apu.WriteRegister(addr.NR12, 0xF0)
	apu.WriteRegister(addr.NR14, 0x87)
	apu.WriteRegister(addr.NR51, 0x11)
	apu.WriteRegister(addr.NR50, 0x00) // volume 0 on both sides

	for i := 0; i < 200; i++ {
		apu.Tick(95)
	}
	samples := apu.GetSamples(100)

	hasNonZero := false
	for _, s := range samples {
		if s != 0 {
			hasNonZero = true
			break
		}
	}
	assert.True(t, hasNonZero, "NR50 volume 0 quietens but never mutes")
}

func TestPanningAndMasterVolume_AffectStereoOutput(t *testing.T) {
	apu := New()
	powerOn(apu)

	// Enable CH1 with constant volume and trigger
	apu.WriteRegister(addr.NR12, 0xF0)
	apu.WriteRegister(addr.NR11, 0x80)
	apu.WriteRegister(addr.NR13, 0x00)
	apu.WriteRegister(addr.NR14, 0x80)

	// Route CH1 to left only; set non-zero master volumes
	apu.WriteRegister(addr.NR51, 0b00010000)
	apu.WriteRegister(addr.NR50, 0b01110111)

	for i := 0; i < 200; i++ {
		apu.Tick(95)
	}
	samples := apu.GetSamples(100)

	leftNonZero := false
	rightAllZero := true
	for i := 0; i+1 < len(samples); i += 2 {
		if samples[i] != 0 {
			leftNonZero = true
		}
		if samples[i+1] != 0 {
			rightAllZero = false
			break
		}
	}
	assert.True(t, leftNonZero && rightAllZero, "NR51/NR50 should route sound to left only with right silent")
}

func TestWaveRAM_WriteRedirectWhenActive(t *testing.T) {
	apu := New()
	powerOn(apu)

	// Set CH3 DAC on and trigger to mark active
	apu.WriteRegister(addr.NR30, 0x80)
	apu.WriteRegister(addr.NR32, 0b00100000)
	apu.WriteRegister(addr.NR33, 0x20)
	apu.WriteRegister(addr.NR34, 0x80)

	// While playing, the CPU only reaches the currently-sampled byte.
	apu.ch[2].waveIndex = 10
	targetAddr := addr.WaveRAMStart + 4
	apu.WriteRegister(targetAddr, 0xA0)

	assert.Equal(t, uint8(0xA0), apu.waveRAM[5], "write lands on the in-flight byte, not the addressed one")
}

func TestWriteOnlyRegisters_ReadAsFF(t *testing.T) {
	apu := New()
	powerOn(apu)

	apu.WriteRegister(addr.NR13, 0x12)
	apu.WriteRegister(addr.NR23, 0x34)
	apu.WriteRegister(addr.NR33, 0x56)

	assert.Equal(t, uint8(0xFF), apu.ReadRegister(addr.NR13))
	assert.Equal(t, uint8(0xFF), apu.ReadRegister(addr.NR23))
	assert.Equal(t, uint8(0xFF), apu.ReadRegister(addr.NR33))
}

func TestLengthReloadOnNR11Write(t *testing.T) {
	apu := New()
	powerOn(apu)

	apu.WriteRegister(addr.NR12, 0xF0)
	apu.WriteRegister(addr.NR14, 0x80)

	apu.WriteRegister(addr.NR11, 0x80|0x01) // duty=2, length=1 -> counter=63
	assert.Equal(t, uint16(63), apu.ch[0].length)

	apu.WriteRegister(addr.NR11, 0x80|0x00) // length=0 -> 64
	assert.Equal(t, uint16(64), apu.ch[0].length)
}

func TestDACDisableTurnsChannelOffImmediately(t *testing.T) {
	apu := New()
	powerOn(apu)

	// CH1: enable and trigger
	apu.WriteRegister(addr.NR12, 0xF0)
	apu.WriteRegister(addr.NR14, 0x80)
	assert.True(t, apu.ch[0].enabled)
	// Disable DAC -> channel should turn off
	apu.WriteRegister(addr.NR12, 0x00)
	assert.False(t, apu.ch[0].enabled)

	// CH3: enable DAC and trigger
	apu.WriteRegister(addr.NR30, 0x80)
	apu.WriteRegister(addr.NR34, 0x80)
	assert.True(t, apu.ch[2].enabled)
	// Disable DAC -> channel off
	apu.WriteRegister(addr.NR30, 0x00)
	assert.False(t, apu.ch[2].enabled)
}
