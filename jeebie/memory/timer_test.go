package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/student/gameboy/jeebie/addr"
)

func TestDIVIsCounterHighByte(t *testing.T) {
	var timer Timer

	timer.Tick(256)
	assert.Equal(t, uint8(1), timer.Read(addr.DIV))

	timer.Tick(256 * 9)
	assert.Equal(t, uint8(10), timer.Read(addr.DIV))
}

func TestDIVWriteResetsCounter(t *testing.T) {
	var timer Timer

	timer.Tick(1000)
	require.NotZero(t, timer.Read(addr.DIV))

	// the written value is irrelevant; any write clears the counter
	timer.Write(addr.DIV, 0xAB)
	assert.Equal(t, uint8(0), timer.Read(addr.DIV))
}

func TestTIMAIncrementRates(t *testing.T) {
	// TAC codes select counter bits 9/3/5/7; one increment per falling
	// edge means a full period of twice the bit's weight.
	periods := map[byte]int{
		0x00: 1024,
		0x01: 16,
		0x02: 64,
		0x03: 256,
	}

	for tac, period := range periods {
		var timer Timer
		timer.Write(addr.TAC, 0x04|tac)

		timer.Tick(period * 5)
		assert.Equal(t, uint8(5), timer.Read(addr.TIMA), "TAC %02X should tick every %d cycles", tac, period)
	}
}

func TestTIMADisabled(t *testing.T) {
	var timer Timer
	timer.Write(addr.TAC, 0x00)

	timer.Tick(65536)
	assert.Equal(t, uint8(0), timer.Read(addr.TIMA))
}

func TestTIMAOverflowReloadDelay(t *testing.T) {
	var fired int
	var timer Timer
	timer.TimerInterruptHandler = func() { fired++ }

	timer.Write(addr.TAC, 0x05) // enable, 16-cycle period
	timer.Write(addr.TMA, 0xAB)
	timer.Write(addr.TIMA, 0xFF)

	// run right up to the overflow edge
	timer.Tick(16)
	assert.Equal(t, uint8(0x00), timer.Read(addr.TIMA), "TIMA reads zero during the reload delay")
	assert.Zero(t, fired)

	// one machine cycle after the wrap: TMA reload and interrupt together
	timer.Tick(4)
	assert.Equal(t, uint8(0xAB), timer.Read(addr.TIMA))
	assert.Equal(t, 1, fired, "interrupt fires on the same machine cycle as the reload")
}

func TestTIMAWriteDuringDelayIsIgnored(t *testing.T) {
	var timer Timer
	timer.Write(addr.TAC, 0x05)
	timer.Write(addr.TMA, 0xAB)
	timer.Write(addr.TIMA, 0xFF)

	timer.Tick(16)
	timer.Write(addr.TIMA, 0x42) // ignored mid-delay
	timer.Tick(4)
	assert.Equal(t, uint8(0xAB), timer.Read(addr.TIMA))
}

func TestDivAPUEvent(t *testing.T) {
	var beats int
	var timer Timer
	timer.DivAPUHandler = func() { beats++ }

	// DIV bit 4 is counter bit 12: one falling edge per 8192 cycles
	timer.Tick(8192 * 4)
	assert.Equal(t, 4, beats)
}

func TestDivAPUEventDoubleSpeed(t *testing.T) {
	var beats int
	var timer Timer
	timer.DivAPUHandler = func() { beats++ }
	timer.SetDoubleSpeed(true)

	// bit 13: half the edge rate per cycle, so the same wall-clock rate
	// when the CPU ticks twice as fast
	timer.Tick(8192 * 4)
	assert.Equal(t, 2, beats)
}

func TestTACUpperBitsReadAsOne(t *testing.T) {
	var timer Timer
	timer.Write(addr.TAC, 0x05)
	assert.Equal(t, uint8(0xFD), timer.Read(addr.TAC))
}
