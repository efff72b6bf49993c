package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/student/gameboy/jeebie/addr"
	"github.com/student/gameboy/jeebie/memory"
)

// prepare puts the CPU at 0xC000 with the given opcode bytes written there.
func prepare(program ...uint8) (*CPU, *memory.MMU) {
	mmu := memory.New()
	cpu := New(mmu, false)
	cpu.pc = 0xC000
	for i, b := range program {
		mmu.Write(0xC000+uint16(i), b)
	}
	return cpu, mmu
}

func TestInterruptNotServicedWithIMEOff(t *testing.T) {
	cpu, mmu := prepare(0x00) // NOP

	mmu.Write(addr.IF, 0x01)
	mmu.Write(addr.IE, 0x01)

	cpu.Step()

	assert.Equal(t, uint16(0xC001), cpu.pc, "no vector jump with IME off")
	assert.Equal(t, uint8(0x01), mmu.Read(addr.IF)&0x1F, "IF bit stays pending")
}

func TestInterruptServiceSequence(t *testing.T) {
	cpu, mmu := prepare(0x00) // NOP
	cpu.sp = 0xFFFE
	cpu.ime = true

	mmu.Write(addr.IF, 0x01) // VBlank pending
	mmu.Write(addr.IE, 0x01)

	cpu.Step()

	assert.Equal(t, uint16(0x0040), cpu.pc, "jumped to the VBlank vector")
	assert.False(t, cpu.ime, "IME cleared during service")
	assert.Equal(t, uint8(0x00), mmu.Read(addr.IF)&0x1F, "IF bit acknowledged")
	assert.Equal(t, uint16(0xFFFC), cpu.sp)
	// the pushed return address is the instruction after the NOP
	assert.Equal(t, uint8(0x01), mmu.Read(0xFFFC))
	assert.Equal(t, uint8(0xC0), mmu.Read(0xFFFD))
}

func TestInterruptPriorityOrder(t *testing.T) {
	vectors := []struct {
		bit    uint8
		vector uint16
	}{
		{0, 0x40}, // VBlank
		{1, 0x48}, // STAT
		{2, 0x50}, // Timer
		{3, 0x58}, // Serial
		{4, 0x60}, // Joypad
	}

	for _, v := range vectors {
		cpu, mmu := prepare(0x00)
		cpu.sp = 0xFFFE
		cpu.ime = true

		// request this source plus every lower-priority one
		var mask uint8
		for b := v.bit; b <= 4; b++ {
			mask |= 1 << b
		}
		mmu.Write(addr.IF, mask)
		mmu.Write(addr.IE, 0x1F)

		cpu.Step()

		assert.Equal(t, v.vector, cpu.pc, "bit %d must win over lower-priority sources", v.bit)
		assert.Equal(t, mask&^(1<<v.bit), mmu.Read(addr.IF)&0x1F, "only the serviced bit is acknowledged")
	}
}

func TestEIDelay(t *testing.T) {
	// EI; NOP; NOP -- the interrupt may only be taken after the
	// instruction following EI.
	cpu, mmu := prepare(0xFB, 0x00, 0x00)
	cpu.sp = 0xFFFE

	mmu.Write(addr.IF, 0x01)
	mmu.Write(addr.IE, 0x01)

	cpu.Step() // EI
	assert.False(t, cpu.ime, "IME not set during EI itself")
	assert.True(t, cpu.imeScheduled)
	assert.Equal(t, uint16(0xC001), cpu.pc)

	cpu.Step() // NOP; IME turns on at its start, interrupt fires at its end
	assert.Equal(t, uint16(0x0040), cpu.pc)
	assert.False(t, cpu.ime)
}

func TestDIClearsBothFlags(t *testing.T) {
	cpu, _ := prepare(0xF3) // DI
	cpu.ime = true
	cpu.imeScheduled = true

	cpu.Step()

	assert.False(t, cpu.ime)
	assert.False(t, cpu.imeScheduled)
}

func TestRETISetsIMEImmediately(t *testing.T) {
	cpu, mmu := prepare(0xD9) // RETI
	cpu.sp = 0xFFFC
	mmu.Write(0xFFFC, 0x34)
	mmu.Write(0xFFFD, 0x12)

	cpu.Step()

	assert.Equal(t, uint16(0x1234), cpu.pc)
	assert.True(t, cpu.ime, "RETI enables interrupts without the EI delay")
}

func TestHALTBreaksOnPendingInterruptWithoutIME(t *testing.T) {
	cpu, mmu := prepare(0x76, 0x00) // HALT; NOP
	mmu.Write(addr.IE, 0x04)

	cpu.Step() // HALT
	assert.True(t, cpu.halted)

	// stepping while halted just burns cycles
	cycles := cpu.Step()
	assert.Equal(t, 4, cycles)
	assert.True(t, cpu.halted)

	// a pending enabled interrupt breaks the halt even with IME off,
	// without being serviced
	mmu.Write(addr.IF, 0x04)
	cpu.Step()
	assert.False(t, cpu.halted)
	assert.Equal(t, uint8(0x04), mmu.Read(addr.IF)&0x1F, "interrupt not serviced")

	cpu.Step() // resumes at the NOP after HALT
	assert.Equal(t, uint16(0xC002), cpu.pc)
}

func TestHALTServicesInterruptWithIME(t *testing.T) {
	cpu, mmu := prepare(0x76) // HALT
	cpu.sp = 0xFFFE
	cpu.ime = true
	mmu.Write(addr.IE, 0x01)

	cpu.Step() // HALT
	assert.True(t, cpu.halted)

	mmu.Write(addr.IF, 0x01)
	cpu.Step()

	assert.False(t, cpu.halted)
	assert.Equal(t, uint16(0x0040), cpu.pc, "halt broken and interrupt serviced")
}

func TestHALTBugSkipsPCIncrement(t *testing.T) {
	// HALT with IME off and an interrupt already pending: the next opcode
	// byte is fetched twice.
	cpu, mmu := prepare(0x76, 0x3C) // HALT; INC A
	mmu.Write(addr.IF, 0x01)
	mmu.Write(addr.IE, 0x01)

	cpu.Step() // HALT does not halt; arms the fetch bug
	assert.False(t, cpu.halted)
	assert.True(t, cpu.haltBugSkip)

	cpu.Step() // INC A executes, but PC fails to advance past it
	assert.Equal(t, uint16(0xC001), cpu.pc)

	cpu.Step() // INC A executes again
	assert.Equal(t, uint16(0xC002), cpu.pc)
}
