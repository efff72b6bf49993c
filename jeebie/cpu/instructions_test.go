package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/student/gameboy/jeebie/memory"
)

func TestCPU_stack(t *testing.T) {
	cpu := newTestCPU()

	cpu.sp = 0xFFFF
	cpu.pushStack(0x0102)

	assert.Equal(t, uint16(0xFFFD), cpu.sp)

	popped := cpu.popStack()

	assert.Equal(t, uint16(0x0102), popped)
	assert.Equal(t, uint16(0xFFFF), cpu.sp)
}

func TestCPU_inc(t *testing.T) {
	cpu := newTestCPU()

	testCases := []struct {
		desc  string
		arg   uint8
		want  uint8
		flags Flag
	}{
		{desc: "increases", arg: 0x0A, want: 0x0B},
		{desc: "sets zero flag", arg: 0xFF, want: 0, flags: zeroFlag | halfCarryFlag},
		{desc: "sets half carry flag", arg: 0x0F, want: 0x10, flags: halfCarryFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu.f = 0
			cpu.a = tC.arg
			cpu.inc(&cpu.a)
			assert.Equal(t, tC.want, cpu.a)
			assert.Equal(t, uint8(tC.flags), cpu.f)
		})
	}
}

func TestCPU_incPreservesCarry(t *testing.T) {
	cpu := newTestCPU()

	cpu.f = uint8(carryFlag)
	cpu.a = 0x42
	cpu.inc(&cpu.a)
	assert.True(t, cpu.isSetFlag(carryFlag), "INC must leave C unchanged")

	cpu.dec(&cpu.a)
	assert.True(t, cpu.isSetFlag(carryFlag), "DEC must leave C unchanged")
}

func TestCPU_dec(t *testing.T) {
	cpu := newTestCPU()

	testCases := []struct {
		desc  string
		arg   uint8
		want  uint8
		flags Flag
	}{
		{desc: "decreases", arg: 0x0A, want: 0x09, flags: subFlag},
		{desc: "sets half carry flags", arg: 0, want: 0xFF, flags: subFlag | halfCarryFlag},
		{desc: "sets zero flag", arg: 0x01, want: 0, flags: subFlag | zeroFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu.f = 0
			cpu.a = tC.arg
			cpu.dec(&cpu.a)
			assert.Equal(t, tC.want, cpu.a)
			assert.Equal(t, uint8(tC.flags), cpu.f)
		})
	}
}

func TestCPU_addToA(t *testing.T) {
	testCases := []struct {
		desc  string
		a, b  uint8
		want  uint8
		flags Flag
	}{
		{desc: "simple add", a: 0x01, b: 0x02, want: 0x03},
		{desc: "zero result", a: 0x00, b: 0x00, want: 0x00, flags: zeroFlag},
		{desc: "half carry on bit 3", a: 0x0F, b: 0x01, want: 0x10, flags: halfCarryFlag},
		{desc: "full carry", a: 0xFF, b: 0x02, want: 0x01, flags: halfCarryFlag | carryFlag},
		{desc: "carry and zero", a: 0x80, b: 0x80, want: 0x00, flags: zeroFlag | carryFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu := newTestCPU()
			cpu.a = tC.a
			cpu.addToA(tC.b)
			assert.Equal(t, tC.want, cpu.a)
			assert.Equal(t, uint8(tC.flags), cpu.f)
		})
	}
}

func TestCPU_adc(t *testing.T) {
	testCases := []struct {
		desc    string
		a, b    uint8
		carryIn bool
		want    uint8
		flags   Flag
	}{
		{desc: "no carry in", a: 0x01, b: 0x01, want: 0x02},
		{desc: "carry in added", a: 0x01, b: 0x01, carryIn: true, want: 0x03},
		{desc: "half carry via carry in", a: 0x0F, b: 0x00, carryIn: true, want: 0x10, flags: halfCarryFlag},
		{desc: "wraps with carry in", a: 0xFF, b: 0x00, carryIn: true, want: 0x00, flags: zeroFlag | halfCarryFlag | carryFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu := newTestCPU()
			cpu.a = tC.a
			cpu.setFlagToCondition(carryFlag, tC.carryIn)
			cpu.adc(tC.b)
			assert.Equal(t, tC.want, cpu.a)
			assert.Equal(t, uint8(tC.flags), cpu.f)
		})
	}
}

func TestCPU_subAndCp(t *testing.T) {
	testCases := []struct {
		desc  string
		a, b  uint8
		want  uint8
		flags Flag
	}{
		{desc: "simple sub", a: 0x03, b: 0x01, want: 0x02, flags: subFlag},
		{desc: "zero result", a: 0x42, b: 0x42, want: 0x00, flags: subFlag | zeroFlag},
		{desc: "half borrow", a: 0x10, b: 0x01, want: 0x0F, flags: subFlag | halfCarryFlag},
		{desc: "full borrow", a: 0x00, b: 0x01, want: 0xFF, flags: subFlag | halfCarryFlag | carryFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu := newTestCPU()
			cpu.a = tC.a
			cpu.sub(tC.b)
			assert.Equal(t, tC.want, cpu.a)
			assert.Equal(t, uint8(tC.flags), cpu.f)

			// CP computes the same flags but discards the result
			cpu.f = 0
			cpu.a = tC.a
			cpu.cp(tC.b)
			assert.Equal(t, tC.a, cpu.a, "CP must not modify A")
			assert.Equal(t, uint8(tC.flags), cpu.f)
		})
	}
}

func TestCPU_sbc(t *testing.T) {
	cpu := newTestCPU()

	cpu.a = 0x10
	cpu.setFlag(carryFlag)
	cpu.sbc(0x0F)
	assert.Equal(t, uint8(0x00), cpu.a)
	assert.True(t, cpu.isSetFlag(zeroFlag))
	assert.True(t, cpu.isSetFlag(halfCarryFlag))
	assert.False(t, cpu.isSetFlag(carryFlag))
}

func TestCPU_logical(t *testing.T) {
	cpu := newTestCPU()

	cpu.a = 0xF0
	cpu.and(0x0F)
	assert.Equal(t, uint8(0x00), cpu.a)
	assert.Equal(t, uint8(zeroFlag|halfCarryFlag), cpu.f, "AND always sets H")

	cpu.a = 0xF0
	cpu.or(0x0F)
	assert.Equal(t, uint8(0xFF), cpu.a)
	assert.Equal(t, uint8(0), cpu.f)

	cpu.xor(0xFF)
	assert.Equal(t, uint8(0x00), cpu.a)
	assert.Equal(t, uint8(zeroFlag), cpu.f)
}

func TestCPU_addToHL(t *testing.T) {
	testCases := []struct {
		desc   string
		hl     uint16
		value  uint16
		want   uint16
		flags  Flag
		zeroIn bool
	}{
		{desc: "simple add", hl: 0x1000, value: 0x0234, want: 0x1234},
		{desc: "half carry on bit 11", hl: 0x0FFF, value: 0x0001, want: 0x1000, flags: halfCarryFlag},
		{desc: "carry on bit 15", hl: 0xFFFF, value: 0x0001, want: 0x0000, flags: halfCarryFlag | carryFlag},
		{desc: "Z unchanged", hl: 0x1000, value: 0x0001, want: 0x1001, zeroIn: true, flags: zeroFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu := newTestCPU()
			cpu.setFlagToCondition(zeroFlag, tC.zeroIn)
			cpu.setHL(tC.hl)
			cpu.addToHL(tC.value)
			assert.Equal(t, tC.want, cpu.getHL())
			assert.Equal(t, uint8(tC.flags), cpu.f)
		})
	}
}

func TestCPU_addSPSigned(t *testing.T) {
	testCases := []struct {
		desc  string
		sp    uint16
		e     int8
		want  uint16
		flags Flag
	}{
		{desc: "positive offset", sp: 0xFFF8, e: 0x08, want: 0x0000, flags: carryFlag | halfCarryFlag},
		{desc: "negative from zero", sp: 0x0000, e: -1, want: 0xFFFF},
		{desc: "low byte half carry", sp: 0x000F, e: 0x01, want: 0x0010, flags: halfCarryFlag},
		{desc: "low byte half and full carry", sp: 0x00FF, e: 0x01, want: 0x0100, flags: halfCarryFlag | carryFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cpu := newTestCPU()
			cpu.sp = tC.sp
			result := cpu.addSPSigned(tC.e)
			assert.Equal(t, tC.want, result)
			assert.Equal(t, uint8(tC.flags), cpu.f, "Z and N are always cleared; H/C from the low byte")
		})
	}
}

func TestCPU_daa(t *testing.T) {
	t.Run("after add with BCD overflow", func(t *testing.T) {
		cpu := newTestCPU()
		// 0x45 + 0x55 = 0x9A in binary; DAA corrects to 0x00 carry 1
		cpu.a = 0x45
		cpu.addToA(0x55)
		assert.Equal(t, uint8(0x9A), cpu.a)
		cpu.daa()
		assert.Equal(t, uint8(0x00), cpu.a)
		assert.True(t, cpu.isSetFlag(carryFlag))
		assert.True(t, cpu.isSetFlag(zeroFlag))
	})

	t.Run("after simple add", func(t *testing.T) {
		cpu := newTestCPU()
		// 0x19 + 0x28 = 0x41 binary; BCD answer is 0x47
		cpu.a = 0x19
		cpu.addToA(0x28)
		cpu.daa()
		assert.Equal(t, uint8(0x47), cpu.a)
		assert.False(t, cpu.isSetFlag(carryFlag))
	})

	t.Run("after subtraction", func(t *testing.T) {
		cpu := newTestCPU()
		// 0x20 - 0x13 = 0x0D binary; BCD answer is 0x07
		cpu.a = 0x20
		cpu.sub(0x13)
		cpu.daa()
		assert.Equal(t, uint8(0x07), cpu.a)
	})
}

func TestCPU_rotates(t *testing.T) {
	t.Run("rlc rotates circularly", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.a = 0x85
		cpu.rlc(&cpu.a)
		assert.Equal(t, uint8(0x0B), cpu.a)
		assert.True(t, cpu.isSetFlag(carryFlag))
	})

	t.Run("rl rotates through carry", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.a = 0x80
		cpu.resetFlag(carryFlag)
		cpu.rl(&cpu.a)
		assert.Equal(t, uint8(0x00), cpu.a, "carry-in was 0")
		assert.True(t, cpu.isSetFlag(carryFlag))

		cpu.rl(&cpu.a)
		assert.Equal(t, uint8(0x01), cpu.a, "previous carry rotated in")
		assert.False(t, cpu.isSetFlag(carryFlag))
	})

	t.Run("rrc rotates circularly", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.a = 0x01
		cpu.rrc(&cpu.a)
		assert.Equal(t, uint8(0x80), cpu.a)
		assert.True(t, cpu.isSetFlag(carryFlag))
	})

	t.Run("rr rotates through carry", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.a = 0x01
		cpu.resetFlag(carryFlag)
		cpu.rr(&cpu.a)
		assert.Equal(t, uint8(0x00), cpu.a)
		assert.True(t, cpu.isSetFlag(carryFlag))

		cpu.rr(&cpu.a)
		assert.Equal(t, uint8(0x80), cpu.a)
		assert.False(t, cpu.isSetFlag(carryFlag))
	})
}

func TestCPU_shifts(t *testing.T) {
	cpu := newTestCPU()

	cpu.a = 0x81
	cpu.sla(&cpu.a)
	assert.Equal(t, uint8(0x02), cpu.a)
	assert.True(t, cpu.isSetFlag(carryFlag))

	cpu.a = 0x81
	cpu.sra(&cpu.a)
	assert.Equal(t, uint8(0xC0), cpu.a, "SRA keeps the sign bit")
	assert.True(t, cpu.isSetFlag(carryFlag))

	cpu.a = 0x81
	cpu.srl(&cpu.a)
	assert.Equal(t, uint8(0x40), cpu.a, "SRL shifts in zero")
	assert.True(t, cpu.isSetFlag(carryFlag))

	cpu.a = 0xAB
	cpu.swap(&cpu.a)
	assert.Equal(t, uint8(0xBA), cpu.a)
}

func TestCPU_bitSetRes(t *testing.T) {
	cpu := newTestCPU()

	cpu.f = 0
	cpu.setFlag(carryFlag)
	cpu.bit(3, 0x08)
	assert.False(t, cpu.isSetFlag(zeroFlag), "bit is set, Z clear")
	assert.True(t, cpu.isSetFlag(halfCarryFlag), "BIT always sets H")
	assert.False(t, cpu.isSetFlag(subFlag))
	assert.True(t, cpu.isSetFlag(carryFlag), "BIT leaves C unchanged")

	cpu.bit(4, 0x08)
	assert.True(t, cpu.isSetFlag(zeroFlag), "bit is clear, Z set")

	value := uint8(0x00)
	cpu.set(5, &value)
	assert.Equal(t, uint8(0x20), value)
	cpu.res(5, &value)
	assert.Equal(t, uint8(0x00), value)
}

func TestCPU_controlFlow(t *testing.T) {
	t.Run("jr adds signed offset", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu, false)
		cpu.pc = 0xC000
		mmu.Write(0xC000, 0xFE) // -2
		cpu.jr()
		assert.Equal(t, uint16(0xBFFF), cpu.pc, "PC+1 after operand fetch, then -2")
	})

	t.Run("call pushes return address", func(t *testing.T) {
		mmu := memory.New()
		cpu := New(mmu, false)
		cpu.pc = 0xC000
		cpu.sp = 0xFFFE
		mmu.Write(0xC000, 0x34)
		mmu.Write(0xC001, 0x12)
		cpu.call()
		assert.Equal(t, uint16(0x1234), cpu.pc)
		assert.Equal(t, uint16(0xC002), cpu.popStack(), "return address is the byte after the operand")
	})

	t.Run("rst pushes and jumps to vector", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.pc = 0xC005
		cpu.sp = 0xFFFE
		cpu.rst(0x28)
		assert.Equal(t, uint16(0x0028), cpu.pc)
		assert.Equal(t, uint16(0xC005), cpu.popStack())
	})
}
