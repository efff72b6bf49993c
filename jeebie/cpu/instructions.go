package cpu

import "github.com/student/gameboy/jeebie/bit"

func (c *CPU) readImmediate() uint8 {
	value := c.read(c.pc)
	c.pc++
	return value
}

func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}

func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.write(c.sp, bit.High(value))
	c.sp--
	c.write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.read(c.sp)
	c.sp++
	high := c.read(c.sp)
	c.sp++
	return bit.Combine(high, low)
}

// jr jumps relative to the instruction following its own operand byte.
func (c *CPU) jr() {
	offset := int8(c.readImmediate())
	c.pc = uint16(int32(c.pc) + int32(offset))
}

func (c *CPU) jp() {
	c.pc = c.readImmediateWord()
}

func (c *CPU) call() {
	target := c.readImmediateWord()
	c.pushStack(c.pc)
	c.pc = target
}

func (c *CPU) ret() {
	c.pc = c.popStack()
}

func (c *CPU) rst(vector uint16) {
	c.pushStack(c.pc)
	c.pc = vector
}

func (c *CPU) inc(r *uint8) {
	old := *r
	*r = old + 1
	c.setFlagToCondition(zeroFlag, *r == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (old&0xF) == 0xF)
}

func (c *CPU) dec(r *uint8) {
	old := *r
	*r = old - 1
	c.setFlagToCondition(zeroFlag, *r == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (old&0xF) == 0)
}

// rlc rotates left circularly: bit 7 goes to carry and to bit 0.
func (c *CPU) rlc(r *uint8) {
	old := *r
	carry := old >> 7
	result := (old << 1) | carry
	*r = result
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry == 1)
}

// rrc rotates right circularly: bit 0 goes to carry and to bit 7.
func (c *CPU) rrc(r *uint8) {
	old := *r
	carry := old & 1
	result := (old >> 1) | (carry << 7)
	*r = result
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry == 1)
}

// rl rotates left through carry.
func (c *CPU) rl(r *uint8) {
	old := *r
	oldCarry := c.flagToBit(carryFlag)
	newCarry := old >> 7
	result := (old << 1) | oldCarry
	*r = result
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, newCarry == 1)
}

// rr rotates right through carry.
func (c *CPU) rr(r *uint8) {
	old := *r
	oldCarry := c.flagToBit(carryFlag)
	newCarry := old & 1
	result := (old >> 1) | (oldCarry << 7)
	*r = result
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, newCarry == 1)
}

func (c *CPU) sla(r *uint8) {
	old := *r
	carry := old >> 7
	result := old << 1
	*r = result
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry == 1)
}

// sra shifts right, preserving bit 7 (arithmetic shift).
func (c *CPU) sra(r *uint8) {
	old := *r
	carry := old & 1
	result := (old >> 1) | (old & 0x80)
	*r = result
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry == 1)
}

func (c *CPU) srl(r *uint8) {
	old := *r
	carry := old & 1
	result := old >> 1
	*r = result
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry == 1)
}

func (c *CPU) swap(r *uint8) {
	old := *r
	result := (old << 4) | (old >> 4)
	*r = result
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

// bit tests bit n of value: Z=¬bit, N=0, H=1, C unchanged.
func (c *CPU) bit(n uint8, value uint8) {
	c.setFlagToCondition(zeroFlag, !bit.IsSet(n, value))
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

func (c *CPU) set(n uint8, r *uint8) {
	*r = bit.Set(n, *r)
}

func (c *CPU) res(n uint8, r *uint8) {
	*r = bit.Reset(n, *r)
}

// addToA adds value to A, setting all relevant flags.
func (c *CPU) addToA(value uint8) {
	a := c.a
	result := a + value
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0xF)+(value&0xF) > 0xF)
	c.setFlagToCondition(carryFlag, uint16(a)+uint16(value) > 0xFF)
	c.a = result
}

// adc adds value and the carry flag to A.
func (c *CPU) adc(value uint8) {
	a := c.a
	carry := uint16(c.flagToBit(carryFlag))
	result := uint16(a) + uint16(value) + carry
	c.setFlagToCondition(zeroFlag, uint8(result) == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0xF)+(value&0xF)+uint8(carry) > 0xF)
	c.setFlagToCondition(carryFlag, result > 0xFF)
	c.a = uint8(result)
}

// sub subtracts value from A, setting all relevant flags.
func (c *CPU) sub(value uint8) {
	a := c.a
	result := a - value
	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0xF) < (value&0xF))
	c.setFlagToCondition(carryFlag, a < value)
	c.a = result
}

// sbc subtracts value and the carry flag from A.
func (c *CPU) sbc(value uint8) {
	a := c.a
	carry := int(c.flagToBit(carryFlag))
	result := int(a) - int(value) - carry
	c.setFlagToCondition(zeroFlag, uint8(result) == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (int(a)&0xF)-(int(value)&0xF)-carry < 0)
	c.setFlagToCondition(carryFlag, result < 0)
	c.a = uint8(result)
}

// cp compares value against A without storing the result.
func (c *CPU) cp(value uint8) {
	a := c.a
	c.setFlagToCondition(zeroFlag, a == value)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0xF) < (value&0xF))
	c.setFlagToCondition(carryFlag, a < value)
}

func (c *CPU) and(value uint8) {
	c.a &= value
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) or(value uint8) {
	c.a |= value
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) xor(value uint8) {
	c.a ^= value
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

// addToHL adds a 16-bit register to HL; Z is left unchanged.
func (c *CPU) addToHL(reg uint16) {
	hl := c.getHL()
	result := hl + reg
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (hl&0xFFF)+(reg&0xFFF) > 0xFFF)
	c.setFlagToCondition(carryFlag, uint32(hl)+uint32(reg) > 0xFFFF)
	c.setHL(result)
}

// addSPSigned computes SP+e the way ADD SP,e and LD HL,SP+e do: Z=0, N=0,
// H and C are computed on the low byte only, as an 8-bit unsigned add.
func (c *CPU) addSPSigned(e int8) uint16 {
	sp := c.sp
	result := uint16(int32(sp) + int32(e))
	lowSP := uint8(sp)
	ue := uint8(e)
	c.resetFlag(zeroFlag)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (lowSP&0xF)+(ue&0xF) > 0xF)
	c.setFlagToCondition(carryFlag, uint16(lowSP)+uint16(ue) > 0xFF)
	return result
}

// daa applies the post-BCD adjustment after an 8-bit add/subtract.
func (c *CPU) daa() {
	a := c.a
	if !c.isSetFlag(subFlag) {
		if c.isSetFlag(halfCarryFlag) || (a&0xF) > 0x9 {
			a += 0x06
		}
		if c.isSetFlag(carryFlag) || a > 0x99 {
			a += 0x60
			c.setFlag(carryFlag)
		}
	} else {
		if c.isSetFlag(halfCarryFlag) {
			a -= 0x06
		}
		if c.isSetFlag(carryFlag) {
			a -= 0x60
		}
	}
	c.setFlagToCondition(zeroFlag, a == 0)
	c.resetFlag(halfCarryFlag)
	c.a = a
}
