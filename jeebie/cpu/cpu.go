package cpu

import (
	"github.com/student/gameboy/jeebie/addr"
)

// Bus is the minimal contract the CPU needs from the system bus:
// pure byte access plus peripheral stepping in fixed four-cycle quanta.
// Every memory access the CPU performs is immediately followed by a Tick,
// which is what gives the PPU/timer/APU their cycle-exact view of the world.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
	Tick(cycles int)
}

// CPU implements the Sharp SM83 fetch/decode/execute loop: registers, flags,
// the interrupt master enable (with its one-instruction EI delay), HALT/STOP
// and the main/CB opcode dispatch.
type CPU struct {
	a, b, c, d, e, h, l uint8
	f                   uint8
	sp, pc              uint16

	bus Bus
	cgb bool

	ime          bool
	imeScheduled bool
	halted       bool
	stopped      bool
	haltBugSkip  bool

	currentOpcode uint16

	// cyclesThisStep accumulates cycles already stepped via bus.Read/Write
	// and explicit internal Tick calls within the running opcode; the
	// dispatcher tops this up to the opcode's documented nominal cost but
	// never double-counts what has already been ticked.
	cyclesThisStep int

	instructionCount uint64
}

// New creates a CPU wired to the given bus. cgb selects Game Boy Color
// semantics for STOP/speed-switch handling.
func New(bus Bus, cgb bool) *CPU {
	return &CPU{bus: bus, cgb: cgb}
}

// Reset puts the CPU into post-boot-ROM power-on state (used when no boot
// ROM image is supplied): registers take their documented post-boot values.
func (c *CPU) Reset() {
	if c.cgb {
		c.setAF(0x1180)
		c.setBC(0x0000)
		c.setDE(0xFF56)
		c.setHL(0x000D)
	} else {
		c.setAF(0x01B0)
		c.setBC(0x0013)
		c.setDE(0x00D8)
		c.setHL(0x014D)
	}
	c.sp = 0xFFFE
	c.pc = 0x0100
	c.ime = false
	c.imeScheduled = false
	c.halted = false
	c.stopped = false
}

// ResetToBootROM starts execution at address 0, the boot ROM entry point;
// registers are left at their zero value, matching real cold-boot state.
func (c *CPU) ResetToBootROM() {
	*c = CPU{bus: c.bus, cgb: c.cgb, pc: 0x0000}
}

func (c *CPU) IsHalted() bool  { return c.halted }
func (c *CPU) IsStopped() bool { return c.stopped }
func (c *CPU) IME() bool       { return c.ime }

func (c *CPU) GetInstructionCount() uint64 { return c.instructionCount }

// read performs a bus read and immediately steps peripherals by four cycles.
func (c *CPU) read(address uint16) uint8 {
	value := c.bus.Read(address)
	c.bus.Tick(4)
	c.cyclesThisStep += 4
	return value
}

// write performs a bus write and immediately steps peripherals by four cycles.
func (c *CPU) write(address uint16, value uint8) {
	c.bus.Write(address, value)
	c.bus.Tick(4)
	c.cyclesThisStep += 4
}

// tick steps peripherals by an explicit number of cycles with no associated
// memory access (used by opcodes that tick around a read/write pair, or for
// purely-internal cycles such as the CB-prefix's own fetch).
func (c *CPU) tick(cycles int) {
	c.bus.Tick(cycles)
	c.cyclesThisStep += cycles
}

func (c *CPU) pendingInterrupt() bool {
	return (c.bus.Read(addr.IF) & c.bus.Read(addr.IE) & 0x1F) != 0
}

// fetchOpcode reads the byte at PC. Normally this advances PC, but
// immediately after a HALT executed with IME off and an interrupt already
// pending, real hardware fails to advance PC for one fetch (the "HALT bug").
func (c *CPU) fetchOpcode() uint8 {
	value := c.read(c.pc)
	if c.haltBugSkip {
		c.haltBugSkip = false
	} else {
		c.pc++
	}
	return value
}

// Step executes exactly one instruction (or one HALT/STOP tick quantum) and
// returns the number of master cycles consumed, matching the documented
// cost (taken-vs-not-taken accounted for by the opcode itself).
func (c *CPU) Step() int {
	c.cyclesThisStep = 0

	if c.imeScheduled {
		c.ime = true
		c.imeScheduled = false
	}

	if c.stopped {
		c.bus.Tick(4)
		c.cyclesThisStep = 4
		if c.bus.Read(addr.P1)&0x0F != 0x0F {
			c.stopped = false
		}
		return c.cyclesThisStep
	}

	if c.halted {
		c.bus.Tick(4)
		c.cyclesThisStep = 4
		c.handleInterrupts()
		return c.cyclesThisStep
	}

	opcodeByte := c.fetchOpcode()
	c.currentOpcode = uint16(opcodeByte)

	var fn Opcode
	if opcodeByte == 0xCB {
		cbByte := c.readImmediate()
		c.currentOpcode = 0xCB00 | uint16(cbByte)
		fn = opcodeCBMap[cbByte]
	} else {
		fn = opcodeMap[opcodeByte]
	}

	nominal := fn(c)
	if delta := nominal - c.cyclesThisStep; delta > 0 {
		c.bus.Tick(delta)
		c.cyclesThisStep += delta
	}

	c.instructionCount++
	c.handleInterrupts()

	return c.cyclesThisStep
}

// handleInterrupts implements the priority-ordered interrupt arbiter: VBlank,
// STAT, Timer, Serial, Joypad (bits 0..4, vectors 0x40/0x48/0x50/0x58/0x60).
func (c *CPU) handleInterrupts() {
	ifReg := c.bus.Read(addr.IF)
	ieReg := c.bus.Read(addr.IE)
	pending := ifReg & ieReg & 0x1F

	if c.halted && pending != 0 {
		c.halted = false
		if !c.ime {
			c.bus.Tick(4)
			c.cyclesThisStep += 4
			return
		}
	}

	if pending == 0 || !c.ime {
		return
	}

	var bitIdx uint8
	var vector uint16
	switch {
	case pending&0x01 != 0:
		bitIdx, vector = 0, 0x40
	case pending&0x02 != 0:
		bitIdx, vector = 1, 0x48
	case pending&0x04 != 0:
		bitIdx, vector = 2, 0x50
	case pending&0x08 != 0:
		bitIdx, vector = 3, 0x58
	default:
		bitIdx, vector = 4, 0x60
	}

	c.ime = false
	c.write(addr.IF, ifReg&^(1<<bitIdx))
	c.bus.Tick(8) // two internal cycles before the stack push
	c.cyclesThisStep += 8
	c.pushStack(c.pc)
	c.pc = vector
}
