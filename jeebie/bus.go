package jeebie

import (
	"github.com/student/gameboy/jeebie/memory"
	"github.com/student/gameboy/jeebie/video"
)

// bus adapts the MMU/GPU pair to the cpu.Bus contract: every
// memory access the CPU performs ticks this bus by exactly four cycles,
// giving the rest of the system a cycle-exact view of CPU execution.
//
// It also implements the CGB double-speed cycle split: the timer
// always receives the full CPU cycle count, while the PPU and APU counts
// are halved when double speed is active. Cycles always arrive in
// multiples of four so the halving is exact; peripheralCarry holds the
// remainder if an odd count ever comes through.
type bus struct {
	mem *memory.MMU
	gpu *video.GPU

	peripheralCarry int
}

func newBus(mem *memory.MMU, gpu *video.GPU) *bus {
	return &bus{mem: mem, gpu: gpu}
}

func (b *bus) Read(address uint16) uint8 {
	return b.mem.Read(address)
}

func (b *bus) Write(address uint16, value uint8) {
	b.mem.Write(address, value)
}

// Tick advances the timer/serial at full speed and the PPU/APU at the
// speed that KEY1 currently selects.
func (b *bus) Tick(cycles int) {
	b.mem.Tick(cycles)

	peripheralCycles := cycles
	if b.mem.IsDoubleSpeed() {
		total := b.peripheralCarry + cycles
		peripheralCycles = total / 2
		b.peripheralCarry = total % 2
	}

	b.gpu.Tick(peripheralCycles)
	b.mem.TickAPU(peripheralCycles)
}
