package memory

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/student/gameboy/jeebie/addr"
	"github.com/student/gameboy/jeebie/audio"
	"github.com/student/gameboy/jeebie/bit"
	"github.com/student/gameboy/jeebie/save"
	"github.com/student/gameboy/jeebie/serial"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionUnused
	regionIO
	regionHRAM
)

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// MMU allows access to all memory mapped I/O and data/registers
type MMU struct {
	cart      *Cartridge
	mbc       MBC
	memory    []byte
	APU       *audio.APU
	regionMap [256]memRegion

	joypad *Joypad

	serial    SerialPort
	timer     Timer
	saveStore save.Store

	cgb bool
	cgbState
}

// New creates a new memory unity with default data, i.e. nothing cartridge loaded.
// Equivalent to turning on a Gameboy without a cartridge in.
func New() *MMU {
	mmu := &MMU{
		memory: make([]byte, 0x10000),
		cart:   NewCartridge(),
		APU:    audio.New(),
		joypad: NewJoypad(),
	}
	mmu.serial = serial.NewLogSink(func() { mmu.RequestInterrupt(addr.SerialInterrupt) })
	mmu.timer.TimerInterruptHandler = func() { mmu.RequestInterrupt(addr.TimerInterrupt) }
	mmu.timer.DivAPUHandler = func() { mmu.APU.TickFrameSequencer() }
	initRegionMap(mmu)
	return mmu
}

// Tick advances any i/o that needs it, if any. cycles is always the full
// CPU cycle count (never halved for double speed): the timer and serial
// port follow the CPU clock, so they run twice as fast in double speed.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
}

// TickAPU advances the APU by cycles. Unlike the timer, the APU (like the
// PPU) runs at the base rate even in CGB double-speed mode, so the bus ticks
// it with a separately halved cycle count.
func (m *MMU) TickAPU(cycles int) {
	if m.APU != nil {
		m.APU.Tick(cycles)
	}
}

// SetTimerSeed initializes the internal timer divider seed and DIV register.
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.SetSeed(seed)
}

// ErrUnsupportedCartridge is returned at power-on for cartridge-type codes
// outside the supported MBC set.
var ErrUnsupportedCartridge = errors.New("unsupported cartridge type")

// NewWithCartridge creates a new memory unit with the provided cartridge data loaded.
// Equivalent to turning on a Gameboy with a cartridge in; the hardware model
// follows the cartridge's CGB header flag. Cartridges asking for an
// unsupported MBC fall back to flat addressing with a logged error.
func NewWithCartridge(cart *Cartridge) *MMU {
	mmu, err := NewWithCartridgeMode(cart, cart.CGB())
	if err != nil {
		slog.Error("Unsupported MBC type, falling back to no banking", "cartType", cart.cartType)
		mmu = New()
		mmu.cart = cart
		mmu.cgb = cart.CGB()
		mmu.saveStore = save.NullStore{}
		mmu.mbc = NewNoMBC(cart.data)
		mmu.initCGB()
	}
	return mmu
}

// NewWithCartridgeMode creates a memory unit for the cartridge with the
// hardware model forced to CGB or DMG regardless of the header flag.
func NewWithCartridgeMode(cart *Cartridge, cgb bool) (*MMU, error) {
	mmu := New()
	mmu.cart = cart
	mmu.cgb = cgb
	mmu.saveStore = save.NullStore{}

	switch cart.mbcType {
	case NoMBCType:
		mmu.mbc = NewNoMBC(cart.data)
	case MBC1Type:
		mmu.mbc = NewMBC1(cart.data, cart.hasBattery, cart.ramBankCount)
	case MBC2Type:
		mmu.mbc = NewMBC2(cart.data, cart.hasBattery)
	case MBC5Type:
		mmu.mbc = NewMBC5(cart.data, cart.hasBattery, cart.hasRumble, cart.ramBankCount)
	default:
		return nil, fmt.Errorf("%w: header code 0x%02X", ErrUnsupportedCartridge, cart.cartType)
	}

	mmu.initCGB()

	return mmu, nil
}

// ResetPostBoot seeds the I/O space with the register values the boot ROM
// leaves behind, for powering on without a boot ROM image.
func (m *MMU) ResetPostBoot() {
	m.timer.SetSeed(0xABCC)

	ioDefaults := []struct {
		address uint16
		value   byte
	}{
		{addr.P1, 0x30},
		{addr.SC, 0x7E},
		{addr.TAC, 0x00},
		{addr.IF, 0xE1},
		{addr.NR52, 0xF1},
		{addr.NR10, 0x80},
		{addr.NR11, 0xBF},
		{addr.NR12, 0xF3},
		{addr.NR21, 0x3F},
		{addr.NR30, 0x7F},
		{addr.NR31, 0xFF},
		{addr.NR32, 0x9F},
		{addr.NR41, 0xFF},
		{addr.NR50, 0x77},
		{addr.NR51, 0xF3},
		{addr.LCDC, 0x91},
		{addr.STAT, 0x85},
		{addr.BGP, 0xFC},
		{addr.OBP0, 0xFF},
		{addr.OBP1, 0xFF},
	}
	for _, reg := range ioDefaults {
		m.Write(reg.address, reg.value)
	}
}

// FlushSave persists battery-backed cartridge RAM immediately, without
// waiting for the program to disable RAM. Hosts call this on shutdown.
func (m *MMU) FlushSave() error {
	persist, ok := m.mbc.(persistableMBC)
	if !ok || !m.cart.hasBattery {
		return nil
	}
	if _, isNull := m.saveStore.(save.NullStore); isNull {
		return nil
	}
	return m.saveStore.Save(persist.RAMBytes())
}

// SetSaveStore wires a battery-backed save collaborator to the loaded
// cartridge: it is primed with the cartridge's save key, any existing save
// data is loaded into the MBC's RAM, and future RAM-disable transitions
// flush the current RAM contents back out.
func (m *MMU) SetSaveStore(store save.Store) {
	m.saveStore = store
	if m.cart == nil || m.mbc == nil {
		return
	}

	store.SetTitle(m.cart.SaveKey())

	persist, ok := m.mbc.(persistableMBC)
	if !ok {
		return
	}

	if data, err := store.Load(); err != nil {
		slog.Warn("Failed to load save data", "error", err)
	} else if data != nil {
		persist.LoadRAM(data)
	}

	if trigger, ok := m.mbc.(saveTrigger); ok {
		trigger.SetSaveTrigger(func() {
			if err := store.Save(persist.RAMBytes()); err != nil {
				slog.Warn("Failed to persist save data", "error", err)
			}
		})
	}
}

func initRegionMap(m *MMU) {
	// ROM: 0x0000-0x7FFF
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	// VRAM: 0x8000-0x9FFF
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	// External RAM: 0xA000-0xBFFF
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	// Work RAM: 0xC000-0xDFFF
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	// Echo RAM: 0xE000-0xFDFF
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	// OAM: 0xFE00-0xFE9F, Unused: 0xFEA0-0xFEFF
	m.regionMap[0xFE] = regionOAM
	// IO + HRAM: 0xFF00-0xFFFF
	m.regionMap[0xFF] = regionIO
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt to 1.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	interruptFlags := m.Read(addr.IF)

	var bitPos uint8
	switch interrupt {
	case addr.VBlankInterrupt:
		bitPos = 0
	case addr.LCDSTATInterrupt:
		bitPos = 1
	case addr.TimerInterrupt:
		bitPos = 2
	case addr.SerialInterrupt:
		bitPos = 3
	case addr.JoypadInterrupt:
		bitPos = 4
	default:
		panic(fmt.Sprintf("Unknown interrupt: 0x%02X", uint8(interrupt)))
	}

	newFlags := bit.Set(bitPos, interruptFlags)

	m.Write(addr.IF, newFlags)
}

func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Read(address))
}

func (m *MMU) SetBit(index uint8, address uint16, set bool) {
	value := m.Read(address)
	if set {
		value = bit.Set(index, value)
	} else {
		value = bit.Reset(index, value)
	}
	m.Write(address, value)
}

func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if value, ok := m.bootROMOverlay(address); ok {
			return value
		}
		if m.mbc == nil {
			slog.Warn("Reading from ROM/external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address))
			return 0xFF
		}
		return m.mbc.Read(address)
	case regionVRAM:
		return m.readVRAM(address)
	case regionWRAM:
		return m.readWRAM(address)
	case regionEcho:
		return m.readWRAM(address - 0x2000)
	case regionOAM:
		if address <= 0xFE9F {
			return m.memory[address]
		}
		// Unused area 0xFEA0-0xFEFF
		return m.memory[address]
	case regionIO:
		if address == addr.P1 {
			return m.joypad.Read()
		}
		if address == addr.SB || address == addr.SC {
			return m.serial.Read(address)
		}
		if address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC {
			return m.timer.Read(address)
		}
		if address >= 0xFF10 && address <= 0xFF3F {
			return m.APU.ReadRegister(address)
		}
		if cgbReg, ok := m.readCGBRegister(address); ok {
			return cgbReg
		}
		// Just in case, we always read the upper 3 bits of IF as 1.
		// They're not used, but have caused me some headaches when checking for
		// when the halt bug triggers (IF != 0).
		if address == addr.IF {
			return m.memory[address] | 0xE0
		}
		if address >= 0xFF80 {
			// HRAM
			return m.memory[address]
		}
		// Other IO registers
		return m.memory[address]
	default:
		panic(fmt.Sprintf("Attempted read at unmapped address: 0x%X", address))
	}
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM:
		if m.mbc == nil {
			slog.Warn("Writing to ROM with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.mbc.Write(address, value)
	case regionVRAM:
		m.writeVRAM(address, value)
	case regionExtRAM:
		if m.mbc == nil {
			slog.Warn("Writing to external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.mbc.Write(address, value)
	case regionWRAM:
		m.writeWRAM(address, value)
	case regionEcho:
		m.writeWRAM(address-0x2000, value)
	case regionOAM:
		if address <= 0xFE9F {
			m.memory[address] = value
		} else {
			// Unused area 0xFEA0-0xFEFF
			m.memory[address] = value
		}
	case regionIO:
		if address == addr.P1 {
			m.joypad.Write(value)
			return
		}
		if address == addr.SB || address == addr.SC {
			m.serial.Write(address, value)
			return
		}
		if address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC {
			m.timer.Write(address, value)
			return
		}
		if address >= 0xFF10 && address <= 0xFF3F {
			m.APU.WriteRegister(address, value)
			return
		}
		if address == addr.IF {
			// This goddamn register has its upper 3 bits always set as 1...
			// Beware if you're trying to match halt bug behavior.
			m.memory[address] = value | 0xE0
			return
		}
		if address == addr.DMA {
			sourceAddr := uint16(value) << 8
			// DMA transfer copies 160 bytes from source to OAM
			for i := uint16(0); i < 160; i++ {
				m.memory[0xFE00+i] = m.Read(sourceAddr + i)
			}
			m.memory[address] = value
			return
		}
		if m.writeCGBRegister(address, value) {
			return
		}
		if address >= 0xFF80 {
			// HRAM
			m.memory[address] = value
			return
		}
		// Other IO registers
		m.memory[address] = value
	default:
		panic(fmt.Sprintf("Attempted write at unmapped address: 0x%X", address))
	}
}

// HandleKeyPress marks a host button as held down, raising the Joypad
// interrupt when the press lands on a currently-selected input.
func (m *MMU) HandleKeyPress(key JoypadKey) {
	if m.joypad.Press(key) {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}
}

// HandleKeyRelease marks a host button as released.
func (m *MMU) HandleKeyRelease(key JoypadKey) {
	m.joypad.Release(key)
}
