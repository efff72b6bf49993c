package memory

// MBC represents a Memory Bank Controller interface that all MBC types must implement
type MBC interface {
	// Read reads a byte from the specified address
	Read(addr uint16) uint8
	// Write writes a byte to the specified address and returns value; a
	// dropped write returns 0 (NoMBC) or 0xFF (disabled RAM) instead
	Write(addr uint16, value uint8) uint8
}

// saveTrigger is implemented by MBCs whose battery-backed RAM should be
// flushed to a SaveStore whenever the cartridge disables RAM access -- the
// de-facto "save point" signal most games give before powering down.
type saveTrigger interface {
	SetSaveTrigger(fn func())
}

// persistableMBC is implemented by MBCs with battery-backed RAM that a
// SaveStore can snapshot and restore.
type persistableMBC interface {
	RAMBytes() []byte
	LoadRAM(data []byte)
}

// NoMBC represents cartridges with no memory banking capabilities.
// These are typically smaller games (32KB or less) that fit entirely in the
// base memory region. The cartridge ROM is directly mapped to 0x0000-0x7FFF
// and cannot be banked/switched. These cartridges cannot have external RAM.
type NoMBC struct {
	rom []uint8 // ROM data
}

// NewNoMBC creates a new NoMBC controller
func NewNoMBC(romData []uint8) *NoMBC {
	return &NoMBC{
		rom: romData,
	}
}

func (m *NoMBC) Read(addr uint16) uint8 {
	if int(addr) >= len(m.rom) {
		return 0xFF
	}
	return m.rom[addr]
}

func (m *NoMBC) Write(addr uint16, value uint8) uint8 {
	// NoMBC doesn't support writing to ROM
	return 0
}

// MBC1 is the first and most common MBC chip. Features include:
//   - Supports up to 2MB ROM (125 16KB banks)
//   - Up to 32KB RAM (4 8KB banks)
//   - Bank 0 always mapped to 0x0000-0x3FFF in mode 0; in mode 1 the same
//     upper-bits register that banks RAM also re-maps that window
//   - Switchable ROM bank at 0x4000-0x7FFF
//   - Optional RAM banking at 0xA000-0xBFFF
//   - Two banking modes:
//   - Mode 0 (ROM): Allows access to full ROM but only 8KB RAM
//   - Mode 1 (RAM): Restricts ROM banking but allows full RAM access
//   - Optional battery backup for RAM persistence
type MBC1 struct {
	rom          []uint8
	ram          []uint8
	romBank      uint8
	ramBank      uint8
	bank2        uint8 // raw 2-bit upper-bank register, tracked regardless of mode
	ramEnabled   bool
	bankingMode  uint8
	hasBattery   bool
	ramBankCount uint8

	onSave func()
}

// NewMBC1 creates a new MBC1 controller
func NewMBC1(romData []uint8, hasBattery bool, ramBankCount uint8) *MBC1 {
	ramSize := uint32(ramBankCount) * 0x2000 // 8KB per RAM bank
	return &MBC1{
		rom:          romData,
		ram:          make([]uint8, ramSize),
		romBank:      1,
		ramBank:      0,
		ramEnabled:   false,
		bankingMode:  0,
		hasBattery:   hasBattery,
		ramBankCount: ramBankCount,
	}
}

func (m *MBC1) SetSaveTrigger(fn func()) { m.onSave = fn }

func (m *MBC1) RAMBytes() []byte { return m.ram }

func (m *MBC1) LoadRAM(data []byte) { copy(m.ram, data) }

// lowerBankOffset returns the ROM bank mapped into 0x0000-0x3FFF: bank 0 in
// mode 0, but re-mapped by the upper bank-select bits in mode 1.
func (m *MBC1) lowerBankOffset() uint32 {
	if m.bankingMode == 0 {
		return 0
	}
	return uint32(m.bank2) * 0x20 * 0x4000
}

func (m *MBC1) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		offset := m.lowerBankOffset()
		if int(offset) >= len(m.rom) {
			offset %= uint32(len(m.rom))
		}
		return m.rom[offset+uint32(addr)]
	case addr >= 0x4000 && addr <= 0x7FFF:
		// Switchable ROM Bank
		offset := uint32(m.romBank) * 0x4000
		if offset >= uint32(len(m.rom)) {
			// If bank would be out of bounds, wrap around
			offset = offset % uint32(len(m.rom))
		}
		return m.rom[offset+uint32(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		// RAM Bank
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank) * 0x2000
		if offset >= uint32(len(m.ram)) {
			// If bank would be out of bounds, wrap around
			offset = offset % uint32(len(m.ram))
		}
		return m.ram[offset+uint32(addr-0xA000)]
	default:
		return 0xFF
	}
}

func (m *MBC1) Write(addr uint16, value uint8) uint8 {
	switch {
	case addr <= 0x1FFF:
		wasEnabled := m.ramEnabled
		m.ramEnabled = (value & 0x0F) == 0x0A
		if wasEnabled && !m.ramEnabled && m.hasBattery && m.onSave != nil {
			m.onSave()
		}
	case addr >= 0x2000 && addr <= 0x3FFF:
		// ROM Bank Number (lower 5 bits)
		bank := value & 0x1F
		if bank == 0 {
			bank = 1
		}
		m.romBank = (m.romBank & 0x60) | bank
	case addr >= 0x4000 && addr <= 0x5FFF:
		// RAM Bank Number or Upper ROM Bank Number
		m.bank2 = value & 0x03
		if m.bankingMode == 0 {
			m.romBank = (m.romBank & 0x1F) | (m.bank2 << 5)
		} else {
			m.ramBank = m.bank2
		}
	case addr >= 0x6000 && addr <= 0x7FFF:
		// Banking Mode Select
		m.bankingMode = value & 0x01
		if m.bankingMode == 1 {
			// Entering RAM-banking mode drops the upper bits from the
			// switchable-ROM-window bank; they now drive RAM banking and
			// the 0x0000-0x3FFF window instead.
			m.romBank &= 0x1F
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		// RAM Bank
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank) * 0x2000
		if offset >= uint32(len(m.ram)) {
			offset = (offset % uint32(len(m.ram)))
		}
		m.ram[offset+uint32(addr-0xA000)] = value
	}
	return value
}

// MBC2 is a simpler MBC chip with built-in RAM. Features include:
//   - Supports up to 256KB ROM (16 16KB banks)
//   - Built-in 512x4 bits RAM (not external)
//   - RAM must be enabled (0x0A in the low nibble) before it can be accessed
//   - ROM banking similar to MBC1 but simpler
//   - The least significant bit of the upper address byte selects between
//     ROM banking and RAM access
//   - RAM is limited to 4-bit values (upper 4 bits are ignored)
//   - Optional battery backup for the built-in RAM
type MBC2 struct {
	rom        []uint8
	ram        []uint8 // 512x4 bits RAM
	romBank    uint8
	ramEnabled bool
	hasBattery bool

	onSave func()
}

// NewMBC2 creates a new MBC2 controller
func NewMBC2(romData []uint8, hasBattery bool) *MBC2 {
	return &MBC2{
		rom:        romData,
		ram:        make([]uint8, 512),
		romBank:    1,
		ramEnabled: false,
		hasBattery: hasBattery,
	}
}

func (m *MBC2) SetSaveTrigger(fn func()) { m.onSave = fn }

func (m *MBC2) RAMBytes() []byte { return m.ram }

func (m *MBC2) LoadRAM(data []byte) { copy(m.ram, data) }

func (m *MBC2) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		offset := uint32(m.romBank) * 0x4000
		if offset >= uint32(len(m.rom)) {
			offset %= uint32(len(m.rom))
		}
		return m.rom[offset+uint32(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		// Only the low 9 bits of the address are decoded; RAM mirrors every
		// 512 bytes, and the unused upper nibble always reads back as 1.
		return m.ram[addr&0x1FF] | 0xF0
	default:
		return 0xFF
	}
}

func (m *MBC2) Write(addr uint16, value uint8) uint8 {
	switch {
	case addr <= 0x3FFF:
		// Bit 8 of the address distinguishes RAM-enable (0) from ROM-bank
		// select (1) writes in this range.
		if addr&0x100 == 0 {
			wasEnabled := m.ramEnabled
			m.ramEnabled = (value & 0x0F) == 0x0A
			if wasEnabled && !m.ramEnabled && m.hasBattery && m.onSave != nil {
				m.onSave()
			}
		} else {
			bank := value & 0x0F
			if bank == 0 {
				bank = 1
			}
			m.romBank = bank
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		m.ram[addr&0x1FF] = value & 0x0F
	}
	return value
}

// MBC5 is the most advanced MBC chip. Features include:
// - Supports up to 8MB ROM (512 16KB banks)
// - Up to 128KB RAM (16 8KB banks)
// - Simple ROM/RAM banking with no quirks (unlike MBC1)
// - 9-bit ROM bank number (allows all 512 banks to be directly accessed)
// - Optional rumble motor support
// - Used in Game Boy Color games that needed more ROM/RAM
// - Backwards compatible with Game Boy
type MBC5 struct {
	rom          []uint8
	ram          []uint8
	romBank      uint16 // MBC5 supports up to 512 ROM banks
	ramBank      uint8
	ramEnabled   bool
	hasRumble    bool
	hasBattery   bool
	ramBankCount uint8

	onSave func()
}

// NewMBC5 creates a new MBC5 controller
func NewMBC5(romData []uint8, hasBattery, hasRumble bool, ramBankCount uint8) *MBC5 {
	ramSize := uint32(ramBankCount) * 0x2000
	return &MBC5{
		rom:          romData,
		ram:          make([]uint8, ramSize),
		romBank:      1,
		ramEnabled:   false,
		hasRumble:    hasRumble,
		hasBattery:   hasBattery,
		ramBankCount: ramBankCount,
	}
}

func (m *MBC5) SetSaveTrigger(fn func()) { m.onSave = fn }

func (m *MBC5) RAMBytes() []byte { return m.ram }

func (m *MBC5) LoadRAM(data []byte) { copy(m.ram, data) }

func (m *MBC5) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		offset := uint32(m.romBank) * 0x4000
		if offset >= uint32(len(m.rom)) {
			offset %= uint32(len(m.rom))
		}
		return m.rom[offset+uint32(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank) * 0x2000
		if offset >= uint32(len(m.ram)) {
			offset %= uint32(len(m.ram))
		}
		return m.ram[offset+uint32(addr-0xA000)]
	default:
		return 0xFF
	}
}

func (m *MBC5) Write(addr uint16, value uint8) uint8 {
	switch {
	case addr <= 0x1FFF:
		wasEnabled := m.ramEnabled
		m.ramEnabled = (value & 0x0F) == 0x0A
		if wasEnabled && !m.ramEnabled && m.hasBattery && m.onSave != nil {
			m.onSave()
		}
	case addr >= 0x2000 && addr <= 0x2FFF:
		// Low 8 bits of the ROM bank number
		m.romBank = (m.romBank & 0x100) | uint16(value)
	case addr >= 0x3000 && addr <= 0x3FFF:
		// Bit 8 of the ROM bank number
		m.romBank = (m.romBank & 0xFF) | (uint16(value&0x01) << 8)
	case addr >= 0x4000 && addr <= 0x5FFF:
		// RAM bank number (4 bits; the rumble motor, if present, steals bit 3)
		mask := uint8(0x0F)
		if m.hasRumble {
			mask = 0x07
		}
		m.ramBank = value & mask
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank) * 0x2000
		if offset >= uint32(len(m.ram)) {
			offset %= uint32(len(m.ram))
		}
		m.ram[offset+uint32(addr-0xA000)] = value
	}
	return value
}
