package memory

import (
	"hash/crc32"
	"log/slog"

	"github.com/student/gameboy/jeebie/bit"
)

const titleLength = 11

const (
	entryPointAddress       = 0x100
	logoAddress             = 0x104
	titleAddress            = 0x134
	manufacturerCodeAddress = 0x13F
	cgbFlagAddress          = 0x143
	newLicenseCodeAddress   = 0x144
	sgbFlagAddress          = 0x146
	cartridgeTypeAddress    = 0x147
	romSizeAddress          = 0x148
	ramSizeAddress          = 0x149
	destinationCodeAddress  = 0x14A
	oldLicenseCodeAddress   = 0x14B
	versionNumberAddress    = 0x14C
	headerChecksumAddress   = 0x14D
	globalChecksumAddress   = 0x14E
)

// MBCType identifies which memory bank controller a cartridge header asks for.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC2Type
	MBC5Type
	MBCUnknownType
)

// Cartridge holds the raw ROM image plus the header fields needed to pick an
// MBC implementation and to derive a save-file identity.
type Cartridge struct {
	data           []byte
	title          string
	headerChecksum uint16
	globalChecksum uint16
	version        uint8
	cartType       uint8
	romSize        uint8
	ramSize        uint8

	mbcType      MBCType
	hasBattery   bool
	hasRTC       bool
	hasRumble    bool
	ramBankCount uint8
	cgb          bool
	crc32        uint32
}

// NewCartridge creates an empty cartridge, useful only for debugging purposes.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:    make([]byte, 0x10000),
		mbcType: NoMBCType,
	}
}

// NewCartridgeWithData initializes a new Cartridge from a slice of bytes,
// parsing the header fields needed to select an MBC and to validate the ROM.
func NewCartridgeWithData(bytes []byte) *Cartridge {
	if len(bytes) < 0x150 {
		padded := make([]byte, 0x150)
		copy(padded, bytes)
		bytes = padded
	}
	titleBytes := bytes[titleAddress : titleAddress+titleLength]

	cart := &Cartridge{
		data:           make([]byte, len(bytes)),
		title:          cleanGameboyTitle(titleBytes),
		headerChecksum: bit.Combine(bytes[headerChecksumAddress+1], bytes[headerChecksumAddress]),
		globalChecksum: bit.Combine(bytes[globalChecksumAddress+1], bytes[globalChecksumAddress]),
		version:        bytes[versionNumberAddress],
		cartType:       bytes[cartridgeTypeAddress],
		romSize:        bytes[romSizeAddress],
		ramSize:        bytes[ramSizeAddress],
		cgb:            bytes[cgbFlagAddress]&0x80 != 0,
	}

	copy(cart.data, bytes)

	cart.mbcType, cart.hasBattery, cart.hasRTC, cart.hasRumble = decodeCartType(cart.cartType)
	cart.ramBankCount = decodeRAMBankCount(cart.ramSize, cart.mbcType)
	cart.crc32 = crc32.ChecksumIEEE(cart.data)

	if !cart.verifyHeaderChecksum() {
		slog.Warn("Cartridge header checksum mismatch", "title", cart.title, "cartType", cart.cartType)
	}

	return cart
}

// decodeCartType maps the cartridge-type byte (0x147) to an MBC selection and
// its accessory features, per the header table at
// https://gbdev.io/pandocs/The_Cartridge_Header.html#0147--cartridge-type.
func decodeCartType(cartType uint8) (mbc MBCType, battery, rtc, rumble bool) {
	switch cartType {
	case 0x00:
		return NoMBCType, false, false, false
	case 0x01, 0x02:
		return MBC1Type, false, false, false
	case 0x03:
		return MBC1Type, true, false, false
	case 0x05:
		return MBC2Type, false, false, false
	case 0x06:
		return MBC2Type, true, false, false
	case 0x19, 0x1A:
		return MBC5Type, false, false, false
	case 0x1B:
		return MBC5Type, true, false, false
	case 0x1C, 0x1D:
		return MBC5Type, false, false, true
	case 0x1E:
		return MBC5Type, true, false, true
	default:
		return MBCUnknownType, false, false, false
	}
}

// decodeRAMBankCount maps the RAM-size byte (0x149) to a bank count (8KiB
// each). MBC2's integrated RAM isn't sized by this field at all.
func decodeRAMBankCount(ramSize uint8, mbc MBCType) uint8 {
	if mbc == MBC2Type {
		return 0
	}
	switch ramSize {
	case 0x00, 0x01:
		return 0
	case 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	default:
		return 1
	}
}

// verifyHeaderChecksum recomputes the 0x134-0x14C checksum; a mismatch is
// logged as a warning rather than treated as fatal, matching real hardware
// (which only the DMG boot ROM enforces, and only superficially).
func (c *Cartridge) verifyHeaderChecksum() bool {
	if len(c.data) <= int(headerChecksumAddress) {
		return true
	}
	var sum uint8
	for i := titleAddress; i < headerChecksumAddress; i++ {
		sum = sum - c.data[i] - 1
	}
	return sum == uint8(c.headerChecksum)
}

// Title returns the cleaned-up cartridge title from the header.
func (c *Cartridge) Title() string { return c.title }

// CGB reports whether the cartridge declares CGB (or CGB-enhanced) support.
func (c *Cartridge) CGB() bool { return c.cgb }

// CRC32 returns the checksum of the whole ROM image, used together with the
// title to key save data.
func (c *Cartridge) CRC32() uint32 { return c.crc32 }

// SaveKey derives the identity a SaveStore uses to persist battery-backed RAM
// for this cartridge: "<title>-<CRC32(rom)>".
func (c *Cartridge) SaveKey() string {
	return fmt32Key(c.title, c.crc32)
}
