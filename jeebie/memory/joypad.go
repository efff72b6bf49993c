package memory

// JoypadKey identifies one of the eight Game Boy inputs.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Joypad models the P1 register: two 4-bit button groups (d-pad and
// A/B/Select/Start) selected by bits 4-5, active low throughout. Pressing a
// currently-selected input requests the Joypad interrupt.
type Joypad struct {
	buttons uint8 // A/B/Select/Start in bits 0-3, 1 = released
	dpad    uint8 // Right/Left/Up/Down in bits 0-3, 1 = released
	p1      uint8 // last written selection bits (4-5)
}

// NewJoypad creates a joypad with every input released and nothing selected.
func NewJoypad() *Joypad {
	return &Joypad{
		buttons: 0x0F,
		dpad:    0x0F,
		p1:      0x30,
	}
}

// Read returns the P1 byte: the unused bits 6-7 always high, the selection
// bits as written, and the low nybble reflecting whichever group(s) the
// selection bits choose. Selecting both groups ANDs them; selecting neither
// reads the bus floating high.
func (j *Joypad) Read() uint8 {
	result := uint8(0xC0) | (j.p1 & 0x30)

	selectDpad := j.p1&0x10 == 0
	selectButtons := j.p1&0x20 == 0

	switch {
	case selectButtons && !selectDpad:
		result |= j.buttons & 0x0F
	case selectDpad && !selectButtons:
		result |= j.dpad & 0x0F
	case selectButtons && selectDpad:
		result |= j.buttons & j.dpad & 0x0F
	default:
		result |= 0x0F
	}

	return result
}

// Write stores the selection bits; the low nybble is read-only.
func (j *Joypad) Write(value uint8) {
	j.p1 = value & 0x30
}

func (j *Joypad) keyBit(key JoypadKey) (group *uint8, mask uint8, selected bool) {
	switch key {
	case JoypadRight, JoypadLeft, JoypadUp, JoypadDown:
		return &j.dpad, 1 << (key - JoypadRight), j.p1&0x10 == 0
	default:
		return &j.buttons, 1 << (key - JoypadA), j.p1&0x20 == 0
	}
}

// Press marks a key down. It reports whether this is a fresh press of an
// input in a selected group, which is exactly when hardware pulls the
// Joypad interrupt line.
func (j *Joypad) Press(key JoypadKey) bool {
	group, mask, selected := j.keyBit(key)
	wasReleased := *group&mask != 0
	*group &^= mask
	return wasReleased && selected
}

// Release marks a key up.
func (j *Joypad) Release(key JoypadKey) {
	group, mask, _ := j.keyBit(key)
	*group |= mask
}
