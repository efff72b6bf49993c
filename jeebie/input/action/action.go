package action

// Action represents input actions that can be performed in the emulator.
type Action int

const (
	// Game Boy hardware controls
	GBButtonA Action = iota
	GBButtonB
	GBButtonStart
	GBButtonSelect
	GBDPadUp
	GBDPadDown
	GBDPadLeft
	GBDPadRight

	// Emulator features
	EmulatorPauseToggle
	EmulatorSnapshot
	EmulatorQuit
)

// IsGameInput reports whether the action maps to one of the eight Game Boy
// inputs (as opposed to an emulator-level control).
func (a Action) IsGameInput() bool {
	return a >= GBButtonA && a <= GBDPadRight
}

func (a Action) String() string {
	switch a {
	case GBButtonA:
		return "A"
	case GBButtonB:
		return "B"
	case GBButtonStart:
		return "Start"
	case GBButtonSelect:
		return "Select"
	case GBDPadUp:
		return "Up"
	case GBDPadDown:
		return "Down"
	case GBDPadLeft:
		return "Left"
	case GBDPadRight:
		return "Right"
	case EmulatorPauseToggle:
		return "Pause"
	case EmulatorSnapshot:
		return "Snapshot"
	case EmulatorQuit:
		return "Quit"
	default:
		return "Unknown"
	}
}
