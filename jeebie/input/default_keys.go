package input

import "github.com/student/gameboy/jeebie/input/action"

// DefaultKeyMap provides default key mappings that work across backends.
// Backends translate their platform key names into these strings.
var DefaultKeyMap = map[string]action.Action{
	// Game Boy controls
	"z":     action.GBButtonA,
	"x":     action.GBButtonB,
	"Enter": action.GBButtonStart,
	"Shift": action.GBButtonSelect,
	"Up":    action.GBDPadUp,
	"Down":  action.GBDPadDown,
	"Left":  action.GBDPadLeft,
	"Right": action.GBDPadRight,

	// WASD alternative for the d-pad
	"w": action.GBDPadUp,
	"s": action.GBDPadDown,
	"a": action.GBDPadLeft,
	"d": action.GBDPadRight,

	// Emulator controls
	"Space":  action.EmulatorPauseToggle,
	"p":      action.EmulatorPauseToggle,
	"F9":     action.EmulatorSnapshot,
	"Escape": action.EmulatorQuit,
	"q":      action.EmulatorQuit,
}

// GetDefaultMapping returns the default action for a key, if one exists.
func GetDefaultMapping(key string) (action.Action, bool) {
	act, ok := DefaultKeyMap[key]
	return act, ok
}
