package display

// RGBA pixel format constants
const (
	// RGBABytesPerPixel is the number of bytes per pixel in RGBA format
	RGBABytesPerPixel = 4
	// RGBARShift is the bit shift for the red component in RGBA format
	RGBARShift = 24
	// RGBAGShift is the bit shift for the green component in RGBA format
	RGBAGShift = 16
	// RGBABShift is the bit shift for the blue component in RGBA format
	RGBABShift = 8
	// RGBAColorMask is the mask for extracting color components
	RGBAColorMask = 0xFF
)

// Backend scaling and window constants
const (
	// DefaultPixelScale is the default scaling factor for Game Boy pixels
	DefaultPixelScale = 4
	// DefaultWindowWidth is the default window width (GameBoy width * scale)
	DefaultWindowWidth = 160 * DefaultPixelScale // 640
	// DefaultWindowHeight is the default window height (GameBoy height * scale)
	DefaultWindowHeight = 144 * DefaultPixelScale // 576
)
