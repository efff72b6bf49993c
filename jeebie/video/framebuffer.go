package video

type GBColor uint32

const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
	FramebufferSize   = FramebufferWidth * FramebufferHeight
)

// The four DMG shades, packed as 0xRRGGBBAA. Shade 0 is the lightest; BGP
// and the object palettes remap color indices onto these.
const (
	WhiteColor     GBColor = 0xFFFFFFFF
	LightGreyColor GBColor = 0xAAAAAAFF
	DarkGreyColor  GBColor = 0x555555FF
	BlackColor     GBColor = 0x000000FF
)

func ByteToColor(value byte) GBColor {
	switch value {
	case 0:
		return WhiteColor
	case 1:
		return LightGreyColor
	case 2:
		return DarkGreyColor
	case 3:
		return BlackColor
	}

	return WhiteColor
}

// FrameBuffer is the 160x144 output surface the PPU composes into. Hosts
// receive a borrowed view of it once per frame; drawing never allocates.
type FrameBuffer struct {
	width  uint
	height uint
	buffer []uint32
}

func NewFrameBuffer() *FrameBuffer {
	colorSlice := make([]uint32, FramebufferSize)

	return &FrameBuffer{
		width:  FramebufferWidth,
		height: FramebufferHeight,
		buffer: colorSlice,
	}
}

func (fb FrameBuffer) GetPixel(x, y uint) uint32 {
	return fb.buffer[y*fb.width+x]
}

func (fb *FrameBuffer) SetPixel(x, y uint, color GBColor) {
	fb.buffer[y*fb.width+x] = uint32(color)
}

func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}

// Clear resets the framebuffer to a white (LCD off) screen.
func (fb *FrameBuffer) Clear() {
	for i := range fb.buffer {
		fb.buffer[i] = uint32(WhiteColor)
	}
}

// ToRGB flattens the frame into 144x160 RGB triples, the layout reference
// images (PPM) use.
func (fb *FrameBuffer) ToRGB() []byte {
	data := make([]byte, len(fb.buffer)*3)
	for i, pixel := range fb.buffer {
		data[i*3] = byte(pixel >> 24)
		data[i*3+1] = byte(pixel >> 16)
		data[i*3+2] = byte(pixel >> 8)
	}
	return data
}

// asciiShades maps the four DMG shade indices to printable glyphs, light to
// dark. Test ROM output rendered this way stays readable in a diff.
var asciiShades = [4]byte{' ', '.', 'o', '#'}

// ToASCII renders the frame as 144 newline-terminated rows of shade glyphs.
func (fb *FrameBuffer) ToASCII() string {
	shades := fb.ToGrayscale()
	out := make([]byte, 0, (FramebufferWidth+1)*FramebufferHeight)
	for y := 0; y < FramebufferHeight; y++ {
		row := shades[y*FramebufferWidth : (y+1)*FramebufferWidth]
		for _, s := range row {
			out = append(out, asciiShades[s&0x03])
		}
		out = append(out, '\n')
	}
	return string(out)
}

// ToGrayscale reduces each pixel to its DMG shade index (0 lightest,
// 3 darkest), for compact comparisons in tests and snapshots.
func (fb *FrameBuffer) ToGrayscale() []byte {
	data := make([]byte, len(fb.buffer))
	for i, pixel := range fb.buffer {
		switch GBColor(pixel) {
		case WhiteColor:
			data[i] = 0
		case LightGreyColor:
			data[i] = 1
		case DarkGreyColor:
			data[i] = 2
		case BlackColor:
			data[i] = 3
		default:
			// arbitrary CGB color: bucket by red channel
			data[i] = 3 - byte(pixel>>30)
		}
	}
	return data
}
