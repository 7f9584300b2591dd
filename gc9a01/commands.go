package gc9a01

// MIPI-DCS opcodes understood by the GC9A01.
const (
	cmdSWReset     = 0x01
	cmdSleepOut    = 0x11
	cmdInvertOff   = 0x20
	cmdInvertOn    = 0x21
	cmdDisplayOff  = 0x28
	cmdDisplayOn   = 0x29
	cmdColumnAddr  = 0x2A
	cmdRowAddr     = 0x2B
	cmdMemoryWrite = 0x2C
	cmdTearingOn   = 0x35
	cmdMADCTL      = 0x36
	cmdCOLMOD      = 0x3A
	cmdTearLine    = 0x44
)

// MADCTL register bits.
const (
	madctlMY  = 0x80 // row address order (mirror Y)
	madctlMX  = 0x40 // column address order (mirror X)
	madctlMV  = 0x20 // row/column exchange (swap axes)
	madctlBGR = 0x08 // BGR subpixel order
)

// DisplayMode selects whether the panel drives its output.
//
// The two SDK generations the original vendor code targets disagree on the
// polarity of their display on/off boolean; this enumeration is the only
// representation that crosses the package boundary.
type DisplayMode int

const (
	DisplayOn DisplayMode = iota
	DisplayOff
)

// displayCmds is the per-chip translation of DisplayMode to an opcode.
var displayCmds = map[DisplayMode]byte{
	DisplayOn:  cmdDisplayOn,
	DisplayOff: cmdDisplayOff,
}

// initCmd is one entry of the vendor initialization script: an opcode, up to
// 16 parameter bytes and the parameter count. A Len of endOfScript terminates
// the script.
type initCmd struct {
	Cmd  byte
	Data []byte
	Len  byte
}

const endOfScript = 0xFF

// initScript is the vendor configuration sequence for the GC9A01, reproduced
// from the datasheet. It is opaque register poking (inter-register access,
// power, gamma and timing setup), order-significant, and must not be reordered
// or coalesced. It ends with tearing-effect enable, sleep-out and display-on.
var initScript = []initCmd{
	{0xFE, nil, 0}, // inter register enable 1
	{0xEF, nil, 0}, // inter register enable 2
	{0xEB, []byte{0x14}, 1},
	{0x84, []byte{0x60}, 1},
	{0x85, []byte{0xFF}, 1},
	{0x86, []byte{0xFF}, 1},
	{0x87, []byte{0xFF}, 1},
	{0x8E, []byte{0xFF}, 1},
	{0x8F, []byte{0xFF}, 1},
	{0x88, []byte{0x0A}, 1},
	{0x89, []byte{0x21}, 1},
	{0x8A, []byte{0x00}, 1},
	{0x8B, []byte{0x80}, 1},
	{0x8C, []byte{0x01}, 1},
	{0x8D, []byte{0x03}, 1},
	{0xB5, []byte{0x08, 0x09, 0x14, 0x08}, 4},
	{0xB6, []byte{0x00, 0x00}, 2},
	{cmdMADCTL, []byte{0x48}, 1}, // MX, BGR
	{cmdCOLMOD, []byte{0x05}, 1}, // 16 bpp
	{0x90, []byte{0x08, 0x08, 0x08, 0x08}, 4},
	{0xBD, []byte{0x06}, 1},
	{0xBA, []byte{0x01}, 1},
	{0xBC, []byte{0x00}, 1},
	{0xFF, []byte{0x60, 0x01, 0x04}, 3},
	{0xC3, []byte{0x13}, 1}, // power control 2
	{0xC4, []byte{0x13}, 1}, // power control 3
	{0xC9, []byte{0x25}, 1}, // power control 4
	{0xBE, []byte{0x11}, 1},
	{0xE1, []byte{0x10, 0x0E}, 2},
	{0xDF, []byte{0x21, 0x0C, 0x02}, 3},
	{0xF0, []byte{0x45, 0x09, 0x08, 0x08, 0x26, 0x2A}, 6}, // gamma 1
	{0xF1, []byte{0x43, 0x70, 0x72, 0x36, 0x37, 0x6F}, 6}, // gamma 2
	{0xF2, []byte{0x45, 0x09, 0x08, 0x08, 0x26, 0x2A}, 6}, // gamma 3
	{0xF3, []byte{0x43, 0x70, 0x72, 0x36, 0x37, 0x6F}, 6}, // gamma 4
	{0xED, []byte{0x1B, 0x0B}, 2},
	{0xAE, []byte{0x77}, 1},
	{0xCD, []byte{0x63}, 1},
	{0x70, []byte{0x07, 0x07, 0x04, 0x0E, 0x0F, 0x09, 0x07, 0x08, 0x03}, 9},
	{0xE8, []byte{0x04}, 1}, // frame rate
	{0x62, []byte{0x18, 0x0D, 0x71, 0xED, 0x70, 0x70, 0x18, 0x0F, 0x71, 0xEF, 0x70, 0x70}, 12},
	{0x63, []byte{0x18, 0x11, 0x71, 0xF1, 0x70, 0x70, 0x18, 0x13, 0x71, 0xF3, 0x70, 0x70}, 12},
	{0x64, []byte{0x28, 0x29, 0xF1, 0x01, 0xF1, 0x00, 0x07}, 7},
	{0x66, []byte{0x3C, 0x00, 0xCD, 0x67, 0x45, 0x45, 0x10, 0x00, 0x00, 0x00}, 10},
	{0x67, []byte{0x00, 0x3C, 0x00, 0x00, 0x00, 0x01, 0x54, 0x10, 0x32, 0x98}, 10},
	{0x74, []byte{0x10, 0x85, 0x80, 0x00, 0x00, 0x4E, 0x00}, 7},
	{0x98, []byte{0x3E, 0x07}, 2},
	{0x99, []byte{0x3E, 0x07}, 2},
	{cmdTearingOn, []byte{0x00}, 1},      // TE on V-blanking only
	{cmdTearLine, []byte{0x00, 0x4A}, 2}, // tear scanline
	{cmdInvertOn, nil, 0},
	{cmdColumnAddr, []byte{0x00, 0x00, 0x00, 0xEF}, 4}, // columns 0..239
	{cmdRowAddr, []byte{0x00, 0x00, 0x00, 0xEF}, 4},    // rows 0..239
	{cmdMemoryWrite, nil, 0},
	{cmdSleepOut, nil, 0},
	{cmdDisplayOn, nil, 0},
	{Len: endOfScript},
}
