package gc9a01

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Order is the subpixel order of the attached panel glass.
type Order int

const (
	RGB Order = iota
	BGR
)

var (
	// ErrUnsupportedFormat is returned when the requested color order or
	// bit depth is not supported by the GC9A01.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	// ErrInvalidGeometry is returned for a draw region whose bounds are not
	// strictly increasing.
	ErrInvalidGeometry = errors.New("invalid draw region")
)

// Opts is the configuration for the GC9A01 panel.
type Opts struct {
	// Display dimensions in pixels (default: 240x240).
	W int
	H int

	// Order is the subpixel order, RGB or BGR.
	Order Order
	// BitsPerPixel is 16 (RGB565) or 18 (RGB666). Default: 16.
	BitsPerPixel int

	// RST is the optional hardware reset line (nil if not wired).
	RST gpio.PinIO
	// ResetActiveHigh inverts the reset polarity; the line is active low by
	// default.
	ResetActiveHigh bool
}

// Dev is the device handle for the GC9A01 panel.
//
// It owns the register mirror for MADCTL and COLMOD; all mutation goes
// through its methods.
type Dev struct {
	t Transport

	rect image.Rectangle
	bpp  int

	rst        gpio.PinIO
	resetLevel gpio.Level // level that asserts reset

	xGap, yGap int
	madctl     byte
	colmod     byte

	transferDone func()
}

// New creates a GC9A01 device handle on top of a Transport.
//
// No bytes are transmitted; call Reset and Init to bring the panel up.
func New(t Transport, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	w, h := opts.W, opts.H
	if w == 0 {
		w = 240
	}
	if h == 0 {
		h = 240
	}
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("gc9a01: invalid dimensions %dx%d", w, h)
	}

	d := &Dev{
		t:    t,
		rect: image.Rect(0, 0, w, h),
	}

	switch opts.Order {
	case RGB:
	case BGR:
		d.madctl |= madctlBGR
	default:
		return nil, fmt.Errorf("gc9a01: color order %d: %w", opts.Order, ErrUnsupportedFormat)
	}

	bpp := opts.BitsPerPixel
	if bpp == 0 {
		bpp = 16
	}
	switch bpp {
	case 16:
		d.colmod = 0x55
	case 18:
		d.colmod = 0x66
	default:
		return nil, fmt.Errorf("gc9a01: %d bits per pixel: %w", bpp, ErrUnsupportedFormat)
	}
	d.bpp = bpp

	if opts.RST != nil {
		d.rst = opts.RST
		d.resetLevel = gpio.Level(opts.ResetActiveHigh)
		if err := d.rst.Out(!d.resetLevel); err != nil {
			return nil, fmt.Errorf("gc9a01: configuring RST line: %w", err)
		}
	}

	return d, nil
}

// Reset resets the panel.
//
// With a reset line configured this is a hardware reset: the line is asserted
// for 10ms, then deasserted for another 10ms. Without one, a software reset
// command is sent and the datasheet-mandated settle time is observed. Either
// way the call blocks for the full duration.
func (d *Dev) Reset() error {
	if d.rst != nil {
		if err := d.rst.Out(d.resetLevel); err != nil {
			return fmt.Errorf("gc9a01: asserting RST: %w", err)
		}
		time.Sleep(10 * time.Millisecond)
		if err := d.rst.Out(!d.resetLevel); err != nil {
			return fmt.Errorf("gc9a01: deasserting RST: %w", err)
		}
		time.Sleep(10 * time.Millisecond)
		return nil
	}
	if err := d.t.SendCommand(cmdSWReset, nil); err != nil {
		return err
	}
	// The chip accepts no command for a while after SWRESET.
	time.Sleep(20 * time.Millisecond)
	return nil
}

// Init transmits the vendor initialization script.
//
// The script entries are applied strictly in order with no inter-command
// delay. The panel is left in sleep-out, display-on state.
func (d *Dev) Init() error {
	for _, c := range initScript {
		if c.Len == endOfScript {
			break
		}
		if err := d.t.SendCommand(c.Cmd, c.Data[:c.Len&0x1F]); err != nil {
			return err
		}
	}
	return nil
}

// DrawRegion streams pix into the rectangular window r.
//
// r is half-open on its end bounds and must have strictly increasing bounds.
// The configured gaps are added to all four bounds before encoding. pix must
// hold exactly r.Dx()*r.Dy()*bpp/8 bytes; the caller is responsible for
// sizing it.
func (d *Dev) DrawRegion(r image.Rectangle, pix []byte) error {
	if r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y {
		return fmt.Errorf("gc9a01: region %v: %w", r, ErrInvalidGeometry)
	}
	x0 := r.Min.X + d.xGap
	x1 := r.Max.X + d.xGap
	y0 := r.Min.Y + d.yGap
	y1 := r.Max.Y + d.yGap

	// Window select: start and inclusive end, big-endian 16-bit each.
	var col, row [4]byte
	binary.BigEndian.PutUint16(col[0:2], uint16(x0))
	binary.BigEndian.PutUint16(col[2:4], uint16(x1-1))
	if err := d.t.SendCommand(cmdColumnAddr, col[:]); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(row[0:2], uint16(y0))
	binary.BigEndian.PutUint16(row[2:4], uint16(y1-1))
	if err := d.t.SendCommand(cmdRowAddr, row[:]); err != nil {
		return err
	}
	return d.t.SendBulk(cmdMemoryWrite, pix, d.transferDone)
}

// Invert enables or disables display color inversion.
func (d *Dev) Invert(invert bool) error {
	cmd := byte(cmdInvertOff)
	if invert {
		cmd = cmdInvertOn
	}
	return d.t.SendCommand(cmd, nil)
}

// Mirror mirrors the display along the X and/or Y axis.
//
// The MX/MY bits are independent; Mirror and SwapAxes commute. Each call
// transmits the updated MADCTL register.
func (d *Dev) Mirror(mirrorX, mirrorY bool) error {
	if mirrorX {
		d.madctl |= madctlMX
	} else {
		d.madctl &^= madctlMX
	}
	if mirrorY {
		d.madctl |= madctlMY
	} else {
		d.madctl &^= madctlMY
	}
	return d.t.SendCommand(cmdMADCTL, []byte{d.madctl})
}

// SwapAxes exchanges the row and column axes, rotating the display.
func (d *Dev) SwapAxes(swap bool) error {
	if swap {
		d.madctl |= madctlMV
	} else {
		d.madctl &^= madctlMV
	}
	return d.t.SendCommand(cmdMADCTL, []byte{d.madctl})
}

// SetGap stores pixel offsets added to every subsequent DrawRegion window.
// Nothing is transmitted.
func (d *Dev) SetGap(x, y int) {
	d.xGap = x
	d.yGap = y
}

// SetDisplay turns the panel output on or off.
func (d *Dev) SetDisplay(mode DisplayMode) error {
	cmd, ok := displayCmds[mode]
	if !ok {
		return fmt.Errorf("gc9a01: unknown display mode %d", mode)
	}
	return d.t.SendCommand(cmd, nil)
}

// OnTransferDone registers fn to be invoked when a DrawRegion bulk transfer
// completes. fn may run in the transport's completion context; it must not
// block.
func (d *Dev) OnTransferDone(fn func()) {
	d.transferDone = fn
}

// Halt releases the reset line if one was configured. The panel itself is
// left untouched.
func (d *Dev) Halt() error {
	if d.rst != nil {
		return d.rst.Halt()
	}
	return nil
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return color.RGBAModel
}

// Draw draws src onto the display region dst, converting pixels to
// big-endian RGB565. It implements display.Drawer for 16bpp panels.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.bpp != 16 {
		return fmt.Errorf("gc9a01: Draw requires 16 bits per pixel: %w", ErrUnsupportedFormat)
	}
	dst = dst.Intersect(d.rect)
	if dst.Empty() {
		return nil
	}
	pix := make([]byte, dst.Dx()*dst.Dy()*2)
	i := 0
	for y := 0; y < dst.Dy(); y++ {
		for x := 0; x < dst.Dx(); x++ {
			r, g, b, _ := src.At(sp.X+x, sp.Y+y).RGBA()
			binary.BigEndian.PutUint16(pix[i:], uint16(r&0xF800)|uint16((g>>5)&0x07E0)|uint16(b>>11))
			i += 2
		}
	}
	return d.DrawRegion(dst, pix)
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("gc9a01.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}
