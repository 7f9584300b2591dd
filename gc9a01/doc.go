// Package gc9a01 controls a GC9A01 round LCD controller via SPI.
//
// The GC9A01 drives 240×240 round TFT panels in RGB565 or RGB666 and speaks
// the MIPI-DCS command set (CASET/RASET/RAMWR window addressing, MADCTL
// orientation, COLMOD pixel format) plus a vendor-specific initialization
// sequence that is reproduced here verbatim.
//
// # Basic usage
//
//	port, _ := spireg.Open("")
//	dc := gpioreg.ByName("GPIO4")
//	rst := gpioreg.ByName("GPIO2")
//
//	tr, _ := gc9a01.NewSPI(port, dc)
//	dev, _ := gc9a01.New(tr, &gc9a01.Opts{RST: rst})
//	dev.Reset()
//	dev.Init()
//	dev.SetDisplay(gc9a01.DisplayOn)
//
// Pixel data is streamed with DrawRegion, or through the display.Drawer
// interface with Draw. Frame pacing against the panel's tearing-effect line
// lives in the flush package; this package only produces the byte-exact
// command sequences.
//
// # Transport
//
// The driver talks to the wire through the Transport interface: a command
// byte plus a short parameter array, or a command byte plus a bulk pixel
// payload with a completion callback. NewSPI provides the 4-wire SPI
// implementation (DC low for commands, high for data). Transmission errors
// are surfaced to the caller verbatim; retry policy belongs above this
// layer, since a partial transfer may have left the panel addressing state
// inconsistent.
//
// # Orientation
//
// Mirror and SwapAxes maintain a mirror of the MADCTL register and transmit
// it on every change. The bits are independent, so the calls commute; any
// order of operations producing the same bit set yields the same register
// value on the panel.
package gc9a01
