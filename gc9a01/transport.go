package gc9a01

import (
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Transport moves opcodes and their payloads to the panel controller.
//
// SendCommand transmits a command byte followed by 0 to 16 parameter bytes.
// SendBulk transmits a command byte followed by a pixel payload; done, if not
// nil, is invoked exactly once when the payload transfer has finished and may
// run in a different goroutine than the caller's. Multi-byte values inside
// params and data are MSB-first.
//
// Implementations report transmission failures verbatim; the panel driver
// never retries or rewrites them.
type Transport interface {
	SendCommand(cmd byte, params []byte) error
	SendBulk(cmd byte, data []byte, done func()) error
}

// SPI is a Transport over a 4-wire serial link: the DC line is held low for
// the command byte and high for parameter and pixel bytes.
type SPI struct {
	c         conn.Conn
	dc        gpio.PinOut
	maxTxSize int
}

// NewSPI connects to the panel on the given SPI port.
//
// The port is configured for 80MHz, Mode0 (CPOL=0, CPHA=0), 8-bit transfers,
// matching the GC9A01's maximum serial clock. dc is the Data/Command pin.
func NewSPI(p spi.Port, dc gpio.PinOut) (*SPI, error) {
	c, err := p.Connect(80*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}
	return newSPIConn(c, dc), nil
}

func newSPIConn(c conn.Conn, dc gpio.PinOut) *SPI {
	// Bulk writes are split to the connection's transaction limit,
	// otherwise 4096 bytes as a conservative default.
	maxTxSize := 0
	if limits, ok := c.(conn.Limits); ok {
		maxTxSize = limits.MaxTxSize()
	}
	if maxTxSize == 0 {
		maxTxSize = 4096
	}
	return &SPI{c: c, dc: dc, maxTxSize: maxTxSize}
}

// SendCommand implements Transport.
func (s *SPI) SendCommand(cmd byte, params []byte) error {
	if err := s.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := s.c.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(params) == 0 {
		return nil
	}
	if err := s.dc.Out(gpio.High); err != nil {
		return err
	}
	return s.c.Tx(params, nil)
}

// SendBulk implements Transport. done fires after the final chunk is on the
// wire.
func (s *SPI) SendBulk(cmd byte, data []byte, done func()) error {
	if err := s.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := s.c.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if err := s.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) != 0 {
		chunk := data
		if len(chunk) > s.maxTxSize {
			chunk = data[:s.maxTxSize]
		}
		if err := s.c.Tx(chunk, nil); err != nil {
			return err
		}
		data = data[len(chunk):]
	}
	if done != nil {
		done()
	}
	return nil
}
