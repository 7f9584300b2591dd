package encoder

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Button is a single GPIO push button, wired active low.
type Button struct {
	pin gpio.PinIO
}

// NewButton configures pin as a floating input.
func NewButton(pin gpio.PinIO) (*Button, error) {
	if pin == nil {
		return nil, errors.New("encoder: button pin is required")
	}
	if err := pin.In(gpio.Float, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("encoder: configuring %s: %w", pin, err)
	}
	return &Button{pin: pin}, nil
}

// Read returns the raw line level.
func (b *Button) Read() gpio.Level {
	return b.pin.Read()
}

// Pressed reports whether the button is held down.
func (b *Button) Pressed() bool {
	return b.pin.Read() == gpio.Low
}
