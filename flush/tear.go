package flush

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// tearLine mirrors the level of the panel's tearing-effect signal into a
// consumable token. The token state follows the line: a rising edge
// publishes it, a falling edge revokes it even when nobody consumed it yet.
type tearLine struct {
	pin gpio.PinIn

	mu     sync.Mutex
	cond   *sync.Cond
	ready  bool
	closed bool
}

func watchTear(pin gpio.PinIn) (*tearLine, error) {
	if err := pin.In(gpio.PullNoChange, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("flush: configuring TE line: %w", err)
	}
	t := &tearLine{pin: pin}
	t.cond = sync.NewCond(&t.mu)
	go t.watch()
	return t, nil
}

// watch runs in place of the TE edge interrupt: it only updates the token
// and wakes waiters, never touching panel or buffer state.
func (t *tearLine) watch() {
	for t.pin.WaitForEdge(-1) {
		level := t.pin.Read()
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return
		}
		t.ready = level == gpio.High
		if t.ready {
			t.cond.Broadcast()
		}
		t.mu.Unlock()
	}
}

// wait blocks until the blanking token is available, then consumes it. The
// wait is unbounded; a TE line that stops toggling stalls the caller.
func (t *tearLine) wait() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for !t.ready && !t.closed {
		t.cond.Wait()
	}
	if t.closed {
		return ErrClosed
	}
	t.ready = false
	return nil
}

func (t *tearLine) close() {
	t.mu.Lock()
	t.closed = true
	t.cond.Broadcast()
	t.mu.Unlock()
	t.pin.Halt()
}
