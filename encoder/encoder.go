// Package encoder decodes a two-phase rotary encoder and reads push buttons.
//
// Edge detection runs in per-phase watcher goroutines that do bounded work:
// they push the reporting phase's identity into a bounded queue and nothing
// else. A single decode goroutine drains the queue, filters contact bounce
// by re-reading the line level, and commits one signed step per detent once
// both phases have reported. The accumulated position is readable from any
// goroutine without locking.
package encoder

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
)

type phase uint8

const (
	phaseA phase = iota
	phaseB
)

const defaultQueueDepth = 10

// Opts is the configuration for a rotary encoder.
type Opts struct {
	// OnIncrement and OnDecrement are invoked synchronously from the decode
	// goroutine on each committed step. Either may be nil.
	OnIncrement func()
	OnDecrement func()
	// QueueDepth bounds the edge event queue (default: 10). Edges arriving
	// while the queue is full are dropped.
	QueueDepth int
}

// Dev is a quadrature-decoded rotary encoder on two GPIO phases.
type Dev struct {
	a, b  gpio.PinIO
	onInc func()
	onDec func()

	events chan phase
	done   chan struct{}
	stop   sync.Once

	// Decode state, touched only by the decode goroutine.
	levelA, levelB     gpio.Level
	changedA, changedB bool
	dir                int32

	position atomic.Int32
	lastRead atomic.Int32
}

// New configures both phase pins with pull-ups and both-edge detection,
// samples their initial levels and starts the watcher and decode goroutines.
func New(a, b gpio.PinIO, opts *Opts) (*Dev, error) {
	if a == nil || b == nil {
		return nil, errors.New("encoder: both phase pins are required")
	}
	var o Opts
	if opts != nil {
		o = *opts
	}
	depth := o.QueueDepth
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	for _, p := range []gpio.PinIO{a, b} {
		if err := p.In(gpio.PullUp, gpio.BothEdges); err != nil {
			return nil, fmt.Errorf("encoder: configuring %s: %w", p, err)
		}
	}

	d := &Dev{
		a:      a,
		b:      b,
		onInc:  o.OnIncrement,
		onDec:  o.OnDecrement,
		events: make(chan phase, depth),
		done:   make(chan struct{}),
	}
	d.levelA = a.Read()
	d.levelB = b.Read()

	go d.watch(a, phaseA)
	go d.watch(b, phaseB)
	go d.decode()
	return d, nil
}

// watch stands in for the edge interrupt handler: bounded work, push-only.
func (d *Dev) watch(pin gpio.PinIO, ph phase) {
	for pin.WaitForEdge(-1) {
		select {
		case <-d.done:
			return
		case d.events <- ph:
		default:
			// Queue full, edge dropped.
		}
	}
}

func (d *Dev) decode() {
	for {
		select {
		case <-d.done:
			return
		case ph := <-d.events:
			d.step(ph)
		}
	}
}

// step applies one phase report.
//
// A report whose re-read level equals the stored level is contact bounce and
// is discarded. An accepted change marks the phase as reported and computes
// the step direction from its new level against the other phase's stored
// level. The detent commits once both phases have reported since the last
// commit; the finalizing phase's comparison decides the committed direction.
// Requiring both phases halves the raw edge resolution but suppresses bounce
// that toggles only one channel.
func (d *Dev) step(ph phase) {
	switch ph {
	case phaseA:
		l := d.a.Read()
		if l == d.levelA {
			return
		}
		d.levelA = l
		d.changedA = true
		if d.levelA != d.levelB {
			d.dir = 1
		} else {
			d.dir = -1
		}
	case phaseB:
		l := d.b.Read()
		if l == d.levelB {
			return
		}
		d.levelB = l
		d.changedB = true
		if d.levelA == d.levelB {
			d.dir = 1
		} else {
			d.dir = -1
		}
	}
	if d.changedA && d.changedB {
		d.position.Add(d.dir)
		if d.dir > 0 {
			if d.onInc != nil {
				d.onInc()
			}
		} else if d.onDec != nil {
			d.onDec()
		}
		d.changedA = false
		d.changedB = false
		d.dir = 0
	}
}

// Position returns the accumulated step count. The decode goroutine is the
// sole writer, so the read is lock-free.
func (d *Dev) Position() int32 {
	return d.position.Load()
}

// Delta returns the movement since the previous Delta call, for poll-driven
// input layers.
func (d *Dev) Delta() int32 {
	v := d.position.Load()
	return v - d.lastRead.Swap(v)
}

// Close stops the watcher and decode goroutines and halts edge detection on
// both pins.
func (d *Dev) Close() error {
	d.stop.Do(func() {
		close(d.done)
		d.a.Halt()
		d.b.Halt()
	})
	return nil
}
