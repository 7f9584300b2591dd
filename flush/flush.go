// Package flush paces frame delivery to the panel.
//
// A Pipeline owns two transfer-capable frame buffers and hands them
// alternately to the renderer. Flushing a buffer is gated on two independent
// conditions: the previous bulk transfer must have completed (exactly one
// transfer is outstanding at any time), and, when tear avoidance is enabled,
// the panel's tearing-effect line must indicate a blanking interval. The
// second gate tracks the line's level rather than counting edges: a token
// published by a rising edge is revoked again by a falling edge, so a flush
// never starts a transfer that would straddle an active-scan boundary.
package flush

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// ErrClosed is returned by operations on a closed Pipeline.
var ErrClosed = errors.New("flush: pipeline closed")

// Panel is the subset of the panel driver the pipeline drives.
type Panel interface {
	DrawRegion(r image.Rectangle, pix []byte) error
}

// Opts is the configuration for a Pipeline.
type Opts struct {
	// AvoidTear gates every flush on the display blanking interval.
	AvoidTear bool
	// TE is the tearing-effect line from the panel. Required when AvoidTear
	// is set; it is configured for both-edge detection.
	TE gpio.PinIn
}

// Pipeline coordinates double-buffered frame delivery to a Panel.
//
// The renderer draws into Buffer and submits it with Flush. TransferDone
// must be wired to the transport's bulk-completion callback; until it fires,
// the flushed buffer belongs to the hardware and the next Flush blocks.
type Pipeline struct {
	panel Panel
	bpp   int
	tear  *tearLine

	// mu is the render lock shared by arbitrary caller tasks; the
	// pipeline's internal path never re-acquires it.
	mu sync.Mutex

	cmu      sync.Mutex
	done     *sync.Cond
	inflight bool
	closed   bool

	bufs [2][]byte
	back int
}

// New creates a Pipeline delivering w×h frames at the given bit depth.
func New(panel Panel, w, h, bpp int, opts *Opts) (*Pipeline, error) {
	if panel == nil {
		return nil, errors.New("flush: nil panel")
	}
	if w <= 0 || h <= 0 || bpp <= 0 {
		return nil, fmt.Errorf("flush: invalid frame geometry %dx%d/%dbpp", w, h, bpp)
	}
	var o Opts
	if opts != nil {
		o = *opts
	}

	p := &Pipeline{panel: panel, bpp: bpp}
	p.done = sync.NewCond(&p.cmu)
	size := w * h * bpp / 8
	p.bufs[0] = make([]byte, size)
	p.bufs[1] = make([]byte, size)

	if o.AvoidTear {
		if o.TE == nil {
			return nil, errors.New("flush: tear avoidance requires a TE pin")
		}
		t, err := watchTear(o.TE)
		if err != nil {
			return nil, err
		}
		p.tear = t
	}
	return p, nil
}

// Buffer returns the frame buffer currently owned by the renderer. The
// returned slice stays valid until it is submitted with Flush.
func (p *Pipeline) Buffer() []byte {
	return p.bufs[p.back]
}

// Flush submits the renderer's buffer for the window r.
//
// It blocks until the previous transfer has completed and, with tear
// avoidance enabled, until the blanking token is available — an unbounded
// wait that re-blocks if the token is revoked before it could be consumed.
// On return the other frame buffer is handed to the renderer; the submitted
// one is released by TransferDone.
func (p *Pipeline) Flush(r image.Rectangle) error {
	buf := p.bufs[p.back]
	n := r.Dx() * r.Dy() * p.bpp / 8
	if n <= 0 {
		return fmt.Errorf("flush: empty region %v", r)
	}
	if n > len(buf) {
		return fmt.Errorf("flush: region %v exceeds the frame buffer", r)
	}
	if err := p.waitIdle(); err != nil {
		return err
	}
	if p.tear != nil {
		if err := p.tear.wait(); err != nil {
			return err
		}
	}
	p.cmu.Lock()
	p.inflight = true
	p.cmu.Unlock()
	if err := p.panel.DrawRegion(r, buf[:n]); err != nil {
		p.cmu.Lock()
		p.inflight = false
		p.cmu.Unlock()
		return err
	}
	p.back ^= 1
	return nil
}

func (p *Pipeline) waitIdle() error {
	p.cmu.Lock()
	defer p.cmu.Unlock()
	for p.inflight && !p.closed {
		p.done.Wait()
	}
	if p.closed {
		return ErrClosed
	}
	return nil
}

// TransferDone releases the in-flight buffer back to the renderer.
//
// It is intended to be called from the transport's completion context and
// performs only a token set and a wakeup, so it is safe in interrupt-like
// contexts.
func (p *Pipeline) TransferDone() {
	p.cmu.Lock()
	p.inflight = false
	p.done.Broadcast()
	p.cmu.Unlock()
}

// WaitFlushReady blocks until the display is inside its blanking interval
// and consumes the token. It returns immediately when tear avoidance is
// disabled.
func (p *Pipeline) WaitFlushReady() error {
	if p.tear == nil {
		return nil
	}
	return p.tear.wait()
}

// Lock acquires the render lock. Caller tasks invoking panel operations
// outside the pipeline must hold it.
func (p *Pipeline) Lock() {
	p.mu.Lock()
}

// Unlock releases the render lock.
func (p *Pipeline) Unlock() {
	p.mu.Unlock()
}

// Do runs fn under the render lock.
func (p *Pipeline) Do(fn func() error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn()
}

// Close unblocks every waiter with ErrClosed and stops the TE watcher.
func (p *Pipeline) Close() error {
	p.cmu.Lock()
	p.closed = true
	p.done.Broadcast()
	p.cmu.Unlock()
	if p.tear != nil {
		p.tear.close()
	}
	return nil
}
