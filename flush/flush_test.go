package flush

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type drawCall struct {
	r image.Rectangle
	n int
	p *byte // first payload byte, to identify which buffer was sent
}

type fakePanel struct {
	mu    sync.Mutex
	draws []drawCall
	err   error
}

func (f *fakePanel) DrawRegion(r image.Rectangle, pix []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.draws = append(f.draws, drawCall{r: r, n: len(pix), p: &pix[0]})
	return nil
}

func (f *fakePanel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.draws)
}

func waitFor(t *testing.T, what string, f func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !f() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFlushDelivers(t *testing.T) {
	panel := &fakePanel{}
	p, err := New(panel, 4, 4, 16, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if len(p.Buffer()) != 4*4*2 {
		t.Fatalf("Buffer len = %d, want 32", len(p.Buffer()))
	}
	if err := p.Flush(image.Rect(0, 0, 4, 4)); err != nil {
		t.Fatal(err)
	}
	if panel.count() != 1 {
		t.Fatalf("draw count = %d, want 1", panel.count())
	}
	if panel.draws[0].n != 32 {
		t.Errorf("draw payload = %d bytes, want 32", panel.draws[0].n)
	}
}

func TestFlushRegionExceedsBuffer(t *testing.T) {
	panel := &fakePanel{}
	p, err := New(panel, 4, 4, 16, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if err := p.Flush(image.Rect(0, 0, 8, 8)); err == nil {
		t.Error("oversized region should be rejected")
	}
	if err := p.Flush(image.Rectangle{}); err == nil {
		t.Error("empty region should be rejected")
	}
	if panel.count() != 0 {
		t.Errorf("rejected flushes reached the panel %d times", panel.count())
	}
}

func TestBufferAlternates(t *testing.T) {
	panel := &fakePanel{}
	p, err := New(panel, 2, 2, 16, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	first := &p.Buffer()[0]
	if err := p.Flush(image.Rect(0, 0, 2, 2)); err != nil {
		t.Fatal(err)
	}
	p.TransferDone()
	second := &p.Buffer()[0]
	if first == second {
		t.Fatal("Buffer did not rotate after Flush")
	}
	if err := p.Flush(image.Rect(0, 0, 2, 2)); err != nil {
		t.Fatal(err)
	}
	p.TransferDone()
	if &p.Buffer()[0] != first {
		t.Error("Buffer should alternate between the two frame buffers")
	}
	if panel.draws[0].p != first || panel.draws[1].p != second {
		t.Error("draws did not carry the buffers in submission order")
	}
}

func TestSecondFlushWaitsForCompletion(t *testing.T) {
	panel := &fakePanel{}
	p, err := New(panel, 2, 2, 16, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if err := p.Flush(image.Rect(0, 0, 2, 2)); err != nil {
		t.Fatal(err)
	}

	flushed := make(chan error, 1)
	go func() { flushed <- p.Flush(image.Rect(0, 0, 2, 2)) }()

	select {
	case err := <-flushed:
		t.Fatalf("second flush completed before TransferDone (err=%v)", err)
	case <-time.After(50 * time.Millisecond):
	}

	p.TransferDone()
	select {
	case err := <-flushed:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second flush did not complete after TransferDone")
	}
	if panel.count() != 2 {
		t.Errorf("draw count = %d, want 2", panel.count())
	}
}

func TestTearGatesFlush(t *testing.T) {
	te := &gpiotest.Pin{N: "TE", EdgesChan: make(chan gpio.Level)}
	panel := &fakePanel{}
	p, err := New(panel, 2, 2, 16, &Opts{AvoidTear: true, TE: te})
	if err != nil {
		t.Fatal(err)
	}

	flushed := make(chan error, 1)
	go func() { flushed <- p.Flush(image.Rect(0, 0, 2, 2)) }()

	select {
	case <-flushed:
		t.Fatal("flush completed while the blanking token was unavailable")
	case <-time.After(50 * time.Millisecond):
	}
	if panel.count() != 0 {
		t.Fatal("draw issued while the blanking token was unavailable")
	}

	te.EdgesChan <- gpio.High
	select {
	case err := <-flushed:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("flush did not complete after the rising edge")
	}
	if panel.count() != 1 {
		t.Errorf("draw count = %d, want 1", panel.count())
	}
}

func TestTearTokenRevoked(t *testing.T) {
	te := &gpiotest.Pin{N: "TE", EdgesChan: make(chan gpio.Level)}
	panel := &fakePanel{}
	p, err := New(panel, 2, 2, 16, &Opts{AvoidTear: true, TE: te})
	if err != nil {
		t.Fatal(err)
	}

	ready := func() bool {
		p.tear.mu.Lock()
		defer p.tear.mu.Unlock()
		return p.tear.ready
	}

	// Publish the token, then revoke it before anyone consumes it.
	te.EdgesChan <- gpio.High
	waitFor(t, "token publication", ready)
	te.EdgesChan <- gpio.Low
	waitFor(t, "token revocation", func() bool { return !ready() })

	flushed := make(chan error, 1)
	go func() { flushed <- p.Flush(image.Rect(0, 0, 2, 2)) }()
	select {
	case <-flushed:
		t.Fatal("flush consumed a revoked token")
	case <-time.After(50 * time.Millisecond):
	}

	te.EdgesChan <- gpio.High
	select {
	case err := <-flushed:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("flush did not complete after the token returned")
	}
}

func TestTearTokenConsumedOnce(t *testing.T) {
	te := &gpiotest.Pin{N: "TE", EdgesChan: make(chan gpio.Level)}
	panel := &fakePanel{}
	p, err := New(panel, 2, 2, 16, &Opts{AvoidTear: true, TE: te})
	if err != nil {
		t.Fatal(err)
	}

	te.EdgesChan <- gpio.High
	if err := p.WaitFlushReady(); err != nil {
		t.Fatal(err)
	}

	// The token was consumed; the next wait needs a fresh rising edge even
	// though the line never fell.
	second := make(chan error, 1)
	go func() { second <- p.WaitFlushReady() }()
	select {
	case <-second:
		t.Fatal("blanking token was consumable twice")
	case <-time.After(50 * time.Millisecond):
	}
	te.EdgesChan <- gpio.Low
	te.EdgesChan <- gpio.High
	select {
	case err := <-second:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second wait did not complete")
	}
}

func TestFlushErrorKeepsBuffer(t *testing.T) {
	boom := errors.New("bus fault")
	panel := &fakePanel{err: boom}
	p, err := New(panel, 2, 2, 16, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	before := &p.Buffer()[0]
	if err := p.Flush(image.Rect(0, 0, 2, 2)); !errors.Is(err, boom) {
		t.Fatalf("Flush error = %v, want the panel error verbatim", err)
	}
	if &p.Buffer()[0] != before {
		t.Error("failed flush must not rotate buffers")
	}
	// The pipeline must not consider the failed transfer outstanding.
	panel.mu.Lock()
	panel.err = nil
	panel.mu.Unlock()
	if err := p.Flush(image.Rect(0, 0, 2, 2)); err != nil {
		t.Errorf("flush after failure = %v, want success without TransferDone", err)
	}
}

func TestCloseUnblocksWaiters(t *testing.T) {
	te := &gpiotest.Pin{N: "TE", EdgesChan: make(chan gpio.Level, 1)}
	panel := &fakePanel{}
	p, err := New(panel, 2, 2, 16, &Opts{AvoidTear: true, TE: te})
	if err != nil {
		t.Fatal(err)
	}

	flushed := make(chan error, 1)
	go func() { flushed <- p.Flush(image.Rect(0, 0, 2, 2)) }()
	time.Sleep(20 * time.Millisecond)

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-flushed:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Flush after Close = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not unblock the flush")
	}
	// Release the watcher goroutine blocked on the edge channel.
	te.EdgesChan <- gpio.Low
}

func TestDoHoldsRenderLock(t *testing.T) {
	panel := &fakePanel{}
	p, err := New(panel, 2, 2, 16, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	entered := make(chan struct{})
	release := make(chan struct{})
	go p.Do(func() error {
		close(entered)
		<-release
		return nil
	})
	<-entered

	got := make(chan struct{})
	go p.Do(func() error {
		close(got)
		return nil
	})
	select {
	case <-got:
		t.Fatal("render lock admitted two callers")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("render lock was not released")
	}
}
