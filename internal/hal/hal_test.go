// internal/hal/hal_test.go
package hal

import (
	"errors"
	"runtime/debug"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/tamzrod/unio-bridge/internal/unio"
)

// ------------------------------
// Test doubles
// ------------------------------

type fakePin struct {
	level  gpio.Level
	pull   gpio.Pull
	outs   int
	ins    int
	outErr error
	halted bool
}

func (p *fakePin) Out(l gpio.Level) error {
	p.outs++
	if p.outErr != nil {
		return p.outErr
	}
	p.level = l
	return nil
}

func (p *fakePin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.ins++
	p.pull = pull
	return nil
}

func (p *fakePin) Read() gpio.Level { return p.level }

func (p *fakePin) Halt() error {
	p.halted = true
	return nil
}

// ------------------------------
// Tests
// ------------------------------

func TestSpinTicker_Cadence(t *testing.T) {
	tk := NewSpinTicker(50 * time.Millisecond)

	if tk.Pending() {
		t.Fatalf("expected no tick right after construction")
	}

	time.Sleep(60 * time.Millisecond)
	if !tk.Pending() {
		t.Fatalf("expected tick after one period")
	}

	tk.Clear()
	if tk.Pending() {
		t.Fatalf("expected Clear to wait for the next grid point")
	}
}

func TestSpinTicker_ClearSkipsMissedTicks(t *testing.T) {
	tk := NewSpinTicker(10 * time.Millisecond)

	time.Sleep(45 * time.Millisecond)
	tk.Clear()

	if tk.next <= time.Since(tk.start) {
		t.Fatalf("next deadline %v is not in the future", tk.next)
	}
	if tk.next%tk.period != 0 {
		t.Fatalf("next deadline %v is off the grid", tk.next)
	}
}

func TestThreadGuard_RestoresGC(t *testing.T) {
	prev := debug.SetGCPercent(77)
	defer debug.SetGCPercent(prev)

	var g ThreadGuard
	g.Lock()
	if got := debug.SetGCPercent(-1); got != -1 {
		t.Fatalf("expected GC off inside guard, got %d", got)
	}
	g.Unlock()

	if got := debug.SetGCPercent(77); got != 77 {
		t.Fatalf("expected GC percent restored to 77, got %d", got)
	}
}

func TestPeriphPin_DirectionAndLevel(t *testing.T) {
	fp := &fakePin{}
	p, err := newPeriphPin(fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fp.level != gpio.High {
		t.Fatalf("expected pin to idle high")
	}

	p.SetLevel(unio.Low)
	if fp.level != gpio.Low {
		t.Fatalf("expected pin driven low")
	}

	p.SetDirection(unio.Input)
	if fp.ins != 1 || fp.pull != gpio.PullUp {
		t.Fatalf("expected input with pull-up, ins=%d pull=%v", fp.ins, fp.pull)
	}

	// level changes while released are remembered, not driven
	outs := fp.outs
	p.SetLevel(unio.High)
	if fp.outs != outs {
		t.Fatalf("expected no drive while input")
	}

	fp.level = gpio.Low
	if p.Level() != unio.Low {
		t.Fatalf("expected Level to read the pin")
	}

	p.SetDirection(unio.Drive)
	if fp.level != gpio.High {
		t.Fatalf("expected remembered level driven on switch to output")
	}

	if err := p.Err(); err != nil {
		t.Fatalf("unexpected sticky error: %v", err)
	}
	if err := p.Close(); err != nil || !fp.halted {
		t.Fatalf("expected Close to halt the pin")
	}
}

func TestPeriphPin_StickyError(t *testing.T) {
	fp := &fakePin{}
	p, err := newPeriphPin(fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := errors.New("first")
	fp.outErr = first
	p.SetLevel(unio.Low)

	fp.outErr = errors.New("second")
	p.SetLevel(unio.High)

	if !errors.Is(p.Err(), first) {
		t.Fatalf("expected first error kept, got %v", p.Err())
	}
}

func TestPeriphPin_ErrWhileRecording(t *testing.T) {
	fp := &fakePin{}
	p, err := newPeriphPin(fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fp.outErr = errors.New("line fault")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			p.SetLevel(unio.Level(i%2 == 0))
		}
	}()

	for i := 0; i < 1000; i++ {
		_ = p.Err()
	}
	wg.Wait()

	if p.Err() == nil {
		t.Fatalf("expected recorded error")
	}
}
