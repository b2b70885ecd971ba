// internal/sim/bus.go
//
// Package sim is a quarter-bit accurate model of a UNI/O bus with
// 11AAxxx devices attached. Simulated time only moves when the master
// clears the tick flag, so runs are fully deterministic.
package sim

import "github.com/tamzrod/unio-bridge/internal/unio"

// Bus implements unio.Line, unio.Ticker and sync.Locker.
type Bus struct {
	dir   unio.Direction
	level unio.Level

	devices []*Device

	quarters uint64
	lineOps  uint64

	depth int
	locks int
}

// NewBus returns an idle bus with the master line released.
func NewBus(devices ...*Device) *Bus {
	return &Bus{
		dir:     unio.Input,
		level:   unio.High,
		devices: devices,
	}
}

// Attach adds a device to the bus.
func (b *Bus) Attach(d *Device) { b.devices = append(b.devices, d) }

func (b *Bus) SetDirection(d unio.Direction) {
	b.lineOps++
	b.dir = d
}

func (b *Bus) SetLevel(l unio.Level) {
	b.lineOps++
	b.level = l
}

// Level returns the wire level during the current quarter.
func (b *Bus) Level() unio.Level {
	b.lineOps++
	return b.resolve()
}

// Pending is always true: the master never waits in simulated time.
func (b *Bus) Pending() bool { return true }

// Clear ends the current quarter and lets every device observe it.
func (b *Bus) Clear() {
	lvl := b.resolve()
	for _, d := range b.devices {
		d.step(lvl)
	}
	b.quarters++
}

// resolve: the master wins, then any driving device, then the pull-up.
func (b *Bus) resolve() unio.Level {
	if b.dir == unio.Drive {
		return b.level
	}
	for _, d := range b.devices {
		if d.driving {
			return d.out
		}
	}
	return unio.High
}

func (b *Bus) Lock() {
	b.depth++
	b.locks++
}

func (b *Bus) Unlock() {
	if b.depth == 0 {
		panic("sim: unlock of unlocked bus")
	}
	b.depth--
}

// Quarters is the simulated time elapsed, in ticks.
func (b *Bus) Quarters() uint64 { return b.quarters }

// LineOps counts every call made on the line.
func (b *Bus) LineOps() uint64 { return b.lineOps }

// Locked reports whether a critical section is open.
func (b *Bus) Locked() bool { return b.depth > 0 }

// Locks counts critical sections entered.
func (b *Bus) Locks() int { return b.locks }
