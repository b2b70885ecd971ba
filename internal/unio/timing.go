// internal/unio/timing.go
package unio

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// PageSize is the largest single write; writes never span two pages.
	PageSize = 16

	// DefaultDeviceAddress is the 11AAxxx device address byte.
	DefaultDeviceAddress byte = 0xA0

	MinBitPeriod = 10 * time.Microsecond
	MaxBitPeriod = 100 * time.Microsecond

	// Attempts per Read or Write, and per WIP polling sequence.
	maxAttempts = 3

	// maxPolls bounds WIP polling: 10ms worst case write cycle over a
	// 100µs fastest status byte is 100, plus headroom.
	maxPolls = 120
)

// Bus timing minimums. None of them has a maximum.
const (
	tss   = 10 * time.Microsecond  // standby setup before a header
	thdr  = 5 * time.Microsecond   // low hold before the start header
	tstby = 600 * time.Microsecond // standby pulse
)

// Config describes one driver instance.
type Config struct {
	// BitPeriod must match the ticker: it delivers a flag every BitPeriod/4.
	BitPeriod time.Duration

	// DeviceAddress defaults to DefaultDeviceAddress.
	DeviceAddress byte

	// Guard is held for every timing-critical section, typically an
	// interrupt or preemption mask. Defaults to a no-op.
	Guard sync.Locker

	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger
}

// timing holds the minimum hold times converted to quarter-bit ticks.
type timing struct {
	quiet   int
	header  int
	standby int
}

func (c Config) validate() error {
	if c.BitPeriod < MinBitPeriod || c.BitPeriod > MaxBitPeriod {
		return fmt.Errorf("unio: bit period %v outside %v..%v", c.BitPeriod, MinBitPeriod, MaxBitPeriod)
	}
	return nil
}

// newTiming adds one tick to every hold: the first tick after Clear can
// arrive early since the timer keeps free running.
func newTiming(bitPeriod time.Duration) timing {
	q := bitPeriod / 4
	t := timing{
		quiet:   ticksFor(tss, q) + 1,
		header:  ticksFor(thdr, q) + 1,
		standby: ticksFor(tstby, q) + 1,
	}
	// a whole bit of idle keeps the quiet gap distinct from in-frame levels
	if t.quiet < 4 {
		t.quiet = 4
	}
	return t
}

// ticksFor rounds d up to whole ticks of length q.
func ticksFor(d, q time.Duration) int {
	n := int((d + q - 1) / q)
	if n < 1 {
		n = 1
	}
	return n
}

// StandbyTicks is the minimum number of quarter-bit ticks a standby pulse
// lasts at the given bit period.
func StandbyTicks(bitPeriod time.Duration) int {
	return ticksFor(tstby, bitPeriod/4)
}
