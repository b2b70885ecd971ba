// internal/unio/driver.go
//
// Package unio is a bit-banged master for the UNI/O single-wire bus and
// the 11AAxxx serial EEPROMs on it. Bits are Manchester coded on a
// quarter-bit tick; every transaction is retried up to three times with a
// standby pulse between attempts.
package unio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Stats counts driver activity since New. Informational only.
type Stats struct {
	ReadAttempts  int
	WriteAttempts int
	Retries       int
	Standbys      int
	Failures      int
}

// Driver is the bus master for one UNI/O EEPROM.
//
// A Driver owns its Line and Ticker for the whole of every call and is not
// safe for concurrent use: callers serialize access themselves.
type Driver struct {
	line  Line
	tick  Ticker
	guard sync.Locker
	log   zerolog.Logger

	dev byte
	t   timing

	stats Stats
}

// New builds a driver. The ticker must already run at BitPeriod/4.
func New(line Line, tick Ticker, cfg Config) (*Driver, error) {
	if line == nil {
		return nil, errors.New("unio: line required")
	}
	if tick == nil {
		return nil, errors.New("unio: ticker required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	d := &Driver{
		line:  line,
		tick:  tick,
		guard: cfg.Guard,
		dev:   cfg.DeviceAddress,
		t:     newTiming(cfg.BitPeriod),
		log:   zerolog.Nop(),
	}
	if d.guard == nil {
		d.guard = nopGuard{}
	}
	if d.dev == 0 {
		d.dev = DefaultDeviceAddress
	}
	if cfg.Logger != nil {
		d.log = cfg.Logger.With().Str("component", "unio").Logger()
	}
	return d, nil
}

// Stats returns a copy of the activity counters.
func (d *Driver) Stats() Stats { return d.stats }

func (d *Driver) newLink() link {
	return link{line: d.line, tick: d.tick}
}

// Init releases the device from power-on reset and leaves the bus idle
// after a standby pulse. Call it once before the first transaction.
func (d *Driver) Init() {
	d.guard.Lock()
	defer d.guard.Unlock()

	l := d.newLink()
	l.line.SetLevel(Low)
	l.line.SetDirection(Drive)
	l.tick.Clear()
	l.wait()
	l.line.SetLevel(High)
	l.waitN(d.t.standby)
	d.stats.Standbys++
}

// Standby emits a standby pulse. Required before talking to a different
// device on the same bus; the driver also uses it to resynchronize after
// errors.
func (d *Driver) Standby() {
	d.guard.Lock()
	defer d.guard.Unlock()

	l := d.newLink()
	l.standby(d.t)
	d.stats.Standbys++
}

// Presence reports whether the device acknowledges its address. It makes
// a single attempt and always leaves the bus idle.
func (d *Driver) Presence() bool {
	d.guard.Lock()
	defer d.guard.Unlock()

	l := d.newLink()
	return l.presenceFrame(d.t, d.dev)
}

// clampLen bounds a transfer to one page.
func clampLen(n int) int {
	if n > PageSize {
		return PageSize
	}
	return n
}

// Read fills p from addr. At most PageSize bytes are transferred; the
// count is returned. On failure the transferred range of p is zeroed.
func (d *Driver) Read(addr uint16, p []byte) (int, error) {
	n := clampLen(len(p))
	if n == 0 {
		return 0, fmt.Errorf("unio: read %#04x: %w", addr, ErrZeroLength)
	}
	buf := p[:n]

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		d.stats.ReadAttempts++
		if err = d.readAttempt(addr, buf); err == nil {
			return n, nil
		}
		d.log.Debug().
			Uint16("addr", addr).
			Int("len", n).
			Int("attempt", attempt).
			Err(err).
			Msg("read attempt failed")
		d.Standby()
		if attempt < maxAttempts {
			d.stats.Retries++
		}
	}

	clear(buf)
	d.stats.Failures++
	d.log.Warn().Uint16("addr", addr).Int("len", n).Err(err).Msg("read failed")
	return 0, fmt.Errorf("unio: read %#04x: %w; %w after %d attempts", addr, err, ErrRetries, maxAttempts)
}

func (d *Driver) readAttempt(addr uint16, p []byte) error {
	d.guard.Lock()
	defer d.guard.Unlock()

	l := d.newLink()
	l.readFrame(d.t, d.dev, addr, p)
	return l.err
}

// Write programs p at addr and verifies it by reading it back. At most
// PageSize bytes are written and the range must not cross a page. A
// failed Write leaves the device contents unspecified.
func (d *Driver) Write(addr uint16, p []byte) (int, error) {
	n := clampLen(len(p))
	if n == 0 {
		return 0, fmt.Errorf("unio: write %#04x: %w", addr, ErrZeroLength)
	}
	if int(addr%PageSize)+n > PageSize {
		return 0, fmt.Errorf("unio: write %#04x+%d: %w", addr, n, ErrPageBoundary)
	}
	data := p[:n]

	var (
		readback [PageSize]byte
		err      error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		d.stats.WriteAttempts++
		err = d.writeAttempt(addr, data)
		if err == nil {
			err = d.verify(addr, data, readback[:n])
		}
		if err == nil {
			return n, nil
		}
		d.log.Debug().
			Uint16("addr", addr).
			Int("len", n).
			Int("attempt", attempt).
			Err(err).
			Msg("write attempt failed")
		d.Standby()
		if attempt < maxAttempts {
			d.stats.Retries++
		}
	}

	d.stats.Failures++
	d.log.Warn().Uint16("addr", addr).Int("len", n).Err(err).Msg("write failed")
	return 0, fmt.Errorf("unio: write %#04x: %w; %w after %d attempts", addr, err, ErrRetries, maxAttempts)
}

// writeAttempt runs WREN, WRITE and WIP polling inside one critical section.
func (d *Driver) writeAttempt(addr uint16, p []byte) error {
	d.guard.Lock()
	defer d.guard.Unlock()

	l := d.newLink()
	l.writeEnableFrame(d.t, d.dev)
	l.writeFrame(d.t, d.dev, addr, p)
	if err := d.waitWriteComplete(&l); err != nil {
		l.fail(err)
	}
	return l.err
}

// waitWriteComplete polls WIP, restarting the polling sequence after a
// standby pulse when it is not acknowledged.
func (d *Driver) waitWriteComplete(l *link) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = l.pollFrame(d.t, d.dev)
		if !errors.Is(err, ErrNoAck) {
			return err
		}
		l.standby(d.t)
		d.stats.Standbys++
	}
	return err
}

// verify reads back what was just written.
func (d *Driver) verify(addr uint16, want, got []byte) error {
	if _, err := d.Read(addr, got); err != nil {
		return err
	}
	if !bytes.Equal(want, got) {
		return ErrVerify
	}
	return nil
}
