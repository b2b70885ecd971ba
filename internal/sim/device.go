// internal/sim/device.go
package sim

import (
	"time"

	"github.com/tamzrod/unio-bridge/internal/unio"
)

const (
	cmdRead         byte = 0x03
	cmdReadStatus   byte = 0x05
	cmdWrite        byte = 0x6C
	cmdWriteDisable byte = 0x91
	cmdWriteEnable  byte = 0x96

	startHeader byte = 0x55
	pageSize         = 16
)

type state uint8

const (
	stateStandby state = iota // deaf until a standby pulse
	stateIdle                 // waiting for a start header
	stateFrame
)

// phase is the meaning of the byte currently on the wire.
type phase uint8

const (
	phHeader phase = iota
	phAddress
	phCommand
	phAddrHigh
	phAddrLow
	phReadData
	phWriteData
	phStatus
	phDone
)

// Config describes a simulated device.
type Config struct {
	Address   byte          // default 0xA0
	Size      int           // bytes, default 2048 (11AA160)
	BitPeriod time.Duration // used to recognize a standby pulse, default 40µs
	BusyPolls int           // status reads reporting WIP after a write, default 2
}

// Device models an 11AAxxx serial EEPROM at the bit-slot level.
//
// The exported fault fields may be changed between transactions.
type Device struct {
	Silent       bool // never acknowledge the device address
	StuckBusy    bool // WIP never clears
	DropAcks     int  // ignore the next N addressed frames
	CorruptReads int  // invert the first data byte of the next N reads
	GlitchReads  int  // send an undecodable bit in the next N reads
	DropPolls    int  // ignore the next N status reads during a write cycle

	Frames      int // start headers recognized
	Commits     int // write cycles started
	Standbys    int // standby pulses recognized
	StatusReads int // status bytes sent

	addr      byte
	mem       []byte
	standby   int
	busyPolls int

	st       state
	highRun  int
	seenHigh bool
	armed    bool

	q       int // quarter within the current bit slot
	slot    int // 0-7 data, 8 MAK, 9 SAK
	ph      phase
	sending bool
	tx, rx  byte
	first   unio.Level
	mak     bool
	ack     bool

	cmd     byte
	ptr     int
	latch   []byte
	wel     bool
	busy    int
	corrupt bool
	glitch  bool

	driving bool
	out     unio.Level
}

// NewDevice returns an erased device waiting for its first standby pulse.
func NewDevice(cfg Config) *Device {
	if cfg.Address == 0 {
		cfg.Address = unio.DefaultDeviceAddress
	}
	if cfg.Size <= 0 {
		cfg.Size = 2048
	}
	if cfg.BitPeriod == 0 {
		cfg.BitPeriod = 40 * time.Microsecond
	}
	if cfg.BusyPolls == 0 {
		cfg.BusyPolls = 2
	}

	d := &Device{
		addr:      cfg.Address,
		mem:       make([]byte, cfg.Size),
		standby:   unio.StandbyTicks(cfg.BitPeriod),
		busyPolls: cfg.BusyPolls,
		latch:     make([]byte, 0, pageSize),
	}
	for i := range d.mem {
		d.mem[i] = 0xFF
	}
	return d
}

// Peek copies n bytes of the array starting at addr.
func (d *Device) Peek(addr, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = d.mem[(addr+i)%len(d.mem)]
	}
	return out
}

// Poke stores data directly, bypassing the bus.
func (d *Device) Poke(addr int, data []byte) {
	for i, b := range data {
		d.mem[(addr+i)%len(d.mem)] = b
	}
}

// step observes the wire level of the quarter that just ended and plans
// this device's drive for the next one.
func (d *Device) step(lvl unio.Level) {
	if lvl == unio.High {
		d.highRun++
		if d.highRun == d.standby {
			d.Standbys++
			d.enterIdle()
		}
	} else {
		d.highRun = 0
	}

	switch d.st {
	case stateIdle:
		d.watchHeader(lvl)
	case stateFrame:
		d.clock(lvl)
	}
}

// watchHeader waits for high, then the low Thdr hold, then the rising
// edge that opens the first header bit.
func (d *Device) watchHeader(lvl unio.Level) {
	if lvl == unio.Low {
		d.armed = d.armed || d.seenHigh
		return
	}
	if d.armed {
		d.startFrame()
		return
	}
	d.seenHigh = true
}

func (d *Device) startFrame() {
	d.st = stateFrame
	d.Frames++
	d.ph = phHeader
	d.slot, d.q = 0, 1 // the opening quarter was just observed
	d.sending = false
	d.rx, d.mak, d.ack = 0, false, false
	d.corrupt, d.glitch = false, false
	d.plan()
}

func (d *Device) enterIdle() {
	d.st = stateIdle
	d.seenHigh, d.armed = false, false
	d.driving = false
}

func (d *Device) enterStandby() {
	d.st = stateStandby
	d.driving = false
}

func (d *Device) receivingSlot() bool {
	return d.slot == 8 || (d.slot < 8 && !d.sending)
}

func (d *Device) clock(lvl unio.Level) {
	off := d.q
	d.q++
	if d.receivingSlot() {
		switch off {
		case 1:
			d.first = lvl
		case 3:
			if !d.sample(d.first, lvl) {
				d.enterStandby()
				return
			}
		}
	}
	if d.q == 4 {
		d.q = 0
		d.endSlot()
	}
	d.plan()
}

func (d *Device) sample(first, second unio.Level) bool {
	var bit byte
	switch {
	case first == unio.Low && second == unio.High:
		bit = 1
	case first == unio.High && second == unio.Low:
		bit = 0
	default:
		return false
	}
	if d.slot == 8 {
		d.mak = bit == 1
	} else {
		d.rx = d.rx<<1 | bit
	}
	return true
}

func (d *Device) endSlot() {
	d.slot++
	switch d.slot {
	case 9:
		d.ack = d.byteDone()
	case 10:
		if !d.mak {
			d.endFrame()
			return
		}
		d.nextByte()
	}
}

// byteDone handles a completed byte and MAK and decides the SAK.
func (d *Device) byteDone() bool {
	switch d.ph {
	case phHeader:
		if d.rx != startHeader || !d.mak {
			d.enterStandby()
			return false
		}
		d.ph = phAddress
		return false

	case phAddress:
		if d.rx != d.addr || d.Silent {
			d.enterStandby()
			return false
		}
		if d.DropAcks > 0 {
			d.DropAcks--
			d.enterStandby()
			return false
		}
		d.ph = phCommand
		return true

	case phCommand:
		d.cmd = d.rx
		if d.busy > 0 && d.cmd != cmdReadStatus {
			d.enterStandby()
			return false
		}
		if d.busy > 0 && d.DropPolls > 0 {
			d.DropPolls--
			d.enterStandby()
			return false
		}
		switch d.cmd {
		case cmdRead, cmdWrite:
			d.ph = phAddrHigh
		case cmdReadStatus:
			d.ph = phStatus
		case cmdWriteEnable, cmdWriteDisable:
			d.ph = phDone
		default:
			d.enterStandby()
			return false
		}
		return true

	case phAddrHigh:
		d.ptr = int(d.rx) << 8
		d.ph = phAddrLow
		return true

	case phAddrLow:
		d.ptr = (d.ptr | int(d.rx)) % len(d.mem)
		if d.cmd == cmdRead {
			d.ph = phReadData
			d.armReadFaults()
		} else {
			d.ph = phWriteData
			d.latch = d.latch[:0]
		}
		return true

	case phReadData:
		d.ptr = (d.ptr + 1) % len(d.mem)
		d.glitch = false
		return true

	case phWriteData:
		d.latch = append(d.latch, d.rx)
		return true

	case phStatus:
		d.StatusReads++
		if d.busy > 0 {
			d.busy--
		}
		return true
	}
	return false
}

func (d *Device) armReadFaults() {
	if d.CorruptReads > 0 {
		d.CorruptReads--
		d.corrupt = true
	}
	if d.GlitchReads > 0 {
		d.GlitchReads--
		d.glitch = true
	}
}

func (d *Device) nextByte() {
	d.slot, d.rx, d.ack = 0, 0, false
	d.sending = false
	switch d.ph {
	case phReadData:
		d.sending = true
		d.tx = d.mem[d.ptr]
		if d.corrupt {
			d.tx ^= 0xFF
			d.corrupt = false
		}
	case phStatus:
		d.sending = true
		d.tx = d.status()
	}
}

func (d *Device) status() byte {
	var s byte
	if d.busy > 0 || d.StuckBusy {
		s |= 0x01
	}
	if d.wel {
		s |= 0x02
	}
	return s
}

// endFrame runs on NoMAK, after the final SAK slot.
func (d *Device) endFrame() {
	switch {
	case d.ph == phDone && d.cmd == cmdWriteEnable:
		d.wel = true
	case d.ph == phDone && d.cmd == cmdWriteDisable:
		d.wel = false
	case d.ph == phWriteData && len(d.latch) > 0:
		d.commit()
	}
	d.enterIdle()
}

// commit programs the latched bytes, wrapping inside the page.
func (d *Device) commit() {
	if !d.wel {
		return
	}
	base := d.ptr &^ (pageSize - 1)
	off := d.ptr % pageSize
	for i, b := range d.latch {
		d.mem[base+(off+i)%pageSize] = b
	}
	d.wel = false
	d.busy = d.busyPolls
	d.Commits++
}

// plan sets the device's drive for quarter q of the current slot.
func (d *Device) plan() {
	d.driving = false
	if d.st != stateFrame {
		return
	}

	var bit bool
	switch {
	case d.slot < 8 && d.sending:
		if d.glitch && d.slot == 0 {
			d.driving, d.out = true, unio.High
			return
		}
		bit = d.tx&(0x80>>d.slot) != 0
	case d.slot == 9 && d.ack:
		bit = true
	default:
		return
	}

	// a 1 is low then high
	firstHalf := d.q < 2
	d.driving = true
	d.out = unio.Level(bit != firstHalf)
}
