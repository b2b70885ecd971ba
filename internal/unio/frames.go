// internal/unio/frames.go
package unio

// Command bytes of the 11AAxxx family.
const (
	cmdRead        byte = 0x03
	cmdReadStatus  byte = 0x05
	cmdWrite       byte = 0x6C
	cmdWriteEnable byte = 0x96

	startHeader byte = 0x55

	statusWIP byte = 0x01
)

// quiet holds SCIO high for at least Tss before a new frame.
func (l *link) quiet(t timing) {
	l.line.SetLevel(High)
	l.line.SetDirection(Drive)
	l.tick.Clear()
	l.waitN(t.quiet)
}

// header holds SCIO low for Thdr and clocks out the start header. Nothing
// is addressed yet so the SAK slot that follows is ignored.
func (l *link) header(t timing) {
	l.line.SetLevel(Low)
	l.line.SetDirection(Drive)
	l.tick.Clear()
	l.waitN(t.header)
	l.sendByte(startHeader, true)
}

// idle finishes the current bit period and parks the bus high.
func (l *link) idle() {
	l.wait()
	l.line.SetLevel(High)
	l.line.SetDirection(Drive)
}

// standby holds SCIO high for Tstby, resetting every device on the bus.
func (l *link) standby(t timing) {
	l.wait()
	l.line.SetLevel(High)
	l.line.SetDirection(Drive)
	l.waitN(t.standby)
}

// begin opens a frame: quiet gap, start header, device address.
// It reports whether the address was acknowledged.
func (l *link) begin(t timing, dev byte) bool {
	l.quiet(t)
	l.header(t)
	return l.sendByte(dev, true)
}

func (l *link) addressed(t timing, dev byte) {
	if !l.begin(t, dev) {
		l.fail(ErrNoAck)
	}
}

// presenceFrame reads the status register once and discards it.
func (l *link) presenceFrame(t timing, dev byte) bool {
	present := l.begin(t, dev)
	l.sendByte(cmdReadStatus, true)
	l.inputByte()
	l.mak = false
	l.ack()
	l.idle()
	return present
}

func (l *link) writeEnableFrame(t timing, dev byte) {
	l.addressed(t, dev)
	l.send(cmdWriteEnable, false)
	l.idle()
}

func (l *link) readFrame(t timing, dev byte, addr uint16, p []byte) {
	l.addressed(t, dev)
	l.send(cmdRead, true)
	l.send(byte(addr>>8), true)
	l.send(byte(addr), true)

	l.readErr = false
	last := len(p) - 1
	for i := range p {
		p[i] = l.receive(i < last)
	}
	l.idle()

	if l.readErr {
		l.fail(ErrDecode)
	}
}

// writeFrame sends the page data. NoMAK on the final byte starts the
// device's write cycle.
func (l *link) writeFrame(t timing, dev byte, addr uint16, p []byte) {
	l.addressed(t, dev)
	l.send(cmdWrite, true)
	l.send(byte(addr>>8), true)
	l.send(byte(addr), true)

	last := len(p) - 1
	for i, b := range p {
		l.send(b, i < last)
	}
	l.idle()
}

// statusBusy reads one status byte. An undecodable byte counts as busy.
func (l *link) statusBusy() bool {
	l.readErr = false
	l.inputByte()
	return l.readErr || l.in&statusWIP != 0
}

// pollFrame reads the status register continuously until WIP clears or
// maxPolls further reads have been made. Returns ErrNoAck when the
// sequence was not acknowledged and should be restarted.
func (l *link) pollFrame(t timing, dev byte) error {
	ok := l.begin(t, dev)
	ok = l.sendByte(cmdReadStatus, true) && ok
	if !ok {
		l.inputByte()
		l.mak = false
		l.ack()
		l.idle()
		return ErrNoAck
	}

	busy := l.statusBusy()
	for n := 0; busy && n < maxPolls; n++ {
		l.mak = true
		l.ack()
		missed := l.sak != bitOne
		busy = l.statusBusy() || missed
	}
	l.mak = false
	l.ack()
	l.idle()

	if busy {
		return ErrWriteTimeout
	}
	return nil
}
