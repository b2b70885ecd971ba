// internal/unio/framer.go
package unio

// outputByte shifts l.out MSB first, then runs the acknowledge sequence.
func (l *link) outputByte() {
	l.line.SetDirection(Drive)
	for i := 0; i < 8; i++ {
		l.outputBit(l.out&0x80 != 0)
		l.out <<= 1
	}
	l.ack()
}

// inputByte clocks 8 bits into l.in. A bad bit reads as 0 and sets readErr;
// the byte is always completed.
func (l *link) inputByte() {
	l.line.SetDirection(Input)
	for i := 0; i < 8; i++ {
		l.in <<= 1
		switch l.inputBit() {
		case bitOne:
			l.in |= 0x01
		case bitInvalid:
			l.readErr = true
		}
	}
}

// ack sends MAK or NoMAK and samples the SAK slot.
func (l *link) ack() {
	l.line.SetDirection(Drive)
	l.outputBit(l.mak)
	l.line.SetDirection(Input)
	l.sak = l.inputBit()
}

// sendByte transmits b and reports whether the device acknowledged it.
func (l *link) sendByte(b byte, mak bool) bool {
	l.out, l.mak = b, mak
	l.outputByte()
	return l.sak == bitOne
}

// send transmits an addressed byte. A missing SAK is recorded but the
// frame carries on: there is no abort sequence in the middle of a command.
func (l *link) send(b byte, mak bool) {
	if !l.sendByte(b, mak) {
		l.fail(ErrNoAck)
	}
}

// receive reads one byte and acknowledges it with MAK or NoMAK.
func (l *link) receive(mak bool) byte {
	l.inputByte()
	l.mak = mak
	l.ack()
	if l.sak != bitOne {
		l.fail(ErrNoAck)
	}
	return l.in
}
