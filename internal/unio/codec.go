// internal/unio/codec.go
package unio

// bitRead is the outcome of sampling one Manchester bit.
type bitRead uint8

const (
	bitZero bitRead = iota
	bitOne
	bitInvalid
)

// link is the state of one transaction attempt. A fresh value is built
// for every attempt and never outlives the call that created it.
type link struct {
	line Line
	tick Ticker

	out     byte    // byte being shifted out
	in      byte    // byte being assembled
	mak     bool    // MAK (true) or NoMAK to send after the current byte
	readErr bool    // a data bit failed to decode
	sak     bitRead // last slave acknowledge slot
	err     error   // first frame-level error of the attempt
}

// wait is the only suspension point: one quarter bit period.
func (l *link) wait() {
	for !l.tick.Pending() {
	}
	l.tick.Clear()
}

func (l *link) waitN(n int) {
	for ; n > 0; n-- {
		l.wait()
	}
}

// outputBit drives one bit. A 1 is low then high, a 0 is high then low,
// each half lasting two ticks.
func (l *link) outputBit(v bool) {
	first := High
	if v {
		first = Low
	}
	l.line.SetLevel(first)
	l.wait()
	l.wait()
	l.line.SetLevel(!first)
	l.wait()
	l.wait()
}

// inputBit samples the line at the 1/4 and 3/4 points of a bit period.
func (l *link) inputBit() bitRead {
	l.wait()
	first := l.line.Level()
	l.wait()
	l.wait()
	second := l.line.Level()
	l.wait()
	return decodeHalves(first, second)
}

// decodeHalves maps the two half-bit samples to a bit. Only a transition
// in the middle of the period is valid. A 1 is low then high, as outputBit
// drives it.
func decodeHalves(first, second Level) bitRead {
	switch {
	case first == Low && second == High:
		return bitOne
	case first == High && second == Low:
		return bitZero
	}
	return bitInvalid
}

func (l *link) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}
