// internal/unio/codec_test.go
package unio

import (
	"testing"
	"time"
)

// scriptLine records the driven level at every tick and replays a fixed
// sequence of sampled levels.
type scriptLine struct {
	dir    Direction
	level  Level
	script []Level
	reads  int
	trace  []Level
}

func (s *scriptLine) SetDirection(d Direction) { s.dir = d }
func (s *scriptLine) SetLevel(l Level)         { s.level = l }
func (s *scriptLine) Pending() bool            { return true }
func (s *scriptLine) Clear()                   { s.trace = append(s.trace, s.level) }

func (s *scriptLine) Level() Level {
	l := s.script[s.reads]
	s.reads++
	return l
}

func newScriptLink(script ...Level) (*link, *scriptLine) {
	s := &scriptLine{script: script}
	return &link{line: s, tick: s}, s
}

// bitLevels returns the half-bit samples of a valid bit.
func bitLevels(v bool) []Level {
	if v {
		return []Level{Low, High}
	}
	return []Level{High, Low}
}

func TestDecodeHalves(t *testing.T) {
	tests := []struct {
		name          string
		first, second Level
		want          bitRead
	}{
		{"rising edge is one", Low, High, bitOne},
		{"falling edge is zero", High, Low, bitZero},
		{"both low", Low, Low, bitInvalid},
		{"both high", High, High, bitInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeHalves(tt.first, tt.second); got != tt.want {
				t.Fatalf("decodeHalves(%v, %v) = %d, want %d", tt.first, tt.second, got, tt.want)
			}
		})
	}
}

func TestOutputBitHalves(t *testing.T) {
	l, s := newScriptLink()

	l.outputBit(true)
	l.outputBit(false)

	want := []Level{Low, Low, High, High, High, High, Low, Low}
	if len(s.trace) != len(want) {
		t.Fatalf("expected %d ticks, got %d", len(want), len(s.trace))
	}
	for i := range want {
		if s.trace[i] != want[i] {
			t.Fatalf("tick %d: got %v want %v", i, s.trace[i], want[i])
		}
	}
}

func TestOutputByteMSBFirst(t *testing.T) {
	l, s := newScriptLink(bitLevels(true)...)

	if !l.sendByte(0xA0, true) {
		t.Fatalf("expected SAK")
	}

	// 8 data bits + MAK driven, SAK sampled: 10 bits of 4 ticks
	if len(s.trace) != 40 {
		t.Fatalf("expected 40 ticks, got %d", len(s.trace))
	}
	for bit := 0; bit < 9; bit++ {
		want := High // 0: first half high
		if bit == 8 || 0xA0&(0x80>>bit) != 0 {
			want = Low
		}
		if got := s.trace[bit*4]; got != want {
			t.Fatalf("bit %d first half: got %v want %v", bit, got, want)
		}
	}
	if s.dir != Input {
		t.Fatalf("line should be released for SAK, got %v", s.dir)
	}
}

func TestInputByteDecodeError(t *testing.T) {
	var script []Level
	// 1 0 X 1 1 0 0 1 where X is an invalid pair
	for i, v := range []bool{true, false, false, true, true, false, false, true} {
		if i == 2 {
			script = append(script, High, High)
			continue
		}
		script = append(script, bitLevels(v)...)
	}
	l, _ := newScriptLink(script...)

	l.inputByte()

	if l.in != 0x99 {
		t.Fatalf("expected 0x99 with bad bit read as 0, got %#02x", l.in)
	}
	if !l.readErr {
		t.Fatalf("expected read error flag")
	}
}

func TestReceiveWithoutSAK(t *testing.T) {
	script := append([]Level{}, bitLevels(true)...)
	for i := 0; i < 7; i++ {
		script = append(script, bitLevels(false)...)
	}
	script = append(script, High, High) // nobody drives the SAK slot
	l, _ := newScriptLink(script...)

	got := l.receive(false)

	if got != 0x80 {
		t.Fatalf("expected 0x80, got %#02x", got)
	}
	if l.err != ErrNoAck {
		t.Fatalf("expected ErrNoAck, got %v", l.err)
	}
}

func TestTimingTicks(t *testing.T) {
	tests := []struct {
		name    string
		bit     int64 // µs
		quiet   int
		header  int
		standby int
	}{
		{"10us", 10, 5, 3, 241},
		{"40us", 40, 4, 2, 61},
		{"100us", 100, 4, 2, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := newTiming(durationUS(tt.bit))
			if tm.quiet != tt.quiet || tm.header != tt.header || tm.standby != tt.standby {
				t.Fatalf("got %+v", tm)
			}
		})
	}
}

func durationUS(n int64) time.Duration { return time.Duration(n) * time.Microsecond }
