// internal/unio/line.go
package unio

// Level is the logical state of the SCIO line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Direction selects whether the master drives SCIO or listens on it.
type Direction uint8

const (
	Drive Direction = iota
	Input
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "drive"
}

// Line is the single bidirectional bus signal.
// Implementations sit on the timing-critical path and must not allocate.
type Line interface {
	SetDirection(d Direction)
	SetLevel(l Level)
	Level() Level
}

// Ticker is a free-running flag set every quarter bit period.
// The engine never sleeps: it spins on Pending and then calls Clear.
type Ticker interface {
	Pending() bool
	Clear()
}

// nopGuard is used when the caller provides no critical-section primitive.
type nopGuard struct{}

func (nopGuard) Lock()   {}
func (nopGuard) Unlock() {}
