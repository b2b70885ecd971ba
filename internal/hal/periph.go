// internal/hal/periph.go
package hal

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/tamzrod/unio-bridge/internal/unio"
)

// pin is the subset of gpio.PinIO the backend uses.
type pin interface {
	Out(l gpio.Level) error
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
	Halt() error
}

// PeriphPin drives SCIO through a periph.io GPIO pin.
type PeriphPin struct {
	stickyErr

	pin   pin
	dir   unio.Direction
	level unio.Level
}

// OpenPeriph initializes the periph host drivers and claims the named pin
// (e.g. "GPIO17") as an output idling high.
func OpenPeriph(name string) (Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph: host init: %w", err)
	}

	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("periph: pin %q not found", name)
	}

	return newPeriphPin(p)
}

func newPeriphPin(p pin) (*PeriphPin, error) {
	if err := p.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("periph: drive high: %w", err)
	}
	return &PeriphPin{
		pin:   p,
		dir:   unio.Drive,
		level: unio.High,
	}, nil
}

func (p *PeriphPin) SetDirection(d unio.Direction) {
	if d == p.dir {
		return
	}
	p.dir = d

	if d == unio.Input {
		p.record(p.pin.In(gpio.PullUp, gpio.NoEdge))
		return
	}
	p.record(p.pin.Out(gpio.Level(p.level)))
}

func (p *PeriphPin) SetLevel(l unio.Level) {
	p.level = l
	if p.dir == unio.Drive {
		p.record(p.pin.Out(gpio.Level(l)))
	}
}

func (p *PeriphPin) Level() unio.Level {
	return unio.Level(p.pin.Read())
}

func (p *PeriphPin) Close() error {
	return p.pin.Halt()
}
