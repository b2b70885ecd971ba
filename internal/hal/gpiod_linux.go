//go:build linux

// internal/hal/gpiod_linux.go

package hal

import (
	"fmt"

	"github.com/warthog618/gpiod"

	"github.com/tamzrod/unio-bridge/internal/unio"
)

// GpiodPin drives SCIO through the Linux GPIO character device.
type GpiodPin struct {
	stickyErr

	chip  *gpiod.Chip
	line  *gpiod.Line
	dir   unio.Direction
	level unio.Level
}

// OpenGpiod requests offset on chip (e.g. "gpiochip0") as an output
// idling high, with the pull-up bias enabled.
func OpenGpiod(chip string, offset int) (Pin, error) {
	c, err := gpiod.NewChip(chip, gpiod.WithConsumer("uniobridge"))
	if err != nil {
		return nil, fmt.Errorf("gpiod: open %s: %w", chip, err)
	}

	l, err := c.RequestLine(offset, gpiod.AsOutput(1), gpiod.WithPullUp)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("gpiod: request %s:%d: %w", chip, offset, err)
	}

	return &GpiodPin{
		chip:  c,
		line:  l,
		dir:   unio.Drive,
		level: unio.High,
	}, nil
}

func (p *GpiodPin) SetDirection(d unio.Direction) {
	if d == p.dir {
		return
	}
	p.dir = d

	if d == unio.Input {
		p.record(p.line.Reconfigure(gpiod.AsInput))
		return
	}
	p.record(p.line.Reconfigure(gpiod.AsOutput(lineValue(p.level))))
}

func (p *GpiodPin) SetLevel(l unio.Level) {
	p.level = l
	if p.dir == unio.Drive {
		p.record(p.line.SetValue(lineValue(l)))
	}
}

func (p *GpiodPin) Level() unio.Level {
	v, err := p.line.Value()
	p.record(err)
	return unio.Level(v != 0)
}

func (p *GpiodPin) Close() error {
	err := p.line.Close()
	if cerr := p.chip.Close(); err == nil {
		err = cerr
	}
	return err
}

func lineValue(l unio.Level) int {
	if l == unio.High {
		return 1
	}
	return 0
}
