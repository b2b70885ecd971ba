// cmd/uniobridge/backend.go
package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/tamzrod/unio-bridge/internal/config"
	"github.com/tamzrod/unio-bridge/internal/hal"
	"github.com/tamzrod/unio-bridge/internal/sim"
	"github.com/tamzrod/unio-bridge/internal/unio"
)

// backend is one SCIO line with its timebase.
type backend struct {
	line  unio.Line
	tick  unio.Ticker
	guard sync.Locker

	// err reports a sticky line I/O error, nil for the simulator.
	err   func() error
	close func() error
}

func openBackend(bc config.BusConfig, units []config.UnitConfig) (*backend, error) {
	bitPeriod := time.Duration(bc.BitPeriodUs) * time.Microsecond

	if bc.Backend == "sim" {
		bus := sim.NewBus()
		for _, u := range units {
			bus.Attach(sim.NewDevice(sim.Config{
				Address:   u.Device.Address,
				Size:      u.Device.Size,
				BitPeriod: bitPeriod,
			}))
		}
		return &backend{
			line:  bus,
			tick:  bus,
			guard: bus,
			err:   func() error { return nil },
			close: func() error { return nil },
		}, nil
	}

	var (
		pin hal.Pin
		err error
	)
	switch bc.Backend {
	case "gpiod":
		pin, err = hal.OpenGpiod(bc.Chip, bc.Line)
	case "periph":
		pin, err = hal.OpenPeriph(bc.Pin)
	default:
		err = fmt.Errorf("unknown backend %q", bc.Backend)
	}
	if err != nil {
		return nil, err
	}

	var guard sync.Locker
	if bc.Realtime {
		guard = &hal.ThreadGuard{}
	}

	return &backend{
		line:  pin,
		tick:  hal.NewSpinTicker(bitPeriod / 4),
		guard: guard,
		err:   pin.Err,
		close: pin.Close,
	}, nil
}
