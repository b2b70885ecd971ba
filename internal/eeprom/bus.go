// internal/eeprom/bus.go
package eeprom

import "sync"

// BusDevice is a Device that shares its line with other devices.
type BusDevice interface {
	Device
	Standby()
}

// Bus serializes devices on one SCIO line. A transaction addressed to a
// different device than the previous one starts with a standby pulse, so
// the previous device stops listening.
type Bus struct {
	mu     sync.Mutex
	active BusDevice
}

// Do runs fn with exclusive use of the line on behalf of dev.
func (b *Bus) Do(dev BusDevice, fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active != nil && b.active != dev {
		dev.Standby()
	}
	b.active = dev
	fn()
}

// Hold runs fn with exclusive use of the line without addressing any
// device, e.g. to read driver counters.
func (b *Bus) Hold(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}

// Attach returns a view of dev whose transfers go through the bus.
func (b *Bus) Attach(dev BusDevice) Device {
	return &busDevice{bus: b, dev: dev}
}

type busDevice struct {
	bus *Bus
	dev BusDevice
}

func (d *busDevice) Read(addr uint16, p []byte) (n int, err error) {
	d.bus.Do(d.dev, func() { n, err = d.dev.Read(addr, p) })
	return n, err
}

func (d *busDevice) Write(addr uint16, p []byte) (n int, err error) {
	d.bus.Do(d.dev, func() { n, err = d.dev.Write(addr, p) })
	return n, err
}
