// internal/eeprom/memory.go
package eeprom

import (
	"errors"
	"fmt"
	"io"
)

// Geometry describes one member of the 11AAxxx family.
type Geometry struct {
	Size     int
	PageSize int
}

var (
	Geometry11AA010 = Geometry{128, 16}
	Geometry11AA020 = Geometry{256, 16}
	Geometry11AA040 = Geometry{512, 16}
	Geometry11AA080 = Geometry{1024, 16}
	Geometry11AA160 = Geometry{2048, 16}
)

// GeometryForSize picks the family member of the given size in bytes.
func GeometryForSize(size int) (Geometry, error) {
	for _, g := range []Geometry{
		Geometry11AA010, Geometry11AA020, Geometry11AA040, Geometry11AA080, Geometry11AA160,
	} {
		if g.Size == size {
			return g, nil
		}
	}
	return Geometry{}, fmt.Errorf("eeprom: no 11AA part of %d bytes", size)
}

// Device is the page-limited transfer surface of a bus driver.
type Device interface {
	Read(addr uint16, p []byte) (int, error)
	Write(addr uint16, p []byte) (int, error)
}

// Memory presents a Device as a flat array, splitting transfers at page
// boundaries. It is not safe for concurrent use.
type Memory struct {
	Geometry
	dev Device
}

var _ io.ReaderAt = (*Memory)(nil)
var _ io.WriterAt = (*Memory)(nil)

func New(dev Device, geo Geometry) (*Memory, error) {
	if dev == nil {
		return nil, errors.New("eeprom: device required")
	}
	if geo.Size <= 0 || geo.Size > 1<<16 {
		return nil, fmt.Errorf("eeprom: size %d out of range", geo.Size)
	}
	if geo.PageSize <= 0 || geo.PageSize&(geo.PageSize-1) != 0 || geo.Size%geo.PageSize != 0 {
		return nil, fmt.Errorf("eeprom: page size %d does not divide size %d", geo.PageSize, geo.Size)
	}
	return &Memory{Geometry: geo, dev: dev}, nil
}

// span limits [off, off+n) to the array. It returns io.EOF when the range
// was cut short.
func (m *Memory) span(off int64, n int) (int, error) {
	if off < 0 {
		return 0, errors.New("eeprom: negative offset")
	}
	if off >= int64(m.Size) {
		return 0, io.EOF
	}
	if rem := int64(m.Size) - off; int64(n) > rem {
		return int(rem), io.EOF
	}
	return n, nil
}

// ReadAt reads in page sized chunks.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	n, eof := m.span(off, len(p))
	if n == 0 {
		return 0, eof
	}

	done := 0
	for done < n {
		chunk := n - done
		if chunk > m.PageSize {
			chunk = m.PageSize
		}
		addr := uint16(off + int64(done))
		nr, err := m.dev.Read(addr, p[done:done+chunk])
		done += nr
		if err != nil {
			return done, err
		}
	}
	return done, eof
}

// WriteAt splits p so that no single device write crosses a page.
func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	n, eof := m.span(off, len(p))
	if n == 0 {
		return 0, eof
	}

	done := 0
	for done < n {
		pos := int(off) + done
		// bytes left in this page
		chunk := m.PageSize - pos&(m.PageSize-1)
		if chunk > n-done {
			chunk = n - done
		}
		nw, err := m.dev.Write(uint16(pos), p[done:done+chunk])
		done += nw
		if err != nil {
			return done, err
		}
	}
	return done, eof
}
