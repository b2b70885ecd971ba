// internal/config/validate.go
package config

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	type span struct {
		start uint16
		end   uint16
		unit  string
	}

	if err := validateBus(cfg.Bridge.Bus); err != nil {
		return err
	}

	if len(cfg.Bridge.Units) == 0 {
		return fmt.Errorf("bridge: no units defined")
	}

	// ------------------------------------------------------------
	// UNIT IDENTITY / DEVICE VALIDATION
	// ------------------------------------------------------------

	ids := make(map[string]struct{})
	addrOwner := make(map[uint8]string)

	for _, u := range cfg.Bridge.Units {
		if u.ID == "" {
			return fmt.Errorf("unit: id is required")
		}
		if _, dup := ids[u.ID]; dup {
			return fmt.Errorf("unit %q: duplicate id", u.ID)
		}
		ids[u.ID] = struct{}{}

		addr := effectiveAddress(u.Device)
		if prev, exists := addrOwner[addr]; exists {
			return fmt.Errorf(
				"device address collision: %#02x used by units %q and %q",
				addr,
				prev,
				u.ID,
			)
		}
		addrOwner[addr] = u.ID

		if err := validateUnit(u); err != nil {
			return err
		}
	}

	// ------------------------------------------------------------
	// DEVICE STATUS BLOCK VALIDATION (PER-TARGET, OPT-IN)
	// ------------------------------------------------------------

	// key = endpoint | status_unit_id | status_slot
	statusOwner := make(map[string]string)

	for _, u := range cfg.Bridge.Units {
		// device_name sanity (ASCII only)
		for i := 0; i < len(u.Device.DeviceName); i++ {
			if u.Device.DeviceName[i] > 0x7F {
				return fmt.Errorf(
					"unit %q: device_name must contain ASCII characters only",
					u.ID,
				)
			}
		}

		// status is opt-in
		if u.Device.StatusSlot == nil {
			continue
		}

		// status requires at least one target
		if len(u.Targets) == 0 {
			return fmt.Errorf(
				"unit %q: status_slot is set but no targets are defined",
				u.ID,
			)
		}

		slot := *u.Device.StatusSlot

		for _, t := range u.Targets {
			// each target must declare status_unit_id
			if t.StatusUnitID == nil {
				return fmt.Errorf(
					"unit %q: status_slot is set but target %q has no status_unit_id",
					u.ID,
					t.Endpoint,
				)
			}

			key := fmt.Sprintf(
				"%s|%d|%d",
				t.Endpoint,
				*t.StatusUnitID,
				slot,
			)

			if prev, exists := statusOwner[key]; exists {
				return fmt.Errorf(
					"status_slot collision: endpoint=%s status_unit_id=%d slot=%d used by units %q and %q",
					t.Endpoint,
					*t.StatusUnitID,
					slot,
					prev,
					u.ID,
				)
			}

			statusOwner[key] = u.ID
		}
	}

	// ------------------------------------------------------------
	// DESTINATION REGISTER GEOMETRY VALIDATION
	// ------------------------------------------------------------

	// key = endpoint | unit_id
	spans := make(map[string][]span)

	for _, u := range cfg.Bridge.Units {
		for _, t := range u.Targets {
			for _, r := range u.Reads {
				start, end := RegisterSpan(t, r)
				if end < start {
					return fmt.Errorf(
						"unit %q: target %q register range wraps past 65535",
						u.ID,
						t.Endpoint,
					)
				}

				key := fmt.Sprintf("%s|%d", t.Endpoint, t.UnitID)

				for _, s := range spans[key] {
					// overlap check (inclusive)
					if !(end < s.start || start > s.end) {
						return fmt.Errorf(
							"register overlap: endpoint=%s unit_id=%d range=%d-%d overlaps with unit=%s range=%d-%d",
							t.Endpoint,
							t.UnitID,
							start,
							end,
							s.unit,
							s.start,
							s.end,
						)
					}
				}

				spans[key] = append(spans[key], span{
					start: start,
					end:   end,
					unit:  u.ID,
				})
			}
		}
	}

	return nil
}

func validateBus(b BusConfig) error {
	switch b.Backend {
	case "", "sim":
	case "gpiod":
		if b.Chip == "" {
			return fmt.Errorf("bus: backend gpiod requires chip")
		}
		if b.Line < 0 {
			return fmt.Errorf("bus: line must be >= 0")
		}
	case "periph":
		if b.Pin == "" {
			return fmt.Errorf("bus: backend periph requires pin")
		}
	default:
		return fmt.Errorf("bus: unknown backend %q", b.Backend)
	}

	if b.BitPeriodUs != 0 && (b.BitPeriodUs < 10 || b.BitPeriodUs > 100) {
		return fmt.Errorf("bus: bit_period_us %d outside 10..100", b.BitPeriodUs)
	}
	return nil
}

func validateUnit(u UnitConfig) error {
	size := u.Device.Size
	switch size {
	case 0:
		size = DefaultDeviceSize
	case 128, 256, 512, 1024, 2048:
	default:
		return fmt.Errorf("unit %q: device size %d is not an 11AA part size", u.ID, size)
	}

	if u.Poll.IntervalMs < 0 {
		return fmt.Errorf("unit %q: interval_ms must be >= 0", u.ID)
	}

	for i, p := range u.Program {
		data, err := p.Bytes()
		if err != nil {
			return fmt.Errorf("unit %q: program[%d]: %w", u.ID, i, err)
		}
		if len(data) == 0 {
			return fmt.Errorf("unit %q: program[%d]: empty data", u.ID, i)
		}
		if int(p.Address)+len(data) > size {
			return fmt.Errorf("unit %q: program[%d]: %d bytes at %#04x exceed device size %d", u.ID, i, len(data), p.Address, size)
		}
	}

	for i, r := range u.Reads {
		if r.Length == 0 {
			return fmt.Errorf("unit %q: reads[%d]: length must be > 0", u.ID, i)
		}
		if r.Address%2 != 0 {
			return fmt.Errorf("unit %q: reads[%d]: address %#04x must be even", u.ID, i, r.Address)
		}
		if int(r.Address)+int(r.Length) > size {
			return fmt.Errorf("unit %q: reads[%d]: range exceeds device size %d", u.ID, i, size)
		}
	}

	for _, t := range u.Targets {
		if t.Endpoint == "" {
			return fmt.Errorf("unit %q: target %d has no endpoint", u.ID, t.ID)
		}
		if t.TimeoutMs < 0 {
			return fmt.Errorf("unit %q: target %q: timeout_ms must be >= 0", u.ID, t.Endpoint)
		}
	}

	return nil
}

func effectiveAddress(d DeviceConfig) uint8 {
	if d.Address == 0 {
		return DefaultDeviceAddress
	}
	return d.Address
}

// Bytes decodes the hex payload. Whitespace is ignored.
func (p ProgramConfig) Bytes() ([]byte, error) {
	s := strings.Join(strings.Fields(p.Data), "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	return b, nil
}
