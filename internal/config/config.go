// internal/config/config.go
package config

type Config struct {
	Bridge BridgeConfig `yaml:"bridge" toml:"bridge"`
}

type BridgeConfig struct {
	Bus   BusConfig    `yaml:"bus" toml:"bus"`
	Units []UnitConfig `yaml:"units" toml:"units"`
}

// ---- BUS ----

// BusConfig selects the SCIO line backend shared by every unit.
type BusConfig struct {
	Backend string `yaml:"backend" toml:"backend"` // sim | gpiod | periph

	Chip string `yaml:"chip" toml:"chip"` // gpiod
	Line int    `yaml:"line" toml:"line"` // gpiod
	Pin  string `yaml:"pin" toml:"pin"`   // periph

	BitPeriodUs int  `yaml:"bit_period_us" toml:"bit_period_us"`
	Realtime    bool `yaml:"realtime" toml:"realtime"` // pin thread, hold GC during frames
}

// ---- UNIT ----

// UnitConfig is one EEPROM on the bus and where its contents are mirrored.
type UnitConfig struct {
	ID      string          `yaml:"id" toml:"id"`
	Device  DeviceConfig    `yaml:"device" toml:"device"`
	Program []ProgramConfig `yaml:"program" toml:"program"`
	Reads   []ReadConfig    `yaml:"reads" toml:"reads"`
	Targets []TargetConfig  `yaml:"targets" toml:"targets"`
	Poll    PollConfig      `yaml:"poll" toml:"poll"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Address uint8 `yaml:"address" toml:"address"` // 0 => 0xA0
	Size    int   `yaml:"size" toml:"size"`       // bytes; 0 => 2048

	// Device status block (optional, opt-in)
	StatusSlot *uint16 `yaml:"status_slot" toml:"status_slot"`
	DeviceName string  `yaml:"device_name" toml:"device_name"`
}

// ---- PROGRAM ----

// ProgramConfig is a write applied once at startup.
type ProgramConfig struct {
	Address uint16 `yaml:"address" toml:"address"`
	Data    string `yaml:"data" toml:"data"` // hex
}

// ---- READ GEOMETRY ----

type ReadConfig struct {
	Address uint16 `yaml:"address" toml:"address"` // byte address, even
	Length  uint16 `yaml:"length" toml:"length"`   // bytes
}

// ---- TARGET ----

type TargetConfig struct {
	ID           uint32 `yaml:"id" toml:"id"`
	Endpoint     string `yaml:"endpoint" toml:"endpoint"`
	UnitID       uint8  `yaml:"unit_id" toml:"unit_id"`               // data memory
	StatusUnitID *uint8 `yaml:"status_unit_id" toml:"status_unit_id"` // per-target status memory (optional)
	TimeoutMs    int    `yaml:"timeout_ms" toml:"timeout_ms"`

	// register = offset + address/2
	Offset uint16 `yaml:"offset" toml:"offset"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms" toml:"interval_ms"`
}

// ---- DEFAULTS ----

const (
	DefaultBackend       = "sim"
	DefaultBitPeriodUs   = 40
	DefaultDeviceAddress = 0xA0
	DefaultDeviceSize    = 2048
	DefaultTimeoutMs     = 1000
	DefaultIntervalMs    = 1000

	MaxDeviceName = 16
)

// RegisterSpan is the inclusive holding-register range a read covers on a
// target.
func RegisterSpan(t TargetConfig, r ReadConfig) (start, end uint16) {
	start = t.Offset + r.Address/2
	end = start + (r.Length+1)/2 - 1
	return start, end
}
