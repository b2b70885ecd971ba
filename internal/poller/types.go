// internal/poller/types.go
package poller

import "time"

// ReadBlock describes one EEPROM read geometry.
// Geometry only: no semantics.
type ReadBlock struct {
	Address uint16
	Length  uint16
}

// BlockResult is the raw result of a single read.
type BlockResult struct {
	Address uint16
	Data    []byte
}

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	UnitID string
	At     time.Time

	// RawErrorCode is the bus error code of the failed read.
	// 0 means success.
	RawErrorCode uint16

	Blocks []BlockResult
	Err    error // non-nil means the poll cycle failed
}
